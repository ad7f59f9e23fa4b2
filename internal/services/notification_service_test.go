package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/validator"
)

func newNotificationService(env *testEnv) NotificationService {
	return NewNotificationService(env.repo, env.cache, env.logger, env.validator, env.publisher)
}

func TestNotificationService_CreateFansOutPerReceiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newNotificationService(env)

	count, err := svc.Create(env.ctx, &CreateNotificationRequest{
		Title:       "家长会",
		Content:     "周五下午三点",
		Type:        models.NotificationNotice,
		ReceiverIDs: []string{"u1", "u2", "u1"},
		Extra:       map[string]interface{}{"room": "A101"},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, receiver := range []string{"u1", "u2"} {
		items, total, err := svc.ListForUser(env.ctx, receiver, repositories.NotificationFilters{})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		assert.Equal(t, models.PriorityNormal, items[0].Priority)
		assert.Equal(t, "admin", items[0].SenderID)
		assert.JSONEq(t, `{"room":"A101"}`, string(items[0].Extra))
	}

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.NotificationCreated, published[0].Type)
	assert.Equal(t, []string{"u1", "u2"}, published[0].Data["receiver_ids"])
}

func TestNotificationService_CreateValidates(t *testing.T) {
	env := newTestEnv(t)
	svc := newNotificationService(env)

	_, err := svc.Create(env.ctx, &CreateNotificationRequest{
		Title:   "t",
		Content: "c",
		Type:    "broadcast",
	}, "admin")

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	assert.True(t, fields["type"])
	assert.True(t, fields["receiverIds"])
	assert.Empty(t, env.publisher.GetPublishedEvents())
}

func TestNotificationService_ReadState(t *testing.T) {
	env := newTestEnv(t)
	svc := newNotificationService(env)

	_, err := svc.Create(env.ctx, &CreateNotificationRequest{
		Title: "a", Content: "a", Type: models.NotificationSystem, ReceiverIDs: []string{"u1"},
	}, "admin")
	require.NoError(t, err)
	_, err = svc.Create(env.ctx, &CreateNotificationRequest{
		Title: "b", Content: "b", Type: models.NotificationReminder, ReceiverIDs: []string{"u1", "u2"},
	}, "admin")
	require.NoError(t, err)

	unread, err := svc.UnreadCount(env.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	items, _, err := svc.ListForUser(env.ctx, "u1", repositories.NotificationFilters{})
	require.NoError(t, err)
	first := items[0]

	t.Run("other users cannot read or mark it", func(t *testing.T) {
		_, err := svc.GetForUser(env.ctx, first.ID, "u3")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.MarkRead(env.ctx, first.ID, "u3"), ErrNotFound)
	})

	require.NoError(t, svc.MarkRead(env.ctx, first.ID, "u1"))
	got, err := svc.GetForUser(env.ctx, first.ID, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.NotNil(t, got.ReadAt)

	isRead := false
	unreadItems, total, err := svc.ListForUser(env.ctx, "u1", repositories.NotificationFilters{IsRead: &isRead})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.NotEqual(t, first.ID, unreadItems[0].ID)

	updated, err := svc.MarkAllRead(env.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, err = svc.UnreadCount(env.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = svc.UnreadCount(env.ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := newNotificationService(env)

	assert.ErrorIs(t, svc.Delete(env.ctx, 42), ErrNotFound)
}
