package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
)

func TestStatisticsService_Overview(t *testing.T) {
	env := newTestEnv(t)
	svc := NewStatisticsService(env.repo, env.cache, env.logger)
	students := newStudentService(env)
	notifications := newNotificationService(env)

	_, err := students.Create(env.ctx, &CreateStudentRequest{Name: "a", StudentNo: "1"})
	require.NoError(t, err)
	_, err = students.Create(env.ctx, &CreateStudentRequest{Name: "b", StudentNo: "2", Status: models.StudentGraduated})
	require.NoError(t, err)

	overview, err := svc.Overview(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, &OverviewStats{Students: 2, ActiveStudents: 1}, overview)
	assert.True(t, env.redis.Exists("kg:stats:kindergarten:overview"))

	// Creating notifications drops the cached overview.
	_, err = notifications.Create(env.ctx, &CreateNotificationRequest{
		Title: "t", Content: "c", Type: models.NotificationSystem, ReceiverIDs: []string{"u1", "u2"},
	}, "admin")
	require.NoError(t, err)
	assert.False(t, env.redis.Exists("kg:stats:kindergarten:overview"))

	overview, err = svc.Overview(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.UnreadNotifications)
}

func TestStatisticsService_DashboardIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	svc := NewStatisticsService(env.repo, env.cache, env.logger)

	a, err := svc.Dashboard(env.ctx)
	require.NoError(t, err)
	b, err := svc.Dashboard(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "revenue")
}

func TestNotImplementedOperations(t *testing.T) {
	env := newTestEnv(t)
	stats := NewStatisticsService(env.repo, env.cache, env.logger)
	system := NewSystemService("test", time.Now(), env.logger)

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "statistics export", err: stats.Export(env.ctx), message: "导出功能暂未实现"},
		{name: "clear cache", err: system.ClearCache(env.ctx), message: "清理缓存功能暂未实现"},
		{name: "test email", err: system.TestEmail(env.ctx), message: "邮件服务测试功能暂未实现"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, ErrNotImplemented)
			var userErr *UserMessageError
			require.True(t, errors.As(tt.err, &userErr))
			assert.Equal(t, tt.message, userErr.Message)
		})
	}
}

func TestSystemService_Info(t *testing.T) {
	env := newTestEnv(t)
	started := time.Now().Add(-time.Minute)
	info := NewSystemService("production", started, env.logger).Info(env.ctx)

	assert.Equal(t, ServiceName, info.Service)
	assert.Equal(t, "production", info.Environment)
	assert.GreaterOrEqual(t, info.UptimeSeconds, int64(59))
}

func TestCheckinService(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCheckinService(env.logger, env.validator, env.publisher)

	record, err := svc.Create(env.ctx, map[string]interface{}{"registrationId": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, record["registrationId"])
	assert.NotZero(t, record["id"])
	assert.NotEmpty(t, record["createTime"])
	require.Len(t, env.publisher.GetPublishedEvents(), 1)
	assert.Equal(t, events.CheckinCreated, env.publisher.GetPublishedEvents()[0].Type)

	result, err := svc.Batch(env.ctx, &BatchCheckinRequest{RegistrationIDs: []uint{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, &BatchCheckinResult{SuccessCount: 3}, result)

	_, err = svc.Batch(env.ctx, &BatchCheckinRequest{})
	assert.Error(t, err)

	_, err = svc.GetByID(env.ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := svc.Stats(env.ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, uint(9), stats.ActivityID)
	assert.Zero(t, stats.CheckedIn)
}

func TestServiceManager(t *testing.T) {
	env := newTestEnv(t)
	sm := NewServiceManager(Dependencies{
		Repo:      env.repo,
		Cache:     env.cache,
		Publisher: env.publisher,
		Logger:    env.logger,
		Validator: env.validator,
	}, ServiceManagerConfig{Environment: "test", UploadDir: t.TempDir(), AI: testAIConfig})

	assert.Panics(t, func() { sm.Student() })
	assert.Error(t, sm.HealthCheck(env.ctx))

	require.NoError(t, sm.Initialize(env.ctx))
	assert.NotNil(t, sm.Student())
	assert.NotNil(t, sm.Task())
	assert.False(t, sm.AI().StreamAvailable())
	require.NoError(t, sm.HealthCheck(env.ctx))

	env.repo.PingErr = errors.New("db down")
	assert.Error(t, sm.HealthCheck(env.ctx))

	require.NoError(t, sm.Shutdown(env.ctx))
	assert.Error(t, sm.HealthCheck(env.ctx))
}
