package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/validator"
)

type fakeStreamer struct {
	chunks  []string
	err     error
	modelID string
}

func (f *fakeStreamer) Stream(ctx context.Context, modelID string, messages []models.ChatMessage, emit func(string) error) error {
	f.modelID = modelID
	for _, c := range f.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(c); err != nil {
			return err
		}
	}
	return f.err
}

var testAIConfig = config.AIConfig{Model: "doubao-pro", Models: []string{"doubao-pro", "doubao-lite"}}

func chatRequest() *ChatRequest {
	return &ChatRequest{Messages: []models.ChatMessage{{Role: "user", Content: "你好"}}}
}

func TestAIService_Models(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAIService(env.repo, nil, testAIConfig, env.logger, env.validator)

	list := svc.Models()
	require.Len(t, list, 2)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)
	assert.Equal(t, "volcengine-ark", list[1].Provider)
}

func TestAIService_StreamChat(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unconfigured provider is unavailable", func(t *testing.T) {
		svc := NewAIService(env.repo, nil, testAIConfig, env.logger, env.validator)
		assert.False(t, svc.StreamAvailable())

		err := svc.StreamChat(env.ctx, chatRequest(), func(string) error { return nil })
		require.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("chunks arrive in order with the default model", func(t *testing.T) {
		streamer := &fakeStreamer{chunks: []string{"你", "好", "！"}}
		svc := NewAIService(env.repo, streamer, testAIConfig, env.logger, env.validator)

		var got []string
		err := svc.StreamChat(env.ctx, chatRequest(), func(c string) error {
			got = append(got, c)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"你", "好", "！"}, got)
		assert.Equal(t, "doubao-pro", streamer.modelID)
	})

	t.Run("provider failure after partial output is returned", func(t *testing.T) {
		boom := errors.New("upstream reset")
		streamer := &fakeStreamer{chunks: []string{"部分"}, err: boom}
		svc := NewAIService(env.repo, streamer, testAIConfig, env.logger, env.validator)

		var got []string
		req := chatRequest()
		req.Model = "doubao-lite"
		err := svc.StreamChat(env.ctx, req, func(c string) error {
			got = append(got, c)
			return nil
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"部分"}, got)
		assert.Equal(t, "doubao-lite", streamer.modelID)
	})

	t.Run("empty conversation fails validation", func(t *testing.T) {
		svc := NewAIService(env.repo, &fakeStreamer{}, testAIConfig, env.logger, env.validator)
		err := svc.ValidateChat(&ChatRequest{})

		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, "messages", verrs[0].Field)
	})
}

func TestAIService_Shortcuts(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAIService(env.repo, nil, testAIConfig, env.logger, env.validator)

	created, err := svc.CreateShortcut(env.ctx, &CreateShortcutRequest{
		Name:   "周报",
		Prompt: "帮我写一份班级周报",
		Config: map[string]interface{}{"temperature": 0.3},
	}, "u1")
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.JSONEq(t, `{"temperature":0.3}`, string(created.Config))

	t.Run("names are unique per user", func(t *testing.T) {
		_, err := svc.CreateShortcut(env.ctx, &CreateShortcutRequest{Name: "周报", Prompt: "x"}, "u1")
		assert.ErrorIs(t, err, ErrConflict)

		_, err = svc.CreateShortcut(env.ctx, &CreateShortcutRequest{Name: "周报", Prompt: "x"}, "u2")
		assert.NoError(t, err)
	})

	t.Run("shortcuts are private to their owner", func(t *testing.T) {
		_, err := svc.GetShortcut(env.ctx, created.ID, "u2")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.DeleteShortcut(env.ctx, created.ID, "u2"), ErrNotFound)
	})

	inactive := false
	updated, err := svc.UpdateShortcut(env.ctx, created.ID, &UpdateShortcutRequest{
		Prompt:   strPtr("帮我写一份月报"),
		IsActive: &inactive,
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "帮我写一份月报", updated.Prompt)
	assert.False(t, updated.IsActive)

	list, total, err := svc.ListShortcuts(env.ctx, "u1", repositories.ShortcutFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, created.ID, list[0].ID)

	require.NoError(t, svc.DeleteShortcut(env.ctx, created.ID, "u1"))
	_, err = svc.GetShortcut(env.ctx, created.ID, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAIService_AnalysisIsFixed(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAIService(env.repo, nil, testAIConfig, env.logger, env.validator)

	a, err := svc.Analysis(env.ctx, 7)
	require.NoError(t, err)
	b, err := svc.Analysis(env.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, uint(7), a["id"])
}
