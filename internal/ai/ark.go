package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/models"
)

// ArkStreamer streams chat completions from Volcengine Ark.
type ArkStreamer struct {
	client       *arkruntime.Client
	defaultModel string
}

// NewArkStreamer returns nil when no API key is configured.
func NewArkStreamer(cfg config.AIConfig) *ArkStreamer {
	if cfg.APIKey == "" {
		return nil
	}
	client := arkruntime.NewClientWithApiKey(cfg.APIKey, arkruntime.WithBaseUrl(cfg.BaseURL))
	return &ArkStreamer{client: client, defaultModel: cfg.Model}
}

// Stream sends the conversation and calls emit for each non-empty content delta, in order.
// It returns when the provider finishes, ctx is done, or emit fails.
func (s *ArkStreamer) Stream(ctx context.Context, modelID string, messages []models.ChatMessage, emit func(chunk string) error) error {
	if modelID == "" {
		modelID = s.defaultModel
	}

	req := model.CreateChatCompletionRequest{
		Model:    modelID,
		Messages: toArkMessages(messages),
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("ark stream request failed: %w", err)
	}
	defer stream.Close()

	for {
		recv, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ark stream receive failed: %w", err)
		}
		for _, choice := range recv.Choices {
			if choice == nil || choice.Delta.Content == "" {
				continue
			}
			if err := emit(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
}

func toArkMessages(messages []models.ChatMessage) []*model.ChatCompletionMessage {
	out := make([]*model.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, &model.ChatCompletionMessage{
			Role: m.Role,
			Content: &model.ChatCompletionMessageContent{
				StringValue: volcengine.String(m.Content),
			},
		})
	}
	return out
}
