package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/metrics"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

const aiProvider = "volcengine-ark"

type aiService struct {
	repo      repositories.Repository
	streamer  ChatStreamer
	cfg       config.AIConfig
	logger    utils.Logger
	validator *validator.Validator
}

// NewAIService accepts a nil streamer; chat streaming then reports ErrProviderUnavailable.
func NewAIService(repo repositories.Repository, streamer ChatStreamer, cfg config.AIConfig, logger utils.Logger, validator *validator.Validator) AIService {
	return &aiService{
		repo:      repo,
		streamer:  streamer,
		cfg:       cfg,
		logger:    logger.With("service", "ai"),
		validator: validator,
	}
}

func (s *aiService) Models() []models.AIModel {
	ids := s.cfg.Models
	if len(ids) == 0 && s.cfg.Model != "" {
		ids = []string{s.cfg.Model}
	}
	out := make([]models.AIModel, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.AIModel{ID: id, Provider: aiProvider, IsDefault: id == s.cfg.Model})
	}
	return out
}

// ===== SHORTCUTS =====

func (s *aiService) ListShortcuts(ctx context.Context, userID string, filters repositories.ShortcutFilters) ([]*models.AIShortcut, int64, error) {
	shortcuts, total, err := s.repo.AIShortcut().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shortcuts: %w", err)
	}
	return shortcuts, total, nil
}

func (s *aiService) GetShortcut(ctx context.Context, id uint, userID string) (*models.AIShortcut, error) {
	shortcut, err := s.repo.AIShortcut().GetByID(ctx, id, userID)
	if err != nil {
		return nil, translateRepoError(err, "快捷指令", "get shortcut")
	}
	return shortcut, nil
}

func (s *aiService) CreateShortcut(ctx context.Context, req *CreateShortcutRequest, userID string) (*models.AIShortcut, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, userID, req.Name, 0); err != nil {
		return nil, err
	}

	settings, err := configJSON(req.Config)
	if err != nil {
		return nil, err
	}

	shortcut := &models.AIShortcut{
		UserID:    userID,
		Name:      req.Name,
		Prompt:    req.Prompt,
		Category:  req.Category,
		Config:    settings,
		SortOrder: req.SortOrder,
		IsActive:  true,
	}
	if req.IsActive != nil {
		shortcut.IsActive = *req.IsActive
	}

	if err := s.repo.AIShortcut().Create(ctx, shortcut); err != nil {
		return nil, translateRepoError(err, "快捷指令", "create shortcut")
	}
	return shortcut, nil
}

func (s *aiService) UpdateShortcut(ctx context.Context, id uint, req *UpdateShortcutRequest, userID string) (*models.AIShortcut, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	shortcut, err := s.repo.AIShortcut().GetByID(ctx, id, userID)
	if err != nil {
		return nil, translateRepoError(err, "快捷指令", "get shortcut")
	}

	if req.Name != nil && *req.Name != shortcut.Name {
		if err := s.ensureUniqueName(ctx, userID, *req.Name, id); err != nil {
			return nil, err
		}
		shortcut.Name = *req.Name
	}
	if req.Prompt != nil {
		shortcut.Prompt = *req.Prompt
	}
	if req.Category != nil {
		shortcut.Category = req.Category
	}
	if req.Config != nil {
		settings, err := configJSON(req.Config)
		if err != nil {
			return nil, err
		}
		shortcut.Config = settings
	}
	if req.SortOrder != nil {
		shortcut.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		shortcut.IsActive = *req.IsActive
	}

	if err := s.repo.AIShortcut().Update(ctx, shortcut); err != nil {
		return nil, translateRepoError(err, "快捷指令", "update shortcut")
	}
	return shortcut, nil
}

func (s *aiService) DeleteShortcut(ctx context.Context, id uint, userID string) error {
	if err := s.repo.AIShortcut().Delete(ctx, id, userID); err != nil {
		return translateRepoError(err, "快捷指令", "delete shortcut")
	}
	return nil
}

func (s *aiService) ensureUniqueName(ctx context.Context, userID, name string, excludeID uint) error {
	exists, err := s.repo.AIShortcut().ExistsByName(ctx, userID, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check shortcut name: %w", err)
	}
	if exists {
		return NewConflictError("快捷指令名称已存在")
	}
	return nil
}

// Analysis returns a fixed sample document. There is no analysis store behind it.
func (s *aiService) Analysis(ctx context.Context, id uint) (map[string]interface{}, error) {
	return map[string]interface{}{
		"id":      id,
		"type":    "student_development",
		"status":  "completed",
		"summary": "整体发展良好，语言表达与社交能力突出，精细动作仍有提升空间。",
		"scores": map[string]int{
			"language":   88,
			"social":     91,
			"cognitive":  84,
			"motor":      76,
			"creativity": 86,
		},
		"suggestions": []string{
			"增加串珠、剪纸等精细动作练习",
			"鼓励在集体活动中担任小组长",
			"保持每日亲子阅读习惯",
		},
		"generatedAt": "2024-01-01T00:00:00Z",
	}, nil
}

// ===== STREAMING =====

func (s *aiService) ValidateChat(req *ChatRequest) error {
	return s.validator.Validate(req)
}

func (s *aiService) StreamAvailable() bool {
	return s.streamer != nil
}

// StreamChat forwards provider deltas to emit in order. ctx cancellation stops the upstream call.
func (s *aiService) StreamChat(ctx context.Context, req *ChatRequest, emit func(chunk string) error) error {
	if s.streamer == nil {
		return withMessage(ErrProviderUnavailable, "AI 服务未配置")
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}

	err := s.streamer.Stream(ctx, model, req.Messages, func(chunk string) error {
		metrics.RecordStreamChunk(model)
		return emit(chunk)
	})
	if err != nil {
		metrics.RecordStreamError(model)
		s.logger.Warn("Chat stream failed", "model", model, "error", err)
		return err
	}
	return nil
}

func configJSON(settings map[string]interface{}) (datatypes.JSON, error) {
	if settings == nil {
		return nil, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, validator.Field("config", "must be a JSON object", "json")
	}
	return datatypes.JSON(data), nil
}
