package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

type notificationService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    utils.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewNotificationService(repo repositories.Repository, cacheManager *cache.CacheManager, logger utils.Logger, validator *validator.Validator, publisher events.EventPublisher) NotificationService {
	return &notificationService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger.With("service", "notification"),
		validator: validator,
		publisher: publisher,
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	notifications, total, err := s.repo.Notification().ListForReceiver(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// GetForUser only returns the caller's own notifications; others read as not found.
func (s *notificationService) GetForUser(ctx context.Context, id uint, userID string) (*models.Notification, error) {
	notification, err := s.repo.Notification().GetForReceiver(ctx, id, userID)
	if err != nil {
		return nil, translateRepoError(err, "通知", "get notification")
	}
	return notification, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification().CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) error {
	if err := s.repo.Notification().MarkRead(ctx, id, userID); err != nil {
		return translateRepoError(err, "通知", "mark notification read")
	}
	s.invalidate(ctx)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.repo.Notification().MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	if updated > 0 {
		s.invalidate(ctx)
	}
	return updated, nil
}

// Create fans one request out to a notification per receiver, in one transaction.
func (s *notificationService) Create(ctx context.Context, req *CreateNotificationRequest, senderID string) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		return 0, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	var extra datatypes.JSON
	if len(req.Extra) > 0 {
		data, err := json.Marshal(req.Extra)
		if err != nil {
			return 0, validator.Field("extra", "must be a JSON object", "json")
		}
		extra = datatypes.JSON(data)
	}

	receivers := uniqueStrings(req.ReceiverIDs)
	notifications := make([]*models.Notification, 0, len(receivers))
	for _, receiverID := range receivers {
		notifications = append(notifications, &models.Notification{
			Title:      req.Title,
			Content:    req.Content,
			Type:       req.Type,
			Priority:   priority,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Extra:      extra,
		})
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Notification().CreateBatch(ctx, notifications)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create notifications: %w", err)
	}

	s.invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.NotificationCreated, map[string]interface{}{
		"title":        req.Title,
		"type":         string(req.Type),
		"priority":     string(priority),
		"sender_id":    senderID,
		"receiver_ids": receivers,
	})

	s.logger.Info("Notifications created", "count", len(notifications), "sender_id", senderID)
	return len(notifications), nil
}

func (s *notificationService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Notification().Delete(ctx, id); err != nil {
		return translateRepoError(err, "通知", "delete notification")
	}
	s.invalidate(ctx)
	return nil
}

func (s *notificationService) invalidate(ctx context.Context) {
	if schema, ok := tenant.SchemaFromContext(ctx); ok {
		s.cache.InvalidateOverview(ctx, schema)
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
