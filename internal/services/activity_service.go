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

type activityService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    utils.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewActivityService(repo repositories.Repository, cacheManager *cache.CacheManager, logger utils.Logger, validator *validator.Validator, publisher events.EventPublisher) ActivityService {
	return &activityService{
		repo:      repo,
		cache:     cacheManager,
		logger:    logger.With("service", "activity"),
		validator: validator,
		publisher: publisher,
	}
}

func (s *activityService) List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	activities, total, err := s.repo.Activity().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, total, nil
}

func (s *activityService) GetByID(ctx context.Context, id uint) (*models.Activity, error) {
	activity, err := s.repo.Activity().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "活动", "get activity")
	}
	return activity, nil
}

func (s *activityService) Create(ctx context.Context, req *CreateActivityRequest, creatorID string) (*models.Activity, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Activity().ExistsByTitleOnDate(ctx, req.Title, req.StartTime, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check activity title: %w", err)
	}
	if exists {
		return nil, NewConflictError("同一天已存在同名活动")
	}

	activity := &models.Activity{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity,
		Status:      req.Status,
		Tags:        tagsJSON(req.Tags),
		CreatedBy:   creatorID,
	}
	if activity.Status == "" {
		activity.Status = models.ActivityDraft
	}

	if err := s.repo.Activity().Create(ctx, activity); err != nil {
		return nil, translateRepoError(err, "活动", "create activity")
	}

	s.invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.ActivityCreated, map[string]interface{}{
		"activity_id": activity.ID,
		"title":       activity.Title,
		"type":        activity.Type,
		"start_time":  activity.StartTime,
		"created_by":  creatorID,
	})

	s.logger.Info("Activity created", "activity_id", activity.ID, "created_by", creatorID)
	return activity, nil
}

func (s *activityService) Update(ctx context.Context, id uint, req *UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	activity, err := s.repo.Activity().GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "活动", "get activity")
	}

	if req.Title != nil {
		activity.Title = *req.Title
	}
	if req.Description != nil {
		activity.Description = req.Description
	}
	if req.Type != nil {
		activity.Type = *req.Type
	}
	if req.Location != nil {
		activity.Location = req.Location
	}
	if req.StartTime != nil {
		activity.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		activity.EndTime = *req.EndTime
	}
	if req.Capacity != nil {
		activity.Capacity = *req.Capacity
	}
	if req.Tags != nil {
		activity.Tags = tagsJSON(req.Tags)
	}

	if activity.EndTime.Before(activity.StartTime) {
		return nil, validator.Field("endTime", "must not be before startTime", "gtefield")
	}

	if req.Title != nil || req.StartTime != nil {
		exists, err := s.repo.Activity().ExistsByTitleOnDate(ctx, activity.Title, activity.StartTime, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check activity title: %w", err)
		}
		if exists {
			return nil, NewConflictError("同一天已存在同名活动")
		}
	}

	if err := s.repo.Activity().Update(ctx, activity); err != nil {
		return nil, translateRepoError(err, "活动", "update activity")
	}
	s.invalidate(ctx)
	return activity, nil
}

func (s *activityService) UpdateStatus(ctx context.Context, id uint, req *UpdateActivityStatusRequest) (*models.Activity, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.repo.Activity().UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, translateRepoError(err, "活动", "update activity status")
	}
	s.invalidate(ctx)
	return s.GetByID(ctx, id)
}

func (s *activityService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Activity().Delete(ctx, id); err != nil {
		return translateRepoError(err, "活动", "delete activity")
	}
	s.invalidate(ctx)
	return nil
}

// Statistics is cached per tenant for cache.DefaultTTL.
func (s *activityService) Statistics(ctx context.Context) (*models.ActivityStatistics, error) {
	schema, _ := tenant.SchemaFromContext(ctx)

	stats, err := cache.Remember(ctx, s.cache.Activity, cache.ActivityStatsKey(schema), func() (*models.ActivityStatistics, error) {
		return s.repo.Activity().Statistics(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load activity statistics: %w", err)
	}
	return stats, nil
}

func (s *activityService) invalidate(ctx context.Context) {
	schema, ok := tenant.SchemaFromContext(ctx)
	if !ok {
		return
	}
	s.cache.InvalidateActivity(ctx, schema)
}

func tagsJSON(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
