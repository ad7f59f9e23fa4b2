package services

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

// checkinService answers the activity check-in API without persisting anything.
// Created records get a random id and are never readable again.
type checkinService struct {
	logger    utils.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewCheckinService(logger utils.Logger, validator *validator.Validator, publisher events.EventPublisher) CheckinService {
	return &checkinService{
		logger:    logger.With("service", "checkin"),
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *checkinService) Create(ctx context.Context, body map[string]interface{}) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(body)+2)
	for k, v := range body {
		record[k] = v
	}
	record["id"] = rand.IntN(1_000_000) + 1
	record["createTime"] = s.now().Format(time.RFC3339)

	publish(ctx, s.publisher, s.logger, events.CheckinCreated, map[string]interface{}{
		"checkin_id": record["id"],
	})
	return record, nil
}

func (s *checkinService) Batch(ctx context.Context, req *BatchCheckinRequest) (*BatchCheckinResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return &BatchCheckinResult{SuccessCount: len(req.RegistrationIDs), FailedCount: 0}, nil
}

func (s *checkinService) GetByID(ctx context.Context, id uint) (map[string]interface{}, error) {
	return nil, NewNotFoundError("签到记录")
}

func (s *checkinService) Update(ctx context.Context, id uint, body map[string]interface{}) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(body)+2)
	for k, v := range body {
		record[k] = v
	}
	record["id"] = id
	record["updateTime"] = s.now().Format(time.RFC3339)
	return record, nil
}

func (s *checkinService) Delete(ctx context.Context, id uint) error {
	return nil
}

func (s *checkinService) Stats(ctx context.Context, activityID uint) (*CheckinStats, error) {
	return &CheckinStats{ActivityID: activityID}, nil
}
