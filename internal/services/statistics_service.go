package services

import (
	"context"
	"fmt"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
)

type statisticsService struct {
	repo   repositories.Repository
	cache  *cache.CacheManager
	logger utils.Logger
}

func NewStatisticsService(repo repositories.Repository, cacheManager *cache.CacheManager, logger utils.Logger) StatisticsService {
	return &statisticsService{
		repo:   repo,
		cache:  cacheManager,
		logger: logger.With("service", "statistics"),
	}
}

// Overview counts tenant records, cached per tenant for cache.DefaultTTL.
func (s *statisticsService) Overview(ctx context.Context) (*OverviewStats, error) {
	schema, _ := tenant.SchemaFromContext(ctx)

	stats, err := cache.Remember(ctx, s.cache.Stats, cache.OverviewKey(schema), func() (*OverviewStats, error) {
		return s.loadOverview(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}
	return stats, nil
}

func (s *statisticsService) loadOverview(ctx context.Context) (*OverviewStats, error) {
	counts, err := s.repo.Student().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.repo.Activity().Count(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.Notification().CountAllUnread(ctx)
	if err != nil {
		return nil, err
	}

	stats := &OverviewStats{
		ActiveStudents:      counts[models.StudentActive],
		Activities:          activities,
		UnreadNotifications: unread,
	}
	for _, n := range counts {
		stats.Students += n
	}
	return stats, nil
}

type trendPoint struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Dashboard returns a fixed sample payload.
func (s *statisticsService) Dashboard(ctx context.Context) (map[string]interface{}, error) {
	revenue := []trendPoint{
		{Date: "2025-01", Value: 105000, Label: "1月"},
		{Date: "2024-12", Value: 98000, Label: "12月"},
		{Date: "2024-11", Value: 102000, Label: "11月"},
		{Date: "2024-10", Value: 110000, Label: "10月"},
		{Date: "2024-09", Value: 95000, Label: "9月"},
		{Date: "2024-08", Value: 108000, Label: "8月"},
	}

	return map[string]interface{}{
		"enrollment": map[string]interface{}{
			"total":    0,
			"approved": 0,
			"pending":  0,
			"rejected": 0,
			"trends":   []trendPoint{},
		},
		"students": map[string]interface{}{
			"total":    0,
			"byAge":    map[string]int{"3-4岁": 35, "4-5岁": 45, "5-6岁": 40, "6-7岁": 25},
			"byGender": map[string]int{"male": 0, "female": 0},
			"byClass":  map[string]int{"小班": 30, "中班": 35, "大班": 32, "学前班": 28},
			"trends":   []trendPoint{},
		},
		"revenue": map[string]interface{}{
			"total":   1250000,
			"byMonth": revenue,
			"bySource": map[string]int{
				"学费收入": 850000,
				"餐费收入": 200000,
				"活动费用": 120000,
				"其他收入": 80000,
			},
			"trends": revenue,
		},
		"activities": map[string]interface{}{
			"total":         0,
			"published":     0,
			"draft":         0,
			"participation": []trendPoint{},
		},
	}, nil
}

func (s *statisticsService) Export(ctx context.Context) error {
	return NewNotImplementedError("导出功能暂未实现")
}
