package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/repositories/memory"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

const testSchema = "kindergarten"

type testEnv struct {
	ctx       context.Context
	repo      *memory.Repository
	cache     *cache.CacheManager
	redis     *miniredis.Miniredis
	publisher *events.MockEventPublisher
	logger    utils.Logger
	validator *validator.Validator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := utils.NewNopLogger()
	return &testEnv{
		ctx:       tenant.WithSchema(context.Background(), testSchema),
		repo:      memory.New(),
		cache:     cache.NewCacheManager(client, logger),
		redis:     mr,
		publisher: events.NewMockEventPublisher(),
		logger:    logger,
		validator: validator.New(),
	}
}

func strPtr(s string) *string { return &s }
