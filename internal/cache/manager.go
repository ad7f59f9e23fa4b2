package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yyup/kindergarten-service/internal/utils"
)

const (
	statsPrefix    = "kg:stats:"
	activityPrefix = "kg:activity:"

	// DefaultTTL bounds how stale dashboard aggregates may get.
	DefaultTTL = 5 * time.Minute
)

// CacheManager holds the namespaces shared by services.
type CacheManager struct {
	Stats    *Namespace
	Activity *Namespace

	client *redis.Client
}

func NewCacheManager(client *redis.Client, logger utils.Logger) *CacheManager {
	return &CacheManager{
		Stats:    NewNamespace(client, statsPrefix, DefaultTTL, logger),
		Activity: NewNamespace(client, activityPrefix, DefaultTTL, logger),
		client:   client,
	}
}

// OverviewKey is where the tenant's dashboard counts live.
func OverviewKey(schema string) string {
	return Key(schema, "overview")
}

// ActivityStatsKey is where the tenant's activity aggregates live.
func ActivityStatsKey(schema string) string {
	return Key(schema, "statistics")
}

// InvalidateActivity drops the tenant's activity aggregates and the overview that counts them.
func (cm *CacheManager) InvalidateActivity(ctx context.Context, schema string) {
	cm.Activity.ForgetMatching(ctx, Key(schema, "*"))
	cm.InvalidateOverview(ctx, schema)
}

func (cm *CacheManager) InvalidateOverview(ctx context.Context, schema string) {
	cm.Stats.Forget(ctx, OverviewKey(schema))
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
