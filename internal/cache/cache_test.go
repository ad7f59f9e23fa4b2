package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheManager(client, nil), mr
}

type overview struct {
	Students int64 `json:"students"`
}

func TestRememberFetchesOnceThenServesFromCache(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (*overview, error) {
		calls++
		return &overview{Students: 42}, nil
	}

	_, err := Remember(ctx, cm.Stats, OverviewKey("kindergarten"), fetch)
	require.NoError(t, err)
	second, err := Remember(ctx, cm.Stats, OverviewKey("kindergarten"), fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(42), second.Students)
	assert.True(t, mr.Exists("kg:stats:kindergarten:overview"))

	mr.FastForward(DefaultTTL + time.Second)
	assert.False(t, mr.Exists("kg:stats:kindergarten:overview"))
}

func TestRememberPropagatesFetchError(t *testing.T) {
	cm, mr := newTestManager(t)
	boom := errors.New("db down")

	_, err := Remember(context.Background(), cm.Stats, "k", func() (*overview, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("kg:stats:k"))
}

func TestRememberRecoversFromCorruptEntry(t *testing.T) {
	cm, mr := newTestManager(t)
	require.NoError(t, mr.Set("kg:stats:k", "{not json"))

	got, err := Remember(context.Background(), cm.Stats, "k", func() (*overview, error) {
		return &overview{Students: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Students)

	stored, err := mr.Get("kg:stats:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"students":7}`, stored)
}

func TestInvalidateActivityIsTenantScoped(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Activity.Store(ctx, ActivityStatsKey("kindergarten"), 1))
	require.NoError(t, cm.Activity.Store(ctx, ActivityStatsKey("kg_demo"), 1))
	require.NoError(t, cm.Stats.Store(ctx, OverviewKey("kindergarten"), 1))

	cm.InvalidateActivity(ctx, "kindergarten")

	assert.False(t, mr.Exists("kg:activity:kindergarten:statistics"))
	assert.False(t, mr.Exists("kg:stats:kindergarten:overview"))
	assert.True(t, mr.Exists("kg:activity:kg_demo:statistics"))
}

func TestForgetMatchingHandlesManyKeys(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 2*scanBatch+5; i++ {
		require.NoError(t, cm.Activity.Store(ctx, Key("kindergarten", "k", strconv.Itoa(i)), i))
	}
	require.NoError(t, cm.Activity.Store(ctx, ActivityStatsKey("kg_demo"), 1))

	cm.Activity.ForgetMatching(ctx, Key("kindergarten", "*"))
	assert.Equal(t, []string{"kg:activity:kg_demo:statistics"}, mr.Keys())
}

func TestNilClientDegradesGracefully(t *testing.T) {
	cm := NewCacheManager(nil, nil)
	ctx := context.Background()

	assert.NoError(t, cm.Stats.Store(ctx, "k", 1))
	assert.ErrorIs(t, cm.Stats.Load(ctx, "k", new(int)), ErrCacheNotAvailable)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)
	cm.InvalidateActivity(ctx, "kindergarten")

	got, err := Remember(ctx, cm.Stats, "k", func() (overview, error) {
		return overview{Students: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Students)
}

func TestHealthCheck(t *testing.T) {
	cm, _ := newTestManager(t)
	assert.NoError(t, cm.HealthCheck(context.Background()))
}
