package checks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/upi-guard/pkg/config"
	redisClient "github.com/richxcame/upi-guard/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{RecentChecksTTL: 30 * time.Second, CheckTTL: 10 * time.Minute, KeyPrefix: "test"}
	return NewCache(&redisClient.Client{Client: db}, cfg, nil), mock
}

func TestCache_Recent(t *testing.T) {
	cache, mock := newTestCache(t)
	ctx := context.Background()
	checks := sampleChecks(2)
	payload, err := json.Marshal(checks)
	require.NoError(t, err)

	mock.ExpectGet("test:checks:recent:gen").RedisNil()
	gen, err := cache.RecentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	mock.ExpectGet("test:checks:recent:0").RedisNil()
	_, err = cache.GetRecent(ctx, gen)
	assert.ErrorIs(t, err, redisClient.ErrCacheMiss)

	mock.ExpectSet("test:checks:recent:0", payload, 30*time.Second).SetVal("OK")
	require.NoError(t, cache.SetRecent(ctx, gen, checks))

	mock.ExpectGet("test:checks:recent:0").SetVal(string(payload))
	got, err := cache.GetRecent(ctx, gen)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, checks[0].ID, got[0].ID)

	mock.ExpectIncr("test:checks:recent:gen").SetVal(1)
	require.NoError(t, cache.InvalidateRecent(ctx))

	mock.ExpectGet("test:checks:recent:gen").SetVal("1")
	gen, err = cache.RecentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	mock.ExpectGet("test:checks:recent:1").RedisNil()
	_, err = cache.GetRecent(ctx, gen)
	assert.ErrorIs(t, err, redisClient.ErrCacheMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Check(t *testing.T) {
	cache, mock := newTestCache(t)
	ctx := context.Background()
	check := sampleChecks(1)[0]
	key := "test:checks:" + check.ID.String()
	payload, err := json.Marshal(check)
	require.NoError(t, err)

	mock.ExpectSet(key, payload, 10*time.Minute).SetVal("OK")
	require.NoError(t, cache.SetCheck(ctx, check))

	mock.ExpectGet(key).SetVal(string(payload))
	got, err := cache.GetCheck(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, check.UPIID, got.UPIID)
	assert.True(t, check.CheckedAt.Equal(got.CheckedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}
