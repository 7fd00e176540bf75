package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/linemk/tm-watch/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr
}

func testProduct(id int64) *models.Product {
	return &models.Product{
		ID:       id,
		Name:     "Sport Diver Pro",
		Brand:    "AQUAMASTER",
		Category: "sport",
		Gender:   "men",
		Price:    decimal.RequireFromString("82617.50"),
		Stock:    30,
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	cache, _ := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct(3)))

	got, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Sport Diver Pro", got.Name)
	assert.True(t, decimal.RequireFromString("82617.5").Equal(got.Price))
	assert.Equal(t, 30, got.Stock)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t, time.Minute)

	got, err := cache.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	mr.Set(cacheKey(1), "{broken")

	got, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestSet_TTLWithJitter(t *testing.T) {
	cache, mr := setupTestRedis(t, 10*time.Minute)

	require.NoError(t, cache.Set(context.Background(), testProduct(1)))

	ttl := mr.TTL(cacheKey(1))
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 12*time.Minute)
}

func TestSet_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct(1)))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_Many(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testProduct(1)))
	require.NoError(t, cache.Set(ctx, testProduct(2)))
	require.NoError(t, cache.Set(ctx, testProduct(3)))

	require.NoError(t, cache.Delete(ctx, 1, 3))

	assert.False(t, mr.Exists(cacheKey(1)))
	assert.True(t, mr.Exists(cacheKey(2)))
	assert.False(t, mr.Exists(cacheKey(3)))

	assert.NoError(t, cache.Delete(ctx))
}

func TestRedisUnavailable(t *testing.T) {
	cache, mr := setupTestRedis(t, time.Minute)
	mr.Close()

	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
