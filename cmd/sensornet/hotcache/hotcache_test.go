package hotcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	cache := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func sampleReading() models.Reading {
	return models.Reading{
		Temperature:  ptr(21.5),
		BatteryLevel: 0.87,
		LastSeen:     time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, sampleReading()))

	reading, found, err := cache.Get(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 21.5, *reading.Temperature)
	assert.Nil(t, reading.Velocity)
	assert.Equal(t, 0.87, reading.BatteryLevel)
	assert.True(t, reading.LastSeen.Equal(sampleReading().LastSeen))
}

func TestGetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, found, err := cache.Get(context.Background(), 99)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestSetOverwritesWholesale(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	first := sampleReading()
	first.Velocity = ptr(3.2)
	require.NoError(t, cache.Set(ctx, 7, first))

	// The second reading carries no velocity, which erases the cached one.
	second := sampleReading()
	require.NoError(t, cache.Set(ctx, 7, second))

	reading, found, err := cache.Get(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, reading.Velocity)
}

func TestGetFallsBackToRedis(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, sampleReading()))

	// Drop the memory tier; the entry must still come back from Redis.
	cache.mem.Flush()
	assert.True(t, mr.Exists("sensor:7:latest"))

	reading, found, err := cache.Get(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 21.5, *reading.Temperature)
}

func TestDeleteClearsBothTiers(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, sampleReading()))
	require.NoError(t, cache.Delete(ctx, 7))

	assert.False(t, mr.Exists("sensor:7:latest"))
	_, found, err := cache.Get(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, found)
}
