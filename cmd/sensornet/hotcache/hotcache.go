package hotcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
	"github.com/heptiolabs/healthcheck"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

const (
	memoryExpiration = 10 * time.Second
	cleanupInterval  = 20 * time.Second
)

// Cache holds the most recent reading per sensor in Redis, with a short-lived
// in-process tier in front. Entries are overwritten wholesale on every write,
// never field-merged, and carry no TTL in Redis.
type Cache struct {
	rdb *redis.Client
	mem *gocache.Cache
}

func Connect(uri, password string, db int) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: password,
		DB:       db,
	})

	pingCtx, cncl := context.WithTimeout(context.Background(), 10*time.Second)
	defer cncl()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	zap.S().Infof("Hot cache connected to redis at %s", uri)
	return New(rdb), nil
}

func New(rdb *redis.Client) *Cache {
	return &Cache{
		rdb: rdb,
		mem: gocache.New(memoryExpiration, cleanupInterval),
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("sensor:%d:latest", id)
}

// Set overwrites the cached latest reading. A reading that omits velocity
// erases a previously cached velocity.
func (c *Cache) Set(ctx context.Context, id int64, reading models.Reading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	key := cacheKey(id)
	if err = c.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return err
	}
	c.mem.SetDefault(key, payload)
	return nil
}

// Get checks the memory tier first and falls back to Redis, writing back on a
// hit. A key that exists nowhere is absent, not an error.
func (c *Cache) Get(ctx context.Context, id int64) (models.Reading, bool, error) {
	key := cacheKey(id)

	var payload []byte
	if cached, found := c.mem.Get(key); found {
		payload = cached.([]byte)
	} else {
		var err error
		payload, err = c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.Reading{}, false, nil
		}
		if err != nil {
			return models.Reading{}, false, err
		}
		c.mem.SetDefault(key, payload)
	}

	var reading models.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return models.Reading{}, false, err
	}
	return reading, true, nil
}

func (c *Cache) Delete(ctx context.Context, id int64) error {
	key := cacheKey(id)
	c.mem.Delete(key)
	return c.rdb.Del(ctx, key).Err()
}

func (c *Cache) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
		defer cncl()
		return c.rdb.Ping(ctx).Err()
	}
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
