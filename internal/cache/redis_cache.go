package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

type RedisLiveSalesCache struct {
	client *redis.Client
}

func NewRedisLiveSalesCache(addr string, password string, db int) *RedisLiveSalesCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisLiveSalesCache{client: client}
}

func (c *RedisLiveSalesCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLiveSalesCache) Close() error {
	return c.client.Close()
}

func cacheKey(channel string) string {
	return "live-sales:" + channel
}

func (c *RedisLiveSalesCache) Get(ctx context.Context, channel string) ([]domain.SaleRecord, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(channel)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []domain.SaleRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (c *RedisLiveSalesCache) Set(ctx context.Context, channel string, records []domain.SaleRecord, ttl time.Duration) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(channel), payload, ttl).Err()
}

func (c *RedisLiveSalesCache) Invalidate(ctx context.Context, channels ...string) error {
	if len(channels) == 0 {
		return nil
	}
	keys := make([]string, 0, len(channels))
	for _, channel := range channels {
		keys = append(keys, cacheKey(channel))
	}
	return c.client.Del(ctx, keys...).Err()
}
