// Package cache keeps the category list in Redis so the hot read path skips Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rongwang/expense-tracker-server/internal/models"
	"go.uber.org/zap"
)

const categoriesKey = "categories:v1:all"

// CategoryCache stores the full category list. A miss returns nil, false.
type CategoryCache interface {
	Categories(ctx context.Context) ([]models.Category, bool)
	StoreCategories(ctx context.Context, categories []models.Category)
	InvalidateCategories(ctx context.Context)
}

// RedisCache is a CategoryCache backed by Redis. Redis failures are logged
// and treated as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		PoolSize:        20,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
		MaxRetries:      3,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Categories(ctx context.Context) ([]models.Category, bool) {
	data, err := c.client.Get(ctx, categoriesKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("category cache get failed", zap.Error(err))
		}
		return nil, false
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		c.logger.Warn("category cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return categories, true
}

func (c *RedisCache) StoreCategories(ctx context.Context, categories []models.Category) {
	data, err := json.Marshal(categories)
	if err != nil {
		c.logger.Warn("category cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, categoriesKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("category cache set failed", zap.Error(err))
	}
}

func (c *RedisCache) InvalidateCategories(ctx context.Context) {
	if err := c.client.Del(ctx, categoriesKey).Err(); err != nil {
		c.logger.Warn("category cache invalidate failed", zap.Error(err))
	}
}

// Noop never caches anything
type Noop struct{}

func (Noop) Categories(context.Context) ([]models.Category, bool) { return nil, false }
func (Noop) StoreCategories(context.Context, []models.Category)   {}
func (Noop) InvalidateCategories(context.Context)                 {}
