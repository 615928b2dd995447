package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/pkg/logger"
)

// Client caches serialized read-only views. The dataset never changes after
// load, so entries are only bounded by TTL, never invalidated.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis view cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetView loads a cached view into value. A miss or a cache failure both
// report false; callers fall back to computing the view.
func (c *Client) GetView(ctx context.Context, view, key string, value interface{}) bool {
	data, err := c.client.Get(ctx, viewKey(view, key)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues(view).Inc()
		return false
	}
	if err != nil {
		logger.Warn("View cache read failed", zap.String("view", view), zap.Error(err))
		metrics.CacheMisses.WithLabelValues(view).Inc()
		return false
	}

	if err := json.Unmarshal(data, value); err != nil {
		logger.Warn("View cache entry is not decodable", zap.String("view", view), zap.Error(err))
		metrics.CacheMisses.WithLabelValues(view).Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues(view).Inc()
	logger.Debug("View cache hit", zap.String("view", view), zap.String("key", key))
	return true
}

// SetView stores a computed view. Failures are logged and swallowed; caching
// is never allowed to fail a request.
func (c *Client) SetView(ctx context.Context, view, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to marshal view for cache", zap.String("view", view), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, viewKey(view, key), data, c.ttl).Err(); err != nil {
		logger.Warn("View cache write failed", zap.String("view", view), zap.Error(err))
	}
}

func viewKey(view, key string) string {
	return fmt.Sprintf("view:%s:%s", view, key)
}
