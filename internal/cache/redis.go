package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-fulfillment-service/internal/model"
)

// commands es el subconjunto de redis.Cmdable que usa el cache.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// TrackingCache guarda la proyección pública de seguimiento en redis.
type TrackingCache struct {
	client      commands
	serviceName string
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func NewTrackingCache(client commands, serviceName string) *TrackingCache {
	return &TrackingCache{client: client, serviceName: serviceName}
}

func (c *TrackingCache) key(trackingNumber string) string {
	return fmt.Sprintf("%s:tracking:%s", c.serviceName, trackingNumber)
}

// Get devuelve nil sin error cuando no hay entrada.
func (c *TrackingCache) Get(ctx context.Context, trackingNumber string) (*model.TrackingView, error) {
	raw, err := c.client.Get(ctx, c.key(trackingNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var view model.TrackingView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode tracking view: %w", err)
	}
	return &view, nil
}

func (c *TrackingCache) Set(ctx context.Context, view model.TrackingView, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode tracking view: %w", err)
	}
	return c.client.Set(ctx, c.key(view.TrackingNumber), data, ttl).Err()
}

func (c *TrackingCache) Delete(ctx context.Context, trackingNumber string) error {
	return c.client.Del(ctx, c.key(trackingNumber)).Err()
}
