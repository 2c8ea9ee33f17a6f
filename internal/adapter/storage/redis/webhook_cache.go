package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"qr-psp-gateway/internal/core/domain"
)

// WebhookCache implements ports.WebhookCache using Redis. Registrations
// are stored as JSON under a lowercased appId key so lookups stay
// case-insensitive.
type WebhookCache struct {
	client *goredis.Client
	prefix string
}

// NewWebhookCache creates a new Redis-backed webhook registration cache.
func NewWebhookCache(client *goredis.Client) *WebhookCache {
	return &WebhookCache{
		client: client,
		prefix: "webhook:app:",
	}
}

func (c *WebhookCache) key(appID string) string {
	return c.prefix + strings.ToLower(appID)
}

// Get retrieves a cached registration. Returns nil, nil on a miss.
func (c *WebhookCache) Get(ctx context.Context, appID string) (*domain.MerchantWebhook, error) {
	val, err := c.client.Get(ctx, c.key(appID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis webhook get: %w", err)
	}

	var wh domain.MerchantWebhook
	if err := json.Unmarshal(val, &wh); err != nil {
		return nil, fmt.Errorf("redis webhook decode: %w", err)
	}
	return &wh, nil
}

// Set stores a registration with TTL.
func (c *WebhookCache) Set(ctx context.Context, appID string, wh *domain.MerchantWebhook, ttl time.Duration) error {
	raw, err := json.Marshal(wh)
	if err != nil {
		return fmt.Errorf("redis webhook encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(appID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis webhook set: %w", err)
	}
	return nil
}
