package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs provider secrets with Redis so multiple gateway nodes can
// serve the same tenants. Keys are scoped secrets:{tenant}:{provider}.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity; called once at startup so a misconfigured
// backend fails the process instead of the first tenant request.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) ForTenant(tenantID string) domain.SecretsClient {
	return &redisClient{client: s.client, tenantID: tenantID}
}

type redisClient struct {
	client   *redis.Client
	tenantID string
}

func (c *redisClient) key(provider string) string {
	return fmt.Sprintf("secrets:%s:%s", c.tenantID, provider)
}

func (c *redisClient) Has(ctx context.Context, provider string) (bool, error) {
	count, err := c.client.Exists(ctx, c.key(provider)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check secret existence: %w", err)
	}
	return count > 0, nil
}

func (c *redisClient) Get(ctx context.Context, provider string) (string, error) {
	value, err := c.client.Get(ctx, c.key(provider)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get secret: %w", err)
	}
	return value, nil
}

func (c *redisClient) Set(ctx context.Context, provider string, value string) error {
	if err := c.client.Set(ctx, c.key(provider), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

func (c *redisClient) Delete(ctx context.Context, provider string) error {
	if err := c.client.Del(ctx, c.key(provider)).Err(); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
