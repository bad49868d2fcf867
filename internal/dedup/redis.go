package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/jobingest/internal/hash/sha256"
)

// DefaultClaimTTL bounds how long an unreleased claim blocks a URL.
const DefaultClaimTTL = 15 * time.Minute

// redisCommands is the subset of *redis.Client used by RedisClaimer.
type redisCommands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisClaimer claims source URLs with SET NX so that concurrent runs do not
// both insert the same posting.
type RedisClaimer struct {
	client redisCommands
	prefix string
	ttl    time.Duration
	hasher *sha256.Hasher
}

// NewRedisClaimer creates a claimer. Empty prefix and zero ttl take defaults.
func NewRedisClaimer(client redisCommands, prefix string, ttl time.Duration) *RedisClaimer {
	if prefix == "" {
		prefix = "jobingest:claim"
	}
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &RedisClaimer{client: client, prefix: prefix, ttl: ttl, hasher: sha256.New()}
}

// Claim implements Claimer.
func (c *RedisClaimer) Claim(ctx context.Context, sourceURL string) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(sourceURL), time.Now().Unix(), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release implements Claimer.
func (c *RedisClaimer) Release(ctx context.Context, sourceURL string) error {
	if err := c.client.Del(ctx, c.key(sourceURL)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisClaimer) key(sourceURL string) string {
	return fmt.Sprintf("%s:%s", c.prefix, c.hasher.Key(sourceURL))
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
