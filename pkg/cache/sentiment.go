// Package cache stores sentiment labels in Redis so repeated review texts
// do not hit the sentiment service again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sentimentKeyPrefix namespaces cache keys; the suffix is a SHA-256 of the text.
const sentimentKeyPrefix = "dealership:sentiment:"

// DefaultSentimentTTL is used when NewSentimentCache is given a non-positive TTL.
const DefaultSentimentTTL = 24 * time.Hour

// SentimentCache is a Redis-backed text → sentiment label cache.
type SentimentCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSentimentCache creates a cache over client. Entries expire after ttl.
func NewSentimentCache(client redis.Cmdable, ttl time.Duration) *SentimentCache {
	if ttl <= 0 {
		ttl = DefaultSentimentTTL
	}
	return &SentimentCache{client: client, ttl: ttl}
}

// Get returns the cached label for text. A miss is ("", false, nil).
func (c *SentimentCache) Get(ctx context.Context, text string) (string, bool, error) {
	label, err := c.client.Get(ctx, sentimentKey(text)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read sentiment cache: %w", err)
	}
	return label, true, nil
}

// Set stores label for text.
func (c *SentimentCache) Set(ctx context.Context, text, label string) error {
	if err := c.client.Set(ctx, sentimentKey(text), label, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write sentiment cache: %w", err)
	}
	return nil
}

// sentimentKey hashes text so arbitrary review bodies make bounded, safe keys.
func sentimentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return sentimentKeyPrefix + hex.EncodeToString(sum[:])
}
