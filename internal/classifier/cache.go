package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "llm:classify:"

// CachedFallback memoizes fallback answers in Redis keyed by a hash of the text.
// Cache failures are logged and never block classification.
type CachedFallback struct {
	next   Fallback
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedFallback wraps next with a Redis cache.
func NewCachedFallback(next Fallback, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedFallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFallback{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedFallback) IsAvailable(ctx context.Context) bool {
	return c.next.IsAvailable(ctx)
}

func (c *CachedFallback) ClassifyMessage(ctx context.Context, text string) (*FallbackResult, error) {
	key := cacheKey(text)

	if cached, ok := c.get(ctx, key); ok {
		return cached, nil
	}

	res, err := c.next.ClassifyMessage(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, res)
	return res, nil
}

func (c *CachedFallback) get(ctx context.Context, key string) (*FallbackResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("classification cache read failed", zap.Error(err))
		return nil, false
	}
	var res FallbackResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("classification cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &res, true
}

func (c *CachedFallback) set(ctx context.Context, key string, res *FallbackResult) {
	if res == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("classification cache write failed", zap.Error(err))
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
