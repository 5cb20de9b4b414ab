package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"finance/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedVerifier remembers successful verifications in redis for ttl, or until
// the token expires if that comes first. Redis failures are logged and fall
// through to the wrapped verifier.
type CachedVerifier struct {
	next   Verifier
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewCachedVerifier(next Verifier, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedVerifier {
	return &CachedVerifier{next: next, rdb: rdb, ttl: ttl, logger: logger, now: time.Now}
}

func (c *CachedVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	key := cacheKey(token)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var id models.Identity
		if json.Unmarshal([]byte(cached), &id) == nil && id.UserID != "" {
			if !id.Expired(c.now()) {
				return &id, nil
			}
			c.evict(ctx, key)
			return nil, ErrInvalidToken
		}
		c.logger.Warn("discarding unreadable cached identity", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Error("redis get failed", zap.Error(err))
	}

	id, err := c.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := c.ttlFor(id)
	if ttl <= 0 {
		return id, nil
	}

	data, err := json.Marshal(id)
	if err != nil {
		c.logger.Error("marshal identity for cache", zap.Error(err))
		return id, nil
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("redis set failed", zap.Error(err))
	}
	return id, nil
}

// ttlFor caps the cache lifetime at the token's remaining validity.
func (c *CachedVerifier) ttlFor(id *models.Identity) time.Duration {
	if id.ExpiresAt == 0 {
		return c.ttl
	}
	remaining := time.Unix(id.ExpiresAt, 0).Sub(c.now())
	if remaining < c.ttl {
		return remaining
	}
	return c.ttl
}

func (c *CachedVerifier) evict(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("redis del failed", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey never stores the raw token.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}
