package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// TokenCache stores resolved token -> user id mappings.
type TokenCache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cached wraps a Gateway so repeated ResolveToken calls for the same token
// skip the provider round trip. Only successful resolutions are cached.
type Cached struct {
	Gateway
	cache  TokenCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(g Gateway, cache TokenCache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{Gateway: g, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) ResolveToken(ctx context.Context, token string) (string, error) {
	key := tokenKey(token)
	id, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("token cache read failed", zap.Error(err))
	} else if found {
		return id, nil
	}

	id, err = c.Gateway.ResolveToken(ctx, token)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, id, c.ttl); err != nil {
		c.logger.Warn("token cache write failed", zap.Error(err))
	}
	return id, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "farmledger:token:" + hex.EncodeToString(sum[:])
}
