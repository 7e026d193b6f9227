package devserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kasuwa/searchstream/internal/infrastructure/clients/redis"
	apperrors "github.com/kasuwa/searchstream/pkg/errors"
)

const (
	resultCachePrefix = "results:"
	resultCacheTTL    = 24 * time.Hour
)

// ResultCache stores served result sets in Redis under opaque cache tokens,
// so the REST retrieval endpoint can hand a result set back without the
// original query being resent.
type ResultCache struct {
	client *redis.Client
}

// NewResultCache creates a cache over the given Redis client.
func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{client: client}
}

// Store saves a result payload and returns its generated token.
func (c *ResultCache) Store(ctx context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewInternalError("marshaling result set", err)
	}

	token := uuid.NewString()
	if err := c.client.Client().Set(ctx, resultCachePrefix+token, data, resultCacheTTL).Err(); err != nil {
		return "", apperrors.NewExternalError("storing result set", err)
	}
	return token, nil
}

// Get returns the payload stored under token, or nil when the token is
// unknown or expired.
func (c *ResultCache) Get(ctx context.Context, token string) ([]byte, error) {
	data, err := c.client.Client().Get(ctx, resultCachePrefix+token).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, apperrors.NewExternalError("loading result set", err)
	}
	return data, nil
}
