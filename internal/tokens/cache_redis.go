package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientKeyPrefix = "gw:token:client:"
	jtiKeyPrefix    = "gw:token:jti:"

	// minRedisTTL avoids handing Redis a TTL so small that the SET races
	// its own expiry under clock skew between gateway replicas.
	minRedisTTL = 100 * time.Millisecond
)

// RedisCache is the primary Cache implementation, storing minted tokens
// under two key families (by clientId and by jti) so both the
// authentication service's hot-path lookup and the ingress validator's
// by-jti check hit Redis directly rather than the origin vault.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wires client into a Cache, verifying connectivity with a
// bounded ping so misconfiguration surfaces at startup rather than on
// the first request.
func NewRedisCache(client *redis.Client) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("tokens: redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("tokens: redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) ByClientID(ctx context.Context, clientID string) (*Token, bool, error) {
	return c.get(ctx, clientKeyPrefix+clientID)
}

func (c *RedisCache) ByTokenID(ctx context.Context, jti string) (*Token, bool, error) {
	return c.get(ctx, jtiKeyPrefix+jti)
}

func (c *RedisCache) get(ctx context.Context, key string) (*Token, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tokens: redis get: %w", err)
	}

	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, false, fmt.Errorf("tokens: decode cached token: %w", err)
	}
	return &tok, true, nil
}

func (c *RedisCache) StoreToken(ctx context.Context, tok *Token) error {
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("tokens: cannot cache already-expired token")
	}
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("tokens: encode token: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, clientKeyPrefix+tok.ClientID, raw, ttl)
	pipe.Set(ctx, jtiKeyPrefix+tok.Claims.ID, raw, ttl)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokens: redis store: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateByClientID(ctx context.Context, clientID string) (int, error) {
	tok, ok, err := c.get(ctx, clientKeyPrefix+clientID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, clientKeyPrefix+clientID)
	pipe.Del(ctx, jtiKeyPrefix+tok.Claims.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("tokens: redis invalidate: %w", err)
	}
	return 1, nil
}

func (c *RedisCache) InvalidateByTokenID(ctx context.Context, jti string) error {
	if err := c.client.Del(ctx, jtiKeyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("tokens: redis invalidate: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
