package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

func sampleToken(clientID string, ttl time.Duration) *tokens.Token {
	now := time.Now()
	return &tokens.Token{
		TokenString: "header.payload.sig",
		ClientID:    clientID,
		ExpiresAt:   now.Add(ttl),
		Claims: tokens.Claims{
			Subject:   clientID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
			ID:        clientID + "-jti",
		},
	}
}

func TestMemoryCacheStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	c := tokens.NewMemoryCache(time.Minute)
	defer c.Close()

	tok := sampleToken("vendor-a", time.Hour)
	require.NoError(t, c.StoreToken(ctx, tok))

	got, ok, err := c.ByClientID(ctx, "vendor-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok.TokenString, got.TokenString)

	got, ok, err = c.ByTokenID(ctx, "vendor-a-jti")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok.TokenString, got.TokenString)
}

func TestMemoryCacheMissReturnsFalseNotError(t *testing.T) {
	ctx := context.Background()
	c := tokens.NewMemoryCache(time.Minute)
	defer c.Close()

	_, ok, err := c.ByClientID(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiredEntryNotReturned(t *testing.T) {
	ctx := context.Background()
	c := tokens.NewMemoryCache(time.Minute)
	defer c.Close()

	tok := sampleToken("vendor-b", -time.Second)
	require.NoError(t, c.StoreToken(ctx, tok))

	_, ok, err := c.ByClientID(ctx, "vendor-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheInvalidateByClientIDRemovesBothKeys(t *testing.T) {
	ctx := context.Background()
	c := tokens.NewMemoryCache(time.Minute)
	defer c.Close()

	tok := sampleToken("vendor-c", time.Hour)
	require.NoError(t, c.StoreToken(ctx, tok))

	n, err := c.InvalidateByClientID(ctx, "vendor-c")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, _ := c.ByClientID(ctx, "vendor-c")
	assert.False(t, ok)
	_, ok, _ = c.ByTokenID(ctx, "vendor-c-jti")
	assert.False(t, ok)

	n, err = c.InvalidateByClientID(ctx, "vendor-c")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryCacheInvalidateByTokenID(t *testing.T) {
	ctx := context.Background()
	c := tokens.NewMemoryCache(time.Minute)
	defer c.Close()

	tok := sampleToken("vendor-d", time.Hour)
	require.NoError(t, c.StoreToken(ctx, tok))

	require.NoError(t, c.InvalidateByTokenID(ctx, "vendor-d-jti"))
	_, ok, _ := c.ByTokenID(ctx, "vendor-d-jti")
	assert.False(t, ok)

	// Client-keyed entry is independent of the jti-keyed one.
	_, ok, _ = c.ByClientID(ctx, "vendor-d")
	assert.True(t, ok)
}
