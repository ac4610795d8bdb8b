package tokens

import "context"

// Cache is the token cache capability surface of spec §4.5: hot lookup
// by clientId, revocation-style lookup by jti, and invalidation. It is
// implemented by both a Redis-backed primary (cache_redis.go, ported
// from gourdiantoken.repository.redis.imp.go) and an in-process
// fallback (cache_memory.go, ported from
// gourdiantoken.repository.inmemory.imp.go).
//
// Tokens do not need to survive a restart — they are cheap to re-mint —
// so no implementation is required to persist across process lifetimes.
// All implementations must be safe for concurrent use.
type Cache interface {
	// ByClientID returns the cached token for clientId, if any and not
	// yet expired. The second return value is false when absent or
	// expired.
	ByClientID(ctx context.Context, clientID string) (*Token, bool, error)

	// ByTokenID returns the cached token by its jti, used by the ingress
	// validator for revocation-style checks.
	ByTokenID(ctx context.Context, jti string) (*Token, bool, error)

	// StoreToken writes tok under both the clientId and jti keys with
	// TTL equal to tok's remaining lifetime.
	StoreToken(ctx context.Context, tok *Token) error

	// InvalidateByClientID removes any cached token for clientId and
	// reports how many entries were removed (0 or 1). It is idempotent:
	// calling it again with nothing cached returns 0, not an error.
	InvalidateByClientID(ctx context.Context, clientID string) (int, error)

	// InvalidateByTokenID removes the cached entry for jti, if any.
	InvalidateByTokenID(ctx context.Context, jti string) error
}
