package tokens

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NegativeCache remembers recently-failed ingress token validations so
// a client replaying the same broken token does not force a fresh
// parse/verify cycle on every request (spec §4.5). Entries expire on
// their own; Forget exists only for the rare case a token is proven
// valid again before that (e.g. clock skew correction upstream).
type NegativeCache struct {
	c *gocache.Cache
}

// NewNegativeCache builds a cache whose entries live for ttl. Per spec
// §4.5 this should be at most one third of the nominal token TTL.
func NewNegativeCache(ttl time.Duration) *NegativeCache {
	return &NegativeCache{c: gocache.New(ttl, ttl)}
}

// Remember records tokenString as having failed validation for reason.
func (n *NegativeCache) Remember(tokenString, reason string) {
	n.c.SetDefault(tokenString, reason)
}

// Failed reports whether tokenString was recently recorded as failed,
// and if so, why.
func (n *NegativeCache) Failed(tokenString string) (string, bool) {
	v, ok := n.c.Get(tokenString)
	if !ok {
		return "", false
	}
	reason, _ := v.(string)
	return reason, true
}

// Forget removes any negative entry for tokenString.
func (n *NegativeCache) Forget(tokenString string) {
	n.c.Delete(tokenString)
}

// FallbackCredentialCache is the bounded, time-limited local credential
// cache the validator may consult when the vault is unreachable (spec
// §4.3/§4.4), flagging results obtained from it as degraded.
type FallbackCredentialCache struct {
	c *gocache.Cache
}

// DegradedModeTTL is the hard ceiling spec §4.3 sets on how long a
// credential record may be served from the fallback cache after the
// vault goes unavailable.
const DegradedModeTTL = 5 * time.Minute

// NewFallbackCredentialCache builds a fallback cache with the fixed
// degraded-mode TTL.
func NewFallbackCredentialCache() *FallbackCredentialCache {
	return &FallbackCredentialCache{c: gocache.New(DegradedModeTTL, DegradedModeTTL)}
}

// Put caches value (expected to be a credential record snapshot) under
// clientId, refreshing its TTL.
func (f *FallbackCredentialCache) Put(clientID string, value any) {
	f.c.SetDefault(clientID, value)
}

// Get returns the cached value for clientId, if still within the
// degraded-mode TTL.
func (f *FallbackCredentialCache) Get(clientID string) (any, bool) {
	return f.c.Get(clientID)
}
