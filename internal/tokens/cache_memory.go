package tokens

import (
	"context"
	"sync"
	"time"
)

// entry pairs a cached token with the time after which it is no longer
// served.
type entry struct {
	tok       Token
	expiresAt time.Time
}

// MemoryCache is the fallback Cache used when Redis is unreachable
// (spec §4.9 degraded mode) or for single-instance deployments. It
// keeps the same two-key-family layout as RedisCache, protected by a
// single RWMutex, with a background goroutine sweeping expired entries
// so memory does not grow unbounded across a long-lived process.
type MemoryCache struct {
	mu         sync.RWMutex
	byClient   map[string]entry
	byTokenID  map[string]entry
	stopSweep  chan struct{}
	closeOnce  sync.Once
}

// NewMemoryCache starts a MemoryCache with a background sweep goroutine
// running every sweepInterval; a non-positive interval defaults to one
// minute.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	c := &MemoryCache{
		byClient:  make(map[string]entry),
		byTokenID: make(map[string]entry),
		stopSweep: make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.byClient {
		if now.After(e.expiresAt) {
			delete(c.byClient, k)
		}
	}
	for k, e := range c.byTokenID {
		if now.After(e.expiresAt) {
			delete(c.byTokenID, k)
		}
	}
}

func (c *MemoryCache) ByClientID(_ context.Context, clientID string) (*Token, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byClient[clientID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	tok := e.tok
	return &tok, true, nil
}

func (c *MemoryCache) ByTokenID(_ context.Context, jti string) (*Token, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byTokenID[jti]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	tok := e.tok
	return &tok, true, nil
}

func (c *MemoryCache) StoreToken(_ context.Context, tok *Token) error {
	if !tok.ExpiresAt.After(time.Now()) {
		return nil
	}

	e := entry{tok: *tok, expiresAt: tok.ExpiresAt}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byClient[tok.ClientID] = e
	c.byTokenID[tok.Claims.ID] = e
	return nil
}

func (c *MemoryCache) InvalidateByClientID(_ context.Context, clientID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byClient[clientID]
	if !ok {
		return 0, nil
	}
	delete(c.byClient, clientID)
	delete(c.byTokenID, e.tok.Claims.ID)
	return 1, nil
}

func (c *MemoryCache) InvalidateByTokenID(_ context.Context, jti string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byTokenID, jti)
	return nil
}

// Close stops the background sweep goroutine. Safe to call more than
// once.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopSweep) })
	return nil
}
