// Package registry provides an explicit token-universe cache. The cache is
// an object with a creation time and a fixed refresh policy, passed by
// reference to the components that need it; there is no ambient state and
// no ad hoc invalidation.
package registry

import (
	"context"
	"sync"
	"time"

	"token-feature-engine/internal/domain"
	"token-feature-engine/internal/storage"
)

// Universe is an immutable snapshot of the known token set at one point
// in time.
type Universe struct {
	tokens    []*domain.TokenInfo
	byID      map[string]*domain.TokenInfo
	createdAt time.Time
}

// Tokens returns all tokens ordered by token ID.
func (u *Universe) Tokens() []*domain.TokenInfo {
	return u.tokens
}

// Get returns the token with the given ID, or nil.
func (u *Universe) Get(tokenID string) *domain.TokenInfo {
	return u.byID[tokenID]
}

// Len returns the number of tokens in the snapshot.
func (u *Universe) Len() int {
	return len(u.tokens)
}

// CreatedAt returns when the snapshot was taken.
func (u *Universe) CreatedAt() time.Time {
	return u.createdAt
}

// Cache loads token universes from the token store and serves the same
// snapshot until it is older than the TTL.
type Cache struct {
	store storage.TokenStore
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	current *Universe
}

// NewCache creates a cache over the token store with the given TTL.
func NewCache(store storage.TokenStore, ttl time.Duration) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Universe returns the current snapshot, refreshing from the store when
// none exists yet or the TTL has elapsed. Concurrent callers share one
// snapshot.
func (c *Cache) Universe(ctx context.Context) (*Universe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.now().Sub(c.current.createdAt) < c.ttl {
		return c.current, nil
	}

	tokens, err := c.store.GetAll(ctx)
	if err != nil {
		// Serve the stale snapshot rather than failing the cycle when one
		// exists.
		if c.current != nil {
			return c.current, nil
		}
		return nil, err
	}

	byID := make(map[string]*domain.TokenInfo, len(tokens))
	for _, tok := range tokens {
		byID[tok.TokenID] = tok
	}
	c.current = &Universe{
		tokens:    tokens,
		byID:      byID,
		createdAt: c.now(),
	}
	return c.current, nil
}

// Invalidate drops the current snapshot; the next Universe call reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
