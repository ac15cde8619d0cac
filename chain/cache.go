package chain

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedAuthority wraps an Authority with a short-lived profile cache so
// repeated reconciliations during a browsing session do not hammer the node.
// The cache serves low-stakes lookups only: password verification is never
// cached, and privileged role checks go through FreshProfileOf.
type CachedAuthority struct {
	inner Authority
	cache *gocache.Cache
}

// NewCachedAuthority wraps inner with a profile cache using the given TTL.
// Expired entries are purged at twice the TTL.
func NewCachedAuthority(inner Authority, ttl time.Duration) *CachedAuthority {
	return &CachedAuthority{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedAuthority) IsRegistered(ctx context.Context, address string) (bool, error) {
	address = normalize(address)
	if _, found := c.cache.Get(address); found {
		return true, nil
	}
	return c.inner.IsRegistered(ctx, address)
}

func (c *CachedAuthority) ProfileOf(ctx context.Context, address string) (Profile, error) {
	address = normalize(address)
	if cached, found := c.cache.Get(address); found {
		if profile, ok := cached.(Profile); ok {
			return profile, nil
		}
	}

	profile, err := c.inner.ProfileOf(ctx, address)
	if err != nil {
		return Profile{}, err
	}
	c.cache.SetDefault(address, profile)
	return profile, nil
}

// FreshProfileOf reads the registry directly, bypassing the cache, and
// replaces the cached entry with the result. A read failure also drops the
// stale entry so it cannot answer a later privileged check.
func (c *CachedAuthority) FreshProfileOf(ctx context.Context, address string) (Profile, error) {
	address = normalize(address)

	profile, err := c.inner.ProfileOf(ctx, address)
	if err != nil {
		c.cache.Delete(address)
		return Profile{}, err
	}
	c.cache.SetDefault(address, profile)
	return profile, nil
}

func (c *CachedAuthority) VerifyPassword(ctx context.Context, address, password string) (bool, error) {
	return c.inner.VerifyPassword(ctx, address, password)
}

// Invalidate drops the cached profile for an address, used after logout or
// an address change so the next reconcile reads fresh registry state.
func (c *CachedAuthority) Invalidate(address string) {
	c.cache.Delete(normalize(address))
}
