package directory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"murmur/internal/domain"
)

const defaultCacheTTL = 5 * time.Minute

// CachingResolver wraps a Directory with a client-local snapshot cache.
//
// Entries are immutable snapshots with last-writer-wins population, and
// concurrent resolves for the same identity coalesce into at most one
// network lookup. The cache offers no freshness guarantee beyond its TTL;
// rotation safety rests on verification failing closed, at which point
// callers bypass the cache via ResolveFresh.
type CachingResolver struct {
	inner domain.Directory
	cache *ttlcache.Cache[domain.UserID, domain.PublicKeySet]
	group singleflight.Group
}

// NewCachingResolver wraps inner with a TTL cache. A non-positive ttl uses
// the default.
func NewCachingResolver(inner domain.Directory, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &CachingResolver{
		inner: inner,
		cache: ttlcache.New(
			ttlcache.WithTTL[domain.UserID, domain.PublicKeySet](ttl),
			ttlcache.WithDisableTouchOnHit[domain.UserID, domain.PublicKeySet](),
		),
	}
	go c.cache.Start()
	return c
}

// Register delegates to the directory and refreshes the local snapshot so a
// client immediately sees its own rotation.
func (c *CachingResolver) Register(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	keys domain.PublicKeySet,
) error {
	if err := c.inner.Register(ctx, token, user, keys); err != nil {
		return err
	}
	c.cache.Set(user, keys, ttlcache.DefaultTTL)
	return nil
}

// Resolve returns cached keys when present, otherwise performs one coalesced
// directory lookup and caches the result.
func (c *CachingResolver) Resolve(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
) (domain.PublicKeySet, error) {
	if item := c.cache.Get(user); item != nil {
		return item.Value(), nil
	}
	return c.fetch(ctx, token, user)
}

// ResolveFresh bypasses the cache, used after a verification failure that
// may stem from a key rotation the cache has not seen.
func (c *CachingResolver) ResolveFresh(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
) (domain.PublicKeySet, error) {
	c.cache.Delete(user)
	return c.fetch(ctx, token, user)
}

// Invalidate drops the snapshot for user.
func (c *CachingResolver) Invalidate(user domain.UserID) {
	c.cache.Delete(user)
}

// Reset drops every snapshot. Called on logout.
func (c *CachingResolver) Reset() {
	c.cache.DeleteAll()
}

// Stop shuts down the cache's eviction loop.
func (c *CachingResolver) Stop() {
	c.cache.Stop()
}

func (c *CachingResolver) fetch(
	ctx context.Context,
	token domain.ScopedToken,
	user domain.UserID,
) (domain.PublicKeySet, error) {
	v, err, _ := c.group.Do(user.String(), func() (any, error) {
		keys, err := c.inner.Resolve(ctx, token, user)
		if err != nil {
			return nil, err
		}
		c.cache.Set(user, keys, ttlcache.DefaultTTL)
		return keys, nil
	})
	if err != nil {
		return domain.PublicKeySet{}, err
	}
	return v.(domain.PublicKeySet), nil
}

// Compile-time assertion that CachingResolver implements domain.Directory.
var _ domain.Directory = (*CachingResolver)(nil)
