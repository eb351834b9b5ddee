// Package weightedcache implements a bounded, weighted, concurrent mapping
// from BlockKey to Ref, with admission and eviction callbacks each invoked
// exactly once per physical residency change.
//
// Ristretto provides a production-grade TinyLFU-admission, sampled-LFU
// eviction concurrent cache with the removal-listener shape this package
// needs, so it's used directly rather than hand-rolling an eviction policy.
// golang.org/x/sync's singleflight gives the at-most-one-concurrent-loader
// guarantee that GetOrCompute relies on.
//
// © 2025 packblockcache authors. MIT License.
package weightedcache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/brennanwright/packblockcache/internal/blockkey"
	"github.com/brennanwright/packblockcache/internal/ref"
)

// fixedOverhead approximates the bookkeeping cost of a single cache entry
// (key plus internal headers) on top of its reported Ref.Size.
const fixedOverhead = 60

// Cause classifies why an entry physically left the cache. Callers don't
// need to branch on it for correctness — it's carried through purely for
// logging/metrics.
type Cause uint8

const (
	CauseExplicit Cause = iota
	CauseCapacity
)

func (c Cause) String() string {
	if c == CauseExplicit {
		return "explicit"
	}
	return "capacity"
}

// OnRemoval is invoked exactly once per physical removal of an entry,
// whether user-requested or capacity-driven.
type OnRemoval func(key blockkey.BlockKey, r *ref.Ref, cause Cause)

// OnAdmit is invoked exactly once per entry that is confirmed resident in
// the cache, after ristretto's admission policy has actually accepted it —
// never for an entry that Set/Wait leaves absent.
type OnAdmit func(key blockkey.BlockKey, r *ref.Ref)

// Loader produces the Ref for a missing key. If it returns an error, no
// entry is admitted.
type Loader func() (*ref.Ref, error)

// Cache is the weighted, concurrent BlockKey->Ref store.
type Cache struct {
	store     *ristretto.Cache[string, *ref.Ref]
	group     singleflight.Group
	onRemoval OnRemoval
	onAdmit   OnAdmit
}

// New constructs a Cache bounded at maxBytes total weight. onRemoval and
// onAdmit may be nil.
func New(maxBytes int64, onRemoval OnRemoval, onAdmit OnAdmit) (*Cache, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("weightedcache: maxBytes must be > 0, got %d", maxBytes)
	}
	if onRemoval == nil {
		onRemoval = func(blockkey.BlockKey, *ref.Ref, Cause) {}
	}
	if onAdmit == nil {
		onAdmit = func(blockkey.BlockKey, *ref.Ref) {}
	}

	c := &Cache{onRemoval: onRemoval, onAdmit: onAdmit}

	// NumCounters: Ristretto's docs recommend ~10x the expected number of
	// items at steady state for good TinyLFU admission accuracy. We don't
	// know the average entry size up front, so we assume a conservative
	// 512-byte floor (the minimum block size this cache accepts) and let
	// Cost-based eviction do the rest.
	numCounters := (maxBytes / 512) * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, *ref.Ref]{
		NumCounters: numCounters,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     false,
		Cost: func(r *ref.Ref) int64 {
			return int64(fixedOverhead + r.Size)
		},
		OnEvict: func(item *ristretto.Item[*ref.Ref]) {
			c.fireRemoval(item.Value, CauseCapacity)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("weightedcache: %w", err)
	}
	c.store = store
	return c, nil
}

func (c *Cache) fireRemoval(r *ref.Ref, cause Cause) {
	if r == nil {
		return
	}
	key := blockkey.BlockKey{Pack: r.PackKey, Position: r.Position}
	c.onRemoval(key, r, cause)
}

func (c *Cache) fireAdmit(r *ref.Ref) {
	if r == nil {
		return
	}
	key := blockkey.BlockKey{Pack: r.PackKey, Position: r.Position}
	c.onAdmit(key, r)
}

// GetOrCompute returns the cached Ref for key, computing it at most once
// across all concurrent callers via singleflight. If loader returns an
// error, no entry is admitted and the error is returned to every waiter.
// loaded reports whether loader ran for this result (a cache miss) as
// opposed to returning an already-resident entry (a hit); every caller that
// shared one singleflight load sees loaded == true.
func (c *Cache) GetOrCompute(key blockkey.BlockKey, loader Loader) (val *ref.Ref, loaded bool, err error) {
	cacheKey := key.CacheKey()

	if r, ok := c.store.Get(cacheKey); ok {
		return r, false, nil
	}

	type result struct {
		ref    *ref.Ref
		loaded bool
	}

	v, err, _ := c.group.Do(cacheKey, func() (any, error) {
		// Re-check: another goroutine may have populated the entry while
		// we were scheduled between the Get above and Do acquiring the
		// per-key slot.
		if r, ok := c.store.Get(cacheKey); ok {
			return result{ref: r}, nil
		}
		r, err := loader()
		if err != nil {
			return nil, err
		}
		cost := int64(fixedOverhead + r.Size)
		c.store.Set(cacheKey, r, cost)
		c.store.Wait()
		if _, ok := c.store.Get(cacheKey); ok {
			c.fireAdmit(r)
		}
		return result{ref: r, loaded: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(result)
	return res.ref, res.loaded, nil
}

// GetIfPresent returns the cached Ref for key without triggering a load.
func (c *Cache) GetIfPresent(key blockkey.BlockKey) (*ref.Ref, bool) {
	return c.store.Get(key.CacheKey())
}

// Put inserts r under key, admitting it into the weighted cache. Returns
// false if the entry was rejected by the admission policy (e.g. the weight
// alone would not justify evicting the current residents). The admission
// hook fires only when admission is actually confirmed, never on Set's
// buffering-acceptance return value alone.
func (c *Cache) Put(key blockkey.BlockKey, r *ref.Ref) bool {
	cacheKey := key.CacheKey()
	cost := int64(fixedOverhead + r.Size)
	c.store.Set(cacheKey, r, cost)
	c.store.Wait()
	_, admitted := c.store.Get(cacheKey)
	if admitted {
		c.fireAdmit(r)
	}
	return admitted
}

// Invalidate removes key if present, firing the removal hook exactly once
// with CauseExplicit. It is a no-op if key is absent.
func (c *Cache) Invalidate(key blockkey.BlockKey) {
	cacheKey := key.CacheKey()
	r, ok := c.store.Get(cacheKey)
	if !ok {
		return
	}
	c.store.Del(cacheKey)
	c.fireRemoval(r, CauseExplicit)
}

// InvalidateAll removes every entry without individually firing the
// removal hook — callers that need per-entry teardown semantics (like the
// facade's CleanUp) drive the registry directly instead, rather than
// replaying eviction one key at a time.
func (c *Cache) InvalidateAll() {
	c.store.Clear()
}

// Wait blocks until ristretto's internal buffers are flushed, making the
// most recent Put/Invalidate calls visible to GetIfPresent. Tests use this
// for deterministic assertions; the hot path never needs it since
// GetOrCompute already returns the loaded value directly.
func (c *Cache) Wait() { c.store.Wait() }

// Close releases the underlying store.
func (c *Cache) Close() { c.store.Close() }
