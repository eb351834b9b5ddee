// Package packkey implements the internal per-pack identity token: a small,
// reference-counted-by-pointer handle that downstream readers and cache
// entries carry around instead of the raw pack description.
//
// A Key is deliberately minimal: it carries only what the eviction
// algorithm needs (a random sharding hash, and a running total of cached
// bytes). Everything else — the pack description, the open file handle —
// lives on the caller's PackFile implementation, which holds a *Key.
//
// © 2025 packblockcache authors. MIT License.
package packkey

import (
	"math/rand/v2"
	"sync/atomic"
)

// Key is the internal identity allocated the first time a pack description
// is registered with the cache. Two Keys are equal iff they are the same
// allocation — callers must compare pointers, never field values.
type Key struct {
	// hash is a random per-key value, exposed through Hash() for callers
	// that want to spread keys across shards. The registry's own shard
	// locks do not use it; they hash the pack description instead.
	hash uint32

	// cachedBytes is the running sum of the sizes of every Ref still
	// present in the weighted cache that belongs to this pack (position
	// >= 0 only — index artifacts don't count towards it). It is only ever
	// credited once admission is confirmed and only ever debited once
	// removal is confirmed, so it stays equal to the sum of resident block
	// sizes rather than drifting under capacity-driven admission rejects.
	cachedBytes atomic.Int64
}

// New allocates a fresh, zeroed Key with a random sharding hash.
func New() *Key {
	return &Key{hash: rand.Uint32()}
}

// Hash returns the key's random sharding value. It carries no semantic
// meaning beyond spreading keys uniformly.
func (k *Key) Hash() uint32 { return k.hash }

// CachedBytes returns the current value of the cached-bytes counter.
func (k *Key) CachedBytes() int64 { return k.cachedBytes.Load() }

// AddCachedBytes atomically adds delta (which may be negative) and returns
// the resulting value, mirroring atomic.Int64.Add.
func (k *Key) AddCachedBytes(delta int64) int64 { return k.cachedBytes.Add(delta) }

// ResetCachedBytes sets the counter back to zero. Used by the registry when
// a pack is dropped: remove() is idempotent and deliberately doesn't chase
// down every lingering Ref, so the counter is simply zeroed and any later
// eviction-hook call for a stale Ref becomes a harmless no-op.
func (k *Key) ResetCachedBytes() { k.cachedBytes.Store(0) }
