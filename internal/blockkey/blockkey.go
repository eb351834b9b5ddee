// Package blockkey implements BlockKey, the composite identity of a cached
// entry: a (PackKey, position) pair with value-equality on position and
// pointer-identity equality on the pack key.
//
// Position >= 0 addresses a block of pack data; position < 0 addresses an
// index artifact slot — the sign bit is the discriminator.
//
// © 2025 packblockcache authors. MIT License.
package blockkey

import (
	"fmt"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

// BlockKey composes a pack identity with a byte position (or, for negative
// values, an index-artifact slot number).
type BlockKey struct {
	Pack     *packkey.Key
	Position int64
}

// IsIndex reports whether this key addresses an index artifact rather than
// a pack-data block.
func (k BlockKey) IsIndex() bool { return k.Position < 0 }

// CacheKey returns the string identity handed to the underlying weighted
// cache. We key on the PackKey's pointer identity (%p) rather than hashing
// its fields, because PackKey equality is defined as "same allocation" —
// using the pointer directly sidesteps needing a stable hash of an object
// that carries no stable value fields. Two different PackKey allocations
// never share an address while both are reachable (a cache entry referencing
// one keeps it alive), so the resulting string is collision-free in
// practice; the underlying cache additionally double-hashes string keys to
// guard against accidental collisions.
func (k BlockKey) CacheKey() string {
	return fmt.Sprintf("%p:%d", k.Pack, k.Position)
}

func (k BlockKey) String() string { return k.CacheKey() }
