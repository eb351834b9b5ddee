// Package ref implements Ref, the weight-carrying envelope stored in the
// weighted cache for every block and index artifact. A single weighted
// cache holds both kinds of payload, so the value is type-erased (any) —
// consumers downcast at the read site.
//
// © 2025 packblockcache authors. MIT License.
package ref

import "github.com/brennanwright/packblockcache/internal/packkey"

// Ref wraps a cached payload together with the identity and weight the
// eviction algorithm needs, without itself knowing anything about eviction.
// It is immutable after construction.
type Ref struct {
	PackKey  *packkey.Key
	Position int64
	Size     int32
	Value    any
}

// New constructs a Ref. size is the eviction weight in bytes, not counting
// the cache's fixed per-entry overhead.
func New(pk *packkey.Key, position int64, size int32, value any) *Ref {
	return &Ref{PackKey: pk, Position: position, Size: size, Value: value}
}

// IsIndex reports whether this Ref occupies an index-artifact slot.
func (r *Ref) IsIndex() bool { return r.Position < 0 }
