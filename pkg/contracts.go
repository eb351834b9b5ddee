// Package packblockcache is the public facade: a content-addressed block
// cache sitting in front of a pack-file object store. See SPEC_FULL.md for
// the full design; this file declares the external contracts the core
// consumes but never implements itself.
//
// © 2025 packblockcache authors. MIT License.
package packblockcache

import (
	"context"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

// PackKey is the internal per-pack identity token. Callers never construct
// one directly — the facade allocates them via GetOrCreatePack — but
// PackFile implementations hold one and return it from Key().
type PackKey = packkey.Key

// PackDescription is an opaque, externally defined, value-equal name for a
// pack. The core never inspects it beyond using it as a map key.
type PackDescription = any

// Reader is an opaque per-call context handed through GetOrLoad to
// PackFile.ReadOneBlock. The core never inspects it.
type Reader = any

// Block is the payload cached for a pack-data position. Implementations
// must be safe to share across goroutines once constructed.
type Block interface {
	// Size is the eviction weight of the block, in bytes.
	Size() int32
	// Contains reports whether this block satisfies a lookup for
	// (key, pos) — used to detect a stale entry left behind by a pack that
	// has since been re-opened under a new PackKey.
	Contains(key *PackKey, pos int64) bool
}

// IndexArtifact is any opaque, non-block payload associated with a pack —
// a reverse index, a bitmap, an object-offset map — produced by an external
// collaborator and memoized in the same cache as blocks, at a negative
// position slot.
type IndexArtifact = any

// PackFile is the external handle object that performs actual block I/O.
// The core owns at most one live instance per PackDescription.
type PackFile interface {
	// ReadOneBlock reads and returns the single block covering the given
	// (already block-aligned) position.
	ReadOneBlock(ctx context.Context, pos int64, r Reader) (Block, error)
	// AlignToBlock rounds pos down to a multiple of the file's native
	// block size, which divides the cache's configured BlockSize.
	AlignToBlock(pos int64) int64
	// Key returns this handle's identity token.
	Key() *PackKey
	// Description returns the external name this handle was opened for.
	Description() PackDescription
	// Invalid reports whether this handle has been superseded and should
	// no longer be returned from GetOrCreatePack.
	Invalid() bool
	// Close releases OS-level resources. Called at most meaningfully once;
	// implementations should tolerate repeat calls.
	Close() error
}

// PackFileFactory materializes a new PackFile for desc, using key as its
// identity token. The core calls this at most once per live description;
// it is the only place domain-specific pack-opening logic plugs in.
type PackFileFactory func(desc PackDescription, key *PackKey) (PackFile, error)
