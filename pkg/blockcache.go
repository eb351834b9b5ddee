package packblockcache

// blockcache.go implements the BlockCache facade — the public contract
// consumers embed in their process: get_or_create_pack, get_or_load, put,
// get, contains, remove, clean_up, should_stream_through. This is also
// where the lifetime-coupling algorithm is wired up, since it needs both
// the weighted cache's admission/removal hooks and the pack registry.
//
// © 2025 packblockcache authors. MIT License.

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/brennanwright/packblockcache/internal/blockkey"
	"github.com/brennanwright/packblockcache/internal/ref"
	"github.com/brennanwright/packblockcache/internal/registry"
	"github.com/brennanwright/packblockcache/internal/weightedcache"
)

// Ref is the weight-carrying cache entry envelope, exported so callers
// inspecting Get's result (or a removal log) can see the identity and
// weight alongside the payload.
type Ref = ref.Ref

// maxStaleRetries bounds the get_or_load retry loop: an unbounded retry can
// livelock under an adversarial Contains implementation. Two attempts is
// enough for the documented case (a pack re-opened under a new PackKey
// mid-flight); a second stale hit in a row is treated as a fatal condition.
const maxStaleRetries = 2

// BlockCache is the public facade wiring the weighted cache and pack
// registry together.
type BlockCache struct {
	cfg      *config
	wc       *weightedcache.Cache
	registry *registry.Registry
	factory  PackFileFactory
	metrics  metricsSink
}

// New constructs a BlockCache. blockSize must be a power of two >= 512,
// maxBytes must be > 0, and streamRatio must be in [0, 1] — violating any of
// these raises a configuration error immediately. factory is the only place
// domain-specific pack-opening logic plugs in; it is invoked by
// GetOrCreatePack at most once per live description.
func New(blockSize int, maxBytes int64, streamRatio float64, factory PackFileFactory, opts ...Option) (*BlockCache, error) {
	if factory == nil {
		return nil, errNilFactory
	}

	cfg := defaultConfig(blockSize, maxBytes, streamRatio)
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	c := &BlockCache{
		cfg:      cfg,
		registry: registry.New(),
		factory:  factory,
		metrics:  newMetricsSink(cfg.registry),
	}

	wc, err := weightedcache.New(maxBytes, c.onRemoval, c.onAdmit)
	if err != nil {
		return nil, err
	}
	c.wc = wc
	return c, nil
}

// onAdmit implements the admission half of the lifetime-coupling algorithm.
// It fires only once ristretto has confirmed an entry is actually resident,
// so a pack's cached-bytes counter is only ever credited for bytes that are
// really sitting in the cache.
func (c *BlockCache) onAdmit(key blockkey.BlockKey, r *Ref) {
	if key.IsIndex() {
		return
	}
	key.Pack.AddCachedBytes(int64(r.Size))
}

// onRemoval implements the removal half of the lifetime-coupling algorithm.
// It runs synchronously from the weighted cache's removal path, so it must
// never block on I/O — registry.DropByKey defers PackFile.Close() until
// after its own internal lock is released, but the call itself still runs
// here.
func (c *BlockCache) onRemoval(key blockkey.BlockKey, r *Ref, cause weightedcache.Cause) {
	defer func() {
		if p := recover(); p != nil {
			c.cfg.logger.Error("removal listener panicked",
				zap.Any("panic", p), zap.Int64("position", key.Position))
		}
	}()
	c.metrics.incEviction(cause.String())

	if key.IsIndex() {
		// Index artifacts are treated as the anchor of a pack's presence:
		// losing any of them is a signal the handle is cold.
		c.registry.DropByKey(key.Pack)
		c.metrics.incPackEviction()
		c.cfg.logger.Debug("index artifact evicted, dropping pack",
			zap.Int64("position", key.Position), zap.String("cause", cause.String()))
		return
	}

	remaining := key.Pack.AddCachedBytes(-int64(r.Size))
	if remaining <= 0 {
		c.registry.DropByKey(key.Pack)
		c.metrics.incPackEviction()
		c.cfg.logger.Debug("pack exhausted, dropping",
			zap.Int64("position", key.Position), zap.String("cause", cause.String()))
	}
}

// BlockSize returns the configured block size.
func (c *BlockCache) BlockSize() int { return c.cfg.blockSize }

// Snapshot reports a point-in-time view of cache occupancy, intended for a
// debug HTTP endpoint consumed by the inspector CLI. It holds the block size,
// the capacity and the number of registered packs; cached bytes are tracked
// per pack and no cache-wide total is included.
func (c *BlockCache) Snapshot() map[string]any {
	return map[string]any{
		"block_size": c.cfg.blockSize,
		"max_bytes":  c.cfg.maxBytes,
		"pack_count": c.registry.Len(),
	}
}

// ShouldStreamThrough reports whether a payload of the given length should
// proceed through the normal cached path. Payloads at or above the
// configured fraction of total capacity (max_bytes * stream_ratio) are
// signaled as too large to justify caching — callers are expected to read
// them directly instead, bypassing the block cache entirely.
func (c *BlockCache) ShouldStreamThrough(length int64) bool {
	threshold := float64(c.cfg.maxBytes) * c.cfg.streamRatio
	through := float64(length) < threshold
	if !through {
		c.metrics.incStreamThrough()
	}
	return through
}

// GetOrCreatePack returns the live, non-invalid PackFile for desc, building
// one via the configured factory if absent or superseded. keyHint, when
// non-nil, pins the new handle's identity instead of allocating a fresh
// PackKey.
func (c *BlockCache) GetOrCreatePack(desc PackDescription, keyHint *PackKey) (PackFile, error) {
	created := false
	built, err := c.registry.GetOrCreate(desc, keyHint, func(key *PackKey) (registry.PackFile, error) {
		pf, err := c.factory(desc, key)
		if err != nil {
			return nil, err
		}
		created = true
		return pf, nil
	})
	if err != nil {
		return nil, err
	}
	pf := built.(PackFile)
	if created {
		c.metrics.incPackRegistration()
		c.cfg.logger.Debug("pack registered", zap.Any("description", desc))
	}
	return pf, nil
}

// GetOrLoad returns the block covering pos, reading it via pf.ReadOneBlock
// on a miss. A block whose Contains check fails against the pack's current
// key is treated as stale (left behind by a pack re-opened under a new
// identity): it is invalidated and reloaded, bounded by maxStaleRetries.
func (c *BlockCache) GetOrLoad(ctx context.Context, pf PackFile, pos int64, r Reader) (Block, error) {
	requested := pos

	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		aligned := pf.AlignToBlock(requested)
		key := blockkey.BlockKey{Pack: pf.Key(), Position: aligned}

		entry, loaded, err := c.wc.GetOrCompute(key, func() (*Ref, error) {
			block, err := pf.ReadOneBlock(ctx, aligned, r)
			if err != nil {
				return nil, fmt.Errorf("packblockcache: read block at %d: %w", aligned, err)
			}
			return ref.New(pf.Key(), aligned, block.Size(), block), nil
		})
		if err != nil {
			c.metrics.incBlockMiss()
			return nil, err
		}
		if loaded {
			c.metrics.incBlockMiss()
		} else {
			c.metrics.incBlockHit()
		}

		block := entry.Value.(Block)
		if block.Contains(pf.Key(), aligned) {
			return block, nil
		}

		c.cfg.logger.Warn("stale block entry, invalidating and retrying",
			zap.Int64("requested", requested), zap.Int64("aligned", aligned), zap.Int("attempt", attempt))
		c.wc.Invalidate(key)
	}

	return nil, ErrStaleLoop
}

// Put inserts value into the weighted cache at (pack, pos), admitting it as
// an index artifact (pos < 0) or a data block (pos >= 0). If an entry is
// already resident at (pack, pos), Put leaves it in place and returns it.
// Otherwise it returns the Ref envelope that was admitted (the admission
// policy may still reject it under capacity pressure, in which case the
// returned Ref is valid but not resident — the pack's cached-bytes counter
// is only credited once admission is confirmed, via onAdmit).
func (c *BlockCache) Put(pack *PackKey, pos int64, size int32, value any) *Ref {
	key := blockkey.BlockKey{Pack: pack, Position: pos}
	if existing, ok := c.wc.GetIfPresent(key); ok {
		return existing
	}
	r := ref.New(pack, pos, size, value)
	c.wc.Put(key, r)
	return r
}

// Get returns the cached payload at (pack, pos), if present.
func (c *BlockCache) Get(pack *PackKey, pos int64) (any, bool) {
	r, ok := c.wc.GetIfPresent(blockkey.BlockKey{Pack: pack, Position: pos})
	if !ok {
		return nil, false
	}
	return r.Value, true
}

// Contains reports whether (pack, pos) is currently resident.
func (c *BlockCache) Contains(pack *PackKey, pos int64) bool {
	_, ok := c.wc.GetIfPresent(blockkey.BlockKey{Pack: pack, Position: pos})
	return ok
}

// Invalidate removes the entry at (pack, pos), if present, synchronously
// running the lifetime-coupling removal hook. This surfaces the weighted
// cache's own invalidate(k) contract at the facade level — the same
// pathway capacity-driven eviction uses, just triggered explicitly (e.g. a
// caller rebuilt an index artifact and wants the stale copy gone
// immediately rather than waiting for eviction pressure).
func (c *BlockCache) Invalidate(pack *PackKey, pos int64) {
	c.wc.Invalidate(blockkey.BlockKey{Pack: pack, Position: pos})
}

// Remove drops pf's registry entry and zeroes its cached-bytes counter. It
// is idempotent — a second call for an already-removed pack is a no-op —
// and deliberately doesn't chase down pf's lingering Refs; they are
// reclaimed lazily as the weighted cache evicts them, trading cleanup
// latency for a cheap, allocation-free remove.
func (c *BlockCache) Remove(pf PackFile) {
	c.registry.DropByKey(pf.Key())
}

// CleanUp clears every cache entry and every registered pack. Unlike
// Invalidate, this doesn't replay the removal hook per entry — the whole
// system is being torn down at once, so there is nothing left for the
// lifetime-coupling algorithm to react to.
func (c *BlockCache) CleanUp() {
	c.wc.InvalidateAll()
	c.registry.Clear()
	c.metrics.setCachedBytes(0)
}
