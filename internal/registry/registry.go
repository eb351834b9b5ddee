// Package registry implements the pack registry: the coupled
// description->PackFile and PackKey->description mappings, with the
// invariant that at most one live, non-invalid PackFile exists per
// description at any moment.
//
// Both mappings are mutated together under a single logical critical
// section per description, modeled as a sharded lock map: contention is
// spread across N independent locks instead of guarding the whole registry
// with one global mutex.
//
// © 2025 packblockcache authors. MIT License.
package registry

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

// PackFile is the minimal shape the registry needs from a pack handle. The
// public facade's PackFile interface (pkg.PackFile) is structurally wider;
// Go's structural typing lets any such value satisfy this interface without
// an import cycle between registry and the facade package.
type PackFile interface {
	Key() *packkey.Key
	Invalid() bool
	Close() error
}

// Factory constructs a new PackFile for desc, using the given key (either a
// caller-supplied hint or one freshly allocated by the registry).
type Factory func(key *packkey.Key) (PackFile, error)

const shardCount = 64

// Registry holds the two coupled maps plus the per-description critical
// sections that keep them consistent.
type Registry struct {
	shardLocks [shardCount]sync.Mutex

	mu            sync.RWMutex
	byDescription map[any]PackFile
	byKey         map[*packkey.Key]any
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		byDescription: make(map[any]PackFile),
		byKey:         make(map[*packkey.Key]any),
	}
}

func (r *Registry) shardLock(desc any) *sync.Mutex {
	h := xxhash.Sum64String(fmt.Sprint(desc))
	return &r.shardLocks[h%shardCount]
}

// GetOrCreate returns the live, non-invalid PackFile for desc, creating one
// via factory if absent or if the existing entry has gone invalid.
// keyHint, when non-nil, is used as the PackKey for a freshly created
// PackFile instead of allocating a new one.
func (r *Registry) GetOrCreate(desc any, keyHint *packkey.Key, factory Factory) (PackFile, error) {
	lock := r.shardLock(desc)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	existing, ok := r.byDescription[desc]
	r.mu.RUnlock()
	if ok && !existing.Invalid() {
		return existing, nil
	}

	key := keyHint
	if key == nil {
		key = packkey.New()
	}

	pf, err := factory(key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if ok {
		// The previous entry was found invalid above; it is replaced
		// below. Its key is left to be reclaimed by the
		// caller's own eviction pathway if it still has live Refs.
		delete(r.byKey, existing.Key())
	}
	r.byDescription[desc] = pf
	r.byKey[pf.Key()] = desc
	r.mu.Unlock()

	return pf, nil
}

// DropByKey removes the pair identified by key, closing the removed
// PackFile and zeroing its cached-bytes counter. It is idempotent: calling
// it again for a key that is no longer registered is a no-op, which is what
// allows lingering eviction-hook calls for a pack that was already removed
// to be harmless.
func (r *Registry) DropByKey(key *packkey.Key) {
	r.mu.Lock()
	desc, ok := r.byKey[key]
	var pf PackFile
	if ok {
		pf = r.byDescription[desc]
		delete(r.byKey, key)
		delete(r.byDescription, desc)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	key.ResetCachedBytes()
	_ = pf.Close()
}

// DropByDescription removes the pair identified by desc, if present.
func (r *Registry) DropByDescription(desc any) {
	r.mu.Lock()
	pf, ok := r.byDescription[desc]
	var key *packkey.Key
	if ok {
		key = pf.Key()
		delete(r.byDescription, desc)
		delete(r.byKey, key)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	key.ResetCachedBytes()
	_ = pf.Close()
}

// Clear removes every entry, closing each PackFile and zeroing every known
// PackKey's cached-bytes counter.
func (r *Registry) Clear() {
	r.mu.Lock()
	files := make([]PackFile, 0, len(r.byDescription))
	for _, pf := range r.byDescription {
		files = append(files, pf)
	}
	for key := range r.byKey {
		key.ResetCachedBytes()
	}
	r.byDescription = make(map[any]PackFile)
	r.byKey = make(map[*packkey.Key]any)
	r.mu.Unlock()

	for _, pf := range files {
		_ = pf.Close()
	}
}

// Len returns the number of registered packs. Intended for diagnostics and
// tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDescription)
}

// DescriptionFor returns the description a key maps back to, for callers
// that want to check the mapping directly in tests.
func (r *Registry) DescriptionFor(key *packkey.Key) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byKey[key]
	return desc, ok
}
