package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

type fakePackFile struct {
	key    *packkey.Key
	closed int
}

func (f *fakePackFile) Key() *packkey.Key { return f.key }
func (f *fakePackFile) Invalid() bool     { return false }
func (f *fakePackFile) Close() error      { f.closed++; return nil }

func TestGetOrCreate_SingleLivePerDescription(t *testing.T) {
	r := New()
	desc := "pack-a"

	var created int
	factory := func(k *packkey.Key) (PackFile, error) {
		created++
		return &fakePackFile{key: k}, nil
	}

	first, err := r.GetOrCreate(desc, nil, factory)
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := r.GetOrCreate(desc, nil, factory)
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same PackFile instance, got distinct handles")
	}
	if created != 1 {
		t.Fatalf("expected factory to run once, ran %d times", created)
	}

	gotDesc, ok := r.DescriptionFor(first.Key())
	if !ok || gotDesc != desc {
		t.Fatalf("DescriptionFor = (%v, %v), want (%v, true)", gotDesc, ok, desc)
	}
}

func TestGetOrCreate_ConcurrentCallersShareOneFactoryInvocation(t *testing.T) {
	r := New()
	desc := "pack-b"

	var created int
	var mu sync.Mutex
	factory := func(k *packkey.Key) (PackFile, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return &fakePackFile{key: k}, nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]PackFile, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pf, err := r.GetOrCreate(desc, nil, factory)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = pf
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different PackFile than goroutine 0", i)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one factory invocation, got %d", created)
	}
}

func TestDropByKey_IdempotentAndClosesOnce(t *testing.T) {
	r := New()
	desc := "pack-c"
	var pf *fakePackFile
	_, err := r.GetOrCreate(desc, nil, func(k *packkey.Key) (PackFile, error) {
		pf = &fakePackFile{key: k}
		return pf, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	pf.key.AddCachedBytes(512)
	r.DropByKey(pf.key)
	if pf.key.CachedBytes() != 0 {
		t.Fatalf("cached bytes not reset: got %d", pf.key.CachedBytes())
	}
	if pf.closed != 1 {
		t.Fatalf("expected Close to run once, ran %d times", pf.closed)
	}

	// second drop is a no-op
	r.DropByKey(pf.key)
	if pf.closed != 1 {
		t.Fatalf("expected Close to still have run once, ran %d times", pf.closed)
	}

	if r.Len() != 0 {
		t.Fatalf("expected registry to be empty, has %d entries", r.Len())
	}
	if _, ok := r.DescriptionFor(pf.key); ok {
		t.Fatalf("expected reverse index entry to be gone")
	}
}

func TestGetOrCreate_FactoryErrorNotRegistered(t *testing.T) {
	r := New()
	wantErr := errors.New("boom")
	_, err := r.GetOrCreate("pack-d", nil, func(k *packkey.Key) (PackFile, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected factory error to propagate, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected nothing registered after a failed factory call")
	}
}

func TestClear_ResetsCountersAndCloses(t *testing.T) {
	r := New()
	var files []*fakePackFile
	for i := 0; i < 3; i++ {
		var pf *fakePackFile
		desc := i
		_, err := r.GetOrCreate(desc, nil, func(k *packkey.Key) (PackFile, error) {
			pf = &fakePackFile{key: k}
			pf.key.AddCachedBytes(100)
			return pf, nil
		})
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		files = append(files, pf)
	}

	r.Clear()

	if r.Len() != 0 {
		t.Fatalf("expected empty registry after Clear, got %d", r.Len())
	}
	for i, pf := range files {
		if pf.key.CachedBytes() != 0 {
			t.Fatalf("pack %d: cached bytes not reset after Clear", i)
		}
		if pf.closed != 1 {
			t.Fatalf("pack %d: expected Close to run once, ran %d times", i, pf.closed)
		}
	}
}

func TestGetOrCreate_ReplacesInvalidEntry(t *testing.T) {
	r := New()
	desc := "pack-e"

	first := &fakePackFile{}
	_, err := r.GetOrCreate(desc, nil, func(k *packkey.Key) (PackFile, error) {
		first.key = k
		return first, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	invalid := &invalidatablePackFile{fakePackFile: first}
	// Swap in a wrapper whose Invalid() flips to true, then ask again.
	r.mu.Lock()
	r.byDescription[desc] = invalid
	r.mu.Unlock()
	invalid.invalid = true

	second, err := r.GetOrCreate(desc, nil, func(k *packkey.Key) (PackFile, error) {
		return &fakePackFile{key: k}, nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate (replace): %v", err)
	}
	if second == PackFile(invalid) {
		t.Fatalf("expected a fresh PackFile to replace the invalid one")
	}
}

type invalidatablePackFile struct {
	*fakePackFile
	invalid bool
}

func (p *invalidatablePackFile) Invalid() bool { return p.invalid }
