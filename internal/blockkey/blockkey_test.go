package blockkey

import (
	"testing"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

func TestIsIndex(t *testing.T) {
	pack := packkey.New()
	cases := []struct {
		pos  int64
		want bool
	}{
		{pos: -1, want: true},
		{pos: -100, want: true},
		{pos: 0, want: false},
		{pos: 4096, want: false},
	}
	for _, c := range cases {
		k := BlockKey{Pack: pack, Position: c.pos}
		if got := k.IsIndex(); got != c.want {
			t.Errorf("BlockKey{Position: %d}.IsIndex() = %v, want %v", c.pos, got, c.want)
		}
	}
}

func TestCacheKey_SamePackSamePosition(t *testing.T) {
	pack := packkey.New()
	a := BlockKey{Pack: pack, Position: 10}
	b := BlockKey{Pack: pack, Position: 10}
	if a.CacheKey() != b.CacheKey() {
		t.Fatalf("expected identical cache keys for the same (pack, position)")
	}
}

func TestCacheKey_DistinguishesPacksAndPositions(t *testing.T) {
	p1 := packkey.New()
	p2 := packkey.New()

	k1 := BlockKey{Pack: p1, Position: 10}
	k2 := BlockKey{Pack: p2, Position: 10}
	if k1.CacheKey() == k2.CacheKey() {
		t.Fatalf("expected distinct packs to produce distinct cache keys")
	}

	k3 := BlockKey{Pack: p1, Position: 20}
	if k1.CacheKey() == k3.CacheKey() {
		t.Fatalf("expected distinct positions on the same pack to produce distinct cache keys")
	}
}
