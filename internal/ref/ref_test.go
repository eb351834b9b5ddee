package ref

import (
	"testing"

	"github.com/brennanwright/packblockcache/internal/packkey"
)

func TestNew_FieldsAndIsIndex(t *testing.T) {
	pk := packkey.New()
	r := New(pk, 128, 64, "payload")

	if r.PackKey != pk {
		t.Fatalf("PackKey not preserved")
	}
	if r.Position != 128 || r.Size != 64 || r.Value != "payload" {
		t.Fatalf("fields not preserved: %+v", r)
	}
	if r.IsIndex() {
		t.Fatalf("expected IsIndex() false for a non-negative position")
	}

	idx := New(pk, -1, 200, "index payload")
	if !idx.IsIndex() {
		t.Fatalf("expected IsIndex() true for a negative position")
	}
}
