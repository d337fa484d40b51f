package xcodec

import "testing"

func TestBackrefDeclareAndResolve(t *testing.T) {
	w := NewBackrefWindow()
	tok := w.Declare(0xdead)

	hash, ok := w.Resolve(tok)
	if !ok || hash != 0xdead {
		t.Fatalf("Resolve(%d) = (%#x, %v), want (0xdead, true)", tok, hash, ok)
	}

	if got, ok := w.Present(0xdead); !ok || got != tok {
		t.Fatalf("Present(0xdead) = (%d, %v), want (%d, true)", got, ok, tok)
	}
}

func TestBackrefResolveUnpopulatedSlotFails(t *testing.T) {
	w := NewBackrefWindow()
	if _, ok := w.Resolve(200); ok {
		t.Fatal("Resolve on a never-declared slot should fail")
	}
}

func TestBackrefWrapAroundEvictsOldest(t *testing.T) {
	w := NewBackrefWindow()
	first := w.Declare(1)
	// 256 more declares advances the cursor exactly once around the
	// ring, so the 256th of them lands back on the slot `first` used.
	for i := uint64(2); i <= 257; i++ {
		w.Declare(i)
	}
	if hash, ok := w.Resolve(first); !ok || hash != 257 {
		t.Fatalf("slot %d after wraparound = (%#x, %v), want (257, true)", first, hash, ok)
	}
	if _, ok := w.Present(1); ok {
		t.Fatal("hash 1 should have been evicted by wraparound, not found by Present")
	}
}

func TestBackrefPresentFalseForNeverDeclared(t *testing.T) {
	w := NewBackrefWindow()
	if _, ok := w.Present(12345); ok {
		t.Fatal("Present should be false for a hash never declared")
	}
}
