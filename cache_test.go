package xcodec

import "testing"

func TestCacheEnterLookup(t *testing.T) {
	c := newCache(mustUUID(t))
	data := make([]byte, SegmentLength)
	data[0] = 1
	hash := Hash(data)

	if c.Lookup(hash) != nil {
		t.Fatal("Lookup on empty cache should return nil")
	}

	seg := NewSegment(data)
	if err := c.Enter(hash, seg); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	seg.Unref()

	got := c.Lookup(hash)
	if got == nil {
		t.Fatal("Lookup after Enter should find the segment")
	}
	if !got.Match(data) {
		t.Fatal("looked-up segment has the wrong bytes")
	}
	got.Unref()
}

func TestCacheEnterIdenticalDuplicateIsANoOp(t *testing.T) {
	c := newCache(mustUUID(t))
	data := make([]byte, SegmentLength)
	hash := Hash(data)

	first := NewSegment(data)
	if err := c.Enter(hash, first); err != nil {
		t.Fatalf("first Enter: %v", err)
	}
	first.Unref()

	second := NewSegment(data)
	if err := c.Enter(hash, second); err != nil {
		t.Fatalf("redundant identical Enter should be a no-op, got: %v", err)
	}
	second.Unref()

	got := c.Lookup(hash)
	if got == nil {
		t.Fatal("Lookup after redundant Enter should still find the segment")
	}
	got.Unref()
}

func TestCacheEnterCollisionReturnsErrCollision(t *testing.T) {
	c := newCache(mustUUID(t))
	data := make([]byte, SegmentLength)
	hash := Hash(data)
	if err := c.Enter(hash, NewSegment(data)); err != nil {
		t.Fatalf("first Enter: %v", err)
	}

	other := make([]byte, SegmentLength)
	other[0] = 1
	if err := c.Enter(hash, NewSegment(other)); err != ErrCollision {
		t.Fatalf("Enter with differing bytes under an existing hash = %v, want ErrCollision", err)
	}
}

func TestRegistryFindOrCreateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := mustUUID(t)

	a := r.FindOrCreate(id)
	b := r.FindOrCreate(id)
	if a != b {
		t.Fatal("FindOrCreate for the same UUID should return the same *Cache")
	}
	if r.FindByUUID(id) != a {
		t.Fatal("FindByUUID should find the cache FindOrCreate created")
	}
}

func TestNewCacheRegistersInGlobal(t *testing.T) {
	c := NewCache()
	if Global().FindByUUID(c.UUID()) != c {
		t.Fatal("NewCache should register itself in the global registry")
	}
}

func mustUUID(t *testing.T) [16]byte {
	t.Helper()
	c := NewCache()
	return c.UUID()
}
