package xcodec

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// A Cache interns SegmentLength-byte segments by their 64-bit rolling
// hash (spec §4.1). It is tagged with a UUID exchanged during HELLO;
// two peers presenting the same UUID are assumed to hold identical
// entries and may share one Cache instance process-wide (Registry,
// below).
//
// Cache is safe for concurrent use: although a single endpoint's
// encoder and decoder run on one goroutine (spec §5), a Cache found by
// UUID may be handed to more than one endpoint in the same process.
type Cache struct {
	id uuid.UUID

	mu      sync.Mutex
	entries map[uint64]*Segment
}

// NewCache creates a Cache with a freshly minted identity and
// registers it in the process-wide Registry so a peer that later
// presents this UUID (having learned it out of band, or by sharing a
// process) resolves to the same instance.
func NewCache() *Cache {
	c := newCache(uuid.New())
	globalRegistry.put(c)
	return c
}

func newCache(id uuid.UUID) *Cache {
	return &Cache{id: id, entries: make(map[uint64]*Segment)}
}

// UUID returns the cache's identity.
func (c *Cache) UUID() uuid.UUID {
	return c.id
}

// Lookup returns the segment stored under hash, bumping its reference
// count, or nil if no such entry exists. The caller owns the returned
// reference and must Unref it.
func (c *Cache) Lookup(hash uint64) *Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[hash]
	if !ok {
		return nil
	}
	return s.Ref()
}

// Enter inserts seg under hash. The cache takes its own reference on
// seg; the caller retains whatever reference it already held.
//
// A redundant Enter for a hash already present is a no-op that takes
// another reference on the existing entry, provided the bytes match
// (spec §4.1): two endpoints sharing one cache by UUID can both race
// Lookup(hash)→nil then Enter(hash, …) for the same newly-seen
// segment, and the loser must not crash. Entering different bytes
// under the same hash is a genuine collision and is reported, not
// panicked, via ErrCollision — the same outcome callers already
// distinguish from a duplicate.
func (c *Cache) Enter(hash uint64, seg *Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[hash]; ok {
		if !existing.Equal(seg) {
			return ErrCollision
		}
		existing.Ref()
		return nil
	}
	c.entries[hash] = seg.Ref()
	return nil
}

// Registry is the process-wide map from cache UUID to Cache instance
// (spec §4.1 "find_by_uuid", §6 "process-wide registry").
type Registry struct {
	mu     sync.Mutex
	caches map[uuid.UUID]*Cache
	group  singleflight.Group
}

// NewRegistry returns an empty Registry. Most callers use the process
// default, Global.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[uuid.UUID]*Cache)}
}

var globalRegistry = NewRegistry()

// Global returns the process-wide cache registry.
func Global() *Registry {
	return globalRegistry
}

func (r *Registry) put(c *Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[c.id] = c
}

// FindByUUID returns the cache registered under id, or nil.
func (r *Registry) FindByUUID(id uuid.UUID) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caches[id]
}

// FindOrCreate returns the cache registered under id, creating an
// empty one and registering it if none exists yet. Concurrent calls
// for the same id are collapsed with singleflight so a burst of
// peerings that resolve the same UUID at once do not race to create
// two distinct caches under one identity.
func (r *Registry) FindOrCreate(id uuid.UUID) *Cache {
	v, _, _ := r.group.Do(id.String(), func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.caches[id]; ok {
			return c, nil
		}
		c := newCache(id)
		r.caches[id] = c
		return c, nil
	})
	return v.(*Cache)
}
