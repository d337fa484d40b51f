package xcodec

import "sync/atomic"

// A Segment is an immutable, reference-counted SegmentLength-byte slab.
// Once created, its bytes never change; sharing is safe without
// copying. Segments are identified by pointer for interned cache
// entries, and by byte equality otherwise (Match, Equal).
type Segment struct {
	data [SegmentLength]byte
	refs int32
}

// NewSegment copies b (which must be exactly SegmentLength bytes) into
// a new Segment with one reference.
func NewSegment(b []byte) *Segment {
	if len(b) != SegmentLength {
		panic("xcodec: segment length mismatch")
	}
	s := &Segment{refs: 1}
	copy(s.data[:], b)
	return s
}

// Bytes returns the segment's underlying bytes. Callers must not
// modify the returned slice.
func (s *Segment) Bytes() []byte {
	return s.data[:]
}

// Ref adds a reference to s and returns s, for chaining at call sites
// that hand a segment to a new owner.
func (s *Segment) Ref() *Segment {
	atomic.AddInt32(&s.refs, 1)
	return s
}

// Unref releases a reference to s. Once the count reaches zero the
// segment is eligible for collection; because Go segments are
// garbage-collected, Unref does not itself free memory, but callers
// must still call it exactly once per Ref/NewSegment/lookup hit.
// Releasing more references than were taken (a double-free, in an
// implementation without a tracing GC) panics; a reference that is
// never released is not detected.
func (s *Segment) Unref() {
	n := atomic.AddInt32(&s.refs, -1)
	if n < 0 {
		panic("xcodec: segment over-released")
	}
}

// Match reports whether s's bytes equal b, which must be exactly
// SegmentLength bytes.
func (s *Segment) Match(b []byte) bool {
	if len(b) != SegmentLength {
		return false
	}
	return s.data == [SegmentLength]byte(b)
}

// Equal reports whether s and o hold identical bytes.
func (s *Segment) Equal(o *Segment) bool {
	return s.data == o.data
}
