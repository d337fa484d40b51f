package xcodec

import "math/bits"

// hashTable holds one 64-bit mixing value per possible input byte. It
// is generated once, deterministically, from a fixed multiplicative
// constant in the style of the teacher's hash4/hash8 (dualhash.go,
// o3.go) — there is no reason to draw on an external PRNG for a table
// that must be byte-stable across builds and versions (spec §6).
var hashTable = buildHashTable()

func buildHashTable() (t [256]uint64) {
	for i := range t {
		x := uint64(i+1) * 0x9E3779B97F4A7C15 // Fibonacci hashing constant
		x ^= x >> 33
		x *= 0xFF51AFD7ED558CCD
		x ^= x >> 33
		x *= 0xC4CEB9FE1A85EC53
		x ^= x >> 33
		t[i] = x
	}
	return t
}

// RollingHash implements the SegmentLength-byte rolling window hash
// (spec §3, §4.2). It is a buzhash variant: the window is exactly as
// wide as the hash state (64 bytes, 64 bits), which makes the "roll
// the outgoing byte's contribution back out" rotation a no-op modulo
// 64 and keeps Roll to one rotate and two XORs.
//
// Feeding the same SegmentLength bytes into a freshly Reset
// RollingHash always yields the same Mix, independent of anything fed
// to it before the Reset — this is the invariant spec §3 requires and
// §8 (property 3, "hash-consistency") depends on.
type RollingHash struct {
	window [SegmentLength]byte
	pos    int
	h      uint64
}

// NewRollingHash returns a RollingHash ready to roll in bytes.
func NewRollingHash() *RollingHash {
	return &RollingHash{}
}

// Reset returns the hash to its zero state, as if newly constructed.
func (r *RollingHash) Reset() {
	r.window = [SegmentLength]byte{}
	r.pos = 0
	r.h = 0
}

// Roll slides the window forward by one byte and returns the updated
// mixing state. It is O(1).
func (r *RollingHash) Roll(b byte) uint64 {
	out := r.window[r.pos]
	r.window[r.pos] = b
	r.pos++
	if r.pos == SegmentLength {
		r.pos = 0
	}
	r.h = bits.RotateLeft64(r.h, 1) ^ hashTable[out] ^ hashTable[b]
	return r.h
}

// Mix returns the current hash value without modifying state.
func (r *RollingHash) Mix() uint64 {
	return r.h
}

// Hash computes the rolling hash of a single SegmentLength-byte slice
// from scratch. It is used to verify declarations and LEARN payloads,
// where the segment arrives whole rather than byte-by-byte.
func Hash(segment []byte) uint64 {
	if len(segment) != SegmentLength {
		panic("xcodec: segment length mismatch")
	}
	var r RollingHash
	var h uint64
	for _, b := range segment {
		h = r.Roll(b)
	}
	return h
}
