package xcodec

// BackrefWindow is the 256-slot ring described in spec §4.3: it maps
// the most recently declared or hash-referenced hashes to a one-byte
// token, so that a segment used again shortly after being introduced
// can be referenced in two bytes instead of nine.
//
// An encoder and its matching decoder each keep their own
// BackrefWindow. The two evolve in lockstep only because both apply
// Declare, in the same order, on every DECLARE and every HASHREF
// emitted or consumed (spec §4.3, §8 property 5) — never on BACKREF
// itself, since a BACKREF does not introduce a new hash to the ring.
// This is not an LRU: a slot is evicted purely by the write cursor
// wrapping around, regardless of how recently it was read.
type BackrefWindow struct {
	slot   [256]uint64
	valid  [256]bool
	cursor uint8
}

// NewBackrefWindow returns an empty window.
func NewBackrefWindow() *BackrefWindow {
	return &BackrefWindow{}
}

// Declare records hash at the current write cursor and advances it,
// returning the token now assigned to hash.
func (w *BackrefWindow) Declare(hash uint64) byte {
	token := w.cursor
	w.slot[token] = hash
	w.valid[token] = true
	w.cursor++
	return token
}

// Present returns the token currently assigned to hash, if the slot
// it was declared into has not since been overwritten.
func (w *BackrefWindow) Present(hash uint64) (token byte, ok bool) {
	for i := 0; i < 256; i++ {
		if w.valid[i] && w.slot[i] == hash {
			return byte(i), true
		}
	}
	return 0, false
}

// Resolve returns the hash assigned to token, if that slot is still
// populated.
func (w *BackrefWindow) Resolve(token byte) (hash uint64, ok bool) {
	if !w.valid[token] {
		return 0, false
	}
	return w.slot[token], true
}
