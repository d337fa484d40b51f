package xcodec

import "encoding/binary"

// offsetHash is a first-pass candidate: a window that did not resolve
// to a confirmed match on the first pass, recorded so the second pass
// can look it up again (spec §3 "offset_hash_map").
type offsetHash struct {
	start int
	hash  uint64
}

// offsetSeg is a first-pass confirmed match: a window whose hash was
// already in the cache and whose bytes matched (spec §3
// "offset_seg_map").
type offsetSeg struct {
	start int
	seg   *Segment
}

// Encoder turns plaintext into a stream of literal bytes, segment
// declarations, and references, replacing recurring SegmentLength-byte
// windows with a hash reference or, if the hash was used recently, a
// one-byte back-reference (spec §4.2).
//
// An Encoder is not safe for concurrent use; like the rest of the
// codec it is meant to run on one endpoint's single event-loop
// goroutine (spec §5).
type Encoder struct {
	cache   *Cache
	backref *BackrefWindow
}

// NewEncoder returns an Encoder that declares new segments into cache
// and mirrors declarations into a fresh BackrefWindow.
func NewEncoder(cache *Cache) *Encoder {
	return &Encoder{cache: cache, backref: NewBackrefWindow()}
}

// Encode appends the encoded form of input to dst and returns the
// extended slice. It is deterministic given the state of the cache and
// backref window at entry (spec §8 property 2).
func (e *Encoder) Encode(dst, input []byte) []byte {
	if len(input) < SegmentLength {
		// Short-input fast path (spec §4.2, §8 property 6): no
		// escaping, no framing. Framing is the pipe-pair's job; nothing
		// escapes these bytes, so a reserved byte value in a short
		// input is read as a token by the peer's Decode.
		return append(dst, input...)
	}

	var rh RollingHash
	var ohm []offsetHash
	var osm []offsetSeg
	base := 0

	for idx, b := range input {
		o := idx + 1
		rh.Roll(b)
		if o-base < SegmentLength {
			continue
		}
		start := o - SegmentLength
		hash := rh.Mix()

		if oseg := e.cache.Lookup(hash); oseg != nil {
			if !oseg.Match(input[start : start+SegmentLength]) {
				// Collision: someone else's data hashes the same.
				// Not an error, just not usable here.
				oseg.Unref()
				continue
			}
			osm = append(osm, offsetSeg{start, oseg})
			// Do not consider a new candidate window until we are
			// past this one.
			base = o
		}

		ohm = append(ohm, offsetHash{start, hash})
	}

	soff := 0
	i, j := 0, 0
	for i < len(ohm) {
		start := ohm[i].start
		hash := ohm[i].hash
		end := start + SegmentLength
		i++

		var chosen *Segment
		if j < len(osm) {
			switch {
			case start == osm[j].start:
				chosen = osm[j].seg
				j++
			case start < osm[j].start && end > osm[j].start:
				// This candidate would overlap a confirmed match
				// still ahead of us. Skip it.
				continue
			default:
				// The confirmed match is further ahead and does not
				// overlap; this hash is free to try on its own.
			}
		}

		if chosen == nil {
			data := input[start : start+SegmentLength]

			// The cache may have grown since the first pass, because
			// this same call may have declared segments already.
			if existing := e.cache.Lookup(hash); existing != nil {
				if !existing.Match(data) {
					existing.Unref()
					continue
				}
				chosen = existing
			} else {
				seg := NewSegment(data)
				if err := e.cache.Enter(hash, seg); err != nil {
					// A shared cache raced us between the Lookup above
					// and this Enter. Not an error, just not usable.
					seg.Unref()
					continue
				}

				dst = append(dst, DeclareChar)
				dst = binary.LittleEndian.AppendUint64(dst, hash)
				dst = append(dst, data...)

				e.backref.Declare(hash)

				chosen = seg
			}

			// Overlapping candidates behind this one are now moot.
			for i < len(ohm) && ohm[i].start < end {
				i++
			}
		}
		// chosen was obtained through Lookup (osm's first-pass hit,
		// or the second-pass re-lookup) or through NewSegment+Enter;
		// in every case the encoder is done with its own reference
		// once the bytes and hash have been read out above.
		chosen.Unref()

		if soff != start {
			dst = escapeAppend(dst, input[soff:start])
		}
		soff = end

		if tok, ok := e.backref.Present(hash); ok {
			dst = append(dst, BackrefChar, tok)
		} else {
			dst = append(dst, HashrefChar)
			dst = binary.LittleEndian.AppendUint64(dst, hash)
			e.backref.Declare(hash)
		}
	}

	if soff < len(input) {
		dst = escapeAppend(dst, input[soff:])
	}

	return dst
}
