package xcodec

import "encoding/binary"

// Decoder reassembles plaintext from an Encoder's token stream,
// resolving references against a Cache and pausing when it meets a
// hash it has not yet been taught (spec §4.4).
//
// Like Encoder, a Decoder is meant for one endpoint's single
// event-loop goroutine.
type Decoder struct {
	cache   *Cache
	backref *BackrefWindow
}

// NewDecoder returns a Decoder bound to cache, with a BackrefWindow
// that must be fed the same declaration/reference sequence as its
// peer Encoder's window to stay in lockstep (spec §4.3, §8 property 5).
func NewDecoder(cache *Cache) *Decoder {
	return &Decoder{cache: cache, backref: NewBackrefWindow()}
}

// Decode consumes as much of input as it can, appending decoded bytes
// to dst, and returns the extended slice along with the number of
// input bytes consumed.
//
// If it returns with unknown non-empty, it added at least one hash
// there and stopped at the token that named it: the returned output is
// a valid prefix of the eventual decoded stream, and input[consumed:]
// must be handed back to Decode, untouched, once every hash added this
// call (and any added on prior calls) has been learned (spec §4.4, §8
// property 7). If it returns with unknown still containing hashes from
// a previous call that this call did not resolve, the caller must not
// invoke Decode again until they are learned — Decode does not consult
// unknown to skip work, it only adds to it.
//
// A non-nil error is always fatal (spec §7 category 3), except
// ErrShortBuffer, which means input ended mid-token and the caller
// should retry once more bytes arrive.
func (d *Decoder) Decode(dst, input []byte, unknown map[uint64]struct{}) ([]byte, int, error) {
	pos := 0
	for pos < len(input) {
		switch b := input[pos]; b {
		case EscapeChar:
			if len(input)-pos < 2 {
				return dst, pos, ErrShortBuffer
			}
			dst = append(dst, unescapeByte(input[pos+1]))
			pos += 2

		case DeclareChar:
			const need = 1 + 8 + SegmentLength
			if len(input)-pos < need {
				return dst, pos, ErrShortBuffer
			}
			hash := binary.LittleEndian.Uint64(input[pos+1 : pos+9])
			payload := input[pos+9 : pos+9+SegmentLength]

			if Hash(payload) != hash {
				return dst, pos, protoErr(DeclareChar, "declared payload does not rehash to its declared key")
			}

			if existing := d.cache.Lookup(hash); existing != nil {
				match := existing.Match(payload)
				existing.Unref()
				if !match {
					return dst, pos, protoErr(DeclareChar, "collision")
				}
			} else {
				seg := NewSegment(payload)
				err := d.cache.Enter(hash, seg)
				seg.Unref()
				if err != nil {
					return dst, pos, protoErr(DeclareChar, "collision")
				}
			}
			d.backref.Declare(hash)
			pos += need

		case HashrefChar:
			const need = 1 + 8
			if len(input)-pos < need {
				return dst, pos, ErrShortBuffer
			}
			hash := binary.LittleEndian.Uint64(input[pos+1 : pos+9])

			seg := d.cache.Lookup(hash)
			if seg == nil {
				unknown[hash] = struct{}{}
				return dst, pos, nil
			}
			dst = append(dst, seg.Bytes()...)
			seg.Unref()
			d.backref.Declare(hash)
			pos += need

		case BackrefChar:
			const need = 2
			if len(input)-pos < need {
				return dst, pos, ErrShortBuffer
			}
			token := input[pos+1]

			hash, ok := d.backref.Resolve(token)
			if !ok {
				return dst, pos, protoErr(BackrefChar, "back-reference token names an empty ring slot")
			}
			seg := d.cache.Lookup(hash)
			if seg == nil {
				return dst, pos, protoErr(BackrefChar, "back-reference token resolves to a hash absent from the cache")
			}
			dst = append(dst, seg.Bytes()...)
			seg.Unref()
			// Deliberately no Declare here: the ring only advances on
			// a DECLARE or a HASHREF miss, on both sides (spec §4.3),
			// so a BACKREF must leave the ring untouched or the two
			// cursors drift apart. See DESIGN.md.
			pos += need

		default:
			dst = append(dst, b)
			pos++
		}
	}
	return dst, pos, nil
}
