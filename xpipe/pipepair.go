// Package xpipe implements the wire protocol two xcodec endpoints
// speak over an ordinary byte-stream transport: framing, the
// out-of-band control channel (HELLO/ASK/LEARN/EOS/EOS_ACK), and the
// half-duplex encoder/decoder state machines that ride on top of
// xcodec.Encoder and xcodec.Decoder (spec §4.5).
package xpipe

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/andybalholm/xcodec"
	"github.com/andybalholm/xcodec/xbuf"
)

// Config holds the tunables a PipePair needs beyond the pair of caches
// it is built with. The zero value is not valid; use DefaultConfig.
type Config struct {
	// FrameLength is the largest payload carried by a single OP_FRAME.
	// It bounds how much decode work one incoming frame can trigger.
	FrameLength int

	// Logger receives DEBUG/INFO/ERROR-style traffic. Defaults to
	// xcodec.NopLogger.
	Logger xcodec.Logger
}

// DefaultConfig returns a Config using the normative frame length
// (spec §6) and a no-op logger.
func DefaultConfig() Config {
	return Config{
		FrameLength: xcodec.FrameLength,
		Logger:      xcodec.NopLogger{},
	}
}

// Produce is called with a chunk of bytes this endpoint has ready to
// hand to its transport (encoder output) or its application (decoder
// output). Either may be called with an empty (but non-nil-worthy)
// slice to signal EOF on that half; callers should treat a call with
// len(p) == 0 as "close this half" rather than ignore it.
type Produce func(p []byte)

// PipePair drives one xcodec-framed connection. One PipePair handles
// both directions: EncoderConsume takes plaintext bound for the peer,
// DecoderConsume takes framed bytes arriving from the peer. Like
// Encoder and Decoder, a PipePair belongs to a single goroutine (spec
// §5); nothing here is safe for concurrent use.
type PipePair struct {
	cfg Config

	// localCache is this endpoint's own cache: everything the local
	// Encoder declares lands here, and it is what ASK is answered out
	// of. Its UUID is advertised in the HELLO this endpoint sends.
	localCache *xcodec.Cache
	encoder    *xcodec.Encoder

	// decoderCache is resolved from the peer's HELLO: xcodec.Registry
	// finds-or-creates a cache under the UUID the peer advertised, so
	// two independent processes converge on cache state without ever
	// sharing memory, purely by processing the same declare stream.
	decoderCache *xcodec.Cache
	decoder      *xcodec.Decoder

	decoderBuffer      xbuf.Buffer
	decoderFrameBuffer xbuf.Buffer
	decoderUnknown     map[uint64]struct{}
	decoderAsked       map[uint64]struct{}

	encoderSentEOS        bool
	decoderReceivedEOS    bool
	decoderReceivedEOSAck bool

	produceEncoder Produce
	produceDecoder Produce
}

// New returns a PipePair whose encoder declares into localCache and
// advertises localCache's UUID in its HELLO. produceEncoder receives
// framed bytes to send to the peer; produceDecoder receives decoded
// plaintext recovered from the peer.
func New(localCache *xcodec.Cache, cfg Config, produceEncoder, produceDecoder Produce) *PipePair {
	if cfg.Logger == nil {
		cfg.Logger = xcodec.NopLogger{}
	}
	return &PipePair{
		cfg:            cfg,
		localCache:     localCache,
		decoderUnknown: make(map[uint64]struct{}),
		decoderAsked:   make(map[uint64]struct{}),
		produceEncoder: produceEncoder,
		produceDecoder: produceDecoder,
	}
}

// EncoderConsume accepts plaintext to send to the peer. An empty buf
// signals end of stream: EncoderConsume emits <EOS> (or, if nothing
// was ever sent, simply closes the encoder side with no output at
// all) and after that call, EncoderConsume must not be called again.
func (p *PipePair) EncoderConsume(buf []byte) {
	if p.encoderSentEOS {
		panic("xpipe: EncoderConsume called after EOS")
	}

	var output []byte

	if p.encoder == nil {
		if len(buf) == 0 {
			p.cfg.Logger.Infof("xpipe: encoder received EOS before any data")
			p.produceEncoder(nil)
			return
		}

		idBytes, err := p.localCache.UUID().MarshalBinary()
		if err != nil {
			p.cfg.Logger.Errorf("xpipe: could not encode UUID for HELLO: %v", err)
			return
		}

		hello := append([]byte{xcodec.OpHello, byte(len(idBytes))}, idBytes...)
		output = EncodeOOB(output, hello)

		p.encoder = xcodec.NewEncoder(p.localCache)
	}

	if len(buf) != 0 {
		var encoded []byte
		encoded = p.encoder.Encode(encoded, buf)

		output = EncodeFrame(output, encoded, p.cfg.FrameLength)
		p.produceEncoder(output)
	} else {
		eos := []byte{xcodec.OpEOS}
		output = EncodeOOB(output, eos)

		// Mark EOS as sent before producing it: a synchronous peer may
		// answer with <EOS_ACK> before produceEncoder returns.
		p.encoderSentEOS = true
		p.produceEncoder(output)
	}
}

// DecoderConsume accepts framed bytes arriving from the peer. An empty
// buf signals the transport closed; if that happens with data still
// buffered it is logged as an error (the peer hung up mid-message).
func (p *PipePair) DecoderConsume(buf []byte) error {
	if len(buf) == 0 {
		if !p.decoderBuffer.Empty() {
			p.cfg.Logger.Errorf("xpipe: remote encoder closed connection with data outstanding")
		}
		p.produceDecoder(nil)
		return nil
	}

	p.decoderBuffer.Append(buf)

	for !p.decoderBuffer.Empty() {
		if p.decoderBuffer.Len() < 4 {
			break
		}

		magic := p.decoderBuffer.Peek(0)
		op := p.decoderBuffer.Peek(1)
		length := binary.BigEndian.Uint16([]byte{p.decoderBuffer.Peek(2), p.decoderBuffer.Peek(3)})

		if magic != xcodec.Magic {
			return protoErr(op, "expected magic and got another character")
		}
		switch op {
		case xcodec.OpFrame:
			if p.decoder == nil {
				return protoErr(op, "got frame data before decoder initialized")
			}
		case xcodec.OpOOB:
		default:
			return protoErr(op, "got unframed data; remote codec must be out of date")
		}
		if length == 0 || int(length) > xcodec.FrameLength {
			return protoErr(op, "invalid framed data length")
		}
		if p.decoderBuffer.Len() < 4+int(length) {
			break
		}

		p.decoderBuffer.Skip(4)
		var payload []byte
		payload = p.decoderBuffer.Moveout(payload, int(length))

		switch op {
		case xcodec.OpOOB:
			if err := p.decodeOOB(payload); err != nil {
				return err
			}
		case xcodec.OpFrame:
			p.decoderFrameBuffer.Append(payload)
		}

		if p.decoderFrameBuffer.Empty() {
			continue
		}
		if len(p.decoderUnknown) != 0 {
			p.cfg.Logger.Debugf("xpipe: waiting for unknown hashes to continue processing data")
			continue
		}

		before := len(p.decoderUnknown)

		var output []byte
		var consumed int
		var err error
		output, consumed, err = p.decoder.Decode(output, p.decoderFrameBuffer.Bytes(), p.decoderUnknown)
		p.decoderFrameBuffer.Skip(consumed)
		if err != nil && err != xcodec.ErrShortBuffer {
			p.cfg.Logger.Errorf("xpipe: decoder exiting with error: %v", err)
			return err
		}

		if len(output) != 0 {
			p.produceDecoder(output)
		}

		// Decode only ever adds to decoderUnknown, one hash per call
		// (spec §4.4): a growth here means it just suspended on a
		// reference it cannot resolve yet. Nothing in the source this
		// is grounded on shows what triggers the matching <ASK>, so
		// PipePair sends it itself, keeping suspend/resume
		// self-contained instead of pushing it onto the caller.
		if len(p.decoderUnknown) > before {
			for hash := range p.decoderUnknown {
				if _, asked := p.decoderAsked[hash]; asked {
					continue
				}
				p.decoderAsked[hash] = struct{}{}
				p.cfg.Logger.Debugf("xpipe: asking peer for unknown hash %#x", hash)
				p.produceEncoder(p.AskFor(hash))
			}
		}
	}

	if p.decoderBuffer.Empty() && p.decoderFrameBuffer.Empty() {
		switch {
		case p.decoderReceivedEOSAck:
			p.cfg.Logger.Debugf("xpipe: decoder finished, got EOS_ACK, shutting down channel")
			p.produceEncoder(nil)
		case p.decoderReceivedEOS:
			p.cfg.Logger.Debugf("xpipe: decoder and encoder finished, got EOS, sending EOS_ACK")
			var oob []byte
			oob = EncodeOOB(oob, []byte{xcodec.OpEOSAck})
			p.produceEncoder(oob)
		}
	}

	return nil
}

// decodeOOB processes exactly one OP_OOB payload, which may itself
// contain several back-to-back sub-messages.
func (p *PipePair) decodeOOB(buf []byte) error {
	for len(buf) > 0 {
		op := buf[0]
		buf = buf[1:]

		switch op {
		case xcodec.OpHello:
			if p.decoderCache != nil {
				return protoErr(op, "got HELLO twice")
			}
			if len(buf) < 1 {
				return protoErr(op, "truncated HELLO")
			}
			n := int(buf[0])
			buf = buf[1:]
			if len(buf) < n {
				return protoErr(op, "truncated OOB stream")
			}
			if n != xcodec.UUIDSize {
				return protoErr(op, fmt.Sprintf("unsupported HELLO length: %d", n))
			}

			id, err := uuid.FromBytes(buf[:n])
			if err != nil {
				return protoErr(op, "invalid UUID in HELLO")
			}
			buf = buf[n:]

			p.decoderCache = xcodec.Global().FindOrCreate(id)
			p.decoder = xcodec.NewDecoder(p.decoderCache)
			p.cfg.Logger.Debugf("xpipe: peer connected with UUID %s", id)

		case xcodec.OpAsk:
			if p.encoder == nil {
				return protoErr(op, "got ASK before sending HELLO")
			}
			if len(buf) < 8 {
				return protoErr(op, "truncated ASK")
			}
			hash := binary.BigEndian.Uint64(buf[:8])
			buf = buf[8:]

			seg := p.localCache.Lookup(hash)
			if seg == nil {
				return protoErr(op, fmt.Sprintf("unknown hash in ASK: %#x", hash))
			}
			p.cfg.Logger.Debugf("xpipe: responding to ASK with LEARN")

			learn := append([]byte{xcodec.OpLearn}, seg.Bytes()...)
			seg.Unref()

			var oob []byte
			oob = EncodeOOB(oob, learn)
			p.produceEncoder(oob)

		case xcodec.OpLearn:
			if p.decoderCache == nil {
				return protoErr(op, "got LEARN before HELLO")
			}
			if len(buf) < xcodec.SegmentLength {
				return protoErr(op, "truncated LEARN")
			}
			payload := buf[:xcodec.SegmentLength]
			buf = buf[xcodec.SegmentLength:]

			hash := xcodec.Hash(payload)
			if _, ok := p.decoderUnknown[hash]; ok {
				delete(p.decoderUnknown, hash)
				delete(p.decoderAsked, hash)
			} else {
				p.cfg.Logger.Infof("xpipe: gratuitous LEARN without ASK")
			}

			if existing := p.decoderCache.Lookup(hash); existing != nil {
				match := existing.Match(payload)
				existing.Unref()
				if !match {
					return protoErr(op, "collision in LEARN")
				}
				p.cfg.Logger.Debugf("xpipe: redundant LEARN")
			} else {
				seg := xcodec.NewSegment(payload)
				err := p.decoderCache.Enter(hash, seg)
				seg.Unref()
				if err != nil {
					return protoErr(op, "collision in LEARN")
				}
				p.cfg.Logger.Debugf("xpipe: successful LEARN")
			}

		case xcodec.OpEOS:
			if p.decoderReceivedEOS {
				return protoErr(op, "duplicate EOS")
			}
			p.decoderReceivedEOS = true

		case xcodec.OpEOSAck:
			if !p.encoderSentEOS {
				return protoErr(op, "got EOS_ACK before sending EOS")
			}
			if p.decoderReceivedEOSAck {
				return protoErr(op, "duplicate EOS_ACK")
			}
			p.decoderReceivedEOSAck = true

		default:
			return protoErr(op, "unsupported operation in OOB stream")
		}
	}
	return nil
}

// AskFor emits an <ASK> for hash, to be sent when Decode has reported
// hash as unknown. Building this into a helper keeps ASK's big-endian
// encoding (the one place the wire format departs from DECLARE and
// HASHREF's little-endian hashes) in a single place.
func (p *PipePair) AskFor(hash uint64) []byte {
	msg := make([]byte, 0, 1+8)
	msg = append(msg, xcodec.OpAsk)
	msg = binary.BigEndian.AppendUint64(msg, hash)

	var oob []byte
	return EncodeOOB(oob, msg)
}

func protoErr(op byte, reason string) error {
	return &xcodec.ProtocolError{Op: op, Reason: reason}
}

// DecoderReceivedEOS reports whether this side's decoder has seen the
// peer's <EOS>.
func (p *PipePair) DecoderReceivedEOS() bool {
	return p.decoderReceivedEOS
}

// DecoderReceivedEOSAck reports whether this side's decoder has seen
// the peer's <EOS_ACK>, confirming the peer fully drained everything
// this side sent before its own <EOS>.
func (p *PipePair) DecoderReceivedEOSAck() bool {
	return p.decoderReceivedEOSAck
}
