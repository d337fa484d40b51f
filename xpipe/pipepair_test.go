package xpipe_test

import (
	"bytes"
	"testing"

	"github.com/andybalholm/xcodec"
	"github.com/andybalholm/xcodec/xpipe"
)

// wire connects two PipePairs so each one's encoder output becomes the
// other's decoder input, and collects everything each side's decoder
// hands back to its application.
type wire struct {
	t          *testing.T
	a, b       *xpipe.PipePair
	aDecoded   bytes.Buffer
	bDecoded   bytes.Buffer
}

func newWire(t *testing.T, aCache, bCache *xcodec.Cache) *wire {
	w := &wire{t: t}
	cfg := xpipe.DefaultConfig()

	w.a = xpipe.New(aCache, cfg,
		func(p []byte) {
			if len(p) == 0 {
				return
			}
			if err := w.b.DecoderConsume(p); err != nil {
				t.Fatalf("b.DecoderConsume: %v", err)
			}
		},
		func(p []byte) { w.aDecoded.Write(p) },
	)
	w.b = xpipe.New(bCache, cfg,
		func(p []byte) {
			if len(p) == 0 {
				return
			}
			if err := w.a.DecoderConsume(p); err != nil {
				t.Fatalf("a.DecoderConsume: %v", err)
			}
		},
		func(p []byte) { w.bDecoded.Write(p) },
	)
	return w
}

func TestRoundTripLiteralAndRepeatedSegments(t *testing.T) {
	w := newWire(t, xcodec.NewCache(), xcodec.NewCache())

	block := bytes.Repeat([]byte{'a'}, 64)
	tail := bytes.Repeat([]byte{'b'}, 64)
	payload := append(append([]byte{}, block...), tail...)

	w.a.EncoderConsume(payload)

	if got := w.bDecoded.Bytes(); !bytes.Equal(got, payload) {
		t.Fatalf("decoded = %q, want %q", got, payload)
	}
}

func TestShortInputPassesThroughUnframedAtCodecLevelButFramedOnWire(t *testing.T) {
	w := newWire(t, xcodec.NewCache(), xcodec.NewCache())

	short := []byte("hi")
	w.a.EncoderConsume(short)

	if got := w.bDecoded.Bytes(); !bytes.Equal(got, short) {
		t.Fatalf("decoded = %q, want %q", got, short)
	}
}

func TestSuspendAndResumeViaAskLearn(t *testing.T) {
	// b's decoder resolves a's HELLO through the global registry. a's
	// cache is therefore built in a private Registry under a UUID whose
	// global entry is an empty cache; otherwise b would resolve to a's
	// own cache and never need to ask.
	aCache := xcodec.NewRegistry().FindOrCreate(xcodec.NewCache().UUID())
	bCache := xcodec.NewCache()

	// Seed a's cache with a segment before any traffic flows, so a's
	// encoder references it via HASHREF on first use instead of
	// DECLARE-ing it, and b's decoder — whose cache starts empty —
	// has to suspend and ask for it.
	seed := bytes.Repeat([]byte{'z'}, xcodec.SegmentLength)
	hash := xcodec.Hash(seed)
	seg := xcodec.NewSegment(seed)
	if err := aCache.Enter(hash, seg); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	seg.Unref()

	w := newWire(t, aCache, bCache)

	fresh := bytes.Repeat([]byte{'q'}, xcodec.SegmentLength)
	payload := append(append([]byte{}, seed...), fresh...)

	w.a.EncoderConsume(payload)

	if got := w.bDecoded.Bytes(); !bytes.Equal(got, payload) {
		t.Fatalf("decoded = %q, want %q", got, payload)
	}
}

func TestEOSHandshake(t *testing.T) {
	w := newWire(t, xcodec.NewCache(), xcodec.NewCache())

	w.a.EncoderConsume([]byte("some data to prime the encoder"))
	w.a.EncoderConsume(nil)

	if !w.b.DecoderReceivedEOS() {
		t.Fatal("b should have observed <EOS>")
	}
	if !w.a.DecoderReceivedEOSAck() {
		t.Fatal("a should have observed <EOS_ACK> once b drained and echoed it")
	}
}
