// Package xcbench compares xcodec's output size against the sibling
// codecs pulled in from the rest of the retrieval pack, on the same
// input. It exists purely as test/benchmark tooling: nothing in the
// hot encode/decode path imports it, and nothing here feeds back into
// xcodec's wire format.
//
// The comparison is apples-to-oranges by design. xcodec trades ratio
// for a byte-exact-literal, streaming, two-party protocol; snappy,
// zstd, lz4, and brotli are single-shot general-purpose compressors.
// The point of running them side by side is to keep an eye on how far
// off xcodec's ratio is on realistic input, not to pick a winner.
package xcbench

import (
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/andybalholm/xcodec"
)

// Result is one codec's output size on a given input.
type Result struct {
	Name        string
	InputBytes  int
	OutputBytes int
}

// Ratio returns InputBytes/OutputBytes, or 0 if OutputBytes is 0.
func (r Result) Ratio() float64 {
	if r.OutputBytes == 0 {
		return 0
	}
	return float64(r.InputBytes) / float64(r.OutputBytes)
}

// XCodec runs data through a fresh Encoder over a fresh Cache and
// reports the size of its token stream. The number includes the
// escaping of reserved bytes in literal spans but not xpipe's framing
// (HELLO and frame headers): xcbench measures the codec layer, not
// xpipe's wire format.
func XCodec(data []byte) Result {
	enc := xcodec.NewEncoder(xcodec.NewCache())
	var out []byte
	out = enc.Encode(out, data)
	return Result{Name: "xcodec", InputBytes: len(data), OutputBytes: len(out)}
}

// Snappy runs data through snappy's block encoder.
func Snappy(data []byte) Result {
	out := snappy.Encode(nil, data)
	return Result{Name: "snappy", InputBytes: len(data), OutputBytes: len(out)}
}

// Flate runs data through klauspost/compress/flate at the given
// level.
func Flate(data []byte, level int) Result {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return Result{Name: "flate", InputBytes: len(data), OutputBytes: buf.Len()}
}

// Zstd runs data through klauspost/compress/zstd at its default
// level.
func Zstd(data []byte) Result {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return Result{Name: "zstd", InputBytes: len(data), OutputBytes: buf.Len()}
}

// LZ4 runs data through pierrec/lz4's frame encoder (which is what
// pulls in the indirect pierrec/xxHash dependency).
func LZ4(data []byte) Result {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return Result{Name: "lz4", InputBytes: len(data), OutputBytes: buf.Len()}
}

// Brotli runs data through andybalholm/brotli at the given quality.
func Brotli(data []byte, quality int) Result {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, quality)
	if _, err := w.Write(data); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return Result{Name: "brotli", InputBytes: len(data), OutputBytes: buf.Len()}
}

// All runs data through every codec in this package and returns one
// Result per codec, in a fixed order.
func All(data []byte) []Result {
	return []Result{
		XCodec(data),
		Snappy(data),
		Flate(data, flate.DefaultCompression),
		Zstd(data),
		LZ4(data),
		Brotli(data, 5),
	}
}
