// Package xcodec is a bidirectional, stateful, content-addressed stream
// compressor.
//
// Two endpoints of a duplex byte channel each run an Encoder and a
// Decoder over a shared Cache. The encoder replaces recurring 64-byte
// windows of outbound data with short references; the decoder resolves
// those references against its own copy of the cache, and asks the
// remote encoder (via the xcodec/xpipe out-of-band protocol) to teach
// it any payload it does not yet know. Compression state is therefore
// shared cooperatively between the two directions of one peering,
// rather than negotiated up front.
//
// The package is split the way the components in the design are
// coupled: this package holds the pieces that must agree bit-for-bit
// between encoder and decoder (the segment cache, the rolling hash,
// the back-reference window, and the encode/decode routines
// themselves), which work on plain byte slices. xcodec/xbuf holds the
// flat byte buffer xpipe accumulates partial reads in. xcodec/xpipe
// holds the framing,
// out-of-band control protocol, and end-of-stream handshake that
// multiplexes payload frames with cache-learning messages on the wire.
package xcodec
