package xpipe

import (
	"encoding/binary"

	"github.com/andybalholm/xcodec"
)

// EncodeFrame splits payload into one or more OP_FRAME frames of at
// most maxLen bytes each and appends them to dst. Framing exists so
// that FRAME_LENGTH bounds a single read's worth of decode work; the
// boundary carries no meaning to the encoder, which is why the decoder
// side must be able to resume mid-token across a frame boundary.
func EncodeFrame(dst, payload []byte, maxLen int) []byte {
	for len(payload) > 0 {
		n := len(payload)
		if n > maxLen {
			n = maxLen
		}
		dst = appendHeader(dst, xcodec.OpFrame, n)
		dst = append(dst, payload[:n]...)
		payload = payload[n:]
	}
	return dst
}

// EncodeOOB wraps a single out-of-band message (HELLO, ASK, LEARN, EOS,
// or EOS_ACK, already including its own opcode byte) in one OP_OOB
// frame. Unlike EncodeFrame it never splits: an OOB message is assumed
// to fit within one frame, which every message this package emits
// does.
func EncodeOOB(dst, payload []byte) []byte {
	return append(appendHeader(dst, xcodec.OpOOB, len(payload)), payload...)
}

func appendHeader(dst []byte, op byte, length int) []byte {
	dst = append(dst, xcodec.Magic, op)
	return binary.BigEndian.AppendUint16(dst, uint16(length))
}
