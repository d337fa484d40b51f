package xcodec

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned, unwrapped, by Decode when the input ends
// mid-token. It is not fatal: the caller keeps the unconsumed tail
// and resumes once more bytes arrive (spec §7, category 2).
var ErrShortBuffer = errors.New("xcodec: truncated token at end of input")

// ProtocolError reports a fatal, connection-terminating violation
// (spec §7, category 3): bad magic, an unknown opcode, a length out of
// range, a declaration whose payload does not rehash to its declared
// key, a collision on LEARN, and so on. Any ProtocolError ends the
// peering; no partial output is delivered after one is returned.
type ProtocolError struct {
	Op     byte
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("xcodec: protocol error (op %#x): %s", e.Op, e.Reason)
}

func protoErr(op byte, reason string) error {
	return &ProtocolError{Op: op, Reason: reason}
}

// ErrCollision reports that a hash was declared or learned with bytes
// that differ from an existing cache entry under the same key. It is
// non-fatal when discovered by the encoder scanning for candidates
// (spec §7 category 1, silently skipped) and fatal when discovered by
// the decoder resolving a DECLARE or LEARN token (category 3);
// call sites decide which by whether they wrap it in a ProtocolError.
var ErrCollision = errors.New("xcodec: hash collision")
