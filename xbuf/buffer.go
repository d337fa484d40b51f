// Package xbuf implements the accumulating byte buffer that xpipe uses
// to hold partial network reads across calls (spec §4.6).
//
// The original collaborator this is grounded on kept a deque of
// manually reference-counted slabs so that moving a run of bytes from
// one buffer to another was a pointer operation. Go's garbage collector
// already gives slice re-slicing that property — sub-slicing a byte
// slice keeps the backing array alive without any refcounting — so
// Buffer is a much plainer flat byte slice with a read cursor. It
// provides Append, AppendBuffer, Peek, Skip, Extract, Copyout, Moveout
// and Clear; Extract and Copyout always start at the read cursor. There
// is no Escape operation: literal spans are escaped by the xcodec
// encoder on its own output, not in a Buffer.
package xbuf

// Buffer is an accumulating, consumable byte queue. The zero value is
// an empty, usable Buffer.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	data []byte
	off  int
}

// New returns a Buffer holding a copy of b.
func New(b []byte) *Buffer {
	buf := &Buffer{}
	buf.Append(b)
	return buf
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Empty reports whether Len is zero.
func (b *Buffer) Empty() bool {
	return b.Len() == 0
}

// Bytes returns the unread portion of the buffer. The slice is valid
// until the next call to a mutating method.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Append copies p onto the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// AppendBuffer moves all of other's unread bytes onto the end of b and
// empties other, mirroring the C++ Buffer::append(Buffer *) overload
// that transferred ownership of a peer's segments.
func (b *Buffer) AppendBuffer(other *Buffer) {
	b.data = append(b.data, other.Bytes()...)
	other.Clear()
}

// Peek returns the unread byte at offset without consuming it. It
// panics if offset is out of range, matching the precondition the
// original callers always checked for first.
func (b *Buffer) Peek(offset int) byte {
	return b.data[b.off+offset]
}

// Skip discards the next n unread bytes.
func (b *Buffer) Skip(n int) {
	b.off += n
	if b.off > len(b.data) {
		b.off = len(b.data)
	}
	b.compact()
}

// Extract copies the next n unread bytes into dst without consuming
// them, growing or truncating dst to length n.
func (b *Buffer) Extract(dst []byte, n int) []byte {
	dst = append(dst[:0], b.data[b.off:b.off+n]...)
	return dst
}

// Copyout copies the next n unread bytes into dst without consuming
// them and without reallocating dst, matching a call site that already
// knows dst has capacity n.
func (b *Buffer) Copyout(dst []byte) {
	copy(dst, b.data[b.off:b.off+len(dst)])
}

// Moveout consumes the next n unread bytes, appending them to dst.
func (b *Buffer) Moveout(dst []byte, n int) []byte {
	dst = append(dst, b.data[b.off:b.off+n]...)
	b.Skip(n)
	return dst
}

// Clear discards all unread bytes.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.off = 0
}

// compact reclaims the consumed prefix once it grows large relative to
// what remains, so a long-lived Buffer fed by many small Appends does
// not retain an ever-growing backing array.
func (b *Buffer) compact() {
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
		return
	}
	if b.off > 4096 && b.off > len(b.data)-b.off {
		n := copy(b.data, b.data[b.off:])
		b.data = b.data[:n]
		b.off = 0
	}
}
