// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Buffer is a fixed-capacity, bytes.Buffer-like writer whose storage is a single byte
// array carved out of an arena. It never grows: writes that do not fit are cut short.
type Buffer struct {
	buf []byte
	off int // write offset
}

// NewArenaBuffer allocates a buffer of capacity bytes from a.
func NewArenaBuffer(a Arena, capacity int) (*Buffer, error) {
	buf, err := AllocateArray[byte](a, capacity)
	if err != nil {
		return nil, err
	}
	return &Buffer{buf: buf}, nil
}

// Write implements io.Writer interface.
// It writes as much of p as fits and returns io.ErrShortWrite if that is not all of it.
func (b *Buffer) Write(p []byte) (n int, err error) {
	n = copy(b.buf[b.off:], p)
	b.off += n
	if n < len(p) {
		return n, errors.Wrapf(io.ErrShortWrite, "%d of %d bytes written, buffer full", n, len(p))
	}
	return n, nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	if b.off == len(b.buf) {
		return errors.Wrap(io.ErrShortWrite, "buffer full")
	}
	b.buf[b.off] = c
	b.off++
	return nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	n = copy(b.buf[b.off:], s)
	b.off += n
	if n < len(s) {
		return n, errors.Wrapf(io.ErrShortWrite, "%d of %d bytes written, buffer full", n, len(s))
	}
	return n, nil
}

// WriteTo implements io.WriterTo. Written bytes are removed from the buffer.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if b.off == 0 {
		return 0, nil
	}

	m, err := w.Write(b.buf[:b.off])
	if m > 0 {
		n += int64(m)
		// Remove written bytes by shifting remaining data
		copy(b.buf, b.buf[m:b.off])
		b.off -= m
	}

	return n, err
}

// Bytes returns a slice of length b.Len() holding the buffered data.
// The slice is valid for use only until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.off]
}

// String returns the buffered data as a string.
func (b *Buffer) String() string {
	return string(b.buf[:b.off])
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.off
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Available returns how many more bytes can be written.
func (b *Buffer) Available() int {
	return len(b.buf) - b.off
}

// Reset empties the buffer. The arena storage stays allocated.
func (b *Buffer) Reset() {
	b.off = 0
}

// Truncate discards all but the first n buffered bytes.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.off {
		panic("arena: truncation out of range")
	}
	b.off = n
}

// Storage returns the whole backing array, so that the buffer can be freed with
// RemoveArray or DiscardArray on a Stack.
func (b *Buffer) Storage() []byte {
	return b.buf
}
