package linebuf

import (
	"errors"
	"fmt"
)

const (
	// same as the size of a single receive
	initialCapacity = 256
)

var (
	// ErrAllocation is returned when growing the buffer would exceed MaxSize.
	// Nothing is appended in that case.
	ErrAllocation = errors.New("allocation failed")
)

// Buffer is a growable byte accumulator.
// Capacity doubles whenever content + incoming data doesn't fit.
// It never shrinks below the size of its content.
type Buffer struct {
	// MaxSize limits the size of content. 0 means no limit
	MaxSize int

	buf []byte
}

// Len returns the number of bytes in the buffer
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Cap returns current capacity
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Bytes returns the content. Valid until next Append or Consume
func (b *Buffer) Bytes() []byte {
	return b.buf
}

func nextCapacity(curr int, need int) int {
	n := curr
	if n < initialCapacity {
		n = initialCapacity
	}
	for n < need {
		n *= 2
	}
	return n
}

// Append adds d to the end of the buffer
func (b *Buffer) Append(d []byte) error {
	need := len(b.buf) + len(d)
	if b.MaxSize > 0 && need > b.MaxSize {
		return fmt.Errorf("%w: need %d bytes, limit is %d", ErrAllocation, need, b.MaxSize)
	}
	if need > cap(b.buf) {
		// new backing array so that Bytes() handed out before stays intact
		grown := make([]byte, len(b.buf), nextCapacity(cap(b.buf), need))
		copy(grown, b.buf)
		b.buf = grown
	}
	b.buf = append(b.buf, d...)
	return nil
}

// Consume removes first n bytes, moving the rest to the front
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.buf) {
		b.buf = b.buf[:0]
		return
	}
	rest := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:rest]
}

// Reset discards the content but keeps allocated capacity
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}
