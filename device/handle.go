package device

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kjk/ringlog/ringbuf"
)

// File is the capability set of an open device.
// Alternative device implementations provide the same set.
type File interface {
	io.ReadWriteSeeker
	io.Closer
	Control(op Control) error
}

// Control is a device control operation, one of the types below
type Control interface {
	isControl()
}

// SeekTo positions the handle at byte Offset of record Index.
// Offset equal to the size of the record is valid and points at the
// first byte of the next record (or end of data).
type SeekTo struct {
	Index  int
	Offset int64
}

func (SeekTo) isControl() {}

// Handle is an open device with its own position.
// A Handle must not be used from multiple goroutines at the same time.
type Handle struct {
	dev    *Device
	ctx    context.Context
	pos    int64
	closed bool
}

var _ File = &Handle{}

// Position returns current position
func (h *Handle) Position() int64 {
	return h.pos
}

// Read reads from the current position, crossing record boundaries,
// until p is full or there's no more data. Returns io.EOF only if
// nothing was read because position is at the end of data.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	unlock, err := h.dev.lock.Lock(h.ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	store := h.dev.store
	n := 0
	for n < len(p) {
		idx, local, err := store.FindAtOffset(h.pos)
		if errors.Is(err, ringbuf.ErrNotFound) {
			break
		}
		rec, _ := store.FindByIndex(idx)
		copied := copy(p[n:], rec[local:])
		n += copied
		h.pos += int64(copied)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write appends p to the device-wide pending buffer and moves every
// completed record to the store. Position is not changed.
// If the pending buffer can't grow, returns 0 and nothing is changed.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, ErrClosed
	}
	d := h.dev
	unlock, err := d.lock.Lock(h.ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err = d.pending.Append(p); err != nil {
		return 0, err
	}
	nRecords := 0
	for rec := range d.pending.Drain() {
		d.store.AppendOwned(rec)
		nRecords++
	}
	if nRecords > 0 {
		return len(p), d.syncMirror()
	}
	return len(p), nil
}

// Seek sets position relative to start, current position or end of data
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	unlock, err := h.dev.lock.Lock(h.ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	size := h.dev.store.TotalSize()
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = h.pos + offset
	case io.SeekEnd:
		pos = size + offset
	default:
		return h.pos, fmt.Errorf("%w: whence %d", ErrInvalidArgument, whence)
	}
	if pos < 0 || pos > size {
		return h.pos, fmt.Errorf("%w: position %d outside of 0..%d", ErrInvalidArgument, pos, size)
	}
	h.pos = pos
	return pos, nil
}

// Control executes a control operation
func (h *Handle) Control(op Control) error {
	if h.closed {
		return ErrClosed
	}
	switch op := op.(type) {
	case SeekTo:
		return h.seekTo(op)
	case *SeekTo:
		if op != nil {
			return h.seekTo(*op)
		}
	}
	return fmt.Errorf("%w: unknown control %T", ErrInvalidArgument, op)
}

func (h *Handle) seekTo(op SeekTo) error {
	unlock, err := h.dev.lock.Lock(h.ctx)
	if err != nil {
		return err
	}
	defer unlock()

	store := h.dev.store
	rec, err := store.FindByIndex(op.Index)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if op.Offset < 0 || op.Offset > int64(len(rec)) {
		return fmt.Errorf("%w: offset %d outside of record %d of size %d", ErrInvalidArgument, op.Offset, op.Index, len(rec))
	}
	start, err := store.StartOf(op.Index)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	h.pos = start + op.Offset
	return nil
}

// Close unbinds the handle from the device
func (h *Handle) Close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	return nil
}
