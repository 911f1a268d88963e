// Package device exposes a shared record store as a file-like, offset
// addressed surface (read, write, seek, control) and provides the atomic
// append-then-read-back operation used by network clients.
//
// All state of a Device (the store, its device-wide pending buffer and the
// mirror) is guarded by one Coordinator. Every operation takes a context;
// cancelling it interrupts waiting for the lock with ErrInterrupted and
// nothing is changed.
//
// Writes through a Handle go to a single pending buffer shared by all
// handles of the Device. Two handles writing partial lines at the same time
// can have their bytes spliced into one record. Writers that need isolation
// should reassemble lines themselves and use Publish or AppendRecord.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjk/ringlog/backing"
	"github.com/kjk/ringlog/linebuf"
	"github.com/kjk/ringlog/log"
	"github.com/kjk/ringlog/ringbuf"
)

var (
	// ErrInterrupted is returned when waiting for the lock was cancelled.
	// The operation was not applied and can be retried.
	ErrInterrupted = errors.New("interrupted")
	// ErrInvalidArgument is returned for out of range seeks and record indexes
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned when using a closed Handle
	ErrClosed = errors.New("handle is closed")
	// ErrMirror wraps failures to update the mirror. The store itself
	// was updated, the mirror catches up on the next successful sync.
	ErrMirror = errors.New("mirror sync failed")
)

// Options configures a Device
type Options struct {
	// number of retained records, ringbuf.DefaultCapacity if 0
	Capacity int
	// limit of bytes in the pending buffer, 0 means no limit
	MaxPending int
	// Delim terminates records, '\n' if 0
	Delim byte
	// Mirror receives every change of the store. Can be nil
	Mirror backing.Mirror
	// if true, records are loaded from Mirror
	Restore bool
}

// Device is a bounded log of records shared by handles and network clients
type Device struct {
	lock    *Coordinator
	store   *ringbuf.Store
	pending *linebuf.Reassembler
	mirror  backing.Mirror
}

// New creates a Device
func New(opts Options) (*Device, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = ringbuf.DefaultCapacity
	}
	if capacity < 0 {
		return nil, fmt.Errorf("invalid capacity %d", capacity)
	}
	mirror := opts.Mirror
	if mirror == nil {
		mirror = backing.Nop{}
	}
	d := &Device{
		lock:    NewCoordinator(),
		store:   ringbuf.New(capacity),
		pending: linebuf.New(opts.Delim, opts.MaxPending),
		mirror:  mirror,
	}
	if opts.Restore {
		recs, err := mirror.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load records: %w", err)
		}
		// only the newest fit
		if len(recs) > capacity {
			recs = recs[len(recs)-capacity:]
		}
		for _, rec := range recs {
			d.store.AppendOwned(rec)
		}
		log.Verbosef("device: restored %d records, %d bytes\n", d.store.Len(), d.store.TotalSize())
	}
	return d, nil
}

// Coordinator returns the lock guarding the device
func (d *Device) Coordinator() *Coordinator {
	return d.lock
}

// must be called with lock held
func (d *Device) syncMirror() error {
	if err := d.mirror.Sync(d.store.Records()); err != nil {
		return fmt.Errorf("%w: %w", ErrMirror, err)
	}
	return nil
}

// AppendRecord appends a complete record, evicting the oldest if full.
// rec is copied.
func (d *Device) AppendRecord(ctx context.Context, rec []byte) error {
	unlock, err := d.lock.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	d.store.Append(rec)
	return d.syncMirror()
}

// Publish appends rec and, without releasing the lock, appends the entire
// content of the store to dst. No other append can happen in between.
// On ErrMirror the content is still returned.
func (d *Device) Publish(ctx context.Context, rec []byte, dst []byte) ([]byte, error) {
	unlock, err := d.lock.Lock(ctx)
	if err != nil {
		return dst, err
	}
	defer unlock()
	d.store.Append(rec)
	err = d.syncMirror()
	return d.store.AppendTo(dst), err
}

// Content appends the entire content of the store to dst
func (d *Device) Content(ctx context.Context, dst []byte) ([]byte, error) {
	unlock, err := d.lock.Lock(ctx)
	if err != nil {
		return dst, err
	}
	defer unlock()
	return d.store.AppendTo(dst), nil
}

// Stats returns number of retained records and their total size
func (d *Device) Stats(ctx context.Context) (int, int64, error) {
	unlock, err := d.lock.Lock(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer unlock()
	return d.store.Len(), d.store.TotalSize(), nil
}

// Open returns a new handle positioned at offset 0.
// ctx interrupts handle operations waiting for the lock.
func (d *Device) Open(ctx context.Context) *Handle {
	return &Handle{
		dev: d,
		ctx: ctx,
	}
}

// Close releases the mirror. Must be called after all users of the
// device are done.
func (d *Device) Close() error {
	return d.mirror.Close()
}
