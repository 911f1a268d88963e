package linebuf

import (
	"bytes"
	"iter"
)

// Reassembler accumulates chunks and yields complete records.
// Zero value is ready to use and splits on '\n'.
type Reassembler struct {
	// Delim terminates a record. 0 means '\n'
	Delim byte

	buf Buffer
	// bytes in buf before scanned are known not to contain Delim
	scanned int
}

// New returns a Reassembler splitting on delim whose pending data
// is limited to maxPending bytes (0 means unlimited)
func New(delim byte, maxPending int) *Reassembler {
	return &Reassembler{
		Delim: delim,
		buf:   Buffer{MaxSize: maxPending},
	}
}

func (r *Reassembler) delim() byte {
	if r.Delim == 0 {
		return '\n'
	}
	return r.Delim
}

// Append adds a chunk. Returns ErrAllocation (and appends nothing) if
// pending data would exceed the limit.
func (r *Reassembler) Append(d []byte) error {
	return r.buf.Append(d)
}

// Pending returns number of bytes not yet returned as a record
func (r *Reassembler) Pending() int {
	return r.buf.Len()
}

// PendingBytes returns a copy of the bytes not yet returned as a record
func (r *Reassembler) PendingBytes() []byte {
	return bytes.Clone(r.buf.Bytes())
}

// Reset drops all pending data
func (r *Reassembler) Reset() {
	r.buf.Reset()
	r.scanned = 0
}

// Drain returns a sequence of complete records, each including the
// terminating delimiter. Every record is a fresh copy owned by the caller.
// Records are removed from pending data as they are yielded; if iteration
// stops early, the remaining records are yielded by the next Drain.
func (r *Reassembler) Drain() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		cut := 0
		defer func() {
			r.buf.Consume(cut)
			r.scanned -= cut
		}()
		delim := r.delim()
		for {
			// re-read on every iteration, yield might have called Append
			d := r.buf.Bytes()
			idx := bytes.IndexByte(d[r.scanned:], delim)
			if idx < 0 {
				r.scanned = len(d)
				return
			}
			end := r.scanned + idx + 1
			rec := bytes.Clone(d[cut:end])
			cut = end
			r.scanned = end
			if !yield(rec) {
				return
			}
		}
	}
}
