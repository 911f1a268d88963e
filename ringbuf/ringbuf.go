// Package ringbuf implements a fixed-capacity ring of records with FIFO
// eviction and lookups by global byte offset and by logical index.
//
// Logical index 0 is the oldest retained record. Global offset 0 is the
// first byte of the oldest retained record.
//
// Store is not safe for concurrent use.
package ringbuf

import (
	"errors"
	"fmt"
	"iter"
)

const (
	// DefaultCapacity is the number of records retained when not specified
	DefaultCapacity = 10
)

var (
	// ErrNotFound is returned for offsets at or past the end of data
	// and for indexes of records that are not retained
	ErrNotFound = errors.New("not found")
)

// Store is a circular buffer of records.
type Store struct {
	entries [][]byte
	// slot where the next record goes
	in int
	// slot of the oldest record
	out  int
	full bool
	// sum of sizes of all retained records
	size int64
}

// New creates a store retaining up to capacity records
func New(capacity int) *Store {
	if capacity <= 0 {
		panic(fmt.Sprintf("invalid capacity %d", capacity))
	}
	return &Store{
		entries: make([][]byte, capacity),
	}
}

// Cap returns maximum number of retained records
func (s *Store) Cap() int {
	return len(s.entries)
}

// Len returns number of retained records
func (s *Store) Len() int {
	if s.full {
		return len(s.entries)
	}
	if s.in >= s.out {
		return s.in - s.out
	}
	return len(s.entries) - s.out + s.in
}

// TotalSize returns sum of sizes of all retained records
func (s *Store) TotalSize() int64 {
	return s.size
}

func (s *Store) slot(idx int) int {
	return (s.out + idx) % len(s.entries)
}

// Append adds rec as the newest record and returns its logical index.
// If the store is full, the oldest record is evicted first.
// rec is copied.
func (s *Store) Append(rec []byte) int {
	d := make([]byte, len(rec))
	copy(d, rec)
	return s.appendOwned(d)
}

func (s *Store) appendOwned(rec []byte) int {
	n := len(s.entries)
	if s.full {
		evicted := s.entries[s.out]
		s.size -= int64(len(evicted))
		// release it
		s.entries[s.out] = nil
		s.out = (s.out + 1) % n
	}
	s.entries[s.in] = rec
	s.size += int64(len(rec))
	s.in = (s.in + 1) % n
	s.full = s.in == s.out
	return s.Len() - 1
}

// AppendOwned is like Append but takes ownership of rec instead of copying it
func (s *Store) AppendOwned(rec []byte) int {
	return s.appendOwned(rec)
}

// FindByIndex returns the record at logical index idx.
// The returned slice must not be modified.
func (s *Store) FindByIndex(idx int) ([]byte, error) {
	if idx < 0 || idx >= s.Len() {
		return nil, fmt.Errorf("record %d: %w", idx, ErrNotFound)
	}
	return s.entries[s.slot(idx)], nil
}

// FindAtOffset returns logical index of the record containing byte at
// global offset off and the offset of that byte within the record
func (s *Store) FindAtOffset(off int64) (int, int64, error) {
	if off < 0 || off >= s.size {
		return 0, 0, fmt.Errorf("offset %d: %w", off, ErrNotFound)
	}
	n := s.Len()
	for i := 0; i < n; i++ {
		rec := s.entries[s.slot(i)]
		size := int64(len(rec))
		if off < size {
			return i, off, nil
		}
		off -= size
	}
	// unreachable as long as size is consistent with entries
	return 0, 0, fmt.Errorf("offset %d: %w", off, ErrNotFound)
}

// StartOf returns global offset of the first byte of record at logical index idx
func (s *Store) StartOf(idx int) (int64, error) {
	if idx < 0 || idx >= s.Len() {
		return 0, fmt.Errorf("record %d: %w", idx, ErrNotFound)
	}
	var off int64
	for i := 0; i < idx; i++ {
		off += int64(len(s.entries[s.slot(i)]))
	}
	return off, nil
}

// Iterate returns records from oldest to newest along with their logical index.
// The records must not be modified.
func (s *Store) Iterate() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		n := s.Len()
		for i := 0; i < n; i++ {
			if !yield(i, s.entries[s.slot(i)]) {
				return
			}
		}
	}
}

// AppendTo appends concatenation of all records to dst
func (s *Store) AppendTo(dst []byte) []byte {
	for _, rec := range s.Iterate() {
		dst = append(dst, rec...)
	}
	return dst
}

// Records returns copies of all records, oldest first
func (s *Store) Records() [][]byte {
	res := make([][]byte, 0, s.Len())
	for _, rec := range s.Iterate() {
		d := make([]byte, len(rec))
		copy(d, rec)
		res = append(res, d)
	}
	return res
}

// Reset removes all records
func (s *Store) Reset() {
	clear(s.entries)
	s.in = 0
	s.out = 0
	s.full = false
	s.size = 0
}
