package ringbuf

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert"
)

func content(s *Store) string {
	return string(s.AppendTo(nil))
}

func TestEmptyStore(t *testing.T) {
	s := New(DefaultCapacity)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.TotalSize())
	_, _, err := s.FindAtOffset(0)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.FindByIndex(0)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "", content(s))
}

func TestFIFOEviction(t *testing.T) {
	for capacity := 1; capacity <= 12; capacity++ {
		s := New(capacity)
		n := capacity*2 + 3
		for i := 0; i < n; i++ {
			idx := s.Append([]byte(fmt.Sprintf("rec %d\n", i)))
			exp := min(i, capacity-1)
			assert.Equal(t, exp, idx)
		}
		assert.Equal(t, capacity, s.Len())
		first := n - capacity
		for i, rec := range s.Iterate() {
			assert.Equal(t, fmt.Sprintf("rec %d\n", first+i), string(rec))
		}
	}
}

func TestElevenIntoTen(t *testing.T) {
	s := New(10)
	for i := 0; i < 11; i++ {
		s.Append([]byte(fmt.Sprintf("%d\n", i)))
	}
	rec, err := s.FindByIndex(0)
	assert.NoError(t, err)
	assert.Equal(t, "1\n", string(rec))
	rec, err = s.FindByIndex(9)
	assert.NoError(t, err)
	assert.Equal(t, "10\n", string(rec))
	_, err = s.FindByIndex(10)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTotalSizeTracksEviction(t *testing.T) {
	s := New(2)
	s.Append([]byte("a\n"))
	s.Append([]byte("bbb\n"))
	assert.Equal(t, int64(6), s.TotalSize())
	s.Append([]byte("cc\n"))
	assert.Equal(t, int64(7), s.TotalSize())
	assert.Equal(t, "bbb\ncc\n", content(s))
}

func TestFindAtOffset(t *testing.T) {
	s := New(3)
	// evict one so that ring position differs from logical index
	s.Append([]byte("gone\n"))
	s.Append([]byte("ab\n"))
	s.Append([]byte("cdef\n"))
	s.Append([]byte("g\n"))

	all := content(s)
	assert.Equal(t, int64(len(all)), s.TotalSize())
	for off := int64(0); off < s.TotalSize(); off++ {
		idx, local, err := s.FindAtOffset(off)
		assert.NoError(t, err)
		rec, err := s.FindByIndex(idx)
		assert.NoError(t, err)
		assert.Equal(t, all[off], rec[local])

		start, err := s.StartOf(idx)
		assert.NoError(t, err)
		assert.Equal(t, off, start+local)
	}

	_, _, err := s.FindAtOffset(s.TotalSize())
	assert.True(t, errors.Is(err, ErrNotFound))
	_, _, err = s.FindAtOffset(-1)
	assert.True(t, errors.Is(err, ErrNotFound))

	idx, local, err := s.FindAtOffset(s.TotalSize() - 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, int64(1), local)
}

func TestAppendCopies(t *testing.T) {
	s := New(2)
	d := []byte("abc\n")
	s.Append(d)
	d[0] = 'x'
	assert.Equal(t, "abc\n", content(s))
}

func TestRecordsAndReset(t *testing.T) {
	s := New(2)
	s.Append([]byte("a\n"))
	s.Append([]byte("b\n"))
	s.Append([]byte("c\n"))
	recs := s.Records()
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, "b\n", string(recs[0]))
	assert.Equal(t, "c\n", string(recs[1]))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.TotalSize())
	assert.Equal(t, 0, s.Append([]byte("d\n")))
}
