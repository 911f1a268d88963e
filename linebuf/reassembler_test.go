package linebuf

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

func drainAll(r *Reassembler) []string {
	var res []string
	for rec := range r.Drain() {
		res = append(res, string(rec))
	}
	return res
}

func TestSplitRecord(t *testing.T) {
	var r Reassembler
	assert.NoError(t, r.Append([]byte("ab")))
	assert.Equal(t, 0, len(drainAll(&r)))
	assert.Equal(t, 2, r.Pending())

	assert.NoError(t, r.Append([]byte("c\n")))
	assert.Equal(t, []string{"abc\n"}, drainAll(&r))
	assert.Equal(t, 0, r.Pending())
}

func TestManyRecordsInOneChunk(t *testing.T) {
	var r Reassembler
	assert.NoError(t, r.Append([]byte("one\ntwo\n\nthree")))
	assert.Equal(t, []string{"one\n", "two\n", "\n"}, drainAll(&r))
	assert.Equal(t, "three", string(r.PendingBytes()))

	assert.NoError(t, r.Append([]byte("\n")))
	assert.Equal(t, []string{"three\n"}, drainAll(&r))
}

func TestDrainStopEarly(t *testing.T) {
	var r Reassembler
	assert.NoError(t, r.Append([]byte("a\nb\nc")))
	for rec := range r.Drain() {
		assert.Equal(t, "a\n", string(rec))
		break
	}
	assert.Equal(t, "b\nc", string(r.PendingBytes()))
	assert.Equal(t, []string{"b\n"}, drainAll(&r))
	assert.Equal(t, "c", string(r.PendingBytes()))
}

func TestCustomDelimiter(t *testing.T) {
	r := New(';', 0)
	assert.NoError(t, r.Append([]byte("x;y\n;z")))
	assert.Equal(t, []string{"x;", "y\n;"}, drainAll(r))
}

func TestRecordsAreCopies(t *testing.T) {
	var r Reassembler
	assert.NoError(t, r.Append([]byte("abc\n")))
	var recs [][]byte
	for rec := range r.Drain() {
		recs = append(recs, rec)
	}
	assert.NoError(t, r.Append([]byte("xyz\n")))
	drainAll(&r)
	assert.Equal(t, "abc\n", string(recs[0]))
}

func genLines(n int) []byte {
	var d []byte
	for i := 0; i < n; i++ {
		size := rng.Intn(40)
		for j := 0; j < size; j++ {
			d = append(d, byte('a'+rng.Intn(26)))
		}
		d = append(d, '\n')
	}
	return d
}

func TestSplitInvariance(t *testing.T) {
	for iter := 0; iter < 50; iter++ {
		d := genLines(1 + rng.Intn(30))

		var whole Reassembler
		assert.NoError(t, whole.Append(d))
		exp := drainAll(&whole)

		var split Reassembler
		var got []string
		rest := d
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			assert.NoError(t, split.Append(rest[:n]))
			rest = rest[n:]
			// draining only sometimes exercises resumed scans
			if rng.Intn(2) == 0 {
				got = append(got, drainAll(&split)...)
			}
		}
		got = append(got, drainAll(&split)...)
		assert.Equal(t, exp, got)
		assert.Equal(t, 0, split.Pending())
	}
}

func TestAllocationLimit(t *testing.T) {
	r := New('\n', 8)
	assert.NoError(t, r.Append([]byte("12345")))
	err := r.Append([]byte("6789"))
	assert.True(t, errors.Is(err, ErrAllocation))
	assert.Equal(t, "12345", string(r.PendingBytes()))

	assert.NoError(t, r.Append([]byte("6\n")))
	assert.Equal(t, []string{"123456\n"}, drainAll(r))
}

func TestBufferGrowsByDoubling(t *testing.T) {
	var b Buffer
	assert.NoError(t, b.Append([]byte("x")))
	assert.Equal(t, initialCapacity, b.Cap())

	d := make([]byte, initialCapacity)
	assert.NoError(t, b.Append(d))
	assert.Equal(t, initialCapacity*2, b.Cap())

	d = make([]byte, initialCapacity*4)
	assert.NoError(t, b.Append(d))
	assert.Equal(t, initialCapacity*8, b.Cap())
	assert.Equal(t, 1+initialCapacity*5, b.Len())

	b.Consume(b.Len() - 1)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, initialCapacity*8, b.Cap())
}
