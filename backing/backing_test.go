package backing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func testRecords(recs ...string) [][]byte {
	var res [][]byte
	for _, s := range recs {
		res = append(res, []byte(s))
	}
	return res
}

func toStrings(recs [][]byte) []string {
	var res []string
	for _, rec := range recs {
		res = append(res, string(rec))
	}
	return res
}

func testMirror(t *testing.T, m Mirror) {
	recs, err := m.Load()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(recs))

	assert.NoError(t, m.Sync(testRecords("a\n", "bb\n", "ccc\n")))
	recs, err = m.Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"a\n", "bb\n", "ccc\n"}, toStrings(recs))

	// eviction shrinks the mirror
	assert.NoError(t, m.Sync(testRecords("bb\n", "ccc\n")))
	recs, err = m.Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"bb\n", "ccc\n"}, toStrings(recs))

	assert.NoError(t, m.Sync(nil))
	recs, err = m.Load()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(recs))
}

func TestFileMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := OpenFile(path, false)
	assert.NoError(t, err)
	testMirror(t, f)

	assert.NoError(t, f.Sync(testRecords("x\n", "y\n")))
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "x\ny\n", string(d))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))

	assert.NoError(t, f.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	// closing twice is fine
	assert.NoError(t, f.Close())
}

func TestFileMirrorKeep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := OpenFile(path, true)
	assert.NoError(t, err)
	assert.NoError(t, f.Sync(testRecords("x\n")))
	assert.NoError(t, f.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileMirrorDropsUnterminated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	assert.NoError(t, os.WriteFile(path, []byte("a\nb\npartial"), 0644))
	f, err := OpenFile(path, true)
	assert.NoError(t, err)
	recs, err := f.Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"a\n", "b\n"}, toStrings(recs))
}

func TestBoltMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringlog.db")
	b, err := OpenBolt(path)
	assert.NoError(t, err)
	testMirror(t, b)

	assert.NoError(t, b.Sync(testRecords("p\n", "q\n")))
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())

	// survives re-open
	b, err = OpenBolt(path)
	assert.NoError(t, err)
	defer b.Close()
	recs, err := b.Load()
	assert.NoError(t, err)
	assert.Equal(t, []string{"p\n", "q\n"}, toStrings(recs))
}

func TestOpen(t *testing.T) {
	m, err := Open(KindMemory, "", false)
	assert.NoError(t, err)
	assert.NoError(t, m.Sync(testRecords("a\n")))
	recs, err := m.Load()
	assert.NoError(t, err)
	assert.Equal(t, 0, len(recs))

	_, err = Open(KindFile, "", false)
	assert.Error(t, err)

	_, err = Open("tape", "x", false)
	assert.Error(t, err)
}
