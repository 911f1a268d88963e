package backing

import (
	"os"

	"github.com/kjk/ringlog/linebuf"
)

const (
	// DefaultFilePath is where the flat file mirror lives by default
	DefaultFilePath = "/var/tmp/aesdsocketdata"
)

// File mirrors records as a flat file whose content is always
// the concatenation of all records
type File struct {
	Path string
	// if false, the file is removed on Close
	Keep bool
}

var _ Mirror = &File{}

// OpenFile creates a flat file mirror at path
func OpenFile(path string, keep bool) (*File, error) {
	path, err := absPath(path)
	if err != nil {
		return nil, err
	}
	return &File{
		Path: path,
		Keep: keep,
	}, nil
}

// Sync rewrites the file with new content
func (f *File) Sync(records [][]byte) error {
	return writeFileAtomically(f.Path, concat(records))
}

// Load splits the file into records. Trailing bytes without a newline
// can't be a record and are dropped.
func (f *File) Load() ([][]byte, error) {
	d, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r linebuf.Reassembler
	if err = r.Append(d); err != nil {
		return nil, err
	}
	var res [][]byte
	for rec := range r.Drain() {
		res = append(res, rec)
	}
	return res, nil
}

// Close removes the file unless Keep is set
func (f *File) Close() error {
	if f.Keep {
		return nil
	}
	err := os.Remove(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
