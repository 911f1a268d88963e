// Package backing mirrors the content of a record store outside of process
// memory.
//
// A Mirror is told about every change of the store with the complete list
// of retained records, oldest first. After Sync returns, the mirror holds
// exactly those records. Load returns what the mirror holds, which allows
// restoring the store at startup.
//
// Mirrors are not safe for concurrent use. The owner of the store calls
// them while holding its lock.
package backing

import (
	"fmt"
	"path/filepath"
)

// Mirror keeps a copy of retained records
type Mirror interface {
	Sync(records [][]byte) error
	Load() ([][]byte, error)
	Close() error
}

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindBolt   = "bolt"
)

// Nop is a Mirror that keeps nothing
type Nop struct{}

func (Nop) Sync([][]byte) error     { return nil }
func (Nop) Load() ([][]byte, error) { return nil, nil }
func (Nop) Close() error            { return nil }

var _ Mirror = Nop{}

// Open creates a mirror of a given kind at path.
// For KindFile keep decides if the file survives Close.
func Open(kind string, path string, keep bool) (Mirror, error) {
	switch kind {
	case "", KindMemory:
		return Nop{}, nil
	case KindFile:
		return OpenFile(path, keep)
	case KindBolt:
		return OpenBolt(path)
	}
	return nil, fmt.Errorf("unknown backing '%s'", kind)
}

func concat(records [][]byte) []byte {
	n := 0
	for _, rec := range records {
		n += len(rec)
	}
	res := make([]byte, 0, n)
	for _, rec := range records {
		res = append(res, rec...)
	}
	return res
}

func absPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	return filepath.Abs(path)
}
