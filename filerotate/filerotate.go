// Package filerotate writes to a file that is replaced with a new one
// when the day changes, e.g. dir/log-2026-10-14.txt.
package filerotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is an io.Writer writing to a file rotated daily (UTC).
// It's safe for concurrent use.
type File struct {
	Dir    string
	Prefix string
	// called after a file was closed, didRotate is false for final Close
	DidClose func(path string, didRotate bool)

	mu   sync.Mutex
	path string
	day  int
	file *os.File
	// for tests
	now func() time.Time
}

func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// NewDaily creates a daily rotating file in dir. The directory is created
// if it doesn't exist.
func NewDaily(dir string, prefix string, didClose func(path string, didRotate bool)) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("must provide dir")
	}
	f := &File{
		Dir:      dir,
		Prefix:   prefix,
		DidClose: didClose,
		now:      time.Now,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reopenIfNeeded(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns path of the current file
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *File) close(didRotate bool) error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	if err == nil && f.DidClose != nil {
		f.DidClose(f.path, didRotate)
	}
	return err
}

func (f *File) reopenIfNeeded() error {
	now := f.now().UTC()
	day := dayFromTime(now)
	if f.file != nil && f.day == day {
		return nil
	}
	didRotate := f.file != nil
	if err := f.close(didRotate); err != nil {
		return err
	}
	name := f.Prefix + now.Format("2006-01-02") + ".txt"
	path := filepath.Join(f.Dir, name)
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	f.file = file
	f.path = path
	f.day = day
	return nil
}

// Write writes d to current file, rotating first if day changed
func (f *File) Write(d []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reopenIfNeeded(); err != nil {
		return 0, err
	}
	return f.file.Write(d)
}

// Sync flushes current file to disk
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

// Close closes current file. It's safe to call on nil receiver
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.close(false)
}
