package backing

import (
	"os"
	"path/filepath"
)

// writeFileAtomically writes d to a temporary file in the same directory
// and renames it over path. Readers see either the old or the new content.
// The temporary file is removed if anything fails.
func writeFileAtomically(path string, d []byte) (err error) {
	dir, name := filepath.Split(path)
	tmpFile, err := os.CreateTemp(dir, name)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	didRename := false
	defer func() {
		if !didRename {
			// ignoring error on this one
			_ = os.Remove(tmpPath)
		}
	}()

	_, errWrite := tmpFile.Write(d)
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()
	for _, e := range []error{errWrite, errSync, errClose} {
		if e != nil {
			return e
		}
	}

	if err = os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return err
	}
	didRename = true

	// sync directory after rename, a nice to have
	if fdir, _ := os.Open(dir); fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
