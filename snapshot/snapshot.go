// Package snapshot uploads a compressed copy of retained records to object
// storage, e.g. when the service shuts down.
package snapshot

import (
	"context"
	"fmt"
	"time"
)

const (
	// prefix of object names
	pathPrefix = "ringlog/"
)

// Uploader stores a blob under a name
type Uploader interface {
	Upload(ctx context.Context, remotePath string, d []byte, contentType string) error
}

// RemotePath returns name of the snapshot object taken at t
func RemotePath(t time.Time, c Compressor) string {
	return pathPrefix + t.UTC().Format("2006-01-02_15-04-05") + ".txt" + c.Ext
}

// Take compresses content and uploads it. Returns name of the uploaded object
func Take(ctx context.Context, up Uploader, c Compressor, content []byte, t time.Time) (string, error) {
	d, err := c.Compress(content)
	if err != nil {
		return "", fmt.Errorf("compressing snapshot with %s failed: %w", c.Name, err)
	}
	remotePath := RemotePath(t, c)
	if err = up.Upload(ctx, remotePath, d, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("uploading snapshot '%s' failed: %w", remotePath, err)
	}
	return remotePath, nil
}
