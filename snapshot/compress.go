package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compressor compresses snapshot content
type Compressor struct {
	Name string
	// appended to the name of the uploaded object
	Ext        string
	Compress   func(d []byte) ([]byte, error)
	Decompress func(d []byte) ([]byte, error)
}

var (
	compressors = []Compressor{
		{Name: "br", Ext: ".br", Compress: brCompress, Decompress: brDecompress},
		{Name: "zstd", Ext: ".zst", Compress: zstdCompress, Decompress: zstdDecompress},
	}
)

// CompressorFor returns compressor by name ("br" or "zstd")
func CompressorFor(name string) (Compressor, error) {
	for _, c := range compressors {
		if c.Name == name {
			return c, nil
		}
	}
	return Compressor{}, fmt.Errorf("unknown snapshot compression '%s'", name)
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func brCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	w := brotli.NewWriterLevel(&dst, brotli.BestCompression)
	_, err := w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func brDecompress(d []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(d))
	return io.ReadAll(r)
}

func zstdCompress(d []byte) ([]byte, error) {
	var dst bytes.Buffer
	// SpeedBestCompression is slow but snapshots are small and rare
	w, err := zstd.NewWriter(&dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	_, err = w.Write(d)
	err2 := w.Close()
	if err = getErr(err, err2); err != nil {
		return nil, err
	}
	return dst.Bytes(), nil
}

func zstdDecompress(d []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(d))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
