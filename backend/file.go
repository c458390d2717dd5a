// Package backend provides concrete pmtiles.RangeReader implementations
// for local files, HTTP servers, and the major cloud object stores.
package backend

import (
	"context"
	"fmt"
	"os"
)

// FileReader satisfies pmtiles.RangeReader by issuing ReadAt calls
// against an open *os.File.
type FileReader struct {
	f *os.File
}

// OpenFile opens path for reading and returns a FileReader over it. The
// caller is responsible for calling Close when done.
func OpenFile(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileReader{f: f}, nil
}

// ReadRange returns exactly length bytes starting at offset.
func (r *FileReader) ReadRange(_ context.Context, offset uint64, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.f.ReadAt(buf, int64(offset))
	if err != nil {
		return nil, fmt.Errorf("pmtiles/backend: file read at %d: %w", offset, err)
	}
	if uint32(n) != length {
		return nil, fmt.Errorf("pmtiles/backend: short read at %d: got %d want %d", offset, n, length)
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (r *FileReader) Close() error {
	return r.f.Close()
}
