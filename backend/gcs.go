package backend

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSReader satisfies pmtiles.RangeReader against a Google Cloud
// Storage object.
type GCSReader struct {
	obj *storage.ObjectHandle
}

// NewGCSReader returns a GCSReader for the given bucket/object, using
// client (typically built once per process via storage.NewClient).
func NewGCSReader(client *storage.Client, bucket, object string) *GCSReader {
	return &GCSReader{obj: client.Bucket(bucket).Object(object)}
}

// ReadRange opens a ranged NewRangeReader and copies exactly length
// bytes from it.
func (r *GCSReader) ReadRange(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	rc, err := r.obj.NewRangeReader(ctx, int64(offset), int64(length))
	if err != nil {
		return nil, fmt.Errorf("pmtiles/backend: gcs NewRangeReader: %w", err)
	}
	defer rc.Close()

	buf := make([]byte, length)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("pmtiles/backend: gcs body read: %w", err)
	}
	if uint32(n) != length {
		return nil, fmt.Errorf("pmtiles/backend: short gcs read: got %d want %d", n, length)
	}
	return buf, nil
}
