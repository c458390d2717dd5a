package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPReader satisfies pmtiles.RangeReader by issuing HTTP Range
// requests against a single URL, grounded on the teacher's HTTPBucket.
type HTTPReader struct {
	url    string
	client *http.Client
}

// NewHTTPReader returns an HTTPReader for url using client. A nil
// client uses http.DefaultClient.
func NewHTTPReader(url string, client *http.Client) *HTTPReader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPReader{url: url, client: client}
}

// ReadRange issues a single Range request covering [offset, offset+length)
// and requires the server to honor it with a 206 Partial Content.
func (r *HTTPReader) ReadRange(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+uint64(length)-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/backend: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("pmtiles/backend: http range request: unexpected status %s", resp.Status)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("pmtiles/backend: http body read: %w", err)
	}
	if uint32(n) != length {
		return nil, fmt.Errorf("pmtiles/backend: short http read: got %d want %d", n, length)
	}
	return buf, nil
}
