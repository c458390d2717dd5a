package pmtiles

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

// memRangeReader serves ReadRange directly from an in-memory byte slice,
// for exercising Reader against archives built in-process by Writer.
type memRangeReader struct {
	data []byte
}

func (m *memRangeReader) ReadRange(_ context.Context, offset uint64, length uint32) ([]byte, error) {
	end := offset + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, &Error{Kind: ErrIO, Msg: "read past end of buffer"}
	}
	return m.data[offset:end], nil
}

func testConfig() WriterConfig {
	return WriterConfig{
		MinZoom:             0,
		MaxZoom:             14,
		TileType:            Mvt,
		TileCompression:     Gzip,
		InternalCompression: Gzip,
		MinLonE7:            -1800000000,
		MinLatE7:            -850000000,
		MaxLonE7:            1800000000,
		MaxLatE7:            850000000,
		CenterZoom:          0,
	}
}

func TestWriterEmptyFails(t *testing.T) {
	w := NewWriter(testConfig())
	var buf bytes.Buffer
	_, err := w.Finalize(&buf)
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrEmptyWriter, kind)
}

func TestWriterDoubleFinalizeFails(t *testing.T) {
	w := NewWriter(testConfig())
	assert.NoError(t, w.AddTile(0, 0, 0, []byte("tile-0-0-0")))

	var buf bytes.Buffer
	_, err := w.Finalize(&buf)
	assert.NoError(t, err)

	_, err = w.Finalize(&buf)
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrWriterFinalized, kind)
}

func TestWriterSingleTileRoundTrip(t *testing.T) {
	w := NewWriter(testConfig())
	assert.NoError(t, w.SetMetadata([]byte(`{"name":"test"}`)))
	assert.NoError(t, w.AddTile(0, 0, 0, []byte("only-tile")))

	var buf bytes.Buffer
	h, err := w.Finalize(&buf)
	assert.NoError(t, err)
	assert.True(t, h.Clustered)
	assert.EqualValues(t, 1, h.AddressedTilesCount)
	assert.EqualValues(t, 1, h.TileEntriesCount)
	assert.EqualValues(t, 1, h.TileContentsCount)

	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: buf.Bytes()})
	assert.NoError(t, err)

	data, ok, err := r.GetTile(ctx, 0, 0, 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "only-tile", string(data))

	_, ok, err = r.GetTile(ctx, 1, 0, 0)
	assert.NoError(t, err)
	assert.False(t, ok)

	var meta map[string]string
	assert.NoError(t, r.Metadata(ctx, &meta))
	assert.Equal(t, "test", meta["name"])
}

func TestWriterRunLengthAggregation(t *testing.T) {
	w := NewWriter(testConfig())
	payload := []byte("shared-content")
	// Tile IDs 1, 2, 3: a consecutive run sharing one payload.
	assert.NoError(t, w.AddTile(1, 0, 0, payload))
	assert.NoError(t, w.AddTile(1, 0, 1, payload))
	assert.NoError(t, w.AddTile(1, 1, 1, payload))

	var buf bytes.Buffer
	h, err := w.Finalize(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, 3, h.AddressedTilesCount)
	assert.EqualValues(t, 1, h.TileEntriesCount, "three consecutive identical tiles collapse into one run")
	assert.EqualValues(t, 1, h.TileContentsCount)

	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: buf.Bytes()})
	assert.NoError(t, err)
	for _, c := range []Zxy{{Z: 1, X: 0, Y: 0}, {Z: 1, X: 0, Y: 1}, {Z: 1, X: 1, Y: 1}} {
		data, ok, err := r.GetTile(ctx, c.Z, c.X, c.Y)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, string(payload), string(data))
	}
}

func TestWriterDeduplication(t *testing.T) {
	w := NewWriter(testConfig())
	assert.NoError(t, w.AddTile(4, 0, 0, []byte("same")))
	assert.NoError(t, w.AddTile(4, 10, 10, []byte("same")))
	assert.NoError(t, w.AddTile(4, 15, 15, []byte("different")))

	var buf bytes.Buffer
	h, err := w.Finalize(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, 3, h.AddressedTilesCount)
	assert.EqualValues(t, 2, h.TileContentsCount, "duplicate payloads dedup to one content entry")
}

func TestWriterLastWriteWins(t *testing.T) {
	w := NewWriter(testConfig())
	assert.NoError(t, w.AddTile(3, 2, 2, []byte("first")))
	assert.NoError(t, w.AddTile(3, 2, 2, []byte("second")))

	var buf bytes.Buffer
	h, err := w.Finalize(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, h.AddressedTilesCount)

	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: buf.Bytes()})
	assert.NoError(t, err)
	data, ok, err := r.GetTile(ctx, 3, 2, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", string(data))
}

func TestWriterManyTilesTwoLevelDirectory(t *testing.T) {
	cfg := testConfig()
	var logBuf bytes.Buffer
	cfg.Logger = log.New(&logBuf, "", 0)

	w := NewWriter(cfg)
	const n = 20000
	for i := uint32(0); i < n; i++ {
		assert.NoError(t, w.AddTile(8, i%256, i/256, []byte{byte(i), byte(i >> 8)}))
	}

	var buf bytes.Buffer
	h, err := w.Finalize(&buf)
	assert.NoError(t, err)
	assert.EqualValues(t, n, h.AddressedTilesCount)
	assert.Greater(t, h.LeafDirectoryLength, uint64(0), "20000 distinct entries must overflow into leaf directories")
	assert.Contains(t, logBuf.String(), "leaf director")

	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: buf.Bytes()})
	assert.NoError(t, err)
	for _, i := range []uint32{0, 1, n / 2, n - 1} {
		data, ok, err := r.GetTile(ctx, 8, i%256, i/256)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte{byte(i), byte(i >> 8)}, data)
	}
}
