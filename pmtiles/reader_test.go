package pmtiles

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildSimpleArchive(t *testing.T) []byte {
	t.Helper()
	w := NewWriter(testConfig())
	assert.NoError(t, w.AddTile(0, 0, 0, []byte("root-tile")))
	assert.NoError(t, w.AddTile(1, 0, 0, []byte("z1-tile")))
	var buf bytes.Buffer
	_, err := w.Finalize(&buf)
	assert.NoError(t, err)
	return buf.Bytes()
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := buildSimpleArchive(t)
	data[0] = 'Z'
	_, err := Open(context.Background(), &memRangeReader{data: data})
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrBadMagic, kind)
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	data := buildSimpleArchive(t)
	data[7] = 99
	_, err := Open(context.Background(), &memRangeReader{data: data})
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrUnsupportedVersion, kind)
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	data := buildSimpleArchive(t)
	_, err := Open(context.Background(), &memRangeReader{data: data[:50]})
	assert.Error(t, err)
}

func TestGetTileRejectsCorruptDirectory(t *testing.T) {
	data := buildSimpleArchive(t)
	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: data})
	assert.NoError(t, err)

	// Flip the first byte of the root directory in a copy of the archive
	// so the root can no longer be decompressed.
	corrupt := make([]byte, len(data))
	copy(corrupt, data)
	h := r.Header()
	if h.RootLength > 2 {
		corrupt[h.RootOffset] ^= 0xFF
	}
	r2, err := Open(ctx, &memRangeReader{data: corrupt})
	assert.NoError(t, err)
	_, _, err = r2.GetTile(ctx, 0, 0, 0)
	assert.Error(t, err)
}

func TestAllEntries(t *testing.T) {
	data := buildSimpleArchive(t)
	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: data})
	assert.NoError(t, err)

	var tileIDs []uint64
	err = r.AllEntries(ctx, func(e Entry) error {
		tileIDs = append(tileIDs, e.TileID)
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, tileIDs, 2)
}

func TestMissingTileIsNotAnError(t *testing.T) {
	data := buildSimpleArchive(t)
	ctx := context.Background()
	r, err := Open(ctx, &memRangeReader{data: data})
	assert.NoError(t, err)

	_, ok, err := r.GetTile(ctx, 5, 10, 10)
	assert.NoError(t, err)
	assert.False(t, ok)
}
