package pmtiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileIDRoundTripFixedTable(t *testing.T) {
	coords := []Zxy{
		{Z: 0, X: 0, Y: 0},
		{Z: 1, X: 0, Y: 0},
		{Z: 1, X: 1, Y: 0},
		{Z: 1, X: 1, Y: 1},
		{Z: 1, X: 0, Y: 1},
		{Z: 5, X: 16, Y: 16},
		{Z: 7, X: 34, Y: 51},
		{Z: 10, X: 512, Y: 512},
		{Z: 12, X: 2048, Y: 2048},
	}
	seen := make(map[uint64]Zxy)
	for _, c := range coords {
		id, err := ZxyToTileID(c.Z, c.X, c.Y)
		assert.NoError(t, err)

		if prior, ok := seen[id]; ok {
			t.Fatalf("tile id %d produced by both %+v and %+v", id, prior, c)
		}
		seen[id] = c

		back := TileIDToZxy(id)
		assert.Equal(t, c, back)
	}
}

func TestTileIDBijectionAcrossZoomRange(t *testing.T) {
	seen := make(map[uint64]bool)
	for z := uint8(0); z <= 8; z++ {
		n := uint32(1) << z
		for x := uint32(0); x < n; x++ {
			for y := uint32(0); y < n; y++ {
				id, err := ZxyToTileID(z, x, y)
				assert.NoError(t, err)
				assert.False(t, seen[id], "duplicate tile id %d at z=%d x=%d y=%d", id, z, x, y)
				seen[id] = true

				back := TileIDToZxy(id)
				assert.Equal(t, Zxy{Z: z, X: x, Y: y}, back)
			}
		}
	}
}

func TestTileIDInvalidCoord(t *testing.T) {
	_, err := ZxyToTileID(MaxZoom+1, 0, 0)
	assert.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrInvalidCoord, kind)

	_, err = ZxyToTileID(3, 8, 0)
	assert.Error(t, err)
	kind, ok = KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrInvalidCoord, kind)
}
