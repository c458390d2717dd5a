package pmtiles

// Zxy is a (zoom, x, y) tile coordinate. Invariants: Z <= 31, and
// X, Y < 2^Z.
type Zxy struct {
	Z uint8
	X uint32
	Y uint32
}

// MaxZoom is the highest zoom level a Hilbert tile ID can address.
const MaxZoom = 31

func rotate(n uint64, x, y *uint64, rx, ry uint64) {
	if ry == 0 {
		if rx == 1 {
			*x = n - 1 - *x
			*y = n - 1 - *y
		}
		*x, *y = *y, *x
	}
}

// zoomPrefixSum returns sum_{k=0}^{z-1} 4^k, the count of tiles at all
// zoom levels below z.
func zoomPrefixSum(z uint8) uint64 {
	var acc uint64
	for tz := uint8(0); tz < z; tz++ {
		acc += (uint64(1) << tz) * (uint64(1) << tz)
	}
	return acc
}

// ZxyToTileID converts a (z, x, y) tile coordinate to its Hilbert tile
// ID, per spec.md §4.2. It fails with ErrInvalidCoord if z exceeds
// MaxZoom or x/y fall outside [0, 2^z).
func ZxyToTileID(z uint8, x, y uint32) (uint64, error) {
	if z > MaxZoom {
		return 0, &Error{Kind: ErrInvalidCoord, Msg: "zoom out of range", Z: z, X: x, Y: y}
	}
	n := uint64(1) << z
	if uint64(x) >= n || uint64(y) >= n {
		return 0, &Error{Kind: ErrInvalidCoord, Msg: "coordinate out of range", Z: z, X: x, Y: y}
	}

	var d uint64
	tx, ty := uint64(x), uint64(y)
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if tx&s > 0 {
			rx = 1
		}
		if ty&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		rotate(s, &tx, &ty, rx, ry)
	}
	return zoomPrefixSum(z) + d, nil
}

// tileIDToZxyOnLevel reconstructs (x, y) at zoom z from the Hilbert
// index pos within that zoom's 2^z x 2^z grid.
func tileIDToZxyOnLevel(z uint8, pos uint64) Zxy {
	n := uint64(1) << z
	d := pos
	var tx, ty uint64
	for s := uint64(1); s < n; s *= 2 {
		rx := 1 & (d / 2)
		ry := 1 & (d ^ rx)
		rotate(s, &tx, &ty, rx, ry)
		tx += s * rx
		ty += s * ry
		d /= 4
	}
	return Zxy{Z: z, X: uint32(tx), Y: uint32(ty)}
}

// TileIDToZxy is the inverse of ZxyToTileID: given a Hilbert tile ID, it
// returns the (z, x, y) coordinate that produced it.
func TileIDToZxy(id uint64) Zxy {
	var acc uint64
	var z uint8
	for {
		numTiles := (uint64(1) << z) * (uint64(1) << z)
		if acc+numTiles > id {
			return tileIDToZxyOnLevel(z, id-acc)
		}
		acc += numTiles
		z++
	}
}
