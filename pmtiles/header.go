package pmtiles

import (
	"encoding/binary"
	"encoding/json"
)

// Compression identifies the codec wrapping root/leaf/metadata bytes
// (InternalCompression) or tile payload bytes (TileCompression).
type Compression uint8

// Compression values, per spec.md §3.4.
const (
	UnknownCompression Compression = 0
	NoCompression      Compression = 1
	Gzip               Compression = 2
	Brotli             Compression = 3
	Zstd               Compression = 4
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ContentEncoding returns the HTTP Content-Encoding token for c, and
// false if c has none (None, Unknown).
func (c Compression) ContentEncoding() (string, bool) {
	switch c {
	case Gzip:
		return "gzip", true
	case Brotli:
		return "br", true
	case Zstd:
		return "zstd", true
	default:
		return "", false
	}
}

// TileType is the format of individual tile payloads in the archive.
type TileType uint8

// TileType values, per spec.md §3.4.
const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
)

func (t TileType) String() string {
	switch t {
	case Mvt:
		return "mvt"
	case Png:
		return "png"
	case Jpeg:
		return "jpg"
	case Webp:
		return "webp"
	default:
		return "unknown"
	}
}

// ContentType returns the HTTP/MIME content type for t, and false if t
// has none (Unknown).
func (t TileType) ContentType() (string, bool) {
	switch t {
	case Mvt:
		return "application/x-protobuf", true
	case Png:
		return "image/png", true
	case Jpeg:
		return "image/jpeg", true
	case Webp:
		return "image/webp", true
	default:
		return "", false
	}
}

// Extension returns the filename extension (including the leading dot)
// for t, or "" if t is Unknown.
func (t TileType) Extension() string {
	s := t.String()
	if s == "unknown" {
		return ""
	}
	return "." + s
}

// HeaderLenBytes is the size in bytes of the fixed binary header.
const HeaderLenBytes = 127

// specVersion is the only PMTiles version this module reads or writes.
const specVersion = 3

// Header is the fixed 127-byte PMTiles v3 header, per spec.md §3.4.
type Header struct {
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// HeaderJSON is a human-readable mirror of the header fields most often
// inspected or hand-edited, aligned with the TileJSON/MBTiles
// convention of degrees rather than E7 integers.
type HeaderJSON struct {
	TileCompression string    `json:"tile_compression"`
	TileType        string    `json:"tile_type"`
	MinZoom         int       `json:"minzoom"`
	MaxZoom         int       `json:"maxzoom"`
	Bounds          []float64 `json:"bounds"`
	Center          []float64 `json:"center"`
}

// JSON returns a human-readable mirror of h.
func (h Header) JSON() HeaderJSON {
	return HeaderJSON{
		TileCompression: h.TileCompression.String(),
		TileType:        h.TileType.String(),
		MinZoom:         int(h.MinZoom),
		MaxZoom:         int(h.MaxZoom),
		Bounds: []float64{
			e7ToDegrees(h.MinLonE7), e7ToDegrees(h.MinLatE7),
			e7ToDegrees(h.MaxLonE7), e7ToDegrees(h.MaxLatE7),
		},
		Center: []float64{
			e7ToDegrees(h.CenterLonE7), e7ToDegrees(h.CenterLatE7), float64(h.CenterZoom),
		},
	}
}

func e7ToDegrees(v int32) float64 {
	return float64(v) / 10000000.0
}

// MarshalJSON renders the HeaderJSON view rather than the raw struct,
// matching teacher's headerToStringifiedJson helper.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.JSON())
}

// serializeHeader emits exactly HeaderLenBytes bytes, little-endian, in
// the field order of spec.md §3.4.
func serializeHeader(h Header) []byte {
	b := make([]byte, HeaderLenBytes)
	copy(b[0:7], "PMTiles")
	b[7] = specVersion
	binary.LittleEndian.PutUint64(b[8:16], h.RootOffset)
	binary.LittleEndian.PutUint64(b[16:24], h.RootLength)
	binary.LittleEndian.PutUint64(b[24:32], h.MetadataOffset)
	binary.LittleEndian.PutUint64(b[32:40], h.MetadataLength)
	binary.LittleEndian.PutUint64(b[40:48], h.LeafDirectoryOffset)
	binary.LittleEndian.PutUint64(b[48:56], h.LeafDirectoryLength)
	binary.LittleEndian.PutUint64(b[56:64], h.TileDataOffset)
	binary.LittleEndian.PutUint64(b[64:72], h.TileDataLength)
	binary.LittleEndian.PutUint64(b[72:80], h.AddressedTilesCount)
	binary.LittleEndian.PutUint64(b[80:88], h.TileEntriesCount)
	binary.LittleEndian.PutUint64(b[88:96], h.TileContentsCount)
	if h.Clustered {
		b[96] = 0x1
	}
	b[97] = uint8(h.InternalCompression)
	b[98] = uint8(h.TileCompression)
	b[99] = uint8(h.TileType)
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	binary.LittleEndian.PutUint32(b[102:106], uint32(h.MinLonE7))
	binary.LittleEndian.PutUint32(b[106:110], uint32(h.MinLatE7))
	binary.LittleEndian.PutUint32(b[110:114], uint32(h.MaxLonE7))
	binary.LittleEndian.PutUint32(b[114:118], uint32(h.MaxLatE7))
	b[118] = h.CenterZoom
	binary.LittleEndian.PutUint32(b[119:123], uint32(h.CenterLonE7))
	binary.LittleEndian.PutUint32(b[123:127], uint32(h.CenterLatE7))
	return b
}

// deserializeHeader parses the first HeaderLenBytes of d. d may be
// longer than HeaderLenBytes; only the first 127 bytes are read.
func deserializeHeader(d []byte) (Header, error) {
	var h Header
	if len(d) < HeaderLenBytes {
		return h, &Error{Kind: ErrMalformedArchive, Msg: "header shorter than 127 bytes"}
	}
	if string(d[0:7]) != "PMTiles" {
		return h, &Error{Kind: ErrBadMagic, Msg: "magic number not detected; confirm this is a PMTiles archive"}
	}
	version := d[7]
	if version != specVersion {
		return h, &Error{Kind: ErrUnsupportedVersion, Version: version}
	}
	h.RootOffset = binary.LittleEndian.Uint64(d[8:16])
	h.RootLength = binary.LittleEndian.Uint64(d[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(d[24:32])
	h.MetadataLength = binary.LittleEndian.Uint64(d[32:40])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(d[40:48])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(d[48:56])
	h.TileDataOffset = binary.LittleEndian.Uint64(d[56:64])
	h.TileDataLength = binary.LittleEndian.Uint64(d[64:72])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(d[72:80])
	h.TileEntriesCount = binary.LittleEndian.Uint64(d[80:88])
	h.TileContentsCount = binary.LittleEndian.Uint64(d[88:96])
	h.Clustered = d[96] == 0x1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])
	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = int32(binary.LittleEndian.Uint32(d[102:106]))
	h.MinLatE7 = int32(binary.LittleEndian.Uint32(d[106:110]))
	h.MaxLonE7 = int32(binary.LittleEndian.Uint32(d[110:114]))
	h.MaxLatE7 = int32(binary.LittleEndian.Uint32(d[114:118]))
	h.CenterZoom = d[118]
	h.CenterLonE7 = int32(binary.LittleEndian.Uint32(d[119:123]))
	h.CenterLatE7 = int32(binary.LittleEndian.Uint32(d[123:127]))
	return h, nil
}
