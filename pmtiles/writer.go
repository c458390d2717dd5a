package pmtiles

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// WriterConfig holds the fields fixed at Writer construction, per
// spec.md §4.7.
type WriterConfig struct {
	MinZoom, MaxZoom uint8
	TileType         TileType
	TileCompression  Compression
	// InternalCompression governs the root/leaf directories and the
	// metadata blob. Gzip is a safe default; every reader must support it.
	InternalCompression Compression

	MinLonE7, MinLatE7, MaxLonE7, MaxLatE7 int32
	CenterZoom                             uint8
	CenterLonE7, CenterLatE7               int32

	// ShowProgress renders a progress bar on stderr while emitting tile
	// contents during Finalize, for archives with many unique blobs.
	ShowProgress bool

	// Logger receives progress/warning messages during Finalize (e.g.
	// the two-level directory fallback and the closing stats line). nil
	// means silent; the caller constructs it, matching the teacher's
	// pattern of passing a *log.Logger into constructors rather than
	// reaching for a package-global one.
	Logger *log.Logger
}

type contentHash [sha256.Size]byte

// Writer accumulates tiles in memory and emits a single PMTiles v3
// archive on Finalize, per spec.md §4.7. A Writer is single-owner: all
// methods must be called from one goroutine until Finalize returns.
type Writer struct {
	cfg WriterConfig

	mu           sync.Mutex
	finalized    bool
	tileIDs      *roaring64.Bitmap
	tileHash     map[uint64]contentHash
	contentOrder []contentHash
	contentSeen  map[contentHash]struct{}
	contentBytes map[contentHash][]byte
	metadata     []byte
}

// NewWriter constructs a Writer ready to accept tiles.
func NewWriter(cfg WriterConfig) *Writer {
	return &Writer{
		cfg:          cfg,
		tileIDs:      roaring64.New(),
		tileHash:     make(map[uint64]contentHash),
		contentSeen:  make(map[contentHash]struct{}),
		contentBytes: make(map[contentHash][]byte),
	}
}

// AddTile compresses data with the writer's tile_compression, dedups it
// by content hash, and records the mapping tile_id(z,x,y) -> hash. A
// repeated (z, x, y) overwrites the previous mapping (last write wins),
// per spec.md §4.7.
func (w *Writer) AddTile(z uint8, x, y uint32, data []byte) error {
	tid, err := ZxyToTileID(z, x, y)
	if err != nil {
		return err
	}

	compressed, err := compress(data, w.cfg.TileCompression)
	if err != nil {
		return err
	}
	hash := contentHash(sha256.Sum256(compressed))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return &Error{Kind: ErrWriterFinalized}
	}

	if _, seen := w.contentSeen[hash]; !seen {
		w.contentSeen[hash] = struct{}{}
		w.contentBytes[hash] = compressed
		w.contentOrder = append(w.contentOrder, hash)
	}
	w.tileHash[tid] = hash
	w.tileIDs.Add(tid)
	return nil
}

// SetMetadata replaces the opaque metadata blob with jsonBytes.
func (w *Writer) SetMetadata(jsonBytes []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return &Error{Kind: ErrWriterFinalized}
	}
	w.metadata = jsonBytes
	return nil
}

// Stats summarizes the writer's current ingestion state in
// human-readable form, e.g. for CLI progress reporting.
func (w *Writer) Stats() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var contentBytes uint64
	for _, b := range w.contentBytes {
		contentBytes += uint64(len(b))
	}
	return fmt.Sprintf("%s tiles addressed, %s unique contents (%s)",
		humanize.Comma(int64(w.tileIDs.GetCardinality())),
		humanize.Comma(int64(len(w.contentOrder))),
		humanize.Bytes(contentBytes))
}

// Finalize closes ingestion and writes the complete archive to sink,
// implementing the algorithm of spec.md §4.7. It fails with
// EmptyWriter if no tile was ever added, and with WriterFinalized if
// called more than once.
func (w *Writer) Finalize(sink io.Writer) (Header, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finalized {
		return Header{}, &Error{Kind: ErrWriterFinalized}
	}
	if w.tileIDs.IsEmpty() {
		return Header{}, &Error{Kind: ErrEmptyWriter}
	}
	w.finalized = true

	type contentInfo struct {
		offset uint64
		length uint32
	}
	offsets := make(map[contentHash]contentInfo, len(w.contentOrder))
	var tileDataBytes uint64
	for _, h := range w.contentOrder {
		b := w.contentBytes[h]
		offsets[h] = contentInfo{offset: tileDataBytes, length: uint32(len(b))}
		tileDataBytes += uint64(len(b))
	}

	entries := make([]Entry, 0, w.tileIDs.GetCardinality())
	var current *Entry
	var currentHash contentHash
	it := w.tileIDs.Iterator()
	for it.HasNext() {
		tid := it.Next()
		hash := w.tileHash[tid]
		info := offsets[hash]
		if current != nil && tid == current.TileID+uint64(current.RunLength) && hash == currentHash {
			current.RunLength++
			continue
		}
		if current != nil {
			entries = append(entries, *current)
		}
		current = &Entry{TileID: tid, Offset: info.offset, Length: info.length, RunLength: 1}
		currentHash = hash
	}
	if current != nil {
		entries = append(entries, *current)
	}

	root, leaves, numLeaves, err := buildDirectories(entries, w.cfg.InternalCompression)
	if err != nil {
		return Header{}, err
	}
	if numLeaves > 0 && w.cfg.Logger != nil {
		w.cfg.Logger.Printf("root directory exceeded %d bytes; split %d entries across %d leaf directories",
			maxRootBytes, len(entries), numLeaves)
	}
	metadata, err := compress(w.metadata, w.cfg.InternalCompression)
	if err != nil {
		return Header{}, err
	}

	h := Header{
		RootOffset:          HeaderLenBytes,
		RootLength:          uint64(len(root)),
		Clustered:           true,
		InternalCompression: w.cfg.InternalCompression,
		TileCompression:     w.cfg.TileCompression,
		TileType:            w.cfg.TileType,
		MinZoom:             w.cfg.MinZoom,
		MaxZoom:             w.cfg.MaxZoom,
		MinLonE7:            w.cfg.MinLonE7,
		MinLatE7:            w.cfg.MinLatE7,
		MaxLonE7:            w.cfg.MaxLonE7,
		MaxLatE7:            w.cfg.MaxLatE7,
		CenterZoom:          w.cfg.CenterZoom,
		CenterLonE7:         w.cfg.CenterLonE7,
		CenterLatE7:         w.cfg.CenterLatE7,
		AddressedTilesCount: w.tileIDs.GetCardinality(),
		TileEntriesCount:    uint64(len(entries)),
		TileContentsCount:   uint64(len(w.contentOrder)),
	}
	h.MetadataOffset = h.RootOffset + h.RootLength
	h.MetadataLength = uint64(len(metadata))
	h.LeafDirectoryOffset = h.MetadataOffset + h.MetadataLength
	h.LeafDirectoryLength = uint64(len(leaves))
	h.TileDataOffset = h.LeafDirectoryOffset + h.LeafDirectoryLength
	h.TileDataLength = tileDataBytes

	if _, err := sink.Write(serializeHeader(h)); err != nil {
		return Header{}, ioError(err)
	}
	if _, err := sink.Write(root); err != nil {
		return Header{}, ioError(err)
	}
	if _, err := sink.Write(metadata); err != nil {
		return Header{}, ioError(err)
	}
	if len(leaves) > 0 {
		if _, err := sink.Write(leaves); err != nil {
			return Header{}, ioError(err)
		}
	}

	var bar *progressbar.ProgressBar
	if w.cfg.ShowProgress {
		bar = progressbar.Default(int64(len(w.contentOrder)), "writing tiles")
	}
	for _, hash := range w.contentOrder {
		if _, err := sink.Write(w.contentBytes[hash]); err != nil {
			return Header{}, ioError(err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if w.cfg.Logger != nil {
		w.cfg.Logger.Printf("wrote %s tiles, %s unique contents (%s), root %s, leaves %s",
			humanize.Comma(int64(h.AddressedTilesCount)),
			humanize.Comma(int64(h.TileContentsCount)),
			humanize.Bytes(h.TileDataLength),
			humanize.Bytes(h.RootLength),
			humanize.Bytes(h.LeafDirectoryLength))
	}

	return h, nil
}
