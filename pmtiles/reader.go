package pmtiles

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
)

// RangeReader is the single collaborator a Reader needs from a storage
// backend, per spec.md §6.2. Implementations live in package backend;
// this package only depends on the interface.
type RangeReader interface {
	// ReadRange returns exactly length bytes starting at offset, or an
	// error. offset+length must not exceed the logical content size.
	ReadRange(ctx context.Context, offset uint64, length uint32) ([]byte, error)
}

const maxDirectoryDepth = 4

// leafCacheSize bounds the number of recently used leaf directories kept
// in memory, per spec.md §4.6 I/O pattern design note (§9: "cache up to
// 64 recently used leaf directories").
const leafCacheSize = 64

// Reader opens a PMTiles v3 archive over a RangeReader and serves tile
// lookups. A Reader is immutable after Open: the header is parsed once,
// and GetTile is safe for concurrent use from many goroutines. The root
// directory is always cached; a bounded LRU holds recently used leaves.
type Reader struct {
	rr     RangeReader
	header Header

	rootMu  sync.Once
	root    []Entry
	rootErr error

	leafMu    sync.Mutex
	leafCache *list.List // of *leafCacheEntry, front = most recently used
	leafIndex map[uint64]*list.Element
}

type leafCacheEntry struct {
	offset  uint64
	entries []Entry
}

// Open reads the 127-byte header at offset 0 and validates it. It does
// not read the root directory eagerly; that happens lazily on first
// lookup and is cached thereafter.
func Open(ctx context.Context, rr RangeReader) (*Reader, error) {
	raw, err := rr.ReadRange(ctx, 0, HeaderLenBytes)
	if err != nil {
		return nil, ioError(err)
	}
	h, err := deserializeHeader(raw)
	if err != nil {
		return nil, err
	}
	return &Reader{
		rr:        rr,
		header:    h,
		leafCache: list.New(),
		leafIndex: make(map[uint64]*list.Element),
	}, nil
}

// Header returns the parsed archive header.
func (r *Reader) Header() Header { return r.header }

// MetadataRaw returns the decompressed, but otherwise unparsed, metadata
// blob.
func (r *Reader) MetadataRaw(ctx context.Context) ([]byte, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	raw, err := r.rr.ReadRange(ctx, r.header.MetadataOffset, uint32(r.header.MetadataLength))
	if err != nil {
		return nil, ioError(err)
	}
	return decompress(raw, r.header.InternalCompression)
}

// Metadata decompresses the metadata blob and unmarshals it as JSON
// into v.
func (r *Reader) Metadata(ctx context.Context, v any) error {
	raw, err := r.MetadataRaw(ctx)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ioError(err)
	}
	return nil
}

func (r *Reader) loadRoot(ctx context.Context) ([]Entry, error) {
	r.rootMu.Do(func() {
		if r.header.RootLength == 0 {
			r.root = nil
			return
		}
		raw, err := r.rr.ReadRange(ctx, r.header.RootOffset, uint32(r.header.RootLength))
		if err != nil {
			r.rootErr = ioError(err)
			return
		}
		dec, err := decompress(raw, r.header.InternalCompression)
		if err != nil {
			r.rootErr = err
			return
		}
		entries, err := deserializeEntries(dec)
		if err != nil {
			r.rootErr = err
			return
		}
		r.root = entries
	})
	return r.root, r.rootErr
}

func (r *Reader) loadLeaf(ctx context.Context, offset uint64, length uint32) ([]Entry, error) {
	r.leafMu.Lock()
	if el, ok := r.leafIndex[offset]; ok {
		r.leafCache.MoveToFront(el)
		entries := el.Value.(*leafCacheEntry).entries
		r.leafMu.Unlock()
		return entries, nil
	}
	r.leafMu.Unlock()

	raw, err := r.rr.ReadRange(ctx, r.header.LeafDirectoryOffset+offset, length)
	if err != nil {
		return nil, ioError(err)
	}
	dec, err := decompress(raw, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	entries, err := deserializeEntries(dec)
	if err != nil {
		return nil, err
	}

	r.leafMu.Lock()
	if el, ok := r.leafIndex[offset]; ok {
		r.leafCache.MoveToFront(el)
	} else {
		el := r.leafCache.PushFront(&leafCacheEntry{offset: offset, entries: entries})
		r.leafIndex[offset] = el
		for r.leafCache.Len() > leafCacheSize {
			oldest := r.leafCache.Back()
			if oldest == nil {
				break
			}
			r.leafCache.Remove(oldest)
			delete(r.leafIndex, oldest.Value.(*leafCacheEntry).offset)
		}
	}
	r.leafMu.Unlock()
	return entries, nil
}

// GetTile looks up the tile at (z, x, y) and returns its decompressed
// payload. ok is false if the tile is absent from the archive (a
// missing tile is never an error, per spec.md §4.8/§7).
func (r *Reader) GetTile(ctx context.Context, z uint8, x, y uint32) (data []byte, ok bool, err error) {
	tid, err := ZxyToTileID(z, x, y)
	if err != nil {
		return nil, false, err
	}

	entries, err := r.loadRoot(ctx)
	if err != nil {
		return nil, false, err
	}

	for depth := 0; ; depth++ {
		if depth >= maxDirectoryDepth {
			return nil, false, &Error{Kind: ErrMalformedArchive, Msg: "directory descent exceeded maximum depth"}
		}

		e, found := findTile(entries, tid)
		if !found {
			return nil, false, nil
		}
		if e.RunLength > 0 {
			if e.Length == 0 {
				return nil, false, nil
			}
			raw, err := r.rr.ReadRange(ctx, r.header.TileDataOffset+e.Offset, e.Length)
			if err != nil {
				return nil, false, ioError(err)
			}
			out, err := decompress(raw, r.header.TileCompression)
			if err != nil {
				return nil, false, err
			}
			return out, true, nil
		}

		entries, err = r.loadLeaf(ctx, e.Offset, e.Length)
		if err != nil {
			return nil, false, err
		}
	}
}

// AllEntries walks every tile entry reachable from the root directory
// (descending into every leaf) and invokes fn for each. It stops and
// returns fn's error if fn returns non-nil. Only two directory levels
// are walked: a leaf directory that itself holds leaf pointers is
// reported as ErrMalformedArchive.
func (r *Reader) AllEntries(ctx context.Context, fn func(Entry) error) error {
	root, err := r.loadRoot(ctx)
	if err != nil {
		return err
	}
	for _, e := range root {
		if e.RunLength > 0 {
			if err := fn(e); err != nil {
				return err
			}
			continue
		}
		leaf, err := r.loadLeaf(ctx, e.Offset, e.Length)
		if err != nil {
			return err
		}
		for _, le := range leaf {
			if le.RunLength == 0 {
				return &Error{Kind: ErrMalformedArchive, Msg: "directory nesting deeper than two levels"}
			}
			if err := fn(le); err != nil {
				return err
			}
		}
	}
	return nil
}
