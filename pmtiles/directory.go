package pmtiles

import (
	"bufio"
	"bytes"
)

// Entry is one row of a PMTiles directory, per spec.md §3.3.
//
// RunLength > 0 marks a tile-data pointer: tiles TileID..TileID+RunLength-1
// all share the (Offset, Length) blob in the tile-data section.
// RunLength == 0 marks a leaf-directory pointer, with Offset/Length
// relative to the leaf-directories section.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// maxRootBytes keeps header + root directory under the 16 KiB budget a
// PMTiles reader should be able to fetch in a single range request.
const maxRootBytes = 16384 - HeaderLenBytes

// serializeEntries encodes entries (already sorted by ascending TileID)
// using the five-pass delta/run-length/offset-elision scheme of
// spec.md §4.5.
func serializeEntries(entries []Entry) []byte {
	buf := make([]byte, 0, len(entries)*4)
	buf = putUvarint(buf, uint64(len(entries)))

	var lastID uint64
	for _, e := range entries {
		buf = putUvarint(buf, e.TileID-lastID)
		lastID = e.TileID
	}
	for _, e := range entries {
		buf = putUvarint(buf, uint64(e.RunLength))
	}
	for _, e := range entries {
		buf = putUvarint(buf, uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			buf = putUvarint(buf, 0)
		} else {
			buf = putUvarint(buf, e.Offset+1)
		}
	}
	return buf
}

// deserializeEntries reverses serializeEntries. It requires the input
// to be fully consumed by the fifth pass; any residue is MalformedDirectory.
func deserializeEntries(data []byte) ([]Entry, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	count, err := readUvarint(r)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, count)

	var lastID uint64
	for i := range entries {
		delta, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		lastID += delta
		entries[i].TileID = lastID
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if i > 0 && v == 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}

	if _, err := r.ReadByte(); err == nil {
		return nil, &Error{Kind: ErrMalformedDirectory, Msg: "trailing bytes after directory"}
	}

	return entries, nil
}

// findTile binary-searches entries for tid, per the comparator in
// spec.md §4.6: a RunLength > 0 entry covers [TileID, TileID+RunLength),
// a RunLength == 0 entry covers only the point TileID. On a miss, the
// entry immediately before the insertion point is checked once more
// since it may be a leaf pointer or a run that still covers tid.
func findTile(entries []Entry, tid uint64) (Entry, bool) {
	lo, hi := 0, len(entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case entries[mid].TileID < tid:
			lo = mid + 1
		case entries[mid].TileID > tid:
			hi = mid - 1
		default:
			return entries[mid], true
		}
	}

	if hi >= 0 {
		e := entries[hi]
		if e.RunLength == 0 {
			return e, true
		}
		if tid-e.TileID < uint64(e.RunLength) {
			return e, true
		}
	}
	return Entry{}, false
}

// buildRootLeaves splits entries into leaf chunks of leafSize. Each
// chunk is serialized and compressed independently, since a reader
// fetches and decompresses exactly one leaf's byte range at a time;
// the leaf section is the concatenation of those independently
// compressed chunks. Returns the compressed root directory (one
// pointer entry per leaf, offsets relative to the leaf section), the
// leaf section bytes, and the leaf count.
func buildRootLeaves(entries []Entry, leafSize int, compression Compression) (root []byte, leaves []byte, numLeaves int, err error) {
	rootEntries := make([]Entry, 0, (len(entries)+leafSize-1)/leafSize)
	leaves = make([]byte, 0)

	for start := 0; start < len(entries); start += leafSize {
		end := start + leafSize
		if end > len(entries) {
			end = len(entries)
		}
		compressed, err := compress(serializeEntries(entries[start:end]), compression)
		if err != nil {
			return nil, nil, 0, err
		}
		rootEntries = append(rootEntries, Entry{
			TileID: entries[start].TileID,
			Offset: uint64(len(leaves)),
			Length: uint32(len(compressed)),
		})
		leaves = append(leaves, compressed...)
		numLeaves++
	}

	root, err = compress(serializeEntries(rootEntries), compression)
	if err != nil {
		return nil, nil, 0, err
	}
	return root, leaves, numLeaves, nil
}

// buildDirectories implements the root/leaf builder of spec.md §4.5: it
// tries to fit the whole entry list, compressed, in a single root
// directory, and falls back to a two-level root/leaf split, growing the
// leaf chunk size until the compressed root fits within maxRootBytes.
// The returned root and leaves are already compressed with compression;
// callers must not compress them again.
func buildDirectories(entries []Entry, compression Compression) (root []byte, leaves []byte, numLeaves int, err error) {
	single, err := compress(serializeEntries(entries), compression)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(single) <= maxRootBytes {
		return single, nil, 0, nil
	}

	leafSize := len(entries) / 3500
	if leafSize < 4096 {
		leafSize = 4096
	}

	for {
		root, leaves, numLeaves, err = buildRootLeaves(entries, leafSize, compression)
		if err != nil {
			return nil, nil, 0, err
		}
		if len(root) <= maxRootBytes {
			return root, leaves, numLeaves, nil
		}
		leafSize = leafSize * 5 / 4
	}
}
