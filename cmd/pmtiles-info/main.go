// Command pmtiles-info prints the header and metadata of a local
// PMTiles v3 archive.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tileverse-io/pmtiles/backend"
	"github.com/tileverse-io/pmtiles/pmtiles"
)

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "pmtiles-info: ", 0)

	if flag.NArg() != 1 {
		logger.Fatal("usage: pmtiles-info <path.pmtiles>")
	}

	if err := run(logger, flag.Arg(0)); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *log.Logger, path string) error {
	ctx := context.Background()

	fr, err := backend.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	r, err := pmtiles.Open(ctx, fr)
	if err != nil {
		return fmt.Errorf("parse header: %w", err)
	}

	h := r.Header()
	logger.Printf("tile_type=%s tile_compression=%s internal_compression=%s", h.TileType, h.TileCompression, h.InternalCompression)
	logger.Printf("zoom=[%d,%d] addressed_tiles=%d tile_entries=%d tile_contents=%d", h.MinZoom, h.MaxZoom, h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount)

	var meta any
	if err := r.Metadata(ctx, &meta); err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	enc, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	fmt.Println(string(enc))
	return nil
}
