package pmtiles

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// compress wraps data in the framing for kind, per spec.md §4.4/§6.3.
// None is the identity function. Gzip is always available. Brotli and
// Zstd are optional capabilities backed by third-party codecs; both are
// wired into this build.
func compress(data []byte, kind Compression) ([]byte, error) {
	switch kind {
	case NoCompression:
		return data, nil
	case Gzip:
		var b bytes.Buffer
		w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
		if err != nil {
			return nil, ioError(err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, ioError(err)
		}
		if err := w.Close(); err != nil {
			return nil, ioError(err)
		}
		return b.Bytes(), nil
	case Brotli:
		var b bytes.Buffer
		w := brotli.NewWriterLevel(&b, brotli.BestCompression)
		if _, err := w.Write(data); err != nil {
			return nil, ioError(err)
		}
		if err := w.Close(); err != nil {
			return nil, ioError(err)
		}
		return b.Bytes(), nil
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, ioError(err)
		}
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, &Error{Kind: ErrUnsupportedCompression, Compression: kind}
	}
}

// decompress reverses compress.
func decompress(data []byte, kind Compression) ([]byte, error) {
	switch kind {
	case NoCompression:
		return data, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, ioError(err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, ioError(err)
		}
		return out, nil
	case Brotli:
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, ioError(err)
		}
		return out, nil
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, ioError(err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, ioError(err)
		}
		return out, nil
	default:
		return nil, &Error{Kind: ErrUnsupportedCompression, Compression: kind}
	}
}

// Zstd encoders/decoders are expensive to construct and are safe for
// concurrent use once built, so this package keeps one process-wide
// pair behind sync.Once rather than allocating per call.
var (
	zstdEncOnce sync.Once
	zstdEnc     *zstd.Encoder
	zstdEncErr  error

	zstdDecOnce sync.Once
	zstdDec     *zstd.Decoder
	zstdDecErr  error
)

func getZstdEncoder() (*zstd.Encoder, error) {
	zstdEncOnce.Do(func() {
		zstdEnc, zstdEncErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	})
	return zstdEnc, zstdEncErr
}

func getZstdDecoder() (*zstd.Decoder, error) {
	zstdDecOnce.Do(func() {
		zstdDec, zstdDecErr = zstd.NewReader(nil)
	})
	return zstdDec, zstdDecErr
}
