package bundler

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

const (
	CompressGzip = "gzip"
	CompressZstd = "zstd"
)

var compressExt = map[string]string{
	CompressGzip: ".gz",
	CompressZstd: ".zst",
}

// precompress writes a compressed sibling of path for static file servers
// that negotiate Content-Encoding, returning the sibling's path.
func precompress(path, algorithm string) (string, error) {
	ext, ok := compressExt[algorithm]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, algorithm)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open output: %w", err)
	}
	defer src.Close()

	dstPath := path + ext
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create compressed output: %w", err)
	}
	defer dst.Close()

	var enc io.WriteCloser
	switch algorithm {
	case CompressGzip:
		enc, err = gzip.NewWriterLevel(dst, gzip.BestCompression)
	case CompressZstd:
		enc, err = zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to create encoder: %w", err)
	}

	written, err := io.Copy(enc, src)
	if err != nil {
		if closeErr := enc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close encoder during error cleanup")
		}
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to compress: %w", err)
	}

	// Close encoder to flush
	if err := enc.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to close encoder: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to close compressed output: %w", err)
	}

	log.Debug().
		Str("path", dstPath).
		Str("algorithm", algorithm).
		Int64("original_bytes", written).
		Msg("Precompressed output")

	return dstPath, nil
}
