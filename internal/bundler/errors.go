package bundler

import "errors"

var (
	// ErrUnknownTransformer indicates a transform rule names a transformer that is not registered
	ErrUnknownTransformer = errors.New("unknown transformer")
	// ErrUnknownCompression indicates a precompression algorithm other than gzip or zstd
	ErrUnknownCompression = errors.New("unknown compression algorithm")
	// ErrBuildFailed indicates the engine reported errors
	ErrBuildFailed = errors.New("bundle build failed")
)
