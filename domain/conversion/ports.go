package conversion

import "context"

// FileChecker answers questions about the local filesystem
type FileChecker interface {
	// Exists returns true if the path exists
	Exists(path string) bool
	// IsDir returns true if the path is an existing directory
	IsDir(path string) bool
}

// FetchedMedia is the outcome of a successful remote fetch
type FetchedMedia struct {
	LocalPath string
	Title     string // already sanitized
}

// RemoteFetcher downloads remote media to a local path.
// All failures are reported as *FetchError.
type RemoteFetcher interface {
	Fetch(ctx context.Context, url, destPath string) (FetchedMedia, error)
}

// EncodedResult describes an encoded MP3
type EncodedResult struct {
	OutputPath    string
	SourceSeconds float64
	ClipSeconds   float64
}

// Empty reports whether the trim collapsed the clip to zero length
func (r EncodedResult) Empty() bool {
	return r.ClipSeconds <= 0
}

// ProgressFunc receives fractions in [0,1]. It may be called from any goroutine.
type ProgressFunc func(fraction float64)

// AudioExtractor encodes the audio track of a media file to MP3.
// All failures are reported as *ExtractError.
type AudioExtractor interface {
	Extract(ctx context.Context, sourcePath, outputPath string, trimTail *float64, onProgress ProgressFunc) (EncodedResult, error)
}
