package update

import "context"

// ManifestSource fetches the remote manifest
type ManifestSource interface {
	Fetch(ctx context.Context) (Manifest, error)
}

// Downloader writes the binary at url to destPath
type Downloader interface {
	Download(ctx context.Context, url, destPath string, onProgress func(fraction float64)) error
}

// SwapOutcome says what happened after a staged binary was handed over
type SwapOutcome int

const (
	// SwapLaunched means the helper is running and the process must exit
	SwapLaunched SwapOutcome = iota
	// SwapManual means the binary was staged but must be replaced by hand
	SwapManual
)

// Swapper replaces the running executable with a staged one
type Swapper interface {
	// StagingPath is where a downloaded binary should be written
	StagingPath() (string, error)
	// Swap hands the staged binary over to a detached helper
	Swap(stagedPath string) (SwapOutcome, error)
}
