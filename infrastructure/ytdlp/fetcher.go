package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goytdlp "github.com/lrstanley/go-ytdlp"

	"video-to-mp3/domain/conversion"
)

// Engine downloads a single media file and reports its raw title
type Engine interface {
	Download(ctx context.Context, url, destPath string) (title string, err error)
}

// Fetcher implements conversion.RemoteFetcher on top of yt-dlp
type Fetcher struct {
	engine      Engine
	autoInstall bool

	installOnce sync.Once
	installErr  error
}

// FetcherOption is a functional option for configuring Fetcher
type FetcherOption func(*Fetcher)

// WithEngine sets a custom download engine (for testing)
func WithEngine(engine Engine) FetcherOption {
	return func(f *Fetcher) {
		f.engine = engine
	}
}

// WithAutoInstall downloads the yt-dlp binary on first use when it is missing
func WithAutoInstall(enabled bool) FetcherOption {
	return func(f *Fetcher) {
		f.autoInstall = enabled
	}
}

// NewFetcher creates a yt-dlp backed fetcher.
// executable may be empty to use yt-dlp from PATH.
func NewFetcher(executable string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		engine: &CommandEngine{Executable: executable},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch implements conversion.RemoteFetcher
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) (conversion.FetchedMedia, error) {
	if f.autoInstall {
		f.installOnce.Do(func() {
			_, f.installErr = goytdlp.Install(ctx, nil)
		})
		if f.installErr != nil {
			return conversion.FetchedMedia{}, &conversion.FetchError{Detail: "yt-dlp is not available", Err: f.installErr}
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return conversion.FetchedMedia{}, &conversion.FetchError{Detail: "cannot create temp directory", Err: err}
	}

	title, err := f.engine.Download(ctx, url, destPath)
	if err != nil {
		return conversion.FetchedMedia{}, &conversion.FetchError{Detail: summarize(err), Err: err}
	}

	if info, err := os.Stat(destPath); err != nil || info.IsDir() {
		return conversion.FetchedMedia{}, &conversion.FetchError{Detail: "no media was downloaded", Err: err}
	}

	return conversion.FetchedMedia{
		LocalPath: destPath,
		Title:     conversion.SanitizeTitle(title),
	}, nil
}

// summarize picks the most useful line of a yt-dlp error
func summarize(err error) string {
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(err.Error()), "\n")
	return first
}

// CommandEngine runs yt-dlp through go-ytdlp
type CommandEngine struct {
	Executable string
}

// Download fetches the best single combined stream to destPath
func (e *CommandEngine) Download(ctx context.Context, url, destPath string) (string, error) {
	dl := goytdlp.New().
		Format("best").
		Output(destPath).
		ForceOverwrites().
		NoPlaylist().
		NoProgress().
		DumpJSON().
		NoSimulate()
	if e.Executable != "" {
		dl.SetExecutable(e.Executable)
	}

	res, err := dl.Run(ctx, url)
	if err != nil {
		return "", err
	}

	info, err := res.GetExtractedInfo()
	if err != nil {
		return "", fmt.Errorf("failed to read video info: %w", err)
	}
	if len(info) > 0 && info[0].Title != nil {
		return *info[0].Title, nil
	}
	return "", nil
}

// Ensure Fetcher implements conversion.RemoteFetcher
var _ conversion.RemoteFetcher = (*Fetcher)(nil)
