package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-to-mp3/domain/conversion"
)

// DefaultAudioBitrate is the default bitrate for audio extraction
const DefaultAudioBitrate = "192k"

// Extractor implements conversion.AudioExtractor using ffprobe and ffmpeg
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
	runner      CommandRunner
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithExtractorFFmpegPath sets a custom ffmpeg executable path
func WithExtractorFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) ExtractorOption {
	return func(e *Extractor) {
		if path != "" {
			e.ffprobePath = path
		}
	}
}

// WithBitrate sets the MP3 bitrate, e.g. "192k"
func WithBitrate(bitrate string) ExtractorOption {
	return func(e *Extractor) {
		if bitrate != "" {
			e.bitrate = bitrate
		}
	}
}

// WithExtractorCommandRunner sets a custom command runner (for testing)
func WithExtractorCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// NewExtractor creates a new FFmpeg-based audio extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		bitrate:     DefaultAudioBitrate,
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract implements conversion.AudioExtractor
func (e *Extractor) Extract(ctx context.Context, sourcePath, outputPath string, trimTail *float64, onProgress conversion.ProgressFunc) (conversion.EncodedResult, error) {
	if onProgress == nil {
		onProgress = func(float64) {}
	}

	outDir := filepath.Dir(outputPath)
	if info, err := os.Stat(outDir); err != nil {
		return conversion.EncodedResult{}, conversion.NewWriteError(fmt.Sprintf("output directory %s is not available", outDir), err)
	} else if !info.IsDir() {
		return conversion.EncodedResult{}, conversion.NewWriteError(fmt.Sprintf("%s is not a directory", outDir), nil)
	}

	duration, err := NewProber(e.ffprobePath, e.runner).Duration(ctx, sourcePath)
	if err != nil {
		return conversion.EncodedResult{}, conversion.NewDecodeError(filepath.Base(sourcePath), err)
	}

	end := conversion.EffectiveEnd(duration, trimTail)
	result := conversion.EncodedResult{
		OutputPath:    outputPath,
		SourceSeconds: duration,
		ClipSeconds:   end,
	}

	// The trim swallowed the whole clip; leave an empty file behind
	if end <= 0 {
		if err := os.WriteFile(outputPath, nil, 0644); err != nil {
			return conversion.EncodedResult{}, conversion.NewWriteError(filepath.Base(outputPath), err)
		}
		onProgress(1)
		return result, nil
	}

	tracker := newProgressTracker(end, onProgress)
	if err := e.runner.Stream(ctx, e.ffmpegPath, e.buildArgs(sourcePath, outputPath, end), tracker.Line); err != nil {
		return conversion.EncodedResult{}, classifyEncodeError(err, outputPath)
	}
	tracker.Finish()

	return result, nil
}

func (e *Extractor) buildArgs(sourcePath, outputPath string, end float64) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y", // Overwrite output file if it exists
		"-i", sourcePath,
		"-vn", // No video
		"-t", strconv.FormatFloat(end, 'f', 3, 64),
		"-acodec", "libmp3lame",
		"-ab", e.bitrate,
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
}

// classifyEncodeError separates destination problems from source problems
func classifyEncodeError(err error, outputPath string) error {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		stderr := strings.ToLower(cmdErr.Stderr)
		mentionsOutput := strings.Contains(cmdErr.Stderr, outputPath) || strings.Contains(cmdErr.Stderr, filepath.Base(outputPath))
		if mentionsOutput && (strings.Contains(stderr, "permission denied") ||
			strings.Contains(stderr, "no such file or directory") ||
			strings.Contains(stderr, "read-only file system") ||
			strings.Contains(stderr, "no space left") ||
			strings.Contains(stderr, "file name too long") ||
			strings.Contains(stderr, "invalid argument")) {
			return conversion.NewWriteError(filepath.Base(outputPath), err)
		}
	}
	return conversion.NewDecodeError("ffmpeg audio extraction failed", err)
}

// VerifyInstalled checks that ffmpeg and ffprobe are available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	if _, err := e.runner.Output(ctx, e.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	if _, err := e.runner.Output(ctx, e.ffprobePath, "-version"); err != nil {
		return fmt.Errorf("ffprobe not found or not executable: %w", err)
	}
	return nil
}

// Ensure Extractor implements conversion.AudioExtractor
var _ conversion.AudioExtractor = (*Extractor)(nil)
