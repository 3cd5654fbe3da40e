package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Prober reads media metadata with ffprobe
type Prober struct {
	ffprobePath string
	runner      CommandRunner
}

// NewProber creates a prober using the given ffprobe executable and runner
func NewProber(ffprobePath string, runner CommandRunner) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if runner == nil {
		runner = &ExecCommandRunner{}
	}
	return &Prober{ffprobePath: ffprobePath, runner: runner}
}

// Duration returns the container duration in seconds
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.runner.Output(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}

	s := strings.TrimSpace(string(out))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("negative duration %v", sec)
	}
	return sec, nil
}
