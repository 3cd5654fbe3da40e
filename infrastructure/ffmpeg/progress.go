package ffmpeg

import (
	"strconv"
	"strings"

	"video-to-mp3/domain/conversion"
)

// progressTracker turns `-progress` key=value lines into fractions of the clip
type progressTracker struct {
	totalSeconds float64
	report       conversion.ProgressFunc
	done         bool
}

func newProgressTracker(totalSeconds float64, report conversion.ProgressFunc) *progressTracker {
	return &progressTracker{totalSeconds: totalSeconds, report: report}
}

// Line consumes one line of ffmpeg progress output
func (p *progressTracker) Line(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}

	switch key {
	// out_time_ms is in microseconds as well
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || p.totalSeconds <= 0 {
			return
		}
		p.report(conversion.ClampFraction(float64(us) / 1e6 / p.totalSeconds))
	case "progress":
		if value == "end" {
			p.Finish()
		}
	}
}

// Finish reports completion once
func (p *progressTracker) Finish() {
	if p.done {
		return
	}
	p.done = true
	p.report(1)
}
