package cmd

import (
	"fmt"
	"strings"

	"video-to-mp3/domain/conversion"
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

const barWidth = 30

// progressBar draws a single-line bar on the presentation goroutine.
// The bar never moves backwards, whatever order fractions arrive in.
type progressBar struct {
	out   OutputWriter
	shown float64
	drawn bool
}

func newProgressBar(out OutputWriter) *progressBar {
	return &progressBar{out: out}
}

// Update redraws the bar when f is ahead of what is shown
func (b *progressBar) Update(f float64) {
	f = conversion.ClampFraction(f)
	if b.drawn && f <= b.shown {
		return
	}
	b.shown = f
	b.drawn = true

	filled := int(f * barWidth)
	fmt.Fprintf(b.out, "\r[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), f*100)
}

// Line ends the bar, if any, and prints msg on its own line
func (b *progressBar) Line(msg string) {
	b.Done()
	fmt.Fprintln(b.out, msg)
}

// Done ends the current bar and resets it
func (b *progressBar) Done() {
	if b.drawn {
		fmt.Fprintln(b.out)
	}
	b.drawn = false
	b.shown = 0
}

func statusMessage(s conversion.Status) string {
	switch s {
	case conversion.StatusFetching:
		return "Downloading video..."
	case conversion.StatusExtracting:
		return "Extracting audio..."
	case conversion.StatusCleaning:
		return "Removing temporary files..."
	default:
		return string(s)
	}
}
