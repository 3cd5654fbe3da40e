package conversion

import (
	"math"
	"strconv"
	"strings"
)

// DefaultTrimSeconds is used when the trim field cannot be parsed
const DefaultTrimSeconds = 3.0

// DefaultTrimText is the initial content of the trim field
const DefaultTrimText = "3.0"

// ParseTrim parses a trim duration, accepting comma or dot as the decimal separator.
// Anything that is not a finite, non-negative number yields DefaultTrimSeconds.
func ParseTrim(text string) float64 {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return DefaultTrimSeconds
	}
	return v
}

// EffectiveEnd returns the clip end for a source of the given duration
func EffectiveEnd(duration float64, trim *float64) float64 {
	if trim == nil {
		return duration
	}
	return math.Max(0, duration-*trim)
}
