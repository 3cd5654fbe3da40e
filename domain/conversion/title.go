package conversion

import (
	"strings"
	"unicode"
)

// FallbackTitle is used when sanitizing leaves nothing behind
const FallbackTitle = "video"

// SanitizeTitle keeps letters, digits, space, hyphen and underscore, then trims
func SanitizeTitle(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	title := strings.TrimSpace(b.String())
	if title == "" {
		return FallbackTitle
	}
	return title
}
