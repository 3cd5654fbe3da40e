package conversion

import (
	"errors"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "punctuation stripped", raw: "Cool! Video #1 (2024)", want: "Cool Video 1 2024"},
		{name: "hyphen and underscore kept", raw: "my_clip - part-2", want: "my_clip - part-2"},
		{name: "surrounding whitespace trimmed", raw: "  hello  ", want: "hello"},
		{name: "non-latin letters kept", raw: "Привіт, світ!", want: "Привіт світ"},
		{name: "path separators removed", raw: "../../etc/passwd", want: "etcpasswd"},
		{name: "emoji only falls back", raw: "🔥🔥🔥", want: FallbackTitle},
		{name: "empty falls back", raw: "", want: FallbackTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.raw); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("exit status 1")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation", err: invalidInput(ReasonNoUsableLink), want: "no usable link"},
		{name: "fetch", err: &FetchError{Detail: "unsupported URL", Err: cause}, want: "fetch failed: unsupported URL"},
		{name: "decode", err: NewDecodeError("", cause), want: "decode failed"},
		{name: "write with detail", err: NewWriteError("/out is not a directory", cause), want: "write failed: /out is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	var extractErr *ExtractError
	if !errors.As(NewWriteError("x", cause), &extractErr) || extractErr.Op != OpWrite {
		t.Errorf("errors.As did not recover write ExtractError")
	}
	if !errors.Is(&FetchError{Err: cause}, cause) {
		t.Errorf("FetchError does not unwrap to its cause")
	}
}
