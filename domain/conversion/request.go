package conversion

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// LinkPlaceholder is the hint text shown in an empty link field
const LinkPlaceholder = "Вставте посилання тут..."

// SourceKind identifies where the media for a request comes from
type SourceKind int

const (
	SourceRemote SourceKind = iota
	SourceLocalFile
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceLocalFile:
		return "local"
	default:
		return "unknown"
	}
}

// Mode is the input mode selected by the user
type Mode string

const (
	ModeLink Mode = "link"
	ModeFile Mode = "file"
)

// ParseMode parses a user supplied mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLink:
		return ModeLink, nil
	case ModeFile:
		return ModeFile, nil
	}
	return "", fmt.Errorf("unknown mode %q: expected %q or %q", s, ModeLink, ModeFile)
}

// Request is a single conversion request. Build it with Resolve.
type Request struct {
	Kind      SourceKind
	Ref       string   // URL for remote sources, path for local files
	OutputDir string
	Trim      *float64 // seconds removed from the tail; nil means no trim
}

// HasTrim reports whether the request asks for a tail trim
func (r Request) HasTrim() bool {
	return r.Trim != nil
}

// LocalTitle returns the source filename without extension
func (r Request) LocalTitle() string {
	base := filepath.Base(r.Ref)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MaxTitleBytes bounds the output base name so that "<title>.mp3" stays
// under the 255 byte file name limit of common filesystems
const MaxTitleBytes = 200

// OutputPath returns <outputDir>/<title>.mp3 with title cut to MaxTitleBytes
func (r Request) OutputPath(title string) string {
	return filepath.Join(r.OutputDir, TruncateTitle(title, MaxTitleBytes)+".mp3")
}

// TruncateTitle cuts title to at most limit bytes on a rune boundary
func TruncateTitle(title string, limit int) string {
	if len(title) <= limit {
		return title
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	if t := strings.TrimSpace(title[:cut]); t != "" {
		return t
	}
	return FallbackTitle
}

// ResolveInput is the presentation state a request is resolved from
type ResolveInput struct {
	Mode      Mode
	URLText   string
	FilePath  string
	AutoTrim  bool
	TrimText  string
	OutputDir string
}

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Resolve picks the single input that feeds a conversion request
func Resolve(in ResolveInput, files FileChecker) (Request, error) {
	var req Request

	switch in.Mode {
	case ModeLink:
		link := strings.TrimSpace(in.URLText)
		if link == "" || strings.Contains(link, LinkPlaceholder) || !schemePrefix.MatchString(link) {
			return Request{}, invalidInput(ReasonNoUsableLink)
		}
		req.Kind = SourceRemote
		req.Ref = link
	case ModeFile:
		path := strings.TrimSpace(in.FilePath)
		if path == "" || !files.Exists(path) || files.IsDir(path) {
			return Request{}, invalidInput(ReasonNoFileSelected)
		}
		req.Kind = SourceLocalFile
		req.Ref = path
	default:
		return Request{}, invalidInput(fmt.Sprintf("unknown mode %q", in.Mode))
	}

	if strings.TrimSpace(in.OutputDir) == "" {
		return Request{}, invalidInput(ReasonNoOutputDir)
	}
	req.OutputDir = in.OutputDir

	if in.AutoTrim {
		trim := ParseTrim(in.TrimText)
		req.Trim = &trim
	}

	return req, nil
}
