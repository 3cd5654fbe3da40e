package update

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canonical turns "1.10", "v1.10.0" or " 1.10.0 " into "v1.10.0"
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// IsValidVersion reports whether v parses as a semantic version
func IsValidVersion(v string) bool {
	return canonical(v) != ""
}

// IsNewer reports whether remote is strictly greater than current.
// An unparsable remote version is never newer.
func IsNewer(remote, current string) bool {
	r := canonical(remote)
	if r == "" {
		return false
	}
	c := canonical(current)
	if c == "" {
		return true
	}
	return semver.Compare(r, c) > 0
}
