package update

import (
	"fmt"
	"strings"
)

// Manifest advertises the latest available version and where to get it
type Manifest struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	Notes   string `json:"notes"`
}

// Validate checks the fields needed to offer an update
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest version is required")
	}
	if !IsValidVersion(m.Version) {
		return fmt.Errorf("manifest version %q is not a valid version", m.Version)
	}
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("manifest url is required")
	}
	return nil
}
