package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Errors for settings management
var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrInvalidTheme      = errors.New("invalid theme")
)

// SettingsManager owns AppSettings and persists every change immediately
type SettingsManager struct {
	mu       sync.Mutex
	settings AppSettings
	path     string
}

// NewSettingsManager loads settings from path
func NewSettingsManager(path string) *SettingsManager {
	return &SettingsManager{
		settings: LoadSettings(path),
		path:     path,
	}
}

// Path returns the settings file location
func (m *SettingsManager) Path() string {
	return m.path
}

// Settings returns a copy of the current settings
func (m *SettingsManager) Settings() AppSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// OutputDir returns the configured output directory
func (m *SettingsManager) OutputDir() string {
	return m.Settings().OutputDir
}

// SetOutputDir changes the output directory; it must already exist
func (m *SettingsManager) SetOutputDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("output directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	if !isDir(abs) {
		return fmt.Errorf("%w: %q", ErrDirectoryNotFound, abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.OutputDir = abs
	return SaveSettings(m.settings, m.path)
}

// SetTheme changes the theme
func (m *SettingsManager) SetTheme(theme Theme) error {
	theme = Theme(strings.ToLower(strings.TrimSpace(string(theme))))
	if !theme.Valid() {
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidTheme, theme, ThemeDark, ThemeLight)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Theme = theme
	return SaveSettings(m.settings, m.path)
}

// ToggleTheme switches between dark and light and returns the new theme
func (m *SettingsManager) ToggleTheme() (Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings.Theme = m.settings.Theme.Toggled()
	return m.settings.Theme, SaveSettings(m.settings, m.path)
}
