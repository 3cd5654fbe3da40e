package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Theme is the color scheme of the front end
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid reports whether t is a known theme
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Toggled returns the other theme
func (t Theme) Toggled() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// AppSettings is the user's persisted preferences
type AppSettings struct {
	OutputDir string `yaml:"output_dir"`
	Theme     Theme  `yaml:"theme"`
}

// SettingsPath returns the location of settings.yaml
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Paths.DataDirectory, "settings.yaml")
}

// DefaultOutputDir is the Desktop when there is one, else the home directory
func DefaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	desktop := filepath.Join(home, "Desktop")
	if isDir(desktop) {
		return desktop
	}
	return home
}

// DefaultSettings returns the settings used on first start
func DefaultSettings() AppSettings {
	return AppSettings{OutputDir: DefaultOutputDir(), Theme: ThemeDark}
}

// LoadSettings reads settings from path. A missing or corrupt file, or
// a saved output directory that no longer exists, silently falls back to defaults.
func LoadSettings(path string) AppSettings {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings
	}

	var saved AppSettings
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return settings
	}

	if saved.OutputDir != "" && isDir(saved.OutputDir) {
		settings.OutputDir = saved.OutputDir
	}
	if saved.Theme.Valid() {
		settings.Theme = saved.Theme
	}
	return settings
}

// SaveSettings writes settings to path, creating the directory if needed
func SaveSettings(settings AppSettings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
