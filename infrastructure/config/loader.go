package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppDirName is the per-user application data directory name
const AppDirName = "VideoToMP3Converter"

// DefaultManifestURL is where release information is published
const DefaultManifestURL = "https://raw.githubusercontent.com/valick18/VideoToMp3/main/version.json"

// Config represents the complete application configuration
type Config struct {
	Tools  ToolsConfig  `yaml:"tools"`
	Audio  AudioConfig  `yaml:"audio"`
	Update UpdateConfig `yaml:"update"`
	Paths  PathsConfig  `yaml:"paths"`
}

// ToolsConfig locates the external programs
type ToolsConfig struct {
	FFmpegPath       string `yaml:"ffmpeg"`
	FFprobePath      string `yaml:"ffprobe"`
	YtDlpPath        string `yaml:"ytdlp"`
	YtDlpAutoInstall bool   `yaml:"ytdlp_auto_install"`
}

// AudioConfig contains audio extraction settings
type AudioConfig struct {
	Bitrate string `yaml:"bitrate"`
}

// UpdateConfig controls the self-update flow
type UpdateConfig struct {
	ManifestURL string   `yaml:"manifest_url"`
	Disabled    bool     `yaml:"disabled"`
	CheckDelay  Duration `yaml:"check_delay"`
	Timeout     Duration `yaml:"timeout"`
	WaitSeconds int      `yaml:"wait_seconds"`
	PollSeconds int      `yaml:"poll_seconds"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// Duration is a time.Duration written as "1s" in YAML
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// PathsConfig contains directory paths
type PathsConfig struct {
	DataDirectory string `yaml:"data_directory"` // temp media lives here
}

// AppDataDir returns <UserConfigDir>/VideoToMP3Converter
func AppDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, AppDirName)
}

// DefaultConfigPath returns the default location of config.yaml
func DefaultConfigPath() string {
	return filepath.Join(AppDataDir(), "config.yaml")
}

// Defaults returns a configuration with every field populated
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Tools.FFmpegPath == "" {
		c.Tools.FFmpegPath = "ffmpeg"
	}
	if c.Tools.FFprobePath == "" {
		c.Tools.FFprobePath = "ffprobe"
	}
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = "192k"
	}
	if c.Update.ManifestURL == "" {
		c.Update.ManifestURL = DefaultManifestURL
	}
	if c.Update.CheckDelay <= 0 {
		c.Update.CheckDelay = Duration(time.Second)
	}
	if c.Update.Timeout <= 0 {
		c.Update.Timeout = Duration(5 * time.Second)
	}
	if c.Update.WaitSeconds <= 0 {
		c.Update.WaitSeconds = 2
	}
	if c.Update.PollSeconds <= 0 {
		c.Update.PollSeconds = 1
	}
	if c.Update.MaxAttempts <= 0 {
		c.Update.MaxAttempts = 30
	}
	if c.Paths.DataDirectory == "" {
		c.Paths.DataDirectory = AppDataDir()
	}
}

// Load reads and parses the configuration from the specified YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Environment variables that override the config file
const (
	EnvFFmpeg        = "VIDEO_TO_MP3_FFMPEG"
	EnvFFprobe       = "VIDEO_TO_MP3_FFPROBE"
	EnvYtDlp         = "VIDEO_TO_MP3_YTDLP"
	EnvBitrate       = "VIDEO_TO_MP3_BITRATE"
	EnvManifestURL   = "VIDEO_TO_MP3_MANIFEST_URL"
	EnvDataDir       = "VIDEO_TO_MP3_DATA_DIR"
	EnvNoUpdateCheck = "VIDEO_TO_MP3_NO_UPDATE_CHECK"
)

// ApplyEnv overrides config values from the environment
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Tools.FFmpegPath, EnvFFmpeg)
	set(&c.Tools.FFprobePath, EnvFFprobe)
	set(&c.Tools.YtDlpPath, EnvYtDlp)
	set(&c.Audio.Bitrate, EnvBitrate)
	set(&c.Update.ManifestURL, EnvManifestURL)
	set(&c.Paths.DataDirectory, EnvDataDir)

	if v := getenv(EnvNoUpdateCheck); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			c.Update.Disabled = disabled
		}
	}
}

// TempMediaPath is where a remote download is staged before extraction
func (c *Config) TempMediaPath() string {
	return filepath.Join(c.Paths.DataDirectory, "remote_temp.mp4")
}
