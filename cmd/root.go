package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"video-to-mp3/infrastructure/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is the running release, set with
// -ldflags "-X video-to-mp3/cmd.Version=1.2.0"
var Version = "1.1.0"

var (
	cfgFile  string
	verbose  bool
	cfg      *config.Config
	settings *config.SettingsManager
	logger   = log.New(io.Discard, "", 0)
)

var rootCmd = &cobra.Command{
	Use:   "video-to-mp3",
	Short: "Convert video links and files to MP3",
	Long: `video-to-mp3 turns a short-video link (TikTok, YouTube, Instagram and
anything else yt-dlp supports) or a local video file into an MP3, optionally
trimming a few seconds off the end.

  - Download remote videos with yt-dlp
  - Extract and encode audio with ffmpeg
  - Trim the tail of the clip
  - Update itself in place when a new release is published

Example:
  video-to-mp3 convert "https://www.tiktok.com/@user/video/123" --auto-trim
  video-to-mp3 convert --mode file ~/Videos/clip.mp4`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/VideoToMP3Converter/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log background diagnostics to stderr")
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if verbose {
		logger = log.New(os.Stderr, "video-to-mp3: ", log.LstdFlags)
	}

	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// A broken config file should not stop conversions
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		cfg = config.Defaults()
	}
	cfg.ApplyEnv(os.Getenv)

	settings = config.NewSettingsManager(cfg.SettingsPath())
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// GetSettings returns the user's settings
func GetSettings() *config.SettingsManager {
	return settings
}
