package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"video-to-mp3/infrastructure/config"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output writer for settings commands
var DefaultOutput OutputWriter = os.Stdout

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change user settings",
	Long: `Show and change the output directory and theme.

Settings are saved after every change.

Examples:
  video-to-mp3 settings show
  video-to-mp3 settings set-output-dir ~/Music
  video-to-mp3 settings set-theme light
  video-to-mp3 settings toggle-theme`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSettingsShowWithDependencies(settings, cfg, DefaultOutput)
	},
}

var settingsOutputDirCmd = &cobra.Command{
	Use:   "set-output-dir <dir>",
	Short: "Change where MP3 files are saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSetOutputDirWithDependencies(settings, args[0], DefaultOutput)
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:       "set-theme <dark|light>",
	Short:     "Change the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(config.ThemeDark), string(config.ThemeLight)},
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSetThemeWithDependencies(settings, args[0], DefaultOutput)
	},
}

var settingsToggleThemeCmd = &cobra.Command{
	Use:   "toggle-theme",
	Short: "Switch between dark and light",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunToggleThemeWithDependencies(settings, DefaultOutput)
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsOutputDirCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	settingsCmd.AddCommand(settingsToggleThemeCmd)
}

// RunSettingsShowWithDependencies prints settings and tool configuration
func RunSettingsShowWithDependencies(mgr *config.SettingsManager, cfg *config.Config, out OutputWriter) error {
	s := mgr.Settings()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Output directory:\t%s\n", s.OutputDir)
	fmt.Fprintf(w, "Theme:\t%s\n", s.Theme)
	fmt.Fprintf(w, "Settings file:\t%s\n", mgr.Path())
	if cfg != nil {
		fmt.Fprintf(w, "ffmpeg:\t%s\n", cfg.Tools.FFmpegPath)
		fmt.Fprintf(w, "ffprobe:\t%s\n", cfg.Tools.FFprobePath)
		ytdlp := cfg.Tools.YtDlpPath
		if ytdlp == "" {
			ytdlp = "yt-dlp (from PATH)"
		}
		fmt.Fprintf(w, "yt-dlp:\t%s\n", ytdlp)
		fmt.Fprintf(w, "Bitrate:\t%s\n", cfg.Audio.Bitrate)
		fmt.Fprintf(w, "Manifest:\t%s\n", cfg.Update.ManifestURL)
	}
	return w.Flush()
}

// RunSetOutputDirWithDependencies changes the output directory
func RunSetOutputDirWithDependencies(mgr *config.SettingsManager, dir string, out OutputWriter) error {
	if err := mgr.SetOutputDir(dir); err != nil {
		return err
	}
	fmt.Fprintf(out, "Output directory set to %s\n", mgr.OutputDir())
	return nil
}

// RunSetThemeWithDependencies changes the theme
func RunSetThemeWithDependencies(mgr *config.SettingsManager, theme string, out OutputWriter) error {
	if err := mgr.SetTheme(config.Theme(theme)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Theme set to %s\n", mgr.Settings().Theme)
	return nil
}

// RunToggleThemeWithDependencies switches the theme
func RunToggleThemeWithDependencies(mgr *config.SettingsManager, out OutputWriter) error {
	theme, err := mgr.ToggleTheme()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Theme set to %s\n", theme)
	return nil
}
