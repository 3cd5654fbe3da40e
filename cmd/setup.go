package cmd

import (
	"fmt"
	"os"

	"video-to-mp3/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose settings and tool paths interactively",
	Long: `Prompts for the output directory and theme, and optionally for the
ffmpeg, ffprobe and yt-dlp locations and the MP3 bitrate.

Settings are saved to settings.yaml; tool paths go to config.yaml.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, settings, cfgFile, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing).
// Tool settings are read from and saved to configPath; environment
// overrides are never written back.
func RunSetupWithPrompter(prompter Prompter, mgr *config.SettingsManager, configPath string, out OutputWriter) error {
	fmt.Fprintln(out, "Welcome to video-to-mp3 setup!")
	fmt.Fprintln(out)

	if err := promptSettings(prompter, mgr); err != nil {
		return err
	}

	tools, err := prompter.Confirm("Configure tool paths and bitrate?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if tools {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(out, "Warning: %v; starting from defaults\n", err)
			cfg = config.Defaults()
		}
		if err := promptTools(prompter, cfg); err != nil {
			return err
		}
		if err := config.Save(cfg, configPath); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Settings saved to %s\n", mgr.Path())
	return nil
}

func promptSettings(prompter Prompter, mgr *config.SettingsManager) error {
	current := mgr.Settings()

	dir, err := prompter.Input("Where should MP3 files be saved?", current.OutputDir)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if dir == "" {
		dir = current.OutputDir
	}
	if err := mgr.SetOutputDir(dir); err != nil {
		return err
	}

	theme, err := prompter.Select("Theme?", []string{string(config.ThemeDark), string(config.ThemeLight)}, string(current.Theme))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	return mgr.SetTheme(config.Theme(theme))
}

func promptTools(prompter Prompter, cfg *config.Config) error {
	ffmpegPath, err := prompter.Input("Path to ffmpeg?", cfg.Tools.FFmpegPath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffmpegPath != "" {
		cfg.Tools.FFmpegPath = ffmpegPath
	}

	ffprobePath, err := prompter.Input("Path to ffprobe?", cfg.Tools.FFprobePath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffprobePath != "" {
		cfg.Tools.FFprobePath = ffprobePath
	}

	ytdlpPath, err := prompter.Input("Path to yt-dlp? (empty uses PATH)", cfg.Tools.YtDlpPath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Tools.YtDlpPath = ytdlpPath

	install, err := prompter.Confirm("Download yt-dlp automatically when it is missing?", cfg.Tools.YtDlpAutoInstall)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Tools.YtDlpAutoInstall = install

	bitrate, err := prompter.Input("Audio bitrate for MP3 encoding?", cfg.Audio.Bitrate)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	cfg.Audio.Bitrate = bitrate

	return nil
}
