//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video-to-mp3/cmd"
	"video-to-mp3/infrastructure/config"

	"github.com/cucumber/godog"
)

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	selectResponses  []string
	inputIndex       int
	confirmIndex     int
	selectIndex      int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if m.selectIndex >= len(m.selectResponses) {
		return defaultValue, nil
	}
	response := m.selectResponses[m.selectIndex]
	m.selectIndex++
	return response, nil
}

// settingsContext holds test state for settings scenarios
type settingsContext struct {
	tempDir      string
	settingsPath string
	configPath   string
	newFolder    string
	manager      *config.SettingsManager
	envKeys      []string
	output       *bytes.Buffer
	err          error
}

// SharedSettingsContext is reset before each scenario via Before hook
var SharedSettingsContext *settingsContext

func getSettingsContext() *settingsContext {
	return SharedSettingsContext
}

func InitializeSettingsScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "settings-test-*")
		if err != nil {
			return c, err
		}
		SharedSettingsContext = &settingsContext{
			tempDir:      tempDir,
			settingsPath: filepath.Join(tempDir, "data", "settings.yaml"),
			configPath:   filepath.Join(tempDir, "data", "config.yaml"),
			newFolder:    filepath.Join(tempDir, "music"),
			output:       &bytes.Buffer{},
		}
		return c, os.MkdirAll(SharedSettingsContext.newFolder, 0755)
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if s := SharedSettingsContext; s != nil {
			for _, key := range s.envKeys {
				os.Unsetenv(key)
			}
			os.RemoveAll(s.tempDir)
		}
		SharedSettingsContext = nil
		return c, nil
	})

	ctx.Step(`^no settings file exists$`, noSettingsFileExists)
	ctx.Step(`^the settings file names an output directory that no longer exists$`, theSettingsFileNamesAMissingDirectory)
	ctx.Step(`^the settings file contains "([^"]*)"$`, theSettingsFileContains)
	ctx.Step(`^I set the output directory to a new folder$`, iSetTheOutputDirectoryToANewFolder)
	ctx.Step(`^I set the output directory to "([^"]*)"$`, iSetTheOutputDirectoryTo)
	ctx.Step(`^I toggle the theme$`, iToggleTheTheme)
	ctx.Step(`^I run setup choosing a new folder and theme "([^"]*)" without tool paths$`, iRunSetupWithoutToolPaths)
	ctx.Step(`^I run setup choosing a new folder and theme "([^"]*)" with ffmpeg "([^"]*)" and bitrate "([^"]*)"$`, iRunSetupWithToolPaths)
	ctx.Step(`^the theme should be "([^"]*)"$`, theThemeShouldBe)
	ctx.Step(`^the output directory should be a folder that exists$`, theOutputDirectoryShouldExist)
	ctx.Step(`^reloading the settings should give the new folder$`, reloadingShouldGiveTheNewFolder)
	ctx.Step(`^the settings command should fail with "([^"]*)"$`, theSettingsCommandShouldFailWith)
	ctx.Step(`^the settings output should contain "([^"]*)"$`, theSettingsOutputShouldContain)
	ctx.Step(`^no tool config should be written$`, noToolConfigShouldBeWritten)
	ctx.Step(`^the tool config should have ffmpeg "([^"]*)"$`, theToolConfigShouldHaveFFmpeg)
	ctx.Step(`^the tool config should have bitrate "([^"]*)"$`, theToolConfigShouldHaveBitrate)
	ctx.Step(`^the tool config file sets ffprobe "([^"]*)"$`, theToolConfigFileSetsFFprobe)
	ctx.Step(`^the environment overrides ffprobe with "([^"]*)"$`, theEnvironmentOverridesFFprobe)
	ctx.Step(`^the tool config should have ffprobe "([^"]*)"$`, theToolConfigShouldHaveFFprobe)
}

func (s *settingsContext) load() *config.SettingsManager {
	s.manager = config.NewSettingsManager(s.settingsPath)
	return s.manager
}

func (s *settingsContext) writeSettings(content string) error {
	if err := os.MkdirAll(filepath.Dir(s.settingsPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(s.settingsPath, []byte(content), 0644); err != nil {
		return err
	}
	s.load()
	return nil
}

func noSettingsFileExists() error {
	getSettingsContext().load()
	return nil
}

func theSettingsFileNamesAMissingDirectory() error {
	s := getSettingsContext()
	return s.writeSettings(fmt.Sprintf("output_dir: %q\ntheme: light\n", filepath.Join(s.tempDir, "deleted")))
}

func theSettingsFileContains(content string) error {
	return getSettingsContext().writeSettings(content)
}

func iSetTheOutputDirectoryToANewFolder() error {
	s := getSettingsContext()
	s.err = cmd.RunSetOutputDirWithDependencies(s.manager, s.newFolder, s.output)
	return s.err
}

func iSetTheOutputDirectoryTo(dir string) error {
	s := getSettingsContext()
	s.err = cmd.RunSetOutputDirWithDependencies(s.manager, dir, s.output)
	return nil
}

func iToggleTheTheme() error {
	s := getSettingsContext()
	s.err = cmd.RunToggleThemeWithDependencies(s.manager, s.output)
	return s.err
}

func iRunSetupWithoutToolPaths(theme string) error {
	s := getSettingsContext()
	prompter := NewMockPrompter([]string{s.newFolder}, []bool{false})
	prompter.selectResponses = []string{theme}

	s.err = cmd.RunSetupWithPrompter(prompter, s.manager, s.configPath, s.output)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func iRunSetupWithToolPaths(theme, ffmpegPath, bitrate string) error {
	s := getSettingsContext()
	prompter := NewMockPrompter([]string{s.newFolder, ffmpegPath, "", "", bitrate}, []bool{true, false})
	prompter.selectResponses = []string{theme}

	s.err = cmd.RunSetupWithPrompter(prompter, s.manager, s.configPath, s.output)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func theThemeShouldBe(theme string) error {
	s := getSettingsContext()
	if got := s.load().Settings().Theme; string(got) != theme {
		return fmt.Errorf("expected theme %q, got %q", theme, got)
	}
	return nil
}

func theOutputDirectoryShouldExist() error {
	dir := getSettingsContext().load().OutputDir()
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %q does not exist", dir)
	}
	return nil
}

func reloadingShouldGiveTheNewFolder() error {
	s := getSettingsContext()
	if got := s.load().OutputDir(); got != s.newFolder {
		return fmt.Errorf("expected output directory %q, got %q", s.newFolder, got)
	}
	return nil
}

func theSettingsCommandShouldFailWith(text string) error {
	s := getSettingsContext()
	if s.err == nil {
		return fmt.Errorf("expected an error")
	}
	if !strings.Contains(s.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, s.err)
	}
	return nil
}

func theSettingsOutputShouldContain(text string) error {
	out := getSettingsContext().output.String()
	if !strings.Contains(out, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, out)
	}
	return nil
}

func noToolConfigShouldBeWritten() error {
	if _, err := os.Stat(getSettingsContext().configPath); !os.IsNotExist(err) {
		return fmt.Errorf("tool config was written")
	}
	return nil
}

func theToolConfigShouldHaveFFmpeg(path string) error {
	cfg, err := config.Load(getSettingsContext().configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Tools.FFmpegPath != path {
		return fmt.Errorf("expected ffmpeg %q, got %q", path, cfg.Tools.FFmpegPath)
	}
	return nil
}

func theToolConfigShouldHaveBitrate(bitrate string) error {
	cfg, err := config.Load(getSettingsContext().configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Audio.Bitrate != bitrate {
		return fmt.Errorf("expected bitrate %q, got %q", bitrate, cfg.Audio.Bitrate)
	}
	return nil
}

func theToolConfigFileSetsFFprobe(path string) error {
	cfg := config.Defaults()
	cfg.Tools.FFprobePath = path
	return config.Save(cfg, getSettingsContext().configPath)
}

func theEnvironmentOverridesFFprobe(path string) error {
	s := getSettingsContext()
	s.envKeys = append(s.envKeys, config.EnvFFprobe)
	return os.Setenv(config.EnvFFprobe, path)
}

func theToolConfigShouldHaveFFprobe(path string) error {
	cfg, err := config.Load(getSettingsContext().configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Tools.FFprobePath != path {
		return fmt.Errorf("expected ffprobe %q, got %q", path, cfg.Tools.FFprobePath)
	}
	return nil
}
