//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-to-mp3/application/conversion"
	"video-to-mp3/application/events"
	"video-to-mp3/application/process"
	"video-to-mp3/cmd"
	domain "video-to-mp3/domain/conversion"
	"video-to-mp3/infrastructure/filesystem"
	"video-to-mp3/infrastructure/ytdlp"

	"github.com/cucumber/godog"
)

// mockEngine stands in for yt-dlp and writes a small file to dest
type mockEngine struct {
	titles map[string]string
	broken map[string]bool
	calls  []string
}

func (m *mockEngine) Download(ctx context.Context, url, destPath string) (string, error) {
	m.calls = append(m.calls, url)
	if m.broken[url] {
		return "", errors.New("ERROR: [generic] Unable to download webpage: HTTP Error 404")
	}
	if err := os.WriteFile(destPath, []byte("media"), 0644); err != nil {
		return "", err
	}
	return m.titles[url], nil
}

// mockExtractor records trims and replays progress
type mockExtractor struct {
	progress []float64
	empty    map[string]bool
	trims    []*float64
	outputs  []string
}

func (m *mockExtractor) Extract(ctx context.Context, src, out string, trim *float64, onProgress domain.ProgressFunc) (domain.EncodedResult, error) {
	m.trims = append(m.trims, trim)
	m.outputs = append(m.outputs, out)
	for _, f := range m.progress {
		onProgress(f)
	}
	clip := 10.0
	if m.empty[src] {
		clip = 0
	}
	return domain.EncodedResult{OutputPath: out, SourceSeconds: 10, ClipSeconds: clip}, nil
}

// mockFileChecker implements domain.FileChecker for testing
type mockFileChecker struct {
	existingFiles map[string]bool
}

func (m *mockFileChecker) Exists(path string) bool {
	return m.existingFiles[path]
}

func (m *mockFileChecker) IsDir(path string) bool {
	return false
}

// staticDir implements process.OutputDirSource
type staticDir string

func (s staticDir) OutputDir() string { return string(s) }

// convertContext holds test state for convert scenarios
type convertContext struct {
	tempDir     string
	outputDir   string
	engine      *mockEngine
	extractor   *mockExtractor
	fileChecker *mockFileChecker
	output      *bytes.Buffer
	err         error
}

// SharedConvertContext is reset before each scenario via Before hook
var SharedConvertContext *convertContext

func getConvertContext() *convertContext {
	return SharedConvertContext
}

func InitializeConvertScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "convert-test-*")
		if err != nil {
			return c, err
		}
		SharedConvertContext = &convertContext{
			tempDir: tempDir,
			engine:  &mockEngine{titles: make(map[string]string), broken: make(map[string]bool)},
			extractor: &mockExtractor{
				progress: []float64{0.5, 1},
				empty:    make(map[string]bool),
			},
			fileChecker: &mockFileChecker{existingFiles: make(map[string]bool)},
			output:      &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedConvertContext != nil {
			os.RemoveAll(SharedConvertContext.tempDir)
		}
		SharedConvertContext = nil
		return c, nil
	})

	ctx.Step(`^the output directory is "([^"]*)"$`, theOutputDirectoryIs)
	ctx.Step(`^the remote video "([^"]*)" is titled "([^"]*)"$`, theRemoteVideoIsTitled)
	ctx.Step(`^the remote video "([^"]*)" cannot be downloaded$`, theRemoteVideoCannotBeDownloaded)
	ctx.Step(`^a local video at "([^"]*)"$`, aLocalVideoAt)
	ctx.Step(`^a local video at "([^"]*)" that would be trimmed to nothing$`, aLocalVideoThatWouldBeTrimmedToNothing)
	ctx.Step(`^the extractor reports progress "([^"]*)"$`, theExtractorReportsProgress)
	ctx.Step(`^I convert the link "([^"]*)"$`, iConvertTheLink)
	ctx.Step(`^I convert the file "([^"]*)"$`, iConvertTheFile)
	ctx.Step(`^I convert the file "([^"]*)" trimming "([^"]*)" seconds$`, iConvertTheFileTrimming)
	ctx.Step(`^I convert in file mode without choosing a file$`, iConvertInFileModeWithoutChoosingAFile)
	ctx.Step(`^the conversion should succeed$`, theConversionShouldSucceed)
	ctx.Step(`^the conversion should fail with "([^"]*)"$`, theConversionShouldFailWith)
	ctx.Step(`^the conversion should be rejected with "([^"]*)"$`, theConversionShouldBeRejectedWith)
	ctx.Step(`^the MP3 should be saved as "([^"]*)"$`, theMP3ShouldBeSavedAs)
	ctx.Step(`^the temporary download should be removed$`, theTemporaryDownloadShouldBeRemoved)
	ctx.Step(`^nothing should have been downloaded$`, nothingShouldHaveBeenDownloaded)
	ctx.Step(`^no job should have run$`, noJobShouldHaveRun)
	ctx.Step(`^the extractor should trim ([0-9.]+) seconds from the tail$`, theExtractorShouldTrim)
	ctx.Step(`^the output should contain "([^"]*)"$`, theOutputShouldContain)
	ctx.Step(`^the progress bar should end at 100 percent$`, theProgressBarShouldEndAt100Percent)
	ctx.Step(`^the progress bar should never show (\d+) percent$`, theProgressBarShouldNeverShow)
}

func (c *convertContext) tempMediaPath() string {
	return filepath.Join(c.tempDir, "remote_temp.mp4")
}

func (c *convertContext) run(input process.Input) {
	dispatcher := events.NewDispatcher()
	fetcher := ytdlp.NewFetcher("", ytdlp.WithEngine(c.engine))
	orch := conversion.NewOrchestrator(fetcher, c.extractor, filesystem.NewRemover(), dispatcher, c.tempMediaPath())
	service := process.NewService(orch, nil, c.fileChecker, staticDir(c.outputDir))

	c.err = cmd.RunConvertWithDependencies(context.Background(), service, dispatcher, input, -1, c.output)
}

func theOutputDirectoryIs(dir string) error {
	getConvertContext().outputDir = dir
	return nil
}

func theRemoteVideoIsTitled(url, title string) error {
	getConvertContext().engine.titles[url] = title
	return nil
}

func theRemoteVideoCannotBeDownloaded(url string) error {
	getConvertContext().engine.broken[url] = true
	return nil
}

func aLocalVideoAt(path string) error {
	getConvertContext().fileChecker.existingFiles[path] = true
	return nil
}

func aLocalVideoThatWouldBeTrimmedToNothing(path string) error {
	c := getConvertContext()
	c.fileChecker.existingFiles[path] = true
	c.extractor.empty[path] = true
	return nil
}

func theExtractorReportsProgress(list string) error {
	c := getConvertContext()
	c.extractor.progress = nil
	for _, part := range strings.Split(list, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("invalid progress value %q: %w", part, err)
		}
		c.extractor.progress = append(c.extractor.progress, f)
	}
	return nil
}

func iConvertTheLink(url string) error {
	getConvertContext().run(process.Input{Mode: domain.ModeLink, URLText: url})
	return nil
}

func iConvertTheFile(path string) error {
	getConvertContext().run(process.Input{Mode: domain.ModeFile, FilePath: path})
	return nil
}

func iConvertTheFileTrimming(path, text string) error {
	getConvertContext().run(process.Input{Mode: domain.ModeFile, FilePath: path, AutoTrim: true, TrimText: text})
	return nil
}

func iConvertInFileModeWithoutChoosingAFile() error {
	getConvertContext().run(process.Input{Mode: domain.ModeFile})
	return nil
}

func theConversionShouldSucceed() error {
	if err := getConvertContext().err; err != nil {
		return fmt.Errorf("expected success, got: %v", err)
	}
	return nil
}

func theConversionShouldFailWith(text string) error {
	c := getConvertContext()
	if c.err == nil {
		return fmt.Errorf("expected failure, conversion succeeded")
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, c.err)
	}
	return nil
}

func theConversionShouldBeRejectedWith(reason string) error {
	c := getConvertContext()
	if !errors.Is(c.err, domain.ErrInvalidInput) {
		return fmt.Errorf("expected invalid input error, got: %v", c.err)
	}
	if !strings.Contains(c.err.Error(), reason) {
		return fmt.Errorf("expected reason %q, got: %v", reason, c.err)
	}
	return nil
}

func theMP3ShouldBeSavedAs(path string) error {
	c := getConvertContext()
	if len(c.extractor.outputs) != 1 {
		return fmt.Errorf("expected one extraction, got %d", len(c.extractor.outputs))
	}
	if c.extractor.outputs[0] != filepath.FromSlash(path) {
		return fmt.Errorf("expected output %q, got %q", path, c.extractor.outputs[0])
	}
	return nil
}

func theTemporaryDownloadShouldBeRemoved() error {
	c := getConvertContext()
	if len(c.engine.calls) == 0 {
		return fmt.Errorf("nothing was downloaded")
	}
	if _, err := os.Stat(c.tempMediaPath()); !os.IsNotExist(err) {
		return fmt.Errorf("temporary download still exists at %s", c.tempMediaPath())
	}
	return nil
}

func nothingShouldHaveBeenDownloaded() error {
	if calls := getConvertContext().engine.calls; len(calls) != 0 {
		return fmt.Errorf("expected no downloads, got %v", calls)
	}
	return nil
}

func noJobShouldHaveRun() error {
	c := getConvertContext()
	if len(c.engine.calls) != 0 || len(c.extractor.outputs) != 0 {
		return fmt.Errorf("a job ran: downloads %v, extractions %v", c.engine.calls, c.extractor.outputs)
	}
	return nil
}

func theExtractorShouldTrim(seconds string) error {
	c := getConvertContext()
	want, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return err
	}
	if len(c.extractor.trims) != 1 || c.extractor.trims[0] == nil {
		return fmt.Errorf("expected one trimmed extraction, got %v", c.extractor.trims)
	}
	if got := *c.extractor.trims[0]; got != want {
		return fmt.Errorf("expected trim %v, got %v", want, got)
	}
	return nil
}

func theOutputShouldContain(text string) error {
	out := getConvertContext().output.String()
	if !strings.Contains(out, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, out)
	}
	return nil
}

func theProgressBarShouldEndAt100Percent() error {
	out := getConvertContext().output.String()
	if !strings.Contains(out, "100%") {
		return fmt.Errorf("progress bar never reached 100%%:\n%s", out)
	}
	return nil
}

func theProgressBarShouldNeverShow(percent int) error {
	out := getConvertContext().output.String()
	if strings.Contains(out, fmt.Sprintf("%3d%%", percent)) {
		return fmt.Errorf("progress bar moved back to %d%%:\n%s", percent, out)
	}
	return nil
}
