//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"video-to-mp3/application/events"
	appupdate "video-to-mp3/application/update"
	"video-to-mp3/cmd"
	"video-to-mp3/domain/update"
	"video-to-mp3/infrastructure/httpupdate"
	"video-to-mp3/infrastructure/selfupdate"

	"github.com/cucumber/godog"
)

// recordingLauncher records helper launches instead of starting them
type recordingLauncher struct {
	launched []string
}

func (l *recordingLauncher) Launch(scriptPath string) error {
	l.launched = append(l.launched, scriptPath)
	return nil
}

// updateContext holds test state for update scenarios
type updateContext struct {
	tempDir      string
	exePath      string
	version      string
	manifest     update.Manifest
	manifestDown bool
	downloadFail bool
	packaged     bool
	downloads    int
	server       *httptest.Server
	launcher     *recordingLauncher
	manager      *appupdate.Manager
	output       *bytes.Buffer
	err          error
}

// SharedUpdateContext is reset before each scenario via Before hook
var SharedUpdateContext *updateContext

func getUpdateContext() *updateContext {
	return SharedUpdateContext
}

func InitializeUpdateScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "update-test-*")
		if err != nil {
			return c, err
		}
		u := &updateContext{
			tempDir:  tempDir,
			exePath:  filepath.Join(tempDir, "video-to-mp3"),
			launcher: &recordingLauncher{},
			output:   &bytes.Buffer{},
		}
		if err := os.WriteFile(u.exePath, []byte("old binary"), 0755); err != nil {
			return c, err
		}
		u.server = httptest.NewServer(http.HandlerFunc(u.serve))
		SharedUpdateContext = u
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if u := SharedUpdateContext; u != nil {
			u.server.Close()
			os.RemoveAll(u.tempDir)
		}
		SharedUpdateContext = nil
		return c, nil
	})

	ctx.Step(`^the running version is "([^"]*)"$`, theRunningVersionIs)
	ctx.Step(`^the manifest advertises version "([^"]*)"$`, theManifestAdvertisesVersion)
	ctx.Step(`^the manifest advertises version "([^"]*)" with notes "([^"]*)"$`, theManifestAdvertisesVersionWithNotes)
	ctx.Step(`^the manifest cannot be reached$`, theManifestCannotBeReached)
	ctx.Step(`^the program is a packaged binary$`, theProgramIsAPackagedBinary)
	ctx.Step(`^the program is a development build$`, theProgramIsADevelopmentBuild)
	ctx.Step(`^the download will fail$`, theDownloadWillFail)
	ctx.Step(`^I run the update command$`, iRunTheUpdateCommand)
	ctx.Step(`^I run the update command with check only$`, iRunTheUpdateCommandWithCheckOnly)
	ctx.Step(`^I run the update command and answer "([^"]*)"$`, iRunTheUpdateCommandAndAnswer)
	ctx.Step(`^the update command should succeed$`, theUpdateCommandShouldSucceed)
	ctx.Step(`^the update command should fail with "([^"]*)"$`, theUpdateCommandShouldFailWith)
	ctx.Step(`^the update output should contain "([^"]*)"$`, theUpdateOutputShouldContain)
	ctx.Step(`^nothing should be downloaded$`, nothingShouldBeDownloaded)
	ctx.Step(`^the new binary should be downloaded$`, theNewBinaryShouldBeDownloaded)
	ctx.Step(`^the replace helper should be launched$`, theReplaceHelperShouldBeLaunched)
	ctx.Step(`^the replace helper should not be launched$`, theReplaceHelperShouldNotBeLaunched)
	ctx.Step(`^the update manager should be idle$`, theUpdateManagerShouldBeIdle)
}

func (u *updateContext) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/version.json":
		if u.manifestDown {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		m := u.manifest
		m.URL = u.server.URL + "/video-to-mp3"
		_ = json.NewEncoder(w).Encode(m)
	case "/video-to-mp3":
		u.downloads++
		if u.downloadFail {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("new binary"))
	default:
		http.NotFound(w, r)
	}
}

func (u *updateContext) run(prompter cmd.Prompter, assumeYes, checkOnly bool) {
	dispatcher := events.NewDispatcher()
	client := httpupdate.NewClient(u.server.URL + "/version.json")
	packaged := u.packaged
	swapper := selfupdate.NewSwapper(u.exePath,
		selfupdate.WithLauncher(u.launcher),
		selfupdate.WithPackagedCheck(func(string) bool { return packaged }),
		selfupdate.WithTimings(0, 0, 3),
	)
	u.manager = appupdate.NewManager(u.version, client, client, swapper, dispatcher,
		appupdate.WithExitHook(dispatcher.Close),
	)

	u.err = cmd.RunUpdateWithDependencies(context.Background(), u.manager, dispatcher, prompter, assumeYes, checkOnly, u.output)
}

func theRunningVersionIs(version string) error {
	getUpdateContext().version = version
	return nil
}

func theManifestAdvertisesVersion(version string) error {
	getUpdateContext().manifest = update.Manifest{Version: version}
	return nil
}

func theManifestAdvertisesVersionWithNotes(version, notes string) error {
	getUpdateContext().manifest = update.Manifest{Version: version, Notes: notes}
	return nil
}

func theManifestCannotBeReached() error {
	getUpdateContext().manifestDown = true
	return nil
}

func theProgramIsAPackagedBinary() error {
	getUpdateContext().packaged = true
	return nil
}

func theProgramIsADevelopmentBuild() error {
	getUpdateContext().packaged = false
	return nil
}

func theDownloadWillFail() error {
	getUpdateContext().downloadFail = true
	return nil
}

func iRunTheUpdateCommand() error {
	getUpdateContext().run(NewMockPrompter(nil, nil), false, false)
	return nil
}

func iRunTheUpdateCommandWithCheckOnly() error {
	getUpdateContext().run(NewMockPrompter(nil, nil), false, true)
	return nil
}

func iRunTheUpdateCommandAndAnswer(answer string) error {
	confirm := strings.ToLower(answer) == "y"
	getUpdateContext().run(NewMockPrompter(nil, []bool{confirm}), false, false)
	return nil
}

func theUpdateCommandShouldSucceed() error {
	if err := getUpdateContext().err; err != nil {
		return fmt.Errorf("expected success, got: %v", err)
	}
	return nil
}

func theUpdateCommandShouldFailWith(text string) error {
	u := getUpdateContext()
	if u.err == nil {
		return fmt.Errorf("expected failure, update succeeded")
	}
	if !strings.Contains(u.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, u.err)
	}
	return nil
}

func theUpdateOutputShouldContain(text string) error {
	out := getUpdateContext().output.String()
	if !strings.Contains(out, text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, out)
	}
	return nil
}

func nothingShouldBeDownloaded() error {
	if n := getUpdateContext().downloads; n != 0 {
		return fmt.Errorf("expected no downloads, got %d", n)
	}
	return nil
}

func theNewBinaryShouldBeDownloaded() error {
	u := getUpdateContext()
	data, err := os.ReadFile(selfupdate.StagingPath(u.exePath))
	if err != nil {
		return fmt.Errorf("staged binary missing: %w", err)
	}
	if string(data) != "new binary" {
		return fmt.Errorf("staged binary has content %q", data)
	}
	if old, _ := os.ReadFile(u.exePath); string(old) != "old binary" {
		return fmt.Errorf("running executable was modified")
	}
	return nil
}

func theReplaceHelperShouldBeLaunched() error {
	if n := len(getUpdateContext().launcher.launched); n != 1 {
		return fmt.Errorf("expected one helper launch, got %d", n)
	}
	return nil
}

func theReplaceHelperShouldNotBeLaunched() error {
	if launched := getUpdateContext().launcher.launched; len(launched) != 0 {
		return fmt.Errorf("expected no helper launch, got %v", launched)
	}
	return nil
}

func theUpdateManagerShouldBeIdle() error {
	if s := getUpdateContext().manager.State(); s != update.StateIdle {
		return fmt.Errorf("expected idle, got %s", s)
	}
	return nil
}
