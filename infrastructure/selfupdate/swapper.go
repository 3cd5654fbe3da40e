package selfupdate

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"video-to-mp3/domain/update"
)

// EnvForceSource makes a compiled binary behave as if run from source
const EnvForceSource = "VIDEO_TO_MP3_FORCE_SOURCE"

// Launcher starts the helper script as an independent process
type Launcher interface {
	Launch(scriptPath string) error
}

// DetachedLauncher starts the helper detached and does not wait for it
type DetachedLauncher struct{}

// Launch implements Launcher
func (l *DetachedLauncher) Launch(scriptPath string) error {
	cmd := scriptCommand(scriptPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start helper: %w", err)
	}
	return cmd.Process.Release()
}

// Executable returns the resolved path of the running binary
func Executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// StagingPath returns where a downloaded replacement for exe is written
func StagingPath(exe string) string {
	ext := filepath.Ext(exe)
	return strings.TrimSuffix(exe, ext) + ".new" + ext
}

// IsPackaged reports whether exe is a standalone build that can replace itself.
// Binaries produced by `go run` or `go test` live in a throwaway build directory.
func IsPackaged(exe string) bool {
	if v := os.Getenv(EnvForceSource); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	slashed := filepath.ToSlash(exe)
	if strings.Contains(slashed, "/go-build") {
		return false
	}
	base := strings.ToLower(filepath.Base(exe))
	return !strings.HasSuffix(base, ".test") && !strings.HasSuffix(base, ".test.exe")
}

// Swapper implements update.Swapper with a detached helper script
type Swapper struct {
	exePath     string
	goos        string
	waitSeconds int
	pollSeconds int
	maxAttempts int
	launcher    Launcher
	packaged    func(string) bool
}

// SwapperOption is a functional option for configuring Swapper
type SwapperOption func(*Swapper)

// WithTimings sets the helper's wait, poll interval and attempt limit
func WithTimings(waitSeconds, pollSeconds, maxAttempts int) SwapperOption {
	return func(s *Swapper) {
		s.waitSeconds = waitSeconds
		s.pollSeconds = pollSeconds
		s.maxAttempts = maxAttempts
	}
}

// WithLauncher sets a custom launcher (for testing)
func WithLauncher(l Launcher) SwapperOption {
	return func(s *Swapper) {
		s.launcher = l
	}
}

// WithPackagedCheck overrides packaged-binary detection (for testing)
func WithPackagedCheck(fn func(string) bool) SwapperOption {
	return func(s *Swapper) {
		s.packaged = fn
	}
}

// WithGOOS renders the helper for another platform (for testing)
func WithGOOS(goos string) SwapperOption {
	return func(s *Swapper) {
		s.goos = goos
	}
}

// NewSwapper creates a swapper that replaces exePath
func NewSwapper(exePath string, opts ...SwapperOption) *Swapper {
	s := &Swapper{
		exePath:     exePath,
		goos:        runtime.GOOS,
		waitSeconds: 2,
		pollSeconds: 1,
		maxAttempts: 30,
		launcher:    &DetachedLauncher{},
		packaged:    IsPackaged,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StagingPath implements update.Swapper
func (s *Swapper) StagingPath() (string, error) {
	if s.exePath == "" {
		return "", fmt.Errorf("executable path is unknown")
	}
	return StagingPath(s.exePath), nil
}

// ScriptPath is where the helper script is written
func (s *Swapper) ScriptPath() string {
	return filepath.Join(filepath.Dir(s.exePath), "video-to-mp3-update"+ScriptExt(s.goos))
}

// Swap implements update.Swapper. The old executable is never touched here;
// only the helper deletes it, after this process has exited.
func (s *Swapper) Swap(stagedPath string) (update.SwapOutcome, error) {
	if !s.packaged(s.exePath) {
		return update.SwapManual, nil
	}

	if info, err := os.Stat(stagedPath); err != nil || info.IsDir() {
		return update.SwapManual, &update.SwapError{Err: fmt.Errorf("staged binary %s is missing", stagedPath)}
	}
	if s.goos != "windows" {
		if err := os.Chmod(stagedPath, 0o755); err != nil {
			return update.SwapManual, &update.SwapError{Err: fmt.Errorf("make staged binary executable: %w", err)}
		}
	}

	scriptPath := s.ScriptPath()
	script, err := Render(s.goos, ScriptParams{
		OldPath:     s.exePath,
		NewPath:     stagedPath,
		ScriptPath:  scriptPath,
		WaitSeconds: s.waitSeconds,
		PollSeconds: s.pollSeconds,
		MaxAttempts: s.maxAttempts,
	})
	if err != nil {
		return update.SwapManual, &update.SwapError{Err: err}
	}

	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return update.SwapManual, &update.SwapError{Err: fmt.Errorf("write helper script: %w", err)}
	}

	if err := s.launcher.Launch(scriptPath); err != nil {
		_ = os.Remove(scriptPath)
		return update.SwapManual, &update.SwapError{Err: err}
	}

	return update.SwapLaunched, nil
}

// Ensure Swapper implements update.Swapper
var _ update.Swapper = (*Swapper)(nil)
