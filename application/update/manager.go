package update

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"video-to-mp3/application/events"
	"video-to-mp3/domain/conversion"
	"video-to-mp3/domain/update"
)

// DefaultCheckDelay is how long after startup the one-shot check fires
const DefaultCheckDelay = time.Second

// ErrNoDownloadURL is returned when neither the caller nor the offered
// manifest names a binary to download
var ErrNoDownloadURL = errors.New("no download url")

// Listener receives update notifications through the manager's Poster
type Listener struct {
	OnStateChange      func(from, to update.State)
	OnUpdateAvailable  func(manifest update.Manifest)
	OnDownloadProgress func(fraction float64)
	// OnUpdateComplete fires when the binary was staged but the running
	// program is not a packaged binary and must be replaced by hand
	OnUpdateComplete func(stagedPath string)
	OnUpdateFailed   func(err error)
}

// Manager drives the check, consent, download and swap flow
type Manager struct {
	current    string
	source     update.ManifestSource
	downloader update.Downloader
	swapper    update.Swapper
	poster     events.Poster
	logger     *log.Logger
	exit       func()

	mu       sync.Mutex
	state    update.State
	offered  update.Manifest
	listener Listener
}

// ManagerOption is a functional option for configuring Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger used for silent check failures
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithExitHook sets the function posted once the replace helper is running.
// It should end the process.
func WithExitHook(fn func()) ManagerOption {
	return func(m *Manager) {
		m.exit = fn
	}
}

// WithListener sets the initial listener
func WithListener(l Listener) ManagerOption {
	return func(m *Manager) {
		m.listener = l
	}
}

// NewManager creates a manager for the running version current
func NewManager(
	current string,
	source update.ManifestSource,
	downloader update.Downloader,
	swapper update.Swapper,
	poster events.Poster,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		current:    current,
		source:     source,
		downloader: downloader,
		swapper:    swapper,
		poster:     poster,
		logger:     log.New(io.Discard, "", 0),
		state:      update.StateIdle,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetListener replaces the listener
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// CurrentVersion returns the running version
func (m *Manager) CurrentVersion() string {
	return m.current
}

// State returns the current state
func (m *Manager) State() update.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Offered returns the manifest of the last newer version found
func (m *Manager) Offered() update.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offered
}

// Busy reports whether a download or swap is under way
func (m *Manager) Busy() bool {
	switch m.State() {
	case update.StateDownloading, update.StateReadyToSwap, update.StateSwapping:
		return true
	}
	return false
}

// ScheduleCheck runs Check once after delay on its own goroutine
func (m *Manager) ScheduleCheck(ctx context.Context, delay time.Duration) *time.Timer {
	return time.AfterFunc(delay, func() {
		// failures are logged by Check
		_, _, _ = m.Check(ctx)
	})
}

// Check fetches the manifest and offers the update when it is newer.
// Check failures are returned as *UpdateCheckError and logged, but never
// reach the listener.
func (m *Manager) Check(ctx context.Context) (update.Manifest, bool, error) {
	if err := m.transition(update.StateIdle, update.StateChecking); err != nil {
		return update.Manifest{}, false, err
	}

	manifest, err := m.source.Fetch(ctx)
	if err != nil {
		checkErr := &update.UpdateCheckError{Err: err}
		m.logger.Printf("%v", checkErr)
		m.mustTransition(update.StateChecking, update.StateIdle)
		return update.Manifest{}, false, checkErr
	}

	if !update.IsNewer(manifest.Version, m.current) {
		m.logger.Printf("up to date: running %s, latest %s", m.current, manifest.Version)
		m.mustTransition(update.StateChecking, update.StateIdle)
		return manifest, false, nil
	}

	m.mu.Lock()
	m.offered = manifest
	m.mu.Unlock()

	m.mustTransition(update.StateChecking, update.StateAwaitingConsent)
	m.notify(func(l Listener) {
		if l.OnUpdateAvailable != nil {
			l.OnUpdateAvailable(manifest)
		}
	})
	return manifest, true, nil
}

// Decline rejects the offered update
func (m *Manager) Decline() error {
	return m.transition(update.StateAwaitingConsent, update.StateIdle)
}

// Acknowledge clears a failed update
func (m *Manager) Acknowledge() error {
	return m.transition(update.StateFailed, update.StateIdle)
}

// BeginDownload accepts the offered update and installs it on a new
// goroutine. An empty url means the offered manifest's url.
func (m *Manager) BeginDownload(ctx context.Context, url string) error {
	url, err := m.accept(url)
	if err != nil {
		return err
	}

	go func() {
		// the outcome reaches the listener
		_, _ = m.install(ctx, url)
	}()
	return nil
}

// Install accepts the offered update and installs it on the calling
// goroutine. Listener callbacks are still posted.
func (m *Manager) Install(ctx context.Context, url string) (update.SwapOutcome, error) {
	url, err := m.accept(url)
	if err != nil {
		return update.SwapManual, err
	}
	return m.install(ctx, url)
}

func (m *Manager) accept(url string) (string, error) {
	m.mu.Lock()
	if strings.TrimSpace(url) == "" {
		url = m.offered.URL
	}
	m.mu.Unlock()

	if strings.TrimSpace(url) == "" {
		return "", ErrNoDownloadURL
	}
	if err := m.transition(update.StateAwaitingConsent, update.StateDownloading); err != nil {
		return "", err
	}
	return url, nil
}

func (m *Manager) install(ctx context.Context, url string) (update.SwapOutcome, error) {
	staged, err := m.swapper.StagingPath()
	if err != nil {
		return update.SwapManual, m.fail(update.StateDownloading, &update.UpdateDownloadError{URL: url, Err: err})
	}

	err = m.downloader.Download(ctx, url, staged, func(f float64) {
		f = conversion.ClampFraction(f)
		m.notify(func(l Listener) {
			if l.OnDownloadProgress != nil {
				l.OnDownloadProgress(f)
			}
		})
	})
	if err != nil {
		return update.SwapManual, m.fail(update.StateDownloading, &update.UpdateDownloadError{URL: url, Err: err})
	}

	m.mustTransition(update.StateDownloading, update.StateReadyToSwap)

	outcome, err := m.swapper.Swap(staged)
	if err != nil {
		m.mustTransition(update.StateReadyToSwap, update.StateSwapping)
		var swapErr *update.SwapError
		if !errors.As(err, &swapErr) {
			err = &update.SwapError{Err: err}
		}
		return update.SwapManual, m.fail(update.StateSwapping, err)
	}

	if outcome == update.SwapManual {
		m.logger.Printf("staged %s; replace the executable by hand", staged)
		m.mustTransition(update.StateReadyToSwap, update.StateIdle)
		m.notify(func(l Listener) {
			if l.OnUpdateComplete != nil {
				l.OnUpdateComplete(staged)
			}
		})
		return outcome, nil
	}

	m.mustTransition(update.StateReadyToSwap, update.StateSwapping)
	if m.exit != nil {
		m.poster.Post(m.exit)
	}
	return outcome, nil
}

func (m *Manager) fail(from update.State, err error) error {
	m.logger.Printf("%v", err)
	m.mustTransition(from, update.StateFailed)
	m.notify(func(l Listener) {
		if l.OnUpdateFailed != nil {
			l.OnUpdateFailed(err)
		}
	})
	return err
}

// transition moves from -> to when the manager is in from and the move is legal
func (m *Manager) transition(from, to update.State) error {
	m.mu.Lock()
	if m.state != from || !update.CanTransition(from, to) {
		err := &update.TransitionError{From: m.state, To: to}
		m.mu.Unlock()
		return err
	}
	m.state = to
	m.mu.Unlock()

	m.notify(func(l Listener) {
		if l.OnStateChange != nil {
			l.OnStateChange(from, to)
		}
	})
	return nil
}

// mustTransition is used for moves only the owning goroutine can make
func (m *Manager) mustTransition(from, to update.State) {
	if err := m.transition(from, to); err != nil {
		m.logger.Printf("%v", err)
	}
}

func (m *Manager) notify(fn func(Listener)) {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	m.poster.Post(func() { fn(l) })
}
