package process

import (
	"context"
	"errors"
	"sync"
	"time"

	appconv "video-to-mp3/application/conversion"
	appupdate "video-to-mp3/application/update"
	"video-to-mp3/domain/conversion"
	"video-to-mp3/domain/update"
)

// ErrUpdateInProgress is returned when a conversion is requested while an
// update is downloading or swapping
var ErrUpdateInProgress = errors.New("an update is being installed")

// ErrUpdatesDisabled is returned by update calls on a service built without
// an update manager
var ErrUpdatesDisabled = errors.New("updates are disabled")

// OutputDirSource supplies the current output directory
type OutputDirSource interface {
	OutputDir() string
}

// Input is the user's form state when a conversion is requested
type Input struct {
	Mode     conversion.Mode // explicit link or file mode
	URLText  string          // link field contents, placeholder included
	FilePath string          // selected file, empty if none
	AutoTrim bool            // trim the tail only when enabled
	TrimText string          // trim seconds as typed; "3,5" and "3.5" both work
}

// Service is the API the presentation layer talks to. Every callback it
// registers is delivered through the presentation loop.
type Service struct {
	orchestrator *appconv.Orchestrator
	updates      *appupdate.Manager
	files        conversion.FileChecker
	settings     OutputDirSource

	mu         sync.Mutex
	onProgress func(conversion.ProgressEvent)
	onStatus   func(jobID string, status conversion.Status)
	onComplete func(conversion.JobResult)
	updateL    appupdate.Listener
}

// NewService creates a new process service
func NewService(
	orchestrator *appconv.Orchestrator,
	updates *appupdate.Manager,
	files conversion.FileChecker,
	settings OutputDirSource,
) *Service {
	return &Service{
		orchestrator: orchestrator,
		updates:      updates,
		files:        files,
		settings:     settings,
	}
}

// ResolveAndStartJob validates the form and starts a background conversion.
// A *conversion.ValidationError means no job was started.
func (s *Service) ResolveAndStartJob(ctx context.Context, input Input) (string, error) {
	if s.updates != nil && s.updates.Busy() {
		return "", ErrUpdateInProgress
	}

	req, err := conversion.Resolve(conversion.ResolveInput{
		Mode:      input.Mode,
		URLText:   input.URLText,
		FilePath:  input.FilePath,
		AutoTrim:  input.AutoTrim,
		TrimText:  input.TrimText,
		OutputDir: s.settings.OutputDir(),
	}, s.files)
	if err != nil {
		return "", err
	}

	return s.orchestrator.Start(ctx, req, s.jobListener())
}

// JobRunning reports whether a conversion is in flight
func (s *Service) JobRunning() bool {
	return s.orchestrator.Running()
}

// OnProgress registers the progress callback
func (s *Service) OnProgress(fn func(conversion.ProgressEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// OnStatus registers the stage callback
func (s *Service) OnStatus(fn func(jobID string, status conversion.Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// OnJobComplete registers the result callback
func (s *Service) OnJobComplete(fn func(conversion.JobResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

func (s *Service) jobListener() appconv.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appconv.Listener{
		OnStatus:   s.onStatus,
		OnProgress: s.onProgress,
		OnComplete: s.onComplete,
	}
}

// CheckForUpdate polls the manifest once after delay in the background.
// Failures are logged by the update manager and never reported.
func (s *Service) CheckForUpdate(ctx context.Context, delay time.Duration) *time.Timer {
	if s.updates == nil {
		return time.NewTimer(0)
	}
	return s.updates.ScheduleCheck(ctx, delay)
}

// OnUpdateAvailable registers the callback for a newer version
func (s *Service) OnUpdateAvailable(fn func(update.Manifest)) {
	s.setUpdateListener(func(l *appupdate.Listener) { l.OnUpdateAvailable = fn })
}

// OnUpdateProgress registers the download progress callback
func (s *Service) OnUpdateProgress(fn func(fraction float64)) {
	s.setUpdateListener(func(l *appupdate.Listener) { l.OnDownloadProgress = fn })
}

// OnUpdateComplete registers the callback for a staged binary that must be
// put in place by hand
func (s *Service) OnUpdateComplete(fn func(stagedPath string)) {
	s.setUpdateListener(func(l *appupdate.Listener) { l.OnUpdateComplete = fn })
}

// OnUpdateFailed registers the callback for download and swap failures
func (s *Service) OnUpdateFailed(fn func(err error)) {
	s.setUpdateListener(func(l *appupdate.Listener) { l.OnUpdateFailed = fn })
}

func (s *Service) setUpdateListener(set func(*appupdate.Listener)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set(&s.updateL)
	if s.updates != nil {
		s.updates.SetListener(s.updateL)
	}
}

// BeginUpdateDownload accepts the offered update. An empty url uses the
// manifest's url.
func (s *Service) BeginUpdateDownload(ctx context.Context, url string) error {
	if s.orchestrator.Running() {
		return appconv.ErrJobAlreadyRunning
	}
	if s.updates == nil {
		return ErrUpdatesDisabled
	}
	return s.updates.BeginDownload(ctx, url)
}

// DeclineUpdate dismisses the offered update
func (s *Service) DeclineUpdate() error {
	if s.updates == nil {
		return ErrUpdatesDisabled
	}
	return s.updates.Decline()
}

// AcknowledgeUpdateFailure clears a failed update
func (s *Service) AcknowledgeUpdateFailure() error {
	if s.updates == nil {
		return ErrUpdatesDisabled
	}
	return s.updates.Acknowledge()
}
