package update

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"video-to-mp3/application/events"
	"video-to-mp3/domain/update"
)

// --- Mock implementations for testing ---

// mockSource implements update.ManifestSource for testing
type mockSource struct {
	manifest   update.Manifest
	shouldFail bool
	failError  error
	calls      int
}

func (m *mockSource) Fetch(ctx context.Context) (update.Manifest, error) {
	m.calls++
	if m.shouldFail {
		return update.Manifest{}, m.failError
	}
	return m.manifest, nil
}

// mockDownloader implements update.Downloader for testing
type mockDownloader struct {
	progress   []float64
	shouldFail bool
	failError  error
	urls       []string
	dests      []string
}

func (m *mockDownloader) Download(ctx context.Context, url, destPath string, onProgress func(float64)) error {
	m.urls = append(m.urls, url)
	m.dests = append(m.dests, destPath)
	for _, f := range m.progress {
		onProgress(f)
	}
	if m.shouldFail {
		return m.failError
	}
	return nil
}

// mockSwapper implements update.Swapper for testing
type mockSwapper struct {
	staged      string
	stagingFail bool
	outcome     update.SwapOutcome
	swapFail    bool
	swapped     []string
}

func (m *mockSwapper) StagingPath() (string, error) {
	if m.stagingFail {
		return "", errors.New("cannot locate executable")
	}
	return m.staged, nil
}

func (m *mockSwapper) Swap(stagedPath string) (update.SwapOutcome, error) {
	m.swapped = append(m.swapped, stagedPath)
	if m.swapFail {
		return update.SwapManual, &update.SwapError{Err: errors.New("permission denied")}
	}
	return m.outcome, nil
}

// recorder collects listener callbacks in delivery order
type recorder struct {
	events []string
	failed []error
}

func (r *recorder) listener() Listener {
	return Listener{
		OnStateChange: func(from, to update.State) {
			r.events = append(r.events, fmt.Sprintf("%s->%s", from, to))
		},
		OnUpdateAvailable: func(m update.Manifest) {
			r.events = append(r.events, "available:"+m.Version)
		},
		OnDownloadProgress: func(f float64) {
			r.events = append(r.events, fmt.Sprintf("progress:%.1f", f))
		},
		OnUpdateComplete: func(staged string) {
			r.events = append(r.events, "complete:"+staged)
		},
		OnUpdateFailed: func(err error) {
			r.events = append(r.events, "failed")
			r.failed = append(r.failed, err)
		},
	}
}

const stagedPath = "/apps/video-to-mp3.new"

var newer = update.Manifest{Version: "1.2.0", URL: "https://example.com/v1.2.0/app", Notes: "faster trims"}

func newTestManager(source update.ManifestSource, dl update.Downloader, sw update.Swapper, rec *recorder, opts ...ManagerOption) *Manager {
	opts = append(opts, WithListener(rec.listener()))
	return NewManager("1.1.0", source, dl, sw, events.Immediate{}, opts...)
}

func TestManager_Check(t *testing.T) {
	tests := []struct {
		name       string
		source     *mockSource
		wantNewer  bool
		wantErr    bool
		wantState  update.State
		wantEvents []string
	}{
		{
			name:       "newer version awaits consent",
			source:     &mockSource{manifest: newer},
			wantNewer:  true,
			wantState:  update.StateAwaitingConsent,
			wantEvents: []string{"idle->checking", "checking->awaiting-consent", "available:1.2.0"},
		},
		{
			name:       "same version returns to idle",
			source:     &mockSource{manifest: update.Manifest{Version: "1.1.0", URL: "x"}},
			wantState:  update.StateIdle,
			wantEvents: []string{"idle->checking", "checking->idle"},
		},
		{
			name:       "multi-digit segment compares numerically",
			source:     &mockSource{manifest: update.Manifest{Version: "1.10.0", URL: "x"}},
			wantNewer:  true,
			wantState:  update.StateAwaitingConsent,
			wantEvents: []string{"idle->checking", "checking->awaiting-consent", "available:1.10.0"},
		},
		{
			name:       "network error is silent",
			source:     &mockSource{shouldFail: true, failError: errors.New("dial tcp: timeout")},
			wantErr:    true,
			wantState:  update.StateIdle,
			wantEvents: []string{"idle->checking", "checking->idle"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := newTestManager(tt.source, &mockDownloader{}, &mockSwapper{}, rec)

			_, gotNewer, err := m.Check(context.Background())

			if tt.wantErr {
				var checkErr *update.UpdateCheckError
				if !errors.As(err, &checkErr) {
					t.Errorf("Check() error = %v, want *UpdateCheckError", err)
				}
			} else if err != nil {
				t.Errorf("Check() unexpected error: %v", err)
			}
			if gotNewer != tt.wantNewer {
				t.Errorf("Check() newer = %v, want %v", gotNewer, tt.wantNewer)
			}
			if m.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", m.State(), tt.wantState)
			}
			if fmt.Sprint(rec.events) != fmt.Sprint(tt.wantEvents) {
				t.Errorf("events = %v\nwant %v", rec.events, tt.wantEvents)
			}
			if len(rec.failed) != 0 {
				t.Errorf("check failure reached the listener: %v", rec.failed)
			}
		})
	}
}

func TestManager_CheckOnlyFromIdle(t *testing.T) {
	rec := &recorder{}
	m := newTestManager(&mockSource{manifest: newer}, &mockDownloader{}, &mockSwapper{}, rec)

	if _, _, err := m.Check(context.Background()); err != nil {
		t.Fatalf("first Check() unexpected error: %v", err)
	}

	_, _, err := m.Check(context.Background())
	var transErr *update.TransitionError
	if !errors.As(err, &transErr) {
		t.Errorf("second Check() error = %v, want *TransitionError", err)
	}
	if m.State() != update.StateAwaitingConsent {
		t.Errorf("State() = %s, want awaiting-consent", m.State())
	}
}

func TestManager_Decline(t *testing.T) {
	rec := &recorder{}
	dl := &mockDownloader{}
	m := newTestManager(&mockSource{manifest: newer}, dl, &mockSwapper{}, rec)

	if err := m.Decline(); err == nil {
		t.Errorf("Decline() from idle expected error")
	}

	if _, _, err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if err := m.Decline(); err != nil {
		t.Fatalf("Decline() unexpected error: %v", err)
	}
	if m.State() != update.StateIdle {
		t.Errorf("State() = %s, want idle", m.State())
	}
	if len(dl.urls) != 0 {
		t.Errorf("declined update was downloaded")
	}
}

func TestManager_Install(t *testing.T) {
	tests := []struct {
		name        string
		downloader  *mockDownloader
		swapper     *mockSwapper
		url         string
		wantOutcome update.SwapOutcome
		wantErr     bool
		wantErrType any
		wantState   update.State
		wantExit    bool
		wantEvents  []string
	}{
		{
			name:        "packaged binary launches helper and exits",
			downloader:  &mockDownloader{progress: []float64{0.5, 1}},
			swapper:     &mockSwapper{staged: stagedPath, outcome: update.SwapLaunched},
			wantOutcome: update.SwapLaunched,
			wantState:   update.StateSwapping,
			wantExit:    true,
			wantEvents: []string{
				"awaiting-consent->downloading", "progress:0.5", "progress:1.0",
				"downloading->ready-to-swap", "ready-to-swap->swapping", "exit",
			},
		},
		{
			name:        "source build needs manual replacement",
			downloader:  &mockDownloader{progress: []float64{1}},
			swapper:     &mockSwapper{staged: stagedPath, outcome: update.SwapManual},
			wantOutcome: update.SwapManual,
			wantState:   update.StateIdle,
			wantEvents: []string{
				"awaiting-consent->downloading", "progress:1.0",
				"downloading->ready-to-swap", "ready-to-swap->idle", "complete:" + stagedPath,
			},
		},
		{
			name:        "download failure",
			downloader:  &mockDownloader{progress: []float64{0.3}, shouldFail: true, failError: errors.New("unexpected status 404")},
			swapper:     &mockSwapper{staged: stagedPath},
			wantOutcome: update.SwapManual,
			wantErr:     true,
			wantErrType: &update.UpdateDownloadError{},
			wantState:   update.StateFailed,
			wantEvents: []string{
				"awaiting-consent->downloading", "progress:0.3", "downloading->failed", "failed",
			},
		},
		{
			name:        "swap failure",
			downloader:  &mockDownloader{},
			swapper:     &mockSwapper{staged: stagedPath, swapFail: true},
			wantOutcome: update.SwapManual,
			wantErr:     true,
			wantErrType: &update.SwapError{},
			wantState:   update.StateFailed,
			wantEvents: []string{
				"awaiting-consent->downloading", "downloading->ready-to-swap",
				"ready-to-swap->swapping", "swapping->failed", "failed",
			},
		},
		{
			name:        "explicit url overrides manifest",
			downloader:  &mockDownloader{},
			swapper:     &mockSwapper{staged: stagedPath, outcome: update.SwapManual},
			url:         "https://mirror.example.com/app",
			wantOutcome: update.SwapManual,
			wantState:   update.StateIdle,
			wantEvents: []string{
				"awaiting-consent->downloading", "downloading->ready-to-swap",
				"ready-to-swap->idle", "complete:" + stagedPath,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			exited := false
			m := newTestManager(&mockSource{manifest: newer}, tt.downloader, tt.swapper, rec,
				WithExitHook(func() {
					exited = true
					rec.events = append(rec.events, "exit")
				}))

			if _, _, err := m.Check(context.Background()); err != nil {
				t.Fatalf("Check() unexpected error: %v", err)
			}
			rec.events = nil

			outcome, err := m.Install(context.Background(), tt.url)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Install() expected error, got nil")
				}
				switch tt.wantErrType.(type) {
				case *update.UpdateDownloadError:
					var target *update.UpdateDownloadError
					if !errors.As(err, &target) {
						t.Errorf("Install() error = %v, want *UpdateDownloadError", err)
					}
				case *update.SwapError:
					var target *update.SwapError
					if !errors.As(err, &target) {
						t.Errorf("Install() error = %v, want *SwapError", err)
					}
				}
				if len(rec.failed) != 1 || rec.failed[0] != err {
					t.Errorf("OnUpdateFailed got %v, want the returned error", rec.failed)
				}
			} else if err != nil {
				t.Errorf("Install() unexpected error: %v", err)
			}

			if outcome != tt.wantOutcome {
				t.Errorf("Install() outcome = %v, want %v", outcome, tt.wantOutcome)
			}
			if m.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", m.State(), tt.wantState)
			}
			if exited != tt.wantExit {
				t.Errorf("exit hook ran = %v, want %v", exited, tt.wantExit)
			}
			if fmt.Sprint(rec.events) != fmt.Sprint(tt.wantEvents) {
				t.Errorf("events = %v\nwant %v", rec.events, tt.wantEvents)
			}

			wantURL := newer.URL
			if tt.url != "" {
				wantURL = tt.url
			}
			if len(tt.downloader.urls) != 1 || tt.downloader.urls[0] != wantURL || tt.downloader.dests[0] != stagedPath {
				t.Errorf("download calls = %v -> %v, want %s -> %s", tt.downloader.urls, tt.downloader.dests, wantURL, stagedPath)
			}
		})
	}
}

func TestManager_FailedThenAcknowledge(t *testing.T) {
	rec := &recorder{}
	source := &mockSource{manifest: newer}
	m := newTestManager(source, &mockDownloader{shouldFail: true, failError: errors.New("reset")}, &mockSwapper{staged: stagedPath}, rec)

	if _, _, err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if _, err := m.Install(context.Background(), ""); err == nil {
		t.Fatalf("Install() expected error")
	}
	if _, _, err := m.Check(context.Background()); err == nil {
		t.Errorf("Check() while failed expected error")
	}

	if err := m.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge() unexpected error: %v", err)
	}
	if m.State() != update.StateIdle {
		t.Errorf("State() = %s, want idle", m.State())
	}
	if _, _, err := m.Check(context.Background()); err != nil {
		t.Errorf("Check() after acknowledge unexpected error: %v", err)
	}
}

func TestManager_InstallRequiresConsentState(t *testing.T) {
	rec := &recorder{}
	dl := &mockDownloader{}
	m := newTestManager(&mockSource{manifest: newer}, dl, &mockSwapper{staged: stagedPath}, rec)

	if _, err := m.Install(context.Background(), "https://example.com/app"); err == nil {
		t.Errorf("Install() from idle expected error")
	}
	if len(dl.urls) != 0 {
		t.Errorf("download started without consent")
	}
}

func TestManager_BeginDownloadRunsInBackground(t *testing.T) {
	d := events.NewDispatcher()
	rec := &recorder{}
	m := NewManager("1.1.0", &mockSource{manifest: newer}, &mockDownloader{progress: []float64{1}},
		&mockSwapper{staged: stagedPath, outcome: update.SwapManual}, d, WithListener(rec.listener()))

	if _, _, err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if err := m.BeginDownload(context.Background(), ""); err != nil {
		t.Fatalf("BeginDownload() unexpected error: %v", err)
	}
	if err := m.BeginDownload(context.Background(), ""); err == nil {
		t.Errorf("second BeginDownload() expected error")
	}

	deadline := time.After(5 * time.Second)
	for len(rec.events) == 0 || rec.events[len(rec.events)-1] != "complete:"+stagedPath {
		select {
		case <-deadline:
			t.Fatalf("download did not finish, state %s, events %v", m.State(), rec.events)
		case <-time.After(5 * time.Millisecond):
			d.Drain()
		}
	}

	if m.State() != update.StateIdle {
		t.Errorf("State() = %s, want idle", m.State())
	}
}

func TestManager_ScheduleCheck(t *testing.T) {
	d := events.NewDispatcher()
	found := make(chan update.Manifest, 1)
	m := NewManager("1.1.0", &mockSource{manifest: newer}, &mockDownloader{}, &mockSwapper{}, d,
		WithListener(Listener{OnUpdateAvailable: func(mf update.Manifest) { found <- mf }}))

	m.ScheduleCheck(context.Background(), 10*time.Millisecond)

	deadline := time.After(5 * time.Second)
	for {
		d.Drain()
		select {
		case mf := <-found:
			if mf.Version != newer.Version {
				t.Errorf("offered %s, want %s", mf.Version, newer.Version)
			}
			if m.Offered().Notes != newer.Notes {
				t.Errorf("Offered().Notes = %q", m.Offered().Notes)
			}
			return
		case <-deadline:
			t.Fatal("scheduled check never offered the update")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_Busy(t *testing.T) {
	rec := &recorder{}
	m := newTestManager(&mockSource{manifest: newer}, &mockDownloader{}, &mockSwapper{}, rec)
	if m.Busy() {
		t.Errorf("Busy() = true while idle")
	}
	if _, _, err := m.Check(context.Background()); err != nil {
		t.Fatalf("Check() unexpected error: %v", err)
	}
	if m.Busy() {
		t.Errorf("Busy() = true while awaiting consent")
	}
}
