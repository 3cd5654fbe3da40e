package conversion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"video-to-mp3/application/events"
	"video-to-mp3/domain/conversion"
)

// --- Mock implementations for testing ---

// mockFetcher implements conversion.RemoteFetcher for testing
type mockFetcher struct {
	title      string
	shouldFail bool
	failError  error
	calls      []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url, destPath string) (conversion.FetchedMedia, error) {
	m.calls = append(m.calls, url)
	if m.shouldFail {
		return conversion.FetchedMedia{}, m.failError
	}
	return conversion.FetchedMedia{LocalPath: destPath, Title: m.title}, nil
}

// mockExtractor implements conversion.AudioExtractor for testing
type mockExtractor struct {
	progress   []float64
	clip       float64
	shouldFail bool
	failError  error
	panicWith  any
	block      chan struct{}

	sources []string
	outputs []string
	trims   []*float64
}

func (m *mockExtractor) Extract(ctx context.Context, src, out string, trim *float64, onProgress conversion.ProgressFunc) (conversion.EncodedResult, error) {
	m.sources = append(m.sources, src)
	m.outputs = append(m.outputs, out)
	m.trims = append(m.trims, trim)

	if m.block != nil {
		<-m.block
	}
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	for _, f := range m.progress {
		onProgress(f)
	}
	if m.shouldFail {
		return conversion.EncodedResult{}, m.failError
	}
	return conversion.EncodedResult{OutputPath: out, SourceSeconds: 10, ClipSeconds: m.clip}, nil
}

// mockRemover implements TempRemover for testing
type mockRemover struct {
	mu      sync.Mutex
	removed []string
}

func (m *mockRemover) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return nil
}

// recorder collects listener callbacks in delivery order
type recorder struct {
	events  []string
	results []conversion.JobResult
}

func (r *recorder) listener() Listener {
	return Listener{
		OnStatus: func(id string, s conversion.Status) {
			r.events = append(r.events, "status:"+string(s))
		},
		OnProgress: func(ev conversion.ProgressEvent) {
			r.events = append(r.events, fmt.Sprintf("progress:%.2f", ev.Fraction))
		},
		OnComplete: func(res conversion.JobResult) {
			r.events = append(r.events, "complete")
			r.results = append(r.results, res)
		},
	}
}

func fixedID() string { return "job-1" }

const tempPath = "/data/remote_temp.mp4"

func TestOrchestrator_Run(t *testing.T) {
	trim := 3.0

	tests := []struct {
		name        string
		req         conversion.Request
		fetcher     *mockFetcher
		extractor   *mockExtractor
		wantSuccess bool
		wantOutput  string
		wantMessage string
		wantWarning string
		wantSource  string
		wantRemoved []string
		wantEvents  []string
	}{
		{
			name:        "remote source",
			req:         conversion.Request{Kind: conversion.SourceRemote, Ref: "https://example.com/v", OutputDir: "/out", Trim: &trim},
			fetcher:     &mockFetcher{title: "Cool Video 1 2024"},
			extractor:   &mockExtractor{progress: []float64{0.25, 0.5, 1}, clip: 7},
			wantSuccess: true,
			wantOutput:  "/out/Cool Video 1 2024.mp3",
			wantSource:  tempPath,
			wantRemoved: []string{tempPath},
			wantEvents: []string{
				"status:fetching", "status:extracting",
				"progress:0.25", "progress:0.50", "progress:1.00",
				"status:cleaning", "complete",
			},
		},
		{
			name:        "local source",
			req:         conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/holiday.mov", OutputDir: "/out"},
			fetcher:     &mockFetcher{},
			extractor:   &mockExtractor{progress: []float64{1}, clip: 10},
			wantSuccess: true,
			wantOutput:  "/out/holiday.mp3",
			wantSource:  "/videos/holiday.mov",
			wantEvents:  []string{"status:extracting", "progress:1.00", "complete"},
		},
		{
			name:        "fetch failure still cleans temp",
			req:         conversion.Request{Kind: conversion.SourceRemote, Ref: "https://example.com/v", OutputDir: "/out"},
			fetcher:     &mockFetcher{shouldFail: true, failError: &conversion.FetchError{Detail: "Unsupported URL"}},
			extractor:   &mockExtractor{},
			wantMessage: "fetch failed: Unsupported URL",
			wantRemoved: []string{tempPath},
			wantEvents:  []string{"status:fetching", "status:cleaning", "complete"},
		},
		{
			name:        "extract failure still cleans temp",
			req:         conversion.Request{Kind: conversion.SourceRemote, Ref: "https://example.com/v", OutputDir: "/out"},
			fetcher:     &mockFetcher{title: "clip"},
			extractor:   &mockExtractor{progress: []float64{0.1}, shouldFail: true, failError: conversion.NewDecodeError("", errors.New("bad"))},
			wantMessage: "decode failed",
			wantSource:  tempPath,
			wantRemoved: []string{tempPath},
			wantEvents:  []string{"status:fetching", "status:extracting", "progress:0.10", "status:cleaning", "complete"},
		},
		{
			name:        "out of range progress is clamped",
			req:         conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/a.mp4", OutputDir: "/out"},
			fetcher:     &mockFetcher{},
			extractor:   &mockExtractor{progress: []float64{-0.3, 0.6, 0.4, 1.8}, clip: 10},
			wantSuccess: true,
			wantOutput:  "/out/a.mp3",
			wantSource:  "/videos/a.mp4",
			wantEvents:  []string{"status:extracting", "progress:0.00", "progress:0.60", "progress:0.40", "progress:1.00", "complete"},
		},
		{
			name:        "empty clip is a warning",
			req:         conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/a.mp4", OutputDir: "/out", Trim: &trim},
			fetcher:     &mockFetcher{},
			extractor:   &mockExtractor{progress: []float64{1}, clip: 0},
			wantSuccess: true,
			wantOutput:  "/out/a.mp3",
			wantWarning: EmptyClipWarning,
			wantSource:  "/videos/a.mp4",
			wantEvents:  []string{"status:extracting", "progress:1.00", "complete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remover := &mockRemover{}
			o := NewOrchestrator(tt.fetcher, tt.extractor, remover, events.Immediate{}, tempPath, WithIDGenerator(fixedID))
			rec := &recorder{}

			got, err := o.Run(context.Background(), tt.req, rec.listener())
			if err != nil {
				t.Fatalf("Run() unexpected error: %v", err)
			}

			if got.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v (message %q)", got.Success, tt.wantSuccess, got.Message)
			}
			if got.OutputPath != tt.wantOutput {
				t.Errorf("OutputPath = %q, want %q", got.OutputPath, tt.wantOutput)
			}
			if tt.wantMessage != "" && !contains(got.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want containing %q", got.Message, tt.wantMessage)
			}
			if got.Warning != tt.wantWarning {
				t.Errorf("Warning = %q, want %q", got.Warning, tt.wantWarning)
			}
			if tt.wantSource != "" && (len(tt.extractor.sources) != 1 || tt.extractor.sources[0] != tt.wantSource) {
				t.Errorf("extractor sources = %v, want [%s]", tt.extractor.sources, tt.wantSource)
			}
			if fmt.Sprint(remover.removed) != fmt.Sprint(tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", remover.removed, tt.wantRemoved)
			}
			if fmt.Sprint(rec.events) != fmt.Sprint(tt.wantEvents) {
				t.Errorf("events = %v\nwant %v", rec.events, tt.wantEvents)
			}
			if len(rec.results) != 1 || rec.results[0] != got {
				t.Errorf("OnComplete results = %+v, want exactly the returned result", rec.results)
			}
			if o.Running() {
				t.Errorf("slot still held after completion")
			}
		})
	}
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	extractor := &mockExtractor{progress: []float64{0.5, 1}, clip: 5, block: block}
	d := events.NewDispatcher()
	o := NewOrchestrator(&mockFetcher{}, extractor, &mockRemover{}, d, tempPath)

	rec := &recorder{}
	req := conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/a.mp4", OutputDir: "/out"}

	firstID, err := o.Start(context.Background(), req, rec.listener())
	if err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}

	// Concurrent starts while the first job is in flight are all rejected
	var wg sync.WaitGroup
	rejected := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Start(context.Background(), req, rec.listener())
			rejected <- err
		}()
	}
	wg.Wait()
	close(rejected)
	for err := range rejected {
		if !errors.Is(err, ErrJobAlreadyRunning) {
			t.Errorf("concurrent Start() error = %v, want ErrJobAlreadyRunning", err)
		}
	}

	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for len(rec.results) == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("job did not complete")
		case <-time.After(5 * time.Millisecond):
			d.Drain()
		}
	}

	if len(rec.results) != 1 || rec.results[0].JobID != firstID || !rec.results[0].Success {
		t.Fatalf("results = %+v, want one successful result for %s", rec.results, firstID)
	}
	if last := rec.events[len(rec.events)-1]; last != "complete" {
		t.Errorf("last event = %q, want complete after all progress", last)
	}
	if o.Running() {
		t.Errorf("slot still held after completion was delivered")
	}

	// The slot is free again
	if _, err := o.Start(context.Background(), req, Listener{}); err != nil {
		t.Errorf("Start() after completion error = %v", err)
	}
}

func TestOrchestrator_SlotHeldUntilCompletionDelivered(t *testing.T) {
	d := events.NewDispatcher()
	o := NewOrchestrator(&mockFetcher{}, &mockExtractor{clip: 1}, &mockRemover{}, d, tempPath)
	req := conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/a.mp4", OutputDir: "/out"}

	if _, err := o.Run(context.Background(), req, Listener{}); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !o.Running() {
		t.Fatalf("slot released before the completion callback ran")
	}
	if _, err := o.Run(context.Background(), req, Listener{}); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Errorf("Run() before delivery error = %v, want ErrJobAlreadyRunning", err)
	}

	d.Drain()
	if o.Running() {
		t.Errorf("slot still held after completion was delivered")
	}
}

func TestOrchestrator_SlotReleasedWhenLoopClosed(t *testing.T) {
	d := events.NewDispatcher()
	d.Close()
	o := NewOrchestrator(&mockFetcher{}, &mockExtractor{clip: 1}, &mockRemover{}, d, tempPath)
	req := conversion.Request{Kind: conversion.SourceLocalFile, Ref: "/videos/a.mp4", OutputDir: "/out"}

	got, err := o.Run(context.Background(), req, Listener{})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !got.Success {
		t.Errorf("result = %+v, want success", got)
	}
	if o.Running() {
		t.Errorf("slot still held after the completion was dropped")
	}
	if _, err := o.Run(context.Background(), req, Listener{}); err != nil {
		t.Errorf("Run() after dropped completion error = %v", err)
	}
}

func TestOrchestrator_PanicBecomesFailedResult(t *testing.T) {
	remover := &mockRemover{}
	o := NewOrchestrator(&mockFetcher{title: "x"}, &mockExtractor{panicWith: "boom"}, remover, events.Immediate{}, tempPath)
	rec := &recorder{}

	got, err := o.Run(context.Background(), conversion.Request{Kind: conversion.SourceRemote, Ref: "https://example.com/v", OutputDir: "/out"}, rec.listener())
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if got.Success || !contains(got.Message, "internal error: boom") {
		t.Errorf("result = %+v, want failed with internal error", got)
	}
	if len(rec.results) != 1 {
		t.Errorf("OnComplete called %d times, want 1", len(rec.results))
	}
	if len(remover.removed) != 1 {
		t.Errorf("temp media not removed after panic: %v", remover.removed)
	}
	if o.Running() {
		t.Errorf("slot still held after panic")
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
