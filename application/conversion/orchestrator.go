package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"video-to-mp3/application/events"
	"video-to-mp3/domain/conversion"
)

// ErrJobAlreadyRunning is returned when a conversion is started while
// a previous one has not delivered its result yet
var ErrJobAlreadyRunning = errors.New("a conversion is already running")

// EmptyClipWarning accompanies a result whose trim removed the whole clip
const EmptyClipWarning = "the trim removed the whole clip; the MP3 is empty"

// TempRemover deletes downloaded media
type TempRemover interface {
	Remove(path string) error
}

// Listener receives job notifications. Every callback runs through the
// orchestrator's Poster, never on the worker goroutine.
type Listener struct {
	OnStatus   func(jobID string, status conversion.Status)
	OnProgress func(event conversion.ProgressEvent)
	OnComplete func(result conversion.JobResult)
}

// Orchestrator runs one conversion at a time on a background goroutine.
// The slot frees when the completion callback runs on the presentation
// loop, or right away if the loop no longer accepts callbacks.
type Orchestrator struct {
	fetcher   conversion.RemoteFetcher
	extractor conversion.AudioExtractor
	remover   TempRemover
	poster    events.Poster
	tempPath  string
	logger    *log.Logger
	newID     func() string

	mu        sync.Mutex
	running   bool
	currentID string
}

// OrchestratorOption is a functional option for configuring Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger used for background diagnostics
func WithLogger(l *log.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIDGenerator sets a custom job ID generator (for testing)
func WithIDGenerator(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// NewOrchestrator creates an orchestrator. Remote media is downloaded to tempPath.
func NewOrchestrator(
	fetcher conversion.RemoteFetcher,
	extractor conversion.AudioExtractor,
	remover TempRemover,
	poster events.Poster,
	tempPath string,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		remover:   remover,
		poster:    poster,
		tempPath:  tempPath,
		logger:    log.New(io.Discard, "", 0),
		newID:     newJobID,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "job-" + uuid.NewString()
	}
	return "job-" + id.String()
}

// Running reports whether a job is in flight
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start launches req on a new goroutine and returns its job ID
func (o *Orchestrator) Start(ctx context.Context, req conversion.Request, l Listener) (string, error) {
	id, err := o.acquire()
	if err != nil {
		return "", err
	}

	go o.execute(ctx, id, req, l)
	return id, nil
}

// Run executes req on the calling goroutine. The result is also delivered
// to l.OnComplete through the Poster, which releases the slot.
func (o *Orchestrator) Run(ctx context.Context, req conversion.Request, l Listener) (conversion.JobResult, error) {
	id, err := o.acquire()
	if err != nil {
		return conversion.JobResult{}, err
	}
	return o.execute(ctx, id, req, l), nil
}

func (o *Orchestrator) acquire() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return "", fmt.Errorf("%w: %s", ErrJobAlreadyRunning, o.currentID)
	}
	o.running = true
	o.currentID = o.newID()
	return o.currentID, nil
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running && o.currentID == id {
		o.running = false
		o.currentID = ""
	}
}

// execute never panics past this point and posts exactly one completion
func (o *Orchestrator) execute(ctx context.Context, id string, req conversion.Request, l Listener) (result conversion.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("job %s panicked: %v", id, r)
			result = conversion.Failed(id, fmt.Errorf("internal error: %v", r))
		}

		final := result
		accepted := o.poster.Post(func() {
			o.release(id)
			if l.OnComplete != nil {
				l.OnComplete(final)
			}
		})
		if !accepted {
			o.logger.Printf("job %s: completion dropped, presentation loop closed", id)
			o.release(id)
		}
	}()

	return o.convert(ctx, id, req, l)
}

func (o *Orchestrator) convert(ctx context.Context, id string, req conversion.Request, l Listener) conversion.JobResult {
	source := req.Ref
	title := req.LocalTitle()

	if req.Kind == conversion.SourceRemote {
		o.status(id, conversion.StatusFetching, l)
		media, err := o.fetcher.Fetch(ctx, req.Ref, o.tempPath)
		if err != nil {
			o.logger.Printf("job %s: %v", id, err)
			o.removeTemp(id, o.tempPath, l)
			return conversion.Failed(id, err)
		}
		defer o.removeTemp(id, media.LocalPath, l)

		source = media.LocalPath
		title = media.Title
	}

	o.status(id, conversion.StatusExtracting, l)
	outputPath := req.OutputPath(title)
	encoded, err := o.extractor.Extract(ctx, source, outputPath, req.Trim, func(f float64) {
		o.progress(id, f, l)
	})
	if err != nil {
		o.logger.Printf("job %s: %v", id, err)
		return conversion.Failed(id, err)
	}

	result := conversion.Succeeded(id, outputPath)
	if encoded.Empty() {
		result.Warning = EmptyClipWarning
	}
	return result
}

func (o *Orchestrator) removeTemp(id, path string, l Listener) {
	o.status(id, conversion.StatusCleaning, l)
	if err := o.remover.Remove(path); err != nil {
		o.logger.Printf("job %s: remove temp media %s: %v", id, path, err)
	}
}

func (o *Orchestrator) status(id string, s conversion.Status, l Listener) {
	if l.OnStatus == nil {
		return
	}
	o.poster.Post(func() { l.OnStatus(id, s) })
}

func (o *Orchestrator) progress(id string, f float64, l Listener) {
	if l.OnProgress == nil {
		return
	}
	ev := conversion.ProgressEvent{JobID: id, Fraction: conversion.ClampFraction(f)}
	o.poster.Post(func() { l.OnProgress(ev) })
}
