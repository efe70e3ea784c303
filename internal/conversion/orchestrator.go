package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediaconv/internal/apiclient"
	"mediaconv/internal/artifact"
	"mediaconv/internal/logging"
	"mediaconv/internal/services"
)

// Submission is the server's answer to a conversion request.
type Submission struct {
	URL      string
	Filename string
}

// Backend performs the two network phases of a job.
type Backend interface {
	Submit(ctx context.Context, in Input) (Submission, error)
	FetchArtifact(ctx context.Context, ref string) (apiclient.Payload, error)
}

// Job is a snapshot of a surface's current conversion.
type Job struct {
	// ID is the surface-local token; it increases with every submission,
	// Clear and Close.
	ID      uint64
	TraceID string
	Kind    Kind
	Status  Status

	// ArtifactURL and Handle are set only while Status is ready.
	ArtifactURL string
	Handle      *artifact.Handle
	// Filename is the server-assigned name of the produced audio.
	Filename string
	SaveName string

	// ErrorMessage and Err are set only while Status is failed.
	ErrorMessage string
	Err          error

	// Validation holds the last pre-flight rejection; Status is unaffected.
	Validation string
	// Superseded is set on a Submit result whose completion was discarded
	// because the surface moved on.
	Superseded bool

	SubmittedAt time.Time
	FinishedAt  time.Time
}

// Options configures an Orchestrator.
type Options struct {
	Surface  Kind
	Backend  Backend
	Registry *artifact.Registry
	Logger   *slog.Logger
	Now      func() time.Time
}

// Orchestrator owns the single job of one conversion surface.
type Orchestrator struct {
	surface  Kind
	backend  Backend
	registry *artifact.Registry
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	seq       uint64
	job       Job
	closed    bool
	observers []func(Job)
}

// New constructs an Orchestrator for a surface.
func New(opts Options) (*Orchestrator, error) {
	if opts.Surface != KindTextToAudio && opts.Surface != KindVideoToAudio {
		return nil, fmt.Errorf("conversion: unknown surface %q", opts.Surface)
	}
	if opts.Backend == nil {
		return nil, errors.New("conversion: backend is required")
	}
	registry := opts.Registry
	if registry == nil {
		registry = artifact.NewRegistry()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		surface:  opts.Surface,
		backend:  opts.Backend,
		registry: registry,
		logger:   logging.NewComponentLogger(opts.Logger, "conversion").With(logging.String(logging.FieldSurface, string(opts.Surface))),
		now:      now,
		job:      Job{Kind: opts.Surface, Status: StatusIdle},
	}, nil
}

// Surface returns the surface kind.
func (o *Orchestrator) Surface() Kind { return o.surface }

// OnChange registers fn to receive every state change. fn runs on the
// goroutine that caused the change and must not call back into Submit.
func (o *Orchestrator) OnChange(fn func(Job)) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// Snapshot returns the current job.
func (o *Orchestrator) Snapshot() Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job
}

// Submit validates in and, when accepted, runs the job to a terminal state.
// Request failures are recorded on the returned job rather than returned as
// errors; the error result is reserved for local rejections (validation,
// ErrBusy, ErrClosed).
func (o *Orchestrator) Submit(ctx context.Context, in Input) (Job, error) {
	if in == nil {
		return o.reject(&ValidationError{Field: "input", Reason: "Nothing to convert"})
	}
	if in.Kind() != o.surface {
		return o.reject(&ValidationError{
			Field:  "input",
			Reason: fmt.Sprintf("%s input cannot be submitted to the %s surface", in.Kind().Label(), o.surface.Label()),
		})
	}
	if err := in.Validate(); err != nil {
		return o.reject(err)
	}

	job, prev, err := o.begin(in)
	if err != nil {
		return o.Snapshot(), err
	}
	if prev != nil && prev.Release() {
		o.logger.Debug("released superseded artifact", logging.String("artifact", prev.URL()))
	}
	o.notify(job)

	ctx = services.WithJobID(ctx, job.TraceID)
	ctx = services.WithSurface(ctx, string(o.surface))
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("conversion submitted", logging.String("status", string(job.Status)))

	sub, err := o.backend.Submit(ctx, in)
	if err == nil && strings.TrimSpace(sub.URL) == "" {
		err = &apiclient.RequestError{
			Operation: "submit " + o.surface.Label() + " conversion",
			Detail:    submitFallback,
			Err:       errors.New("response carried no artifact reference"),
		}
	}
	if err != nil {
		return o.fail(logger, job, err, userMessage(err, submitFallback), "conversion_submit_failed")
	}

	next, ok := o.apply(job.ID, func(j *Job) {
		j.Status = StatusAwaitingArtifact
		j.Filename = sub.Filename
	})
	if !ok {
		return o.superseded(logger, job), nil
	}
	job = next
	o.notify(job)
	logger.Info("conversion accepted", logging.String("status", string(job.Status)), logging.String("filename", sub.Filename))

	payload, err := o.backend.FetchArtifact(ctx, sub.URL)
	if err != nil {
		artifactErr := &ArtifactError{URL: sub.URL, Err: err}
		return o.fail(logger, job, artifactErr, artifactErr.Error(), "artifact_fetch_failed")
	}

	handle := o.registry.Create(payload.Data, payload.ContentType, job.SaveName)
	next, ok = o.apply(job.ID, func(j *Job) {
		j.Status = StatusReady
		j.ArtifactURL = sub.URL
		j.Handle = handle
		j.FinishedAt = o.now()
	})
	if !ok {
		handle.Release()
		return o.superseded(logger, job), nil
	}
	job = next
	o.notify(job)
	logger.Info("conversion ready",
		logging.String("status", string(job.Status)),
		logging.Int("bytes", handle.Size()),
		logging.Duration("elapsed", job.FinishedAt.Sub(job.SubmittedAt)),
	)
	return job, nil
}

// Clear returns the surface to idle and releases any held artifact. An
// in-flight job is abandoned; its completion is discarded.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.seq++
	handle := o.job.Handle
	o.job = Job{ID: o.seq, Kind: o.surface, Status: StatusIdle}
	job := o.job
	o.mu.Unlock()

	if handle != nil {
		handle.Release()
	}
	o.logger.Debug("surface cleared")
	o.notify(job)
}

// Close tears the surface down: the artifact is released and later calls to
// Submit fail with services.ErrClosed. Close is idempotent.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.seq++
	handle := o.job.Handle
	o.job = Job{ID: o.seq, Kind: o.surface, Status: StatusIdle}
	o.mu.Unlock()

	if handle != nil {
		handle.Release()
	}
	o.logger.Debug("surface closed")
	return nil
}

func (o *Orchestrator) begin(in Input) (Job, *artifact.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return Job{}, nil, services.Wrap(services.ErrClosed, "conversion", "submit", o.surface.Label()+" surface is closed", nil)
	}
	if o.job.Status.IsActive() {
		return Job{}, nil, services.Wrap(services.ErrBusy, "conversion", "submit", "a conversion is already in progress", nil)
	}
	o.seq++
	prev := o.job.Handle
	o.job = Job{
		ID:          o.seq,
		TraceID:     uuid.NewString(),
		Kind:        o.surface,
		Status:      StatusSubmitting,
		SaveName:    in.SuggestedName(),
		SubmittedAt: o.now(),
	}
	return o.job, prev, nil
}

// apply mutates the current job when id is still current.
func (o *Orchestrator) apply(id uint64, mutate func(*Job)) (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.seq != id {
		return Job{}, false
	}
	mutate(&o.job)
	return o.job, true
}

func (o *Orchestrator) fail(logger *slog.Logger, job Job, err error, message, eventType string) (Job, error) {
	updated, ok := o.apply(job.ID, func(j *Job) {
		j.Status = StatusFailed
		j.Err = err
		j.ErrorMessage = message
		j.FinishedAt = o.now()
	})
	if !ok {
		return o.superseded(logger, job), nil
	}
	o.notify(updated)
	logging.ErrorWithContext(logger, "conversion failed", eventType,
		logging.String("status", string(updated.Status)),
		logging.String(logging.FieldErrorHint, errorHint(err)),
		logging.Error(err),
	)
	return updated, nil
}

func (o *Orchestrator) superseded(logger *slog.Logger, job Job) Job {
	logger.Debug("discarding completion of superseded job", logging.Uint64("job_token", job.ID))
	job.Superseded = true
	return job
}

func (o *Orchestrator) reject(err error) (Job, error) {
	reason := err.Error()
	var validation *ValidationError
	if errors.As(err, &validation) {
		reason = validation.Reason
	}
	o.mu.Lock()
	o.job.Validation = reason
	job := o.job
	o.mu.Unlock()
	o.logger.Debug("submission rejected", logging.String("reason", reason))
	o.notify(job)
	return job, err
}

func (o *Orchestrator) notify(job Job) {
	o.mu.Lock()
	observers := append([]func(Job){}, o.observers...)
	o.mu.Unlock()
	for _, fn := range observers {
		fn(job)
	}
}

func errorHint(err error) string {
	var reqErr *apiclient.RequestError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return "run `mediaconv auth set-token` or set MEDIACONV_TOKEN"
	case errors.As(err, &reqErr) && (reqErr.Status == 401 || reqErr.Status == 403):
		return "the bearer token was rejected; refresh it with `mediaconv auth set-token`"
	case errors.Is(err, services.ErrArtifactRetrieval):
		return "the server produced the audio; retry to fetch it again"
	default:
		return "check the backend URL and retry"
	}
}
