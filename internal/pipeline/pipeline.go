package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Minute

	// triggerTimeout bounds a run started through Trigger.
	triggerTimeout = 30 * time.Minute

	// DefaultWindow is how far back RunOnce fetches notices.
	DefaultWindow = 30 * 24 * time.Hour
)

// AnimalSource yields raw animal records posted between from and to.
type AnimalSource interface {
	Name() string
	Animals(ctx context.Context, from, to time.Time) ([]domain.RawRecord, error)
}

// RegistrySource yields the shelter registry.
type RegistrySource interface {
	Registry(ctx context.Context) ([]domain.RegistryEntry, error)
}

// Loader replaces the stored snapshot.
type Loader interface {
	ReplaceSnapshot(ctx context.Context, animals []domain.AnimalRecord, shelters []domain.ShelterSummary) error
}

// Publisher announces a freshly loaded snapshot downstream.
type Publisher interface {
	Publish(ctx context.Context, runID string, generatedAt time.Time, shelters []domain.ShelterSummary) error
}

// RunReport summarizes one completed run.
type RunReport struct {
	ID           string            `json:"id"`
	StartedAt    time.Time         `json:"started_at"`
	Duration     time.Duration     `json:"duration_ns"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Animals      int               `json:"animals"`
	Shelters     int               `json:"shelters"`
	Geocoded     int               `json:"geocoded"`
	Unresolved   int               `json:"unresolved"`
	SourceErrors int               `json:"source_errors"`
	Merge        domain.MergeStats `json:"-"`
}

// Runner executes extract-normalize-aggregate-merge-load passes. Runs are
// serialized; a second concurrent request fails with ErrRunInProgress.
type Runner struct {
	sources   []AnimalSource
	registry  RegistrySource
	merger    *domain.Merger
	loader    Loader
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	window    time.Duration

	mu    sync.Mutex
	ready atomic.Bool
	last  atomic.Pointer[RunReport]
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher publishes every loaded snapshot through p.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithWindow sets how far back RunOnce fetches.
func WithWindow(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.window = d
		}
	}
}

// New creates a Runner. registry may be nil.
func New(sources []AnimalSource, registry RegistrySource, merger *domain.Merger, loader Loader,
	logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Runner {
	r := &Runner{
		sources:  sources,
		registry: registry,
		merger:   merger,
		loader:   loader,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		window:   DefaultWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckReadiness returns nil once a snapshot is available.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no snapshot has been loaded yet")
	}
	return nil
}

// MarkReady flags an already stored snapshot as servable.
func (r *Runner) MarkReady() {
	r.ready.Store(true)
}

// LastReport returns the most recent successful run.
func (r *Runner) LastReport() (RunReport, bool) {
	rep := r.last.Load()
	if rep == nil {
		return RunReport{}, false
	}
	return *rep, true
}

// RunOnce runs one pass over the trailing fetch window.
func (r *Runner) RunOnce(ctx context.Context) (RunReport, error) {
	now := r.clock.Now()
	return r.RunWindow(ctx, now.Add(-r.window), now)
}

// RunWindow runs one pass over notices posted between from and to. Source
// failures are logged and contribute nothing; a load failure aborts the run
// with nothing written.
func (r *Runner) RunWindow(ctx context.Context, from, to time.Time) (RunReport, error) {
	if !r.mu.TryLock() {
		return RunReport{}, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.run(ctx, from, to)
}

// Trigger starts a run over the trailing window in the background and
// returns at once. The run outlives ctx cancellation but keeps its values.
func (r *Runner) Trigger(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}
	now := r.clock.Now()
	go func() {
		defer r.mu.Unlock()
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), triggerTimeout)
		defer cancel()
		if _, err := r.run(runCtx, now.Add(-r.window), now); err != nil {
			r.logger.Error("triggered run failed", "error", err)
		}
	}()
	return nil
}

func (r *Runner) run(ctx context.Context, from, to time.Time) (RunReport, error) {
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	start := r.clock.Now()
	report := RunReport{ID: uuid.NewString(), StartedAt: start, From: from, To: to}
	logger := r.logger.With("run_id", report.ID)
	logger.Info("run started", "from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly))

	var raws []domain.RawRecord
	for _, src := range r.sources {
		recs, err := src.Animals(ctx, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(report, ctx.Err())
			}
			logger.Warn("source failed, contributing no records", "source", src.Name(), "error", err)
			r.metrics.SourceErrors.WithLabelValues(src.Name()).Inc()
			report.SourceErrors++
			continue
		}
		r.metrics.RecordsExtracted.WithLabelValues(src.Name()).Set(float64(len(recs)))
		raws = append(raws, recs...)
	}

	var registry []domain.RegistryEntry
	if r.registry != nil {
		entries, err := r.registry.Registry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(report, ctx.Err())
			}
			logger.Warn("registry failed, merging without it", "error", err)
			r.metrics.SourceErrors.WithLabelValues("registry").Inc()
			report.SourceErrors++
		} else {
			r.metrics.RecordsExtracted.WithLabelValues("registry").Set(float64(len(entries)))
			registry = entries
		}
	}

	animals := domain.Normalize(raws)
	summaries := domain.Aggregate(animals, start)
	shelters, stats := r.merger.Merge(ctx, summaries, registry)
	if err := ctx.Err(); err != nil {
		return r.fail(report, err)
	}

	logger.Info("merged",
		"raw", len(raws),
		"animals", len(animals),
		"aggregated", len(summaries),
		"registry", len(registry),
		"shelters", len(shelters),
		"geocoded", stats.Geocoded,
		"unresolved", stats.Unresolved,
	)

	if err := r.loader.ReplaceSnapshot(ctx, animals, shelters); err != nil {
		return r.fail(report, eris.Wrap(err, "load snapshot"))
	}

	report.Animals = len(animals)
	report.Shelters = len(shelters)
	report.Geocoded = stats.Geocoded
	report.Unresolved = stats.Unresolved
	report.Merge = stats
	report.Duration = r.clock.Since(start)

	r.metrics.AnimalsLoaded.Set(float64(len(animals)))
	r.metrics.SheltersLoaded.Set(float64(len(shelters)))
	r.metrics.RunsTotal.WithLabelValues("success").Inc()
	r.metrics.RunDuration.Observe(report.Duration.Seconds())
	r.metrics.LastSuccess.Set(float64(r.clock.Now().Unix()))

	if r.publisher != nil && len(shelters) > 0 {
		if err := r.publisher.Publish(ctx, report.ID, start, shelters); err != nil {
			logger.Warn("snapshot publish failed", "error", err)
		} else {
			r.metrics.SnapshotsPublished.Inc()
		}
	}

	if len(animals) > 0 || len(shelters) > 0 {
		r.ready.Store(true)
	}
	r.last.Store(&report)
	logger.Info("run complete", "animals", report.Animals, "shelters", report.Shelters, "duration", report.Duration)
	return report, nil
}

func (r *Runner) fail(report RunReport, err error) (RunReport, error) {
	r.metrics.RunsTotal.WithLabelValues("error").Inc()
	report.Duration = r.clock.Since(report.StartedAt)
	return report, err
}

// Run repeats RunOnce every interval until ctx is cancelled. Failed runs are
// retried with exponential backoff.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	r.logger.Info("runner started", "interval", interval, "window", r.window)
	backoff := initialBackoff

	for {
		_, err := r.RunOnce(ctx)
		wait := interval
		switch {
		case ctx.Err() != nil:
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		case errors.Is(err, ErrRunInProgress):
			r.logger.Info("skipping scheduled run, another run is active")
		case err != nil:
			r.logger.Error("run failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, maxBackoff)
		default:
			backoff = initialBackoff
		}

		if !r.sleep(ctx, wait) {
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := r.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}
