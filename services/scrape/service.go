package scrape

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/services/catalog/db"
)

var tracer = otel.Tracer("services/scrape")

// Service owns job lifecycle: at most one walk runs at a time, started
// and stopped explicitly, observed through Status and the progress
// sink. All collaborators are injected.
type Service struct {
	store    Store
	registry *wiki.Registry
	sink     ProgressSink
	images   *ImagePipeline
	metrics  *Metrics
	cfg      Config

	// newFetcher is swappable in tests; production uses wiki.New.
	newFetcher func(kind wiki.DriverKind, cfg wiki.Config) (wiki.PageFetcher, error)

	mu      sync.Mutex
	current *job
	last    JobDescriptor
}

type job struct {
	mu      sync.Mutex
	desc    JobDescriptor
	tracker *tracker
	fetcher wiki.PageFetcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewService(store Store, registry *wiki.Registry, sink ProgressSink, images *ImagePipeline, metrics *Metrics, cfg Config) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{
		store:      store,
		registry:   registry,
		sink:       sink,
		images:     images,
		metrics:    metrics,
		cfg:        cfg,
		newFetcher: wiki.New,
	}
}

func (s *Service) resolveDriver() (wiki.DriverKind, error) {
	switch s.cfg.Driver {
	case "":
		return wiki.Detect(), nil
	case "rod":
		return wiki.DriverRod, nil
	case "simulated":
		return wiki.DriverSimulated, nil
	}
	return 0, fmt.Errorf("unknown driver %q", s.cfg.Driver)
}

// Start launches a job for the scope and returns its descriptor
// immediately. The walk runs on a detached context; cancelling ctx
// after Start returns does not stop the job, Stop does.
func (s *Service) Start(ctx context.Context, scope Scope) (JobDescriptor, error) {
	ctx, span := tracer.Start(ctx, "Start")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope.String()))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		span.SetStatus(codes.Error, ErrAlreadyRunning.Error())
		return JobDescriptor{}, ErrAlreadyRunning
	}

	kind, err := s.resolveDriver()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return JobDescriptor{}, err
	}

	wikiCfg := wiki.Config{
		PageTimeout:    s.cfg.PageTimeout,
		SimulatedDelay: s.cfg.SimulatedDelay,
	}
	fetcher, err := s.newFetcher(kind, wikiCfg)
	if err != nil {
		var initErr wiki.DriverInitError
		if !errors.As(err, &initErr) || kind == wiki.DriverSimulated {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return JobDescriptor{}, err
		}
		// The browser looked usable at probe time but would not
		// launch. The job still runs, against simulated pages, and
		// says so in its descriptor.
		slog.WarnContext(ctx, "browser driver failed to initialize, substituting simulated driver",
			"err", err)
		kind = wiki.DriverSimulated
		fetcher, err = s.newFetcher(kind, wikiCfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return JobDescriptor{}, err
		}
	}

	now := time.Now().UTC()
	desc := JobDescriptor{
		ID:        uuid.NewString(),
		Scope:     scope.String(),
		Status:    JobRunning,
		Driver:    kind.String(),
		StartedAt: now,
	}

	if err := s.store.CreateScrapingJob(ctx, db.CreateScrapingJobParams{
		ID:        desc.ID,
		Status:    string(JobRunning),
		StartedAt: now.Unix(),
	}); err != nil {
		_ = fetcher.Close(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return JobDescriptor{}, err
	}

	walkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j := &job{
		desc:    desc,
		tracker: newTracker(desc.ID),
		fetcher: fetcher,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.current = j

	slog.InfoContext(ctx, "scraping job started",
		"job", desc.ID, "scope", desc.Scope, "driver", desc.Driver)
	go s.run(walkCtx, j, scope)

	return desc, nil
}

// Stop cancels the running job, marks it failed, and blocks until the
// walk goroutine has emitted its final snapshot and released the
// driver.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	j := s.current
	if j == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	j.tracker.SetStatus(JobFailed)
	j.mu.Lock()
	j.desc.Error = "stopped by operator"
	j.mu.Unlock()
	j.cancel()
	s.mu.Unlock()

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the current job, or the last finished one, or an idle
// descriptor when nothing has run yet.
func (s *Service) Status() (JobDescriptor, Snapshot) {
	s.mu.Lock()
	j := s.current
	last := s.last
	s.mu.Unlock()

	if j == nil {
		if last.ID == "" {
			return JobDescriptor{Status: JobIdle}, Snapshot{Status: JobIdle}
		}
		return last, Snapshot{JobID: last.ID, Status: last.Status, Progress: last.Progress}
	}

	snap := j.tracker.Snapshot()
	j.mu.Lock()
	desc := j.desc
	j.mu.Unlock()
	desc.Progress = snap.Progress
	desc.CurrentItem = snap.CurrentItem
	return desc, snap
}

// publish recomputes the descriptor from the tracker and hands an
// immutable snapshot to the sink.
func (s *Service) publish(j *job) {
	snap := j.tracker.Snapshot()
	j.mu.Lock()
	j.desc.Progress = snap.Progress
	j.desc.CurrentItem = snap.CurrentItem
	j.mu.Unlock()
	s.sink.Publish(snap)
}

// persistProgress is best effort; a failed write never stops the walk.
func (s *Service) persistProgress(ctx context.Context, j *job) {
	j.mu.Lock()
	arg := db.UpdateScrapingJobParams{
		ID:          j.desc.ID,
		Status:      string(j.desc.Status),
		Progress:    int64(j.desc.Progress),
		TotalItems:  int64(j.desc.TotalItems),
		CurrentItem: j.desc.CurrentItem,
		Error:       j.desc.Error,
	}
	j.mu.Unlock()
	if err := s.store.UpdateScrapingJob(ctx, arg); err != nil {
		slog.WarnContext(ctx, "could not persist job progress", "job", arg.ID, "err", err)
	}
}

// finish records the terminal state and clears the running slot.
func (s *Service) finish(ctx context.Context, j *job, jobErr error) {
	status := j.tracker.Finalize()

	j.mu.Lock()
	j.desc.Status = status
	j.desc.Progress = j.tracker.Progress()
	j.desc.CompletedAt = time.Now().UTC()
	if jobErr != nil && j.desc.Error == "" {
		j.desc.Error = jobErr.Error()
	}
	desc := j.desc
	j.mu.Unlock()

	completedAt := desc.CompletedAt.Unix()
	if err := s.store.UpdateScrapingJob(context.WithoutCancel(ctx), db.UpdateScrapingJobParams{
		ID:          desc.ID,
		Status:      string(desc.Status),
		Progress:    int64(desc.Progress),
		TotalItems:  int64(desc.TotalItems),
		CurrentItem: "",
		Error:       desc.Error,
		CompletedAt: sql.NullInt64{Int64: completedAt, Valid: true},
	}); err != nil {
		slog.WarnContext(ctx, "could not persist terminal job state", "job", desc.ID, "err", err)
	}

	if err := j.fetcher.Close(context.WithoutCancel(ctx)); err != nil {
		slog.WarnContext(ctx, "driver close failed", "job", desc.ID, "err", err)
	}

	s.metrics.IncJob(status)
	s.sink.Publish(j.tracker.Snapshot())

	s.mu.Lock()
	s.last = desc
	s.current = nil
	s.mu.Unlock()

	slog.InfoContext(ctx, "scraping job finished",
		"job", desc.ID,
		"status", desc.Status,
		"seasonsCompleted", desc.Counts.SeasonsCompleted,
		"seasonsFailed", desc.Counts.SeasonsFailed,
		"contestantsCreated", desc.Counts.ContestantsCreated)

	close(j.done)
}
