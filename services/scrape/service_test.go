package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/services/catalog"
	"dragdex-backend/services/catalog/db"
)

type captureSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (c *captureSink) Publish(s Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
}

func (c *captureSink) last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snaps) == 0 {
		return Snapshot{}
	}
	return c.snaps[len(c.snaps)-1]
}

func newTestService(t *testing.T, cfg Config) (*Service, catalog.Service, *captureSink, func()) {
	t.Helper()
	store, cleanup := setupStore(t)
	registry := wiki.NewRegistry()
	require.NoError(t, wiki.RegisterSeedRecipes(registry))
	if cfg.Driver == "" {
		cfg.Driver = "simulated"
	}
	sink := &captureSink{}
	svc := NewService(store, registry, sink, nil, nil, cfg)
	return svc, store, sink, cleanup
}

func waitDone(t *testing.T, svc *Service) JobDescriptor {
	t.Helper()
	require.Eventually(t, func() bool {
		desc, _ := svc.Status()
		return desc.Status == JobCompleted || desc.Status == JobFailed
	}, 10*time.Second, 10*time.Millisecond)
	desc, _ := svc.Status()
	return desc
}

func TestStatusIdleBeforeFirstJob(t *testing.T) {
	svc, _, _, cleanup := newTestService(t, Config{})
	defer cleanup()

	desc, snap := svc.Status()
	require.Equal(t, JobIdle, desc.Status)
	require.Equal(t, JobIdle, snap.Status)
}

func TestFullWalkCompletes(t *testing.T) {
	svc, store, sink, cleanup := newTestService(t, Config{})
	defer cleanup()
	ctx := context.Background()

	desc, err := svc.Start(ctx, Scope{Kind: ScopeFull})
	require.NoError(t, err)
	require.Equal(t, JobRunning, desc.Status)
	require.Equal(t, "simulated", desc.Driver)
	require.NotEmpty(t, desc.ID)

	final := waitDone(t, svc)
	require.Equal(t, JobCompleted, final.Status)
	require.Equal(t, 8, final.Counts.SeasonsCompleted)
	require.Zero(t, final.Counts.SeasonsFailed)
	require.Greater(t, final.Counts.ContestantsCreated, 0)
	require.Greater(t, final.Counts.AppearancesCreated, 0)

	snap := sink.last()
	require.Equal(t, JobCompleted, snap.Status)
	require.Equal(t, 100, snap.Progress)
	require.Len(t, snap.Franchises, 4)

	names, err := store.ListContestantNames(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	franchises, err := store.ListFranchises(ctx)
	require.NoError(t, err)
	require.Len(t, franchises, 4)
	seasons, err := store.ListSeasonsByFranchise(ctx, franchises[0].ID)
	require.NoError(t, err)
	for _, season := range seasons {
		require.True(t, season.Scraped)
	}

	job, err := store.GetLatestScrapingJob(ctx)
	require.NoError(t, err)
	require.Equal(t, desc.ID, job.ID)
	require.Equal(t, string(JobCompleted), job.Status)
	require.True(t, job.CompletedAt.Valid)
}

func TestStartWhileRunningRejected(t *testing.T) {
	svc, _, _, cleanup := newTestService(t, Config{SimulatedDelay: 50 * time.Millisecond})
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Start(ctx, Scope{Kind: ScopeFull})
	require.NoError(t, err)

	_, err = svc.Start(ctx, Scope{Kind: ScopeFull})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, svc.Stop(ctx))
}

func TestStopMarksJobFailed(t *testing.T) {
	svc, _, sink, cleanup := newTestService(t, Config{SimulatedDelay: 100 * time.Millisecond})
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Start(ctx, Scope{Kind: ScopeFull})
	require.NoError(t, err)
	require.NoError(t, svc.Stop(ctx))

	desc, _ := svc.Status()
	require.Equal(t, JobFailed, desc.Status)
	require.Equal(t, "stopped by operator", desc.Error)
	require.Equal(t, JobFailed, sink.last().Status)
}

func TestStopWithoutJob(t *testing.T) {
	svc, _, _, cleanup := newTestService(t, Config{})
	defer cleanup()

	require.ErrorIs(t, svc.Stop(context.Background()), ErrNotRunning)
}

func TestRescrapeIsIdempotent(t *testing.T) {
	svc, store, _, cleanup := newTestService(t, Config{})
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Start(ctx, Scope{Kind: ScopeFull})
	require.NoError(t, err)
	waitDone(t, svc)

	names, err := store.ListContestantNames(ctx)
	require.NoError(t, err)

	// simulated pages are deterministic, so a second full walk finds
	// the same rows and must change nothing
	_, err = svc.Start(ctx, Scope{Kind: ScopeFull})
	require.NoError(t, err)
	second := waitDone(t, svc)
	require.Equal(t, JobCompleted, second.Status)
	require.Zero(t, second.Counts.ContestantsCreated)
	require.Zero(t, second.Counts.AppearancesCreated)

	again, err := store.ListContestantNames(ctx)
	require.NoError(t, err)
	require.Equal(t, names, again)
}

func TestDriverFallbackSubstitutesSimulated(t *testing.T) {
	svc, _, _, cleanup := newTestService(t, Config{Driver: "rod"})
	defer cleanup()

	svc.newFetcher = func(kind wiki.DriverKind, cfg wiki.Config) (wiki.PageFetcher, error) {
		if kind == wiki.DriverRod {
			return nil, wiki.DriverInitError{Err: errors.New("browser would not launch")}
		}
		return wiki.New(kind, cfg)
	}

	desc, err := svc.Start(context.Background(), Scope{Kind: ScopeFull})
	require.NoError(t, err)
	require.Equal(t, "simulated", desc.Driver)

	final := waitDone(t, svc)
	require.Equal(t, JobCompleted, final.Status)
}

func TestSeasonScope(t *testing.T) {
	svc, store, _, cleanup := newTestService(t, Config{})
	defer cleanup()
	ctx := context.Background()

	franchise, err := store.UpsertFranchise(ctx, "Drag Race US", "https://example.test/us")
	require.NoError(t, err)
	year := 2022
	target, err := store.UpsertSeason(ctx, franchise.ID, "Season 14", &year, "https://example.test/us/s14")
	require.NoError(t, err)
	other, err := store.UpsertSeason(ctx, franchise.ID, "Season 15", &year, "https://example.test/us/s15")
	require.NoError(t, err)

	_, err = svc.Start(ctx, Scope{Kind: ScopeSeason, ID: target.ID})
	require.NoError(t, err)
	final := waitDone(t, svc)

	require.Equal(t, JobCompleted, final.Status)
	require.Equal(t, 1, final.Counts.SeasonsCompleted)

	scraped, err := store.GetSeasonByID(ctx, target.ID)
	require.NoError(t, err)
	require.True(t, scraped.Scraped)
	untouched, err := store.GetSeasonByID(ctx, other.ID)
	require.NoError(t, err)
	require.False(t, untouched.Scraped)
}

func TestUnknownScopeFailsJob(t *testing.T) {
	svc, _, _, cleanup := newTestService(t, Config{})
	defer cleanup()

	_, err := svc.Start(context.Background(), Scope{Kind: "galaxy"})
	require.NoError(t, err)
	final := waitDone(t, svc)
	require.Equal(t, JobFailed, final.Status)
	require.NotEmpty(t, final.Error)
}

func TestContestantScopeWithoutSourcePage(t *testing.T) {
	svc, store, _, cleanup := newTestService(t, Config{})
	defer cleanup()
	ctx := context.Background()

	c, err := store.CreateContestant(ctx, db.CreateContestantParams{DragName: "Jimbo"})
	require.NoError(t, err)

	_, err = svc.Start(ctx, Scope{Kind: ScopeContestant, ID: c.ID})
	require.NoError(t, err)
	final := waitDone(t, svc)
	require.Equal(t, JobFailed, final.Status)
}

func TestSnapshotsArriveOrdered(t *testing.T) {
	svc, _, sink, cleanup := newTestService(t, Config{})
	defer cleanup()

	_, err := svc.Start(context.Background(), Scope{Kind: ScopeFull})
	require.NoError(t, err)
	waitDone(t, svc)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.snaps)
	prev := -1
	for _, snap := range sink.snaps {
		require.GreaterOrEqual(t, snap.Progress, prev)
		prev = snap.Progress
	}
}
