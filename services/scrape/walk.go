package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/services/catalog/db"
)

type planSeason struct {
	ID        int64
	Name      string
	SourceUrl string
}

type planFranchise struct {
	ID        int64
	Name      string
	SourceUrl string
	Seasons   []planSeason
}

// walkPlan is the expanded scope. Exactly one of franchises or
// contestant is populated.
type walkPlan struct {
	franchises []planFranchise
	contestant *db.Contestant
}

// expandScope resolves a scope into concrete walk targets. A full
// scope first folds the seed catalog into the store so a fresh
// database still yields a complete walk, then walks whatever the store
// holds, seeds and manual additions alike.
func (s *Service) expandScope(ctx context.Context, scope Scope) (walkPlan, error) {
	ctx, span := tracer.Start(ctx, "expandScope")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope.String()))

	var plan walkPlan
	switch scope.Kind {
	case ScopeFull:
		if err := s.seedCatalog(ctx); err != nil {
			return plan, err
		}
		franchises, err := s.store.ListFranchises(ctx)
		if err != nil {
			return plan, err
		}
		for _, f := range franchises {
			pf, err := s.planFranchise(ctx, f)
			if err != nil {
				return plan, err
			}
			plan.franchises = append(plan.franchises, pf)
		}
		return plan, nil

	case ScopeFranchise:
		f, err := s.store.GetFranchiseByID(ctx, scope.ID)
		if err != nil {
			return plan, fmt.Errorf("resolve franchise %d: %w", scope.ID, err)
		}
		pf, err := s.planFranchise(ctx, f)
		if err != nil {
			return plan, err
		}
		plan.franchises = append(plan.franchises, pf)
		return plan, nil

	case ScopeSeason:
		season, err := s.store.GetSeasonByID(ctx, scope.ID)
		if err != nil {
			return plan, fmt.Errorf("resolve season %d: %w", scope.ID, err)
		}
		f, err := s.store.GetFranchiseByID(ctx, season.FranchiseID)
		if err != nil {
			return plan, err
		}
		plan.franchises = append(plan.franchises, planFranchise{
			ID:        f.ID,
			Name:      f.Name,
			SourceUrl: f.SourceUrl,
			Seasons: []planSeason{
				{ID: season.ID, Name: season.Name, SourceUrl: season.SourceUrl},
			},
		})
		return plan, nil

	case ScopeContestant:
		c, err := s.store.GetContestantByID(ctx, scope.ID)
		if err != nil {
			return plan, fmt.Errorf("resolve contestant %d: %w", scope.ID, err)
		}
		plan.contestant = &c
		return plan, nil
	}
	return plan, fmt.Errorf("%w: %q", ErrUnknownScope, scope.Kind)
}

func (s *Service) planFranchise(ctx context.Context, f db.Franchise) (planFranchise, error) {
	seasons, err := s.store.ListSeasonsByFranchise(ctx, f.ID)
	if err != nil {
		return planFranchise{}, err
	}
	pf := planFranchise{ID: f.ID, Name: f.Name, SourceUrl: f.SourceUrl}
	for _, season := range seasons {
		pf.Seasons = append(pf.Seasons, planSeason{
			ID:        season.ID,
			Name:      season.Name,
			SourceUrl: season.SourceUrl,
		})
	}
	return pf, nil
}

func (s *Service) seedCatalog(ctx context.Context) error {
	for _, seed := range wiki.Seeds() {
		franchise, err := s.store.UpsertFranchise(ctx, seed.Name, seed.SourceUrl)
		if err != nil {
			return fmt.Errorf("seed franchise %q: %w", seed.Name, err)
		}
		for _, season := range seed.Seasons {
			year := season.Year
			if _, err := s.store.UpsertSeason(ctx, franchise.ID, season.Name, &year, season.SourceUrl); err != nil {
				return fmt.Errorf("seed season %q: %w", season.Name, err)
			}
		}
	}
	return nil
}

// run is the job goroutine. Failures below the job level are absorbed
// into node state; only scope expansion errors fail the job outright.
func (s *Service) run(ctx context.Context, j *job, scope Scope) {
	ctx, span := tracer.Start(ctx, "run")
	defer span.End()

	plan, err := s.expandScope(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		j.tracker.SetStatus(JobFailed)
		s.finish(ctx, j, err)
		return
	}

	if plan.contestant != nil {
		s.refreshContestant(ctx, j, *plan.contestant)
		s.finish(ctx, j, nil)
		return
	}

	totalSeasons := 0
	for _, f := range plan.franchises {
		fi := j.tracker.AddFranchise(f.Name)
		for _, season := range f.Seasons {
			j.tracker.AddSeason(fi, season.Name)
			totalSeasons++
		}
	}
	j.mu.Lock()
	j.desc.TotalItems = totalSeasons
	j.mu.Unlock()
	s.publish(j)

	for fi, f := range plan.franchises {
		if ctx.Err() != nil {
			break
		}
		j.tracker.SetFranchiseStatus(fi, NodeRunning)
		s.publish(j)

		for si, season := range f.Seasons {
			if ctx.Err() != nil {
				break
			}
			s.scrapeSeason(ctx, j, fi, si, f, season)
			s.persistProgress(ctx, j)
		}

		if ctx.Err() == nil {
			j.tracker.SetFranchiseStatus(fi, NodeCompleted)
			s.publish(j)
		}
	}

	s.finish(ctx, j, nil)
}

// scrapeSeason walks one season page. Any failure marks the node and
// returns; the caller continues with its siblings.
func (s *Service) scrapeSeason(ctx context.Context, j *job, fi, si int, franchise planFranchise, season planSeason) {
	ctx, span := tracer.Start(ctx, "scrapeSeason")
	defer span.End()
	span.SetAttributes(
		attribute.String("franchise", franchise.Name),
		attribute.String("season", season.Name),
	)
	started := time.Now()

	j.tracker.SetSeasonStatus(fi, si, NodeRunning)
	s.publish(j)

	fail := func(stage string, err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "season scrape failed",
			"franchise", franchise.Name,
			"season", season.Name,
			"stage", stage,
			"err", err)
		s.metrics.IncError(stage)
		s.metrics.IncSeason(NodeFailed)
		j.tracker.SetSeasonStatus(fi, si, NodeFailed)
		j.mu.Lock()
		j.desc.Counts.SeasonsFailed++
		j.mu.Unlock()
		s.publish(j)
	}

	page, err := j.fetcher.Open(ctx, season.SourceUrl)
	if err != nil {
		fail("page_load", err)
		return
	}

	recipe := s.registry.Resolve(franchise.Name)
	result, err := j.fetcher.ExtractRows(ctx, page, recipe)
	if err != nil {
		fail("extraction", err)
		return
	}
	s.metrics.IncSkipped(result.Skipped)
	j.mu.Lock()
	j.desc.Counts.RowsSkipped += result.Skipped
	j.mu.Unlock()

	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		names = append(names, row.DragName)
	}
	j.tracker.AddContestants(fi, si, names)
	s.publish(j)

	for ci, row := range result.Rows {
		if ctx.Err() != nil {
			return
		}
		j.tracker.SetContestantStatus(fi, si, ci, NodeRunning)
		s.publish(j)

		outcome, err := s.reconcileRow(ctx, season.ID, season.SourceUrl, row)
		if err != nil {
			slog.WarnContext(ctx, "contestant reconcile failed",
				"season", season.Name, "dragName", row.DragName, "err", err)
			s.metrics.IncError("reconcile")
			j.tracker.SetContestantStatus(fi, si, ci, NodeFailed)
			s.publish(j)
			continue
		}

		s.metrics.IncContestants(1)
		j.mu.Lock()
		if outcome.Created {
			j.desc.Counts.ContestantsCreated++
		}
		if outcome.AppearanceCreated {
			j.desc.Counts.AppearancesCreated++
		}
		j.mu.Unlock()

		s.scrapeContestantImages(ctx, j, outcome.ContestantID, row.DragName, season)

		j.tracker.SetContestantStatus(fi, si, ci, NodeCompleted)
		s.publish(j)
	}

	if err := s.store.MarkSeasonScraped(ctx, season.ID, true); err != nil {
		fail("persist", err)
		return
	}

	s.metrics.IncSeason(NodeCompleted)
	s.metrics.ObserveSeason(time.Since(started).Seconds())
	j.tracker.SetSeasonStatus(fi, si, NodeCompleted)
	j.mu.Lock()
	j.desc.Counts.SeasonsCompleted++
	j.mu.Unlock()
	s.publish(j)
}

// scrapeContestantImages is fully best effort. No image pipeline
// configured, a disabled pipeline, or a failed run never fail the
// contestant node.
func (s *Service) scrapeContestantImages(ctx context.Context, j *job, contestantID int64, dragName string, season planSeason) {
	if s.images == nil {
		return
	}
	result, err := s.images.ScrapeImages(ctx, dragName, season.SourceUrl, season.Name)
	if err != nil {
		slog.WarnContext(ctx, "image scrape failed",
			"dragName", dragName, "err", err)
		s.metrics.IncError("images")
		return
	}
	if result.Note != "" {
		return
	}
	s.metrics.IncImages(result.Downloaded)
	s.metrics.IncImagesDeduped(result.Deduped)
	for _, derr := range result.Errors {
		slog.WarnContext(ctx, "image download failed",
			"dragName", dragName, "err", derr)
		s.metrics.IncError("image_download")
	}
	j.mu.Lock()
	j.desc.Counts.ImagesDownloaded += result.Downloaded
	j.mu.Unlock()

	if len(result.StoredURLs) == 0 {
		return
	}
	if err := s.store.UpdateContestantImages(ctx, contestantID, result.StoredURLs, time.Now().UTC()); err != nil {
		slog.WarnContext(ctx, "could not persist contestant images",
			"dragName", dragName, "err", err)
		s.metrics.IncError("persist")
	}
}

// refreshContestant re-runs the image pipeline for a single contestant
// using the season page recorded at reconcile time.
func (s *Service) refreshContestant(ctx context.Context, j *job, c db.Contestant) {
	fi := j.tracker.AddFranchise(c.DragName)
	si := j.tracker.AddSeason(fi, "image refresh")
	j.mu.Lock()
	j.desc.TotalItems = 1
	j.mu.Unlock()

	j.tracker.SetFranchiseStatus(fi, NodeRunning)
	j.tracker.SetSeasonStatus(fi, si, NodeRunning)
	s.publish(j)

	if c.MetadataUrl == "" {
		slog.WarnContext(ctx, "contestant has no recorded source page",
			"dragName", c.DragName)
		j.tracker.SetSeasonStatus(fi, si, NodeFailed)
		j.tracker.SetFranchiseStatus(fi, NodeCompleted)
		j.mu.Lock()
		j.desc.Counts.SeasonsFailed++
		j.mu.Unlock()
		s.publish(j)
		return
	}

	s.scrapeContestantImages(ctx, j, c.ID, c.DragName, planSeason{SourceUrl: c.MetadataUrl})
	j.tracker.SetSeasonStatus(fi, si, NodeCompleted)
	j.tracker.SetFranchiseStatus(fi, NodeCompleted)
	j.mu.Lock()
	j.desc.Counts.SeasonsCompleted++
	j.mu.Unlock()
	s.publish(j)
}
