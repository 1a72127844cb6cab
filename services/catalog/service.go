// Package catalog is the persistence layer for the franchise catalog:
// franchises, seasons, contestants, their appearances, and scrape job
// bookkeeping. Every write keyed by a natural name is an idempotent
// "insert or leave unchanged" so re-scrapes never clobber manual edits.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"dragdex-backend/services/catalog/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/catalog")

type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// Migrate applies the embedded schema. Safe to call on every startup.
func (s Service) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

func (s Service) UpsertFranchise(ctx context.Context, name, sourceUrl string) (db.Franchise, error) {
	ctx, span := tracer.Start(ctx, "UpsertFranchise")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	err := s.qry.CreateFranchise(ctx, db.CreateFranchiseParams{
		Name:      name,
		SourceUrl: sourceUrl,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Franchise{}, err
	}
	return s.qry.GetFranchiseByName(ctx, name)
}

func (s Service) UpsertSeason(ctx context.Context, franchiseID int64, name string, year *int, sourceUrl string) (db.Season, error) {
	ctx, span := tracer.Start(ctx, "UpsertSeason")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	err := s.qry.CreateSeason(ctx, db.CreateSeasonParams{
		FranchiseID: franchiseID,
		Name:        name,
		Year:        nullInt(year),
		SourceUrl:   sourceUrl,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Season{}, err
	}
	return s.qry.GetSeasonByName(ctx, name)
}

func (s Service) MarkSeasonScraped(ctx context.Context, seasonID int64, scraped bool) error {
	return s.qry.UpdateSeasonScraped(ctx, db.UpdateSeasonScrapedParams{
		ID:      seasonID,
		Scraped: scraped,
	})
}

func (s Service) ListFranchises(ctx context.Context) ([]db.Franchise, error) {
	return s.qry.ListFranchises(ctx)
}

func (s Service) GetFranchiseByID(ctx context.Context, id int64) (db.Franchise, error) {
	return s.qry.GetFranchiseByID(ctx, id)
}

func (s Service) GetSeasonByID(ctx context.Context, id int64) (db.Season, error) {
	return s.qry.GetSeasonByID(ctx, id)
}

func (s Service) ListSeasonsByFranchise(ctx context.Context, franchiseID int64) ([]db.Season, error) {
	return s.qry.ListSeasonsByFranchise(ctx, franchiseID)
}

// GetContestantByName reports found=false instead of surfacing
// sql.ErrNoRows, since an absent contestant is the normal case during
// reconciliation.
func (s Service) GetContestantByName(ctx context.Context, dragName string) (db.Contestant, bool, error) {
	contestant, err := s.qry.GetContestantByName(ctx, dragName)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Contestant{}, false, nil
	}
	if err != nil {
		return db.Contestant{}, false, err
	}
	return contestant, true, nil
}

func (s Service) GetContestantByID(ctx context.Context, id int64) (db.Contestant, error) {
	return s.qry.GetContestantByID(ctx, id)
}

func (s Service) ListContestantNames(ctx context.Context) ([]string, error) {
	return s.qry.ListContestantNames(ctx)
}

func (s Service) CreateContestant(ctx context.Context, arg db.CreateContestantParams) (db.Contestant, error) {
	ctx, span := tracer.Start(ctx, "CreateContestant")
	defer span.End()
	span.SetAttributes(attribute.String("drag_name", arg.DragName))

	err := s.qry.CreateContestant(ctx, arg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Contestant{}, err
	}
	return s.qry.GetContestantByName(ctx, arg.DragName)
}

func (s Service) UpdateContestantProfile(ctx context.Context, arg db.UpdateContestantProfileParams) error {
	return s.qry.UpdateContestantProfile(ctx, arg)
}

func (s Service) UpdateContestantImages(ctx context.Context, contestantID int64, imageUrls []string, scrapedAt time.Time) error {
	encoded, err := json.Marshal(imageUrls)
	if err != nil {
		return err
	}
	return s.qry.UpdateContestantImages(ctx, db.UpdateContestantImagesParams{
		ID:              contestantID,
		ImageUrls:       string(encoded),
		ImageCount:      int64(len(imageUrls)),
		LastImageScrape: sql.NullInt64{Int64: scrapedAt.Unix(), Valid: true},
	})
}

// EnsureAppearance creates the (contestant, season) join row if it does
// not exist yet. Created reports whether this call inserted it; a
// duplicate is not an error, which is what makes re-scraping a season
// idempotent.
func (s Service) EnsureAppearance(ctx context.Context, contestantID, seasonID int64, age *int, outcome string) (bool, error) {
	ctx, span := tracer.Start(ctx, "EnsureAppearance")
	defer span.End()

	_, err := s.qry.GetAppearance(ctx, db.GetAppearanceParams{
		ContestantID: contestantID,
		SeasonID:     seasonID,
	})
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	err = s.qry.CreateAppearance(ctx, db.CreateAppearanceParams{
		ContestantID: contestantID,
		SeasonID:     seasonID,
		Age:          nullInt(age),
		Outcome:      outcome,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return true, nil
}

func (s Service) CountAppearancesBySeason(ctx context.Context, seasonID int64) (int64, error) {
	return s.qry.CountAppearancesBySeason(ctx, seasonID)
}

func (s Service) CreateScrapingJob(ctx context.Context, arg db.CreateScrapingJobParams) error {
	return s.qry.CreateScrapingJob(ctx, arg)
}

func (s Service) UpdateScrapingJob(ctx context.Context, arg db.UpdateScrapingJobParams) error {
	return s.qry.UpdateScrapingJob(ctx, arg)
}

func (s Service) GetLatestScrapingJob(ctx context.Context) (db.ScrapingJob, error) {
	return s.qry.GetLatestScrapingJob(ctx)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
