package scrape

import (
	"context"
	"time"

	"dragdex-backend/services/catalog"
	"dragdex-backend/services/catalog/db"
)

// Store is the slice of the catalog service the walk needs. Declared
// here so tests can substitute a catalog backed by an in-memory
// database, and so this package never touches queries directly.
type Store interface {
	UpsertFranchise(ctx context.Context, name, sourceUrl string) (db.Franchise, error)
	UpsertSeason(ctx context.Context, franchiseID int64, name string, year *int, sourceUrl string) (db.Season, error)
	MarkSeasonScraped(ctx context.Context, seasonID int64, scraped bool) error
	ListFranchises(ctx context.Context) ([]db.Franchise, error)
	GetFranchiseByID(ctx context.Context, id int64) (db.Franchise, error)
	GetSeasonByID(ctx context.Context, id int64) (db.Season, error)
	ListSeasonsByFranchise(ctx context.Context, franchiseID int64) ([]db.Season, error)

	GetContestantByName(ctx context.Context, dragName string) (db.Contestant, bool, error)
	GetContestantByID(ctx context.Context, id int64) (db.Contestant, error)
	ListContestantNames(ctx context.Context) ([]string, error)
	CreateContestant(ctx context.Context, arg db.CreateContestantParams) (db.Contestant, error)
	UpdateContestantProfile(ctx context.Context, arg db.UpdateContestantProfileParams) error
	UpdateContestantImages(ctx context.Context, contestantID int64, imageUrls []string, scrapedAt time.Time) error
	EnsureAppearance(ctx context.Context, contestantID, seasonID int64, age *int, outcome string) (bool, error)

	CreateScrapingJob(ctx context.Context, arg db.CreateScrapingJobParams) error
	UpdateScrapingJob(ctx context.Context, arg db.UpdateScrapingJobParams) error
}

var _ Store = catalog.Service{}
