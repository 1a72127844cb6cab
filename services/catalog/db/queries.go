package db

import (
	"context"
	"database/sql"
)

const createFranchise = `
INSERT INTO franchises (name, source_url)
VALUES (?, ?)
ON CONFLICT (name) DO NOTHING
`

type CreateFranchiseParams struct {
	Name      string
	SourceUrl string
}

func (q *Queries) CreateFranchise(ctx context.Context, arg CreateFranchiseParams) error {
	_, err := q.db.ExecContext(ctx, createFranchise, arg.Name, arg.SourceUrl)
	return err
}

const getFranchiseByName = `
SELECT id, name, source_url FROM franchises WHERE name = ?
`

func (q *Queries) GetFranchiseByName(ctx context.Context, name string) (Franchise, error) {
	row := q.db.QueryRowContext(ctx, getFranchiseByName, name)
	var f Franchise
	err := row.Scan(&f.ID, &f.Name, &f.SourceUrl)
	return f, err
}

const getFranchiseByID = `
SELECT id, name, source_url FROM franchises WHERE id = ?
`

func (q *Queries) GetFranchiseByID(ctx context.Context, id int64) (Franchise, error) {
	row := q.db.QueryRowContext(ctx, getFranchiseByID, id)
	var f Franchise
	err := row.Scan(&f.ID, &f.Name, &f.SourceUrl)
	return f, err
}

const listFranchises = `
SELECT id, name, source_url FROM franchises ORDER BY id
`

func (q *Queries) ListFranchises(ctx context.Context) ([]Franchise, error) {
	rows, err := q.db.QueryContext(ctx, listFranchises)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Franchise
	for rows.Next() {
		var f Franchise
		err := rows.Scan(&f.ID, &f.Name, &f.SourceUrl)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const createSeason = `
INSERT INTO seasons (franchise_id, name, year, source_url)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO NOTHING
`

type CreateSeasonParams struct {
	FranchiseID int64
	Name        string
	Year        sql.NullInt64
	SourceUrl   string
}

func (q *Queries) CreateSeason(ctx context.Context, arg CreateSeasonParams) error {
	_, err := q.db.ExecContext(ctx, createSeason,
		arg.FranchiseID, arg.Name, arg.Year, arg.SourceUrl)
	return err
}

const getSeasonByName = `
SELECT id, franchise_id, name, year, source_url, scraped
FROM seasons WHERE name = ?
`

func (q *Queries) GetSeasonByName(ctx context.Context, name string) (Season, error) {
	row := q.db.QueryRowContext(ctx, getSeasonByName, name)
	var s Season
	err := row.Scan(&s.ID, &s.FranchiseID, &s.Name, &s.Year, &s.SourceUrl, &s.Scraped)
	return s, err
}

const getSeasonByID = `
SELECT id, franchise_id, name, year, source_url, scraped
FROM seasons WHERE id = ?
`

func (q *Queries) GetSeasonByID(ctx context.Context, id int64) (Season, error) {
	row := q.db.QueryRowContext(ctx, getSeasonByID, id)
	var s Season
	err := row.Scan(&s.ID, &s.FranchiseID, &s.Name, &s.Year, &s.SourceUrl, &s.Scraped)
	return s, err
}

const listSeasonsByFranchise = `
SELECT id, franchise_id, name, year, source_url, scraped
FROM seasons WHERE franchise_id = ? ORDER BY id
`

func (q *Queries) ListSeasonsByFranchise(ctx context.Context, franchiseID int64) ([]Season, error) {
	rows, err := q.db.QueryContext(ctx, listSeasonsByFranchise, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Season
	for rows.Next() {
		var s Season
		err := rows.Scan(&s.ID, &s.FranchiseID, &s.Name, &s.Year, &s.SourceUrl, &s.Scraped)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const updateSeasonScraped = `
UPDATE seasons SET scraped = ? WHERE id = ?
`

type UpdateSeasonScrapedParams struct {
	ID      int64
	Scraped bool
}

func (q *Queries) UpdateSeasonScraped(ctx context.Context, arg UpdateSeasonScrapedParams) error {
	_, err := q.db.ExecContext(ctx, updateSeasonScraped, arg.Scraped, arg.ID)
	return err
}

const createContestant = `
INSERT INTO contestants (drag_name, real_name, hometown, biography, photo_url, metadata_url)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (drag_name) DO NOTHING
`

type CreateContestantParams struct {
	DragName    string
	RealName    string
	Hometown    string
	Biography   string
	PhotoUrl    string
	MetadataUrl string
}

func (q *Queries) CreateContestant(ctx context.Context, arg CreateContestantParams) error {
	_, err := q.db.ExecContext(ctx, createContestant,
		arg.DragName, arg.RealName, arg.Hometown, arg.Biography, arg.PhotoUrl, arg.MetadataUrl)
	return err
}

const getContestantByName = `
SELECT id, drag_name, real_name, hometown, biography, photo_url,
       metadata_url, image_urls, image_count, last_image_scrape
FROM contestants WHERE drag_name = ?
`

func (q *Queries) GetContestantByName(ctx context.Context, dragName string) (Contestant, error) {
	row := q.db.QueryRowContext(ctx, getContestantByName, dragName)
	return scanContestant(row)
}

const getContestantByID = `
SELECT id, drag_name, real_name, hometown, biography, photo_url,
       metadata_url, image_urls, image_count, last_image_scrape
FROM contestants WHERE id = ?
`

func (q *Queries) GetContestantByID(ctx context.Context, id int64) (Contestant, error) {
	row := q.db.QueryRowContext(ctx, getContestantByID, id)
	return scanContestant(row)
}

func scanContestant(row *sql.Row) (Contestant, error) {
	var c Contestant
	err := row.Scan(&c.ID, &c.DragName, &c.RealName, &c.Hometown, &c.Biography,
		&c.PhotoUrl, &c.MetadataUrl, &c.ImageUrls, &c.ImageCount, &c.LastImageScrape)
	return c, err
}

const listContestantNames = `
SELECT drag_name FROM contestants ORDER BY drag_name
`

func (q *Queries) ListContestantNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listContestantNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

const updateContestantProfile = `
UPDATE contestants
SET real_name = ?, hometown = ?, biography = ?, photo_url = ?, metadata_url = ?
WHERE id = ?
`

type UpdateContestantProfileParams struct {
	ID          int64
	RealName    string
	Hometown    string
	Biography   string
	PhotoUrl    string
	MetadataUrl string
}

func (q *Queries) UpdateContestantProfile(ctx context.Context, arg UpdateContestantProfileParams) error {
	_, err := q.db.ExecContext(ctx, updateContestantProfile,
		arg.RealName, arg.Hometown, arg.Biography, arg.PhotoUrl, arg.MetadataUrl, arg.ID)
	return err
}

const updateContestantImages = `
UPDATE contestants
SET image_urls = ?, image_count = ?, last_image_scrape = ?
WHERE id = ?
`

type UpdateContestantImagesParams struct {
	ID              int64
	ImageUrls       string
	ImageCount      int64
	LastImageScrape sql.NullInt64
}

func (q *Queries) UpdateContestantImages(ctx context.Context, arg UpdateContestantImagesParams) error {
	_, err := q.db.ExecContext(ctx, updateContestantImages,
		arg.ImageUrls, arg.ImageCount, arg.LastImageScrape, arg.ID)
	return err
}

const createAppearance = `
INSERT INTO appearances (contestant_id, season_id, age, outcome)
VALUES (?, ?, ?, ?)
ON CONFLICT (contestant_id, season_id) DO NOTHING
`

type CreateAppearanceParams struct {
	ContestantID int64
	SeasonID     int64
	Age          sql.NullInt64
	Outcome      string
}

func (q *Queries) CreateAppearance(ctx context.Context, arg CreateAppearanceParams) error {
	_, err := q.db.ExecContext(ctx, createAppearance,
		arg.ContestantID, arg.SeasonID, arg.Age, arg.Outcome)
	return err
}

const getAppearance = `
SELECT id, contestant_id, season_id, age, outcome
FROM appearances WHERE contestant_id = ? AND season_id = ?
`

type GetAppearanceParams struct {
	ContestantID int64
	SeasonID     int64
}

func (q *Queries) GetAppearance(ctx context.Context, arg GetAppearanceParams) (Appearance, error) {
	row := q.db.QueryRowContext(ctx, getAppearance, arg.ContestantID, arg.SeasonID)
	var a Appearance
	err := row.Scan(&a.ID, &a.ContestantID, &a.SeasonID, &a.Age, &a.Outcome)
	return a, err
}

const countAppearancesBySeason = `
SELECT COUNT(*) FROM appearances WHERE season_id = ?
`

func (q *Queries) CountAppearancesBySeason(ctx context.Context, seasonID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAppearancesBySeason, seasonID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createScrapingJob = `
INSERT INTO scraping_jobs (id, status, progress, total_items, current_item, error, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateScrapingJobParams struct {
	ID          string
	Status      string
	Progress    int64
	TotalItems  int64
	CurrentItem string
	StartedAt   int64
}

func (q *Queries) CreateScrapingJob(ctx context.Context, arg CreateScrapingJobParams) error {
	_, err := q.db.ExecContext(ctx, createScrapingJob,
		arg.ID, arg.Status, arg.Progress, arg.TotalItems, arg.CurrentItem, "", arg.StartedAt)
	return err
}

const updateScrapingJob = `
UPDATE scraping_jobs
SET status = ?, progress = ?, total_items = ?, current_item = ?, error = ?, completed_at = ?
WHERE id = ?
`

type UpdateScrapingJobParams struct {
	ID          string
	Status      string
	Progress    int64
	TotalItems  int64
	CurrentItem string
	Error       string
	CompletedAt sql.NullInt64
}

func (q *Queries) UpdateScrapingJob(ctx context.Context, arg UpdateScrapingJobParams) error {
	_, err := q.db.ExecContext(ctx, updateScrapingJob,
		arg.Status, arg.Progress, arg.TotalItems, arg.CurrentItem, arg.Error, arg.CompletedAt, arg.ID)
	return err
}

const getScrapingJob = `
SELECT id, status, progress, total_items, current_item, error, started_at, completed_at
FROM scraping_jobs WHERE id = ?
`

func (q *Queries) GetScrapingJob(ctx context.Context, id string) (ScrapingJob, error) {
	row := q.db.QueryRowContext(ctx, getScrapingJob, id)
	var j ScrapingJob
	err := row.Scan(&j.ID, &j.Status, &j.Progress, &j.TotalItems,
		&j.CurrentItem, &j.Error, &j.StartedAt, &j.CompletedAt)
	return j, err
}

const getLatestScrapingJob = `
SELECT id, status, progress, total_items, current_item, error, started_at, completed_at
FROM scraping_jobs ORDER BY started_at DESC LIMIT 1
`

func (q *Queries) GetLatestScrapingJob(ctx context.Context) (ScrapingJob, error) {
	row := q.db.QueryRowContext(ctx, getLatestScrapingJob)
	var j ScrapingJob
	err := row.Scan(&j.ID, &j.Status, &j.Progress, &j.TotalItems,
		&j.CurrentItem, &j.Error, &j.StartedAt, &j.CompletedAt)
	return j, err
}
