package db

import "database/sql"

type Franchise struct {
	ID        int64
	Name      string
	SourceUrl string
}

type Season struct {
	ID          int64
	FranchiseID int64
	Name        string
	Year        sql.NullInt64
	SourceUrl   string
	Scraped     bool
}

type Contestant struct {
	ID              int64
	DragName        string
	RealName        string
	Hometown        string
	Biography       string
	PhotoUrl        string
	MetadataUrl     string
	ImageUrls       string
	ImageCount      int64
	LastImageScrape sql.NullInt64
}

type Appearance struct {
	ID           int64
	ContestantID int64
	SeasonID     int64
	Age          sql.NullInt64
	Outcome      string
}

type ScrapingJob struct {
	ID          string
	Status      string
	Progress    int64
	TotalItems  int64
	CurrentItem string
	Error       string
	StartedAt   int64
	CompletedAt sql.NullInt64
}
