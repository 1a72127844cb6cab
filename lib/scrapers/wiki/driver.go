package wiki

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RowRecord is one extracted contestant row, shaped the same way by the
// rod driver and the simulated driver.
type RowRecord struct {
	DragName string
	RealName string
	Hometown string
	Outcome  string
	Age      *int
}

// Page is an opaque handle returned by a fetcher's Open and consumed by
// the same fetcher's ExtractRows.
type Page interface {
	URL() string
}

// ExtractResult carries the usable rows plus the count of rows that were
// present but unusable (no drag name cell). Skipped rows never fail a
// season; they only show up in counters.
type ExtractResult struct {
	Rows    []RowRecord
	Skipped int
	// name of the layout that produced the rows
	Layout string
}

// PageFetcher is the page driver contract. The rod implementation drives
// headless chrome; the simulated implementation fabricates deterministic
// fixture pages. The orchestrator treats both identically.
type PageFetcher interface {
	Open(ctx context.Context, url string) (Page, error)
	ExtractRows(ctx context.Context, page Page, recipe Recipe) (ExtractResult, error)
	Close(ctx context.Context) error
}

// Config for driver construction, threaded in explicitly by the caller.
type Config struct {
	PageTimeout time.Duration
	// artificial per-page delay of the simulated driver, keeps progress
	// pacing realistic in demos; zero is fine for tests
	SimulatedDelay time.Duration
}

func (c Config) pageTimeout() time.Duration {
	if c.PageTimeout <= 0 {
		return 30 * time.Second
	}
	return c.PageTimeout
}

var (
	ErrPageLoad        = errors.New("page load failed")
	ErrExtractionEmpty = errors.New("no layout produced any contestant rows")
)

// DriverInitError means the browser engine could not be brought up at
// all. The orchestrator reacts by substituting the simulated driver, it
// does not fail the job.
type DriverInitError struct {
	Err error
}

func (e DriverInitError) Error() string {
	return fmt.Sprintf("browser driver init: %v", e.Err)
}

func (e DriverInitError) Unwrap() error {
	return e.Err
}
