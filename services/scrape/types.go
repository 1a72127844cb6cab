// Package scrape runs the hierarchical franchise walk: expand a scope
// into franchise, season and contestant nodes, fetch each season page
// through a driver, extract contestant rows with the franchise recipe,
// and reconcile them into the catalog. One job runs at a time; progress
// is tracked per node and published as immutable snapshots.
package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ScopeKind selects how much of the catalog a job covers.
type ScopeKind string

const (
	ScopeFull       ScopeKind = "full"
	ScopeFranchise  ScopeKind = "franchise"
	ScopeSeason     ScopeKind = "season"
	ScopeContestant ScopeKind = "contestant"
)

// Scope is a walk target. ID is ignored for ScopeFull.
type Scope struct {
	Kind ScopeKind
	ID   int64
}

func (s Scope) String() string {
	if s.Kind == ScopeFull {
		return string(ScopeFull)
	}
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// JobStatus is the lifecycle state of a scraping job.
type JobStatus string

const (
	JobIdle      JobStatus = "idle"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobCounts accumulates walk outcomes for the job summary.
type JobCounts struct {
	SeasonsCompleted   int `json:"seasonsCompleted"`
	SeasonsFailed      int `json:"seasonsFailed"`
	RowsSkipped        int `json:"rowsSkipped"`
	ContestantsCreated int `json:"contestantsCreated"`
	AppearancesCreated int `json:"appearancesCreated"`
	ImagesDownloaded   int `json:"imagesDownloaded"`
}

// JobDescriptor is the externally visible summary of a job.
type JobDescriptor struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	Status      JobStatus `json:"status"`
	Driver      string    `json:"driver"`
	Progress    int       `json:"progress"`
	TotalItems  int       `json:"totalItems"`
	CurrentItem string    `json:"currentItem"`
	Error       string    `json:"error,omitempty"`
	Counts      JobCounts `json:"counts"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

var (
	ErrAlreadyRunning = errors.New("a scraping job is already running")
	ErrNotRunning     = errors.New("no scraping job is running")
	ErrUnknownScope   = errors.New("unknown scope kind")
)

// ProgressSink receives a snapshot after every node state change.
// Implementations must not block; delivery is best effort.
type ProgressSink interface {
	Publish(snapshot Snapshot)
}

// NopSink drops every snapshot.
type NopSink struct{}

func (NopSink) Publish(Snapshot) {}

// Config tunes a scrape service instance.
type Config struct {
	// Driver forces a page fetcher: "rod" or "simulated". Empty means
	// probe the host and pick automatically.
	Driver string `json:"driver"`

	PageTimeout    time.Duration `json:"pageTimeout"`
	SimulatedDelay time.Duration `json:"simulatedDelay"`

	Images ImageConfig `json:"images"`
}
