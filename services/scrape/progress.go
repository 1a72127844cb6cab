package scrape

import (
	"sync"
	"time"
)

// NodeStatus is the walk state of one franchise, season or contestant.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

// Snapshot is an immutable view of a job's progress tree. Every slice
// is freshly allocated so publishing a snapshot never races with the
// walk mutating the tracker.
type Snapshot struct {
	JobID       string              `json:"jobId"`
	Status      JobStatus           `json:"status"`
	Progress    int                 `json:"progress"`
	CurrentItem string              `json:"currentItem"`
	Franchises  []FranchiseProgress `json:"franchises"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type FranchiseProgress struct {
	Name     string           `json:"name"`
	Status   NodeStatus       `json:"status"`
	Progress int              `json:"progress"`
	Seasons  []SeasonProgress `json:"seasons"`
}

type SeasonProgress struct {
	Name        string               `json:"name"`
	Status      NodeStatus           `json:"status"`
	Progress    int                  `json:"progress"`
	Contestants []ContestantProgress `json:"contestants"`
}

type ContestantProgress struct {
	Name   string     `json:"name"`
	Status NodeStatus `json:"status"`
}

type contestantNode struct {
	name   string
	status NodeStatus
}

type seasonNode struct {
	name        string
	status      NodeStatus
	contestants []*contestantNode
}

type franchiseNode struct {
	name    string
	status  NodeStatus
	seasons []*seasonNode
}

// tracker holds the mutable progress tree for one job. Contestant
// children appear only once the season page has been extracted, so a
// season's weight shifts from coarse to fine as the walk descends.
type tracker struct {
	mu          sync.Mutex
	jobID       string
	status      JobStatus
	currentItem string
	franchises  []*franchiseNode
}

func newTracker(jobID string) *tracker {
	return &tracker{jobID: jobID, status: JobRunning}
}

// AddFranchise appends a pending franchise node and returns its index.
func (t *tracker) AddFranchise(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.franchises = append(t.franchises, &franchiseNode{name: name, status: NodePending})
	return len(t.franchises) - 1
}

func (t *tracker) AddSeason(franchise int, name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.franchises[franchise]
	f.seasons = append(f.seasons, &seasonNode{name: name, status: NodePending})
	return len(f.seasons) - 1
}

// AddContestants registers the extracted roster under a season. Called
// once per season, after extraction succeeds.
func (t *tracker) AddContestants(franchise, season int, names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.franchises[franchise].seasons[season]
	for _, name := range names {
		s.contestants = append(s.contestants, &contestantNode{name: name, status: NodePending})
	}
}

func (t *tracker) SetFranchiseStatus(franchise int, status NodeStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.franchises[franchise]
	f.status = status
	if status == NodeRunning {
		t.currentItem = f.name
	}
}

func (t *tracker) SetSeasonStatus(franchise, season int, status NodeStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.franchises[franchise]
	s := f.seasons[season]
	s.status = status
	if status == NodeRunning {
		t.currentItem = f.name + " / " + s.name
	}
}

func (t *tracker) SetContestantStatus(franchise, season, contestant int, status NodeStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := t.franchises[franchise]
	s := f.seasons[season]
	c := s.contestants[contestant]
	c.status = status
	if status == NodeRunning {
		t.currentItem = f.name + " / " + s.name + " / " + c.name
	}
}

func (t *tracker) SetStatus(status JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// Finalize decides the terminal job status from the tree: Failed only
// when every season node failed, Completed otherwise. A status already
// set to Failed (an operator stop) is left alone.
func (t *tracker) Finalize() JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == JobFailed {
		return t.status
	}
	total, failed := 0, 0
	for _, f := range t.franchises {
		for _, s := range f.seasons {
			total++
			if s.status == NodeFailed {
				failed++
			}
		}
	}
	if total > 0 && failed == total {
		t.status = JobFailed
	} else {
		t.status = JobCompleted
	}
	t.currentItem = ""
	return t.status
}

// Progress returns the overall percentage.
func (t *tracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return progressOf(t.franchises)
}

// Snapshot deep-copies the tree with per-level progress recomputed
// bottom up.
func (t *tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		JobID:       t.jobID,
		Status:      t.status,
		Progress:    progressOf(t.franchises),
		CurrentItem: t.currentItem,
		Franchises:  make([]FranchiseProgress, 0, len(t.franchises)),
		UpdatedAt:   time.Now().UTC(),
	}
	for _, f := range t.franchises {
		fp := FranchiseProgress{
			Name:     f.name,
			Status:   f.status,
			Progress: franchiseProgress(f),
			Seasons:  make([]SeasonProgress, 0, len(f.seasons)),
		}
		for _, s := range f.seasons {
			sp := SeasonProgress{
				Name:        s.name,
				Status:      s.status,
				Progress:    seasonProgress(s),
				Contestants: make([]ContestantProgress, 0, len(s.contestants)),
			}
			for _, c := range s.contestants {
				sp.Contestants = append(sp.Contestants, ContestantProgress{Name: c.name, Status: c.status})
			}
			fp.Seasons = append(fp.Seasons, sp)
		}
		snap.Franchises = append(snap.Franchises, fp)
	}
	return snap
}

// Aggregation: a terminal child counts as fully traversed, a running
// child contributes its own progress, a pending child contributes
// nothing. Contestants have no sub-progress so a running one counts 0
// until it finishes.

func contestantContribution(c *contestantNode) int {
	switch c.status {
	case NodeCompleted, NodeFailed:
		return 100
	default:
		return 0
	}
}

func seasonProgress(s *seasonNode) int {
	switch s.status {
	case NodeCompleted, NodeFailed:
		return 100
	case NodePending:
		return 0
	}
	if len(s.contestants) == 0 {
		return 0
	}
	sum := 0
	for _, c := range s.contestants {
		sum += contestantContribution(c)
	}
	return sum / len(s.contestants)
}

func franchiseProgress(f *franchiseNode) int {
	switch f.status {
	case NodeCompleted, NodeFailed:
		return 100
	case NodePending:
		return 0
	}
	if len(f.seasons) == 0 {
		return 0
	}
	sum := 0
	for _, s := range f.seasons {
		sum += seasonProgress(s)
	}
	return sum / len(f.seasons)
}

func progressOf(franchises []*franchiseNode) int {
	if len(franchises) == 0 {
		return 0
	}
	sum := 0
	for _, f := range franchises {
		sum += franchiseProgress(f)
	}
	return sum / len(franchises)
}
