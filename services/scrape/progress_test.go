package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressAggregation(t *testing.T) {
	tr := newTracker("job-1")
	fi := tr.AddFranchise("Drag Race US")
	for _, name := range []string{"Season 14", "Season 15", "Season 16", "Season 17"} {
		tr.AddSeason(fi, name)
	}

	require.Equal(t, 0, tr.Progress())

	tr.SetFranchiseStatus(fi, NodeRunning)
	tr.SetSeasonStatus(fi, 0, NodeCompleted)
	require.Equal(t, 25, tr.Progress())

	// a running season with half its roster done contributes half a
	// season's worth
	tr.SetSeasonStatus(fi, 1, NodeRunning)
	tr.AddContestants(fi, 1, []string{"a", "b", "c", "d"})
	tr.SetContestantStatus(fi, 1, 0, NodeCompleted)
	tr.SetContestantStatus(fi, 1, 1, NodeCompleted)
	require.Equal(t, 37, tr.Progress()) // (100 + 50 + 0 + 0) / 4

	snap := tr.Snapshot()
	require.Equal(t, 50, snap.Franchises[0].Seasons[1].Progress)
	require.Equal(t, 37, snap.Franchises[0].Progress)
}

func TestProgressFailedCountsAsTraversed(t *testing.T) {
	tr := newTracker("job-1")
	fi := tr.AddFranchise("f")
	tr.AddSeason(fi, "s1")
	tr.AddSeason(fi, "s2")
	tr.SetFranchiseStatus(fi, NodeRunning)
	tr.SetSeasonStatus(fi, 0, NodeFailed)
	require.Equal(t, 50, tr.Progress())
}

func TestSnapshotIsImmutable(t *testing.T) {
	tr := newTracker("job-1")
	fi := tr.AddFranchise("f")
	tr.AddSeason(fi, "s1")
	tr.SetFranchiseStatus(fi, NodeRunning)
	tr.SetSeasonStatus(fi, 0, NodeRunning)
	tr.AddContestants(fi, 0, []string{"a"})

	snap := tr.Snapshot()
	tr.SetContestantStatus(fi, 0, 0, NodeCompleted)
	tr.SetSeasonStatus(fi, 0, NodeCompleted)

	require.Equal(t, NodePending, snap.Franchises[0].Seasons[0].Contestants[0].Status)
	require.Equal(t, NodeRunning, snap.Franchises[0].Seasons[0].Status)
}

func TestSnapshotCurrentItem(t *testing.T) {
	tr := newTracker("job-1")
	fi := tr.AddFranchise("Drag Race UK")
	tr.AddSeason(fi, "UK Series 4")
	tr.AddContestants(fi, 0, []string{"Black Peppa"})
	tr.SetSeasonStatus(fi, 0, NodeRunning)
	tr.SetContestantStatus(fi, 0, 0, NodeRunning)

	snap := tr.Snapshot()
	require.Equal(t, "Drag Race UK / UK Series 4 / Black Peppa", snap.CurrentItem)
}

func TestFinalize(t *testing.T) {
	t.Run("all seasons failed", func(t *testing.T) {
		tr := newTracker("job-1")
		fi := tr.AddFranchise("f")
		tr.AddSeason(fi, "s1")
		tr.AddSeason(fi, "s2")
		tr.SetSeasonStatus(fi, 0, NodeFailed)
		tr.SetSeasonStatus(fi, 1, NodeFailed)
		require.Equal(t, JobFailed, tr.Finalize())
	})

	t.Run("partial failure still completes", func(t *testing.T) {
		tr := newTracker("job-1")
		fi := tr.AddFranchise("f")
		tr.AddSeason(fi, "s1")
		tr.AddSeason(fi, "s2")
		tr.SetSeasonStatus(fi, 0, NodeFailed)
		tr.SetSeasonStatus(fi, 1, NodeCompleted)
		require.Equal(t, JobCompleted, tr.Finalize())
	})

	t.Run("operator stop wins", func(t *testing.T) {
		tr := newTracker("job-1")
		fi := tr.AddFranchise("f")
		tr.AddSeason(fi, "s1")
		tr.SetSeasonStatus(fi, 0, NodeCompleted)
		tr.SetStatus(JobFailed)
		require.Equal(t, JobFailed, tr.Finalize())
	})
}
