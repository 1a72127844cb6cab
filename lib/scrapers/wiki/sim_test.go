package wiki

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSimulatedFetcherDeterministic(t *testing.T) {
	fetcher := NewSimulatedFetcher(Config{})
	ctx := context.Background()

	page, err := fetcher.Open(ctx, "https://example.test/wiki/Season_14")
	require.NoError(t, err)

	first, err := fetcher.ExtractRows(ctx, page, DefaultRecipe())
	require.NoError(t, err)
	second, err := fetcher.ExtractRows(ctx, page, DefaultRecipe())
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(first, second))
	require.GreaterOrEqual(t, len(first.Rows), 8)
}

func TestSimulatedFetcherVariesByUrl(t *testing.T) {
	fetcher := NewSimulatedFetcher(Config{})
	ctx := context.Background()

	a, err := fetcher.Open(ctx, "https://example.test/wiki/Season_14")
	require.NoError(t, err)
	b, err := fetcher.Open(ctx, "https://example.test/wiki/Season_15")
	require.NoError(t, err)

	rowsA, err := fetcher.ExtractRows(ctx, a, DefaultRecipe())
	require.NoError(t, err)
	rowsB, err := fetcher.ExtractRows(ctx, b, DefaultRecipe())
	require.NoError(t, err)

	require.NotEmpty(t, cmp.Diff(rowsA, rowsB))
}

func TestSimulatedRowsShape(t *testing.T) {
	rows := simulateRows("https://example.test/wiki/Season_16")

	require.Equal(t, "Winner", rows[0].Outcome)
	require.Equal(t, "Runner-Up", rows[1].Outcome)
	names := map[string]bool{}
	for _, row := range rows {
		require.NotEmpty(t, row.DragName)
		require.NotNil(t, row.Age)
		require.False(t, names[row.DragName], "duplicate cast member %q", row.DragName)
		names[row.DragName] = true
	}
}

func TestSimulatedOpenHonorsCancellation(t *testing.T) {
	fetcher := NewSimulatedFetcher(Config{SimulatedDelay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Open(ctx, "https://example.test/wiki/Season_14")
	require.ErrorIs(t, err, ErrPageLoad)
}
