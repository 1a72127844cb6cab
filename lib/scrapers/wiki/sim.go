package wiki

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SimulatedFetcher fabricates deterministic contestant pages in memory.
// It stands in for the rod driver when no browser binary is available:
// same interface, same row shape, and a stable dataset per URL so runs
// are reproducible.
type SimulatedFetcher struct {
	cfg Config
}

func NewSimulatedFetcher(cfg Config) *SimulatedFetcher {
	return &SimulatedFetcher{cfg: cfg}
}

type simPage struct {
	url string
}

func (p simPage) URL() string { return p.url }

func (f *SimulatedFetcher) Open(ctx context.Context, url string) (Page, error) {
	ctx, span := tracer.Start(ctx, "sim:Open")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	if f.cfg.SimulatedDelay > 0 {
		select {
		case <-time.After(f.cfg.SimulatedDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrPageLoad, url, ctx.Err())
		}
	}
	return simPage{url: url}, nil
}

func (f *SimulatedFetcher) ExtractRows(ctx context.Context, page Page, recipe Recipe) (ExtractResult, error) {
	_, span := tracer.Start(ctx, "sim:ExtractRows")
	defer span.End()

	handle, ok := page.(simPage)
	if !ok {
		return ExtractResult{}, fmt.Errorf("page %q was not opened by the simulated driver", page.URL())
	}

	rows := simulateRows(handle.url)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return ExtractResult{Rows: rows, Layout: "simulated"}, nil
}

func (f *SimulatedFetcher) Close(ctx context.Context) error {
	return nil
}

var simFirstNames = []string{
	"Velvet", "Anita", "Crystal", "Ginger", "Mercury", "Ophelia",
	"Pandora", "Scarlet", "Tempest", "Vanity", "Electra", "Jade",
}

var simLastNames = []string{
	"Overdrive", "Vanjole", "Mirage", "LaRue", "Divine", "Couture",
	"Monsoon", "Royale", "Oddity", "St. James", "Fontaine", "Galore",
}

var simHometowns = []string{
	"Chicago, Illinois", "Manchester", "Toronto, Ontario", "Sydney",
	"Atlanta, Georgia", "Berlin", "Los Angeles, California", "Glasgow",
}

// simulateRows derives a stable cast from the page URL. The shape
// mirrors what a real season table yields: one winner, one runner-up,
// the rest eliminated, an occasional disqualification.
func simulateRows(url string) []RowRecord {
	h := fnv.New32a()
	h.Write([]byte(url))
	seed := h.Sum32()

	count := 8 + int(seed%5)
	rows := make([]RowRecord, 0, count)
	for i := 0; i < count; i++ {
		mix := int(seed>>3) + i*7
		first := simFirstNames[mix%len(simFirstNames)]
		last := simLastNames[(mix/3)%len(simLastNames)]
		age := 21 + (mix % 19)

		outcome := "Eliminated"
		switch {
		case i == 0:
			outcome = "Winner"
		case i == 1:
			outcome = "Runner-Up"
		case i == 3 && seed%5 == 0:
			outcome = "Disqualified"
		}

		rows = append(rows, RowRecord{
			DragName: fmt.Sprintf("%s %s", first, last),
			RealName: fmt.Sprintf("%s Sim", first),
			Hometown: simHometowns[(mix/2)%len(simHometowns)],
			Outcome:  outcome,
			Age:      &age,
		})
	}
	return rows
}
