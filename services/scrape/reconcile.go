package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"dario.cat/mergo"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/lib/textutil"
	"dragdex-backend/services/catalog/db"
)

// Drag names are matched exactly; casing and punctuation are part of
// the identity ("Miz Cracker" vs "Ms. Cracker" are different queens).
// A near match above this similarity is still worth a warning so a
// recipe typo shows up in the logs instead of as a duplicate row.
const nearDuplicateThreshold = 0.93

type reconcileOutcome struct {
	ContestantID      int64
	Created           bool
	AppearanceCreated bool
}

// reconcileRow folds one extracted table row into the catalog: look the
// contestant up by exact drag name, create on first sight, fill only
// the fields an earlier scrape left empty, and record the appearance.
func (s *Service) reconcileRow(ctx context.Context, seasonID int64, sourceUrl string, row wiki.RowRecord) (reconcileOutcome, error) {
	ctx, span := tracer.Start(ctx, "reconcileRow")
	defer span.End()
	span.SetAttributes(attribute.String("drag_name", row.DragName))

	var out reconcileOutcome

	name := textutil.CollapseWhitespace(row.DragName)
	if name == "" {
		return out, fmt.Errorf("row has no drag name")
	}

	existing, found, err := s.store.GetContestantByName(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	if !found {
		s.warnNearDuplicates(ctx, name)
		created, err := s.store.CreateContestant(ctx, db.CreateContestantParams{
			DragName:    name,
			RealName:    row.RealName,
			Hometown:    row.Hometown,
			MetadataUrl: sourceUrl,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return out, err
		}
		existing = created
		out.Created = true
	} else {
		if err := s.fillMissingProfile(ctx, existing, row, sourceUrl); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return out, err
		}
	}
	out.ContestantID = existing.ID

	appearanceCreated, err := s.store.EnsureAppearance(ctx, existing.ID, seasonID, row.Age, row.Outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	out.AppearanceCreated = appearanceCreated
	return out, nil
}

// fillMissingProfile merges row data into an existing contestant
// without overwriting anything already present. mergo's default merge
// only touches zero-valued destination fields, which is exactly the
// fill-missing rule.
func (s *Service) fillMissingProfile(ctx context.Context, existing db.Contestant, row wiki.RowRecord, sourceUrl string) error {
	merged := existing
	incoming := db.Contestant{
		RealName:    row.RealName,
		Hometown:    row.Hometown,
		MetadataUrl: sourceUrl,
	}
	if err := mergo.Merge(&merged, incoming); err != nil {
		return err
	}
	if merged == existing {
		return nil
	}
	slog.DebugContext(ctx, "filling missing contestant fields",
		"dragName", existing.DragName)
	return s.store.UpdateContestantProfile(ctx, db.UpdateContestantProfileParams{
		ID:          existing.ID,
		RealName:    merged.RealName,
		Hometown:    merged.Hometown,
		Biography:   merged.Biography,
		PhotoUrl:    merged.PhotoUrl,
		MetadataUrl: merged.MetadataUrl,
	})
}

// warnNearDuplicates logs likely misspellings of an incoming new name
// against the known roster. It never blocks the insert.
func (s *Service) warnNearDuplicates(ctx context.Context, name string) {
	known, err := s.store.ListContestantNames(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not list contestant names for duplicate check", "err", err)
		return
	}
	normalized := textutil.NormalizeName(name)
	for _, candidate := range known {
		score := matchr.JaroWinkler(normalized, textutil.NormalizeName(candidate), true)
		if score >= nearDuplicateThreshold {
			slog.WarnContext(ctx, "new contestant is suspiciously close to an existing one",
				"new", name,
				"existing", candidate,
				"similarity", score)
		}
	}
}
