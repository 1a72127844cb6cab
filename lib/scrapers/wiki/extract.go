package wiki

import (
	"context"
	"fmt"

	"dragdex-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("dragdex.scrapers.wiki")

// ExtractFromDocument applies a recipe to an already fetched document.
// Drivers go through this after taking their page snapshot; it is
// exported so alternate page sources can reuse the same table walk.
func ExtractFromDocument(ctx context.Context, doc *goquery.Document, recipe Recipe) (ExtractResult, error) {
	return extractFromDocument(ctx, doc, recipe)
}

// extractFromDocument walks the recipe's layouts in declared order and
// returns the rows of the first layout that yields anything usable.
func extractFromDocument(ctx context.Context, doc *goquery.Document, recipe Recipe) (ExtractResult, error) {
	ctx, span := tracer.Start(ctx, "extractFromDocument")
	defer span.End()
	span.SetAttributes(attribute.String("franchise", recipe.Franchise))

	totalSkipped := 0
	for _, layout := range recipe.Layouts {
		result, ok := extractLayout(ctx, doc, layout)
		totalSkipped += result.Skipped
		if ok {
			result.Skipped = totalSkipped
			span.SetAttributes(
				attribute.String("layout", layout.Name),
				attribute.Int("rows", len(result.Rows)),
				attribute.Int("skipped", result.Skipped),
			)
			return result, nil
		}
	}

	span.SetStatus(codes.Error, "extraction empty")
	return ExtractResult{Skipped: totalSkipped}, fmt.Errorf(
		"%w: franchise %q, %d layouts tried", ErrExtractionEmpty,
		recipe.Franchise, len(recipe.Layouts))
}

func extractLayout(ctx context.Context, doc *goquery.Document, layout Layout) (ExtractResult, bool) {
	table := doc.Find(layout.TableSelector).First()
	if table.Length() == 0 {
		return ExtractResult{}, false
	}

	rowSelector := layout.RowSelector
	if rowSelector == "" {
		rowSelector = "tr"
	}

	result := ExtractResult{Layout: layout.Name}
	table.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		if i < layout.HeaderRows {
			return
		}
		record, ok := extractRow(row, layout)
		if !ok {
			result.Skipped++
			return
		}
		result.Rows = append(result.Rows, record)
	})

	return result, len(result.Rows) > 0
}

// extractRow applies every cell rule of the layout to one table row. A
// row without a usable drag name is not a contestant row (spacer rows,
// "lip sync" annotation rows) and is skipped rather than erroring.
func extractRow(row *goquery.Selection, layout Layout) (RowRecord, bool) {
	var record RowRecord
	for field, rule := range layout.Fields {
		raw, ok := cellText(row, rule)
		if !ok {
			continue
		}
		value := parsers[rule.Parser](raw)
		setField(&record, field, value)
	}
	if record.DragName == "" {
		return RowRecord{}, false
	}
	return record, true
}

func cellText(row *goquery.Selection, rule CellRule) (string, bool) {
	cells := row.Find(string(rule.Cell))
	count := cells.Length()
	if count == 0 {
		return "", false
	}

	index := rule.Index
	if index < 0 {
		index = count + index
	}
	if index < 0 || index >= count {
		return "", false
	}

	cell := cells.Eq(index)
	if rule.Inner != "" {
		inner := cell.Find(rule.Inner)
		if inner.Length() > 0 {
			cell = inner.First()
		}
	}
	return htmlutil.CleanText(cell), true
}

func setField(record *RowRecord, field Field, value parsedValue) {
	switch field {
	case FieldDragName:
		record.DragName = value.Text
	case FieldRealName:
		record.RealName = value.Text
	case FieldHometown:
		record.Hometown = value.Text
	case FieldOutcome:
		record.Outcome = value.Text
	case FieldAge:
		record.Age = value.Number
	}
}
