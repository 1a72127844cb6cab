package wiki

import (
	"fmt"
	"log/slog"
)

// Field names a contestant attribute a recipe knows how to locate.
type Field string

const (
	FieldDragName Field = "dragName"
	FieldRealName Field = "realName"
	FieldAge      Field = "age"
	FieldHometown Field = "hometown"
	FieldOutcome  Field = "outcome"
)

// CellKind says whether a field lives in a header cell or a data cell.
type CellKind string

const (
	HeaderCell CellKind = "th"
	DataCell   CellKind = "td"
)

// CellRule locates one field inside a contestant row. A negative Index
// counts from the end of the row, so -1 is the last cell. Inner, when
// set, narrows the cell to an inner selector (e.g. the link text) before
// the text is read.
type CellRule struct {
	Cell   CellKind
	Index  int
	Inner  string
	Parser string
}

// Layout describes one table shape a franchise page may use. Recipes
// declare layouts in fallback order: the first layout whose table exists
// and yields at least one usable row wins.
type Layout struct {
	Name          string
	TableSelector string
	// row selector within the table, "tr" when empty
	RowSelector string
	// leading rows to skip (column headers)
	HeaderRows int
	Fields     map[Field]CellRule
}

type Recipe struct {
	Franchise string
	Layouts   []Layout
}

// ConfigError reports a malformed recipe. It is raised at registration
// time only, never during a live scrape.
type ConfigError struct {
	Recipe string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("recipe %q: %s", e.Recipe, e.Reason)
}

// Registry maps franchise names to extraction recipes. Registration
// happens at startup; Resolve is read-only afterwards and safe to call
// from the scrape walk.
type Registry struct {
	recipes  map[string]Recipe
	fallback Recipe
}

func NewRegistry() *Registry {
	return &Registry{
		recipes:  map[string]Recipe{},
		fallback: DefaultRecipe(),
	}
}

func (r *Registry) Register(recipe Recipe) error {
	err := validateRecipe(recipe)
	if err != nil {
		return err
	}
	r.recipes[recipe.Franchise] = recipe
	return nil
}

// Resolve never fails: an unregistered franchise gets the default
// wikitable recipe. The miss is logged because a typo in a franchise
// name would otherwise silently degrade extraction quality.
func (r *Registry) Resolve(franchise string) Recipe {
	recipe, ok := r.recipes[franchise]
	if ok {
		return recipe
	}
	slog.Warn("no extraction recipe registered, using default",
		"franchise", franchise)
	fallback := r.fallback
	fallback.Franchise = franchise
	return fallback
}

func validateRecipe(recipe Recipe) error {
	if recipe.Franchise == "" {
		return ConfigError{Recipe: recipe.Franchise, Reason: "franchise name is empty"}
	}
	if len(recipe.Layouts) == 0 {
		return ConfigError{Recipe: recipe.Franchise, Reason: "no layouts declared"}
	}
	for _, layout := range recipe.Layouts {
		if layout.TableSelector == "" {
			return ConfigError{
				Recipe: recipe.Franchise,
				Reason: fmt.Sprintf("layout %q has no table selector", layout.Name),
			}
		}
		if _, ok := layout.Fields[FieldDragName]; !ok {
			return ConfigError{
				Recipe: recipe.Franchise,
				Reason: fmt.Sprintf("layout %q does not locate the drag name", layout.Name),
			}
		}
		for field, rule := range layout.Fields {
			if rule.Cell != HeaderCell && rule.Cell != DataCell {
				return ConfigError{
					Recipe: recipe.Franchise,
					Reason: fmt.Sprintf("layout %q field %q has cell kind %q", layout.Name, field, rule.Cell),
				}
			}
			if _, ok := parsers[rule.Parser]; !ok {
				return ConfigError{
					Recipe: recipe.Franchise,
					Reason: fmt.Sprintf("layout %q field %q names unknown parser %q", layout.Name, field, rule.Parser),
				}
			}
		}
	}
	return nil
}

// DefaultRecipe handles the common fandom wikitable shape: contestant
// name in the leading header cell, age and hometown in the first data
// cells, outcome in the last column.
func DefaultRecipe() Recipe {
	return Recipe{
		Layouts: []Layout{
			{
				Name:          "wikitable",
				TableSelector: "table.wikitable",
				HeaderRows:    1,
				Fields: map[Field]CellRule{
					FieldDragName: {Cell: HeaderCell, Index: 0, Inner: "a", Parser: ParserTrim},
					FieldAge:      {Cell: DataCell, Index: 0, Parser: ParserAge},
					FieldHometown: {Cell: DataCell, Index: 1, Parser: ParserTrim},
					FieldOutcome:  {Cell: DataCell, Index: -1, Parser: ParserOutcome},
				},
			},
			{
				Name:          "sortable fallback",
				TableSelector: "table.sortable",
				HeaderRows:    1,
				Fields: map[Field]CellRule{
					FieldDragName: {Cell: DataCell, Index: 0, Inner: "a", Parser: ParserTrim},
					FieldAge:      {Cell: DataCell, Index: 1, Parser: ParserAge},
					FieldHometown: {Cell: DataCell, Index: 2, Parser: ParserTrim},
					FieldOutcome:  {Cell: DataCell, Index: -1, Parser: ParserOutcome},
				},
			},
		},
	}
}
