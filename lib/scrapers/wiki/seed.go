package wiki

// SeedSeason is one season known ahead of time for a franchise. Seasons
// can also be discovered during a franchise-level walk; the seed list is
// the minimum catalog a full scrape always covers.
type SeedSeason struct {
	Name      string
	Year      int
	SourceUrl string
}

type SeedFranchise struct {
	Name      string
	SourceUrl string
	Seasons   []SeedSeason
}

const fandomBase = "https://rupaulsdragrace.fandom.com/wiki"

// Seeds returns the static franchise catalog. Order is the walk order
// of a full scrape.
func Seeds() []SeedFranchise {
	return []SeedFranchise{
		{
			Name:      "Drag Race US",
			SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race",
			Seasons: []SeedSeason{
				{Name: "Season 14", Year: 2022, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_(Season_14)"},
				{Name: "Season 15", Year: 2023, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_(Season_15)"},
				{Name: "Season 16", Year: 2024, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_(Season_16)"},
			},
		},
		{
			Name:      "Drag Race UK",
			SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_UK",
			Seasons: []SeedSeason{
				{Name: "UK Series 4", Year: 2022, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_UK_(Series_4)"},
				{Name: "UK Series 5", Year: 2023, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_UK_(Series_5)"},
			},
		},
		{
			Name:      "Canada's Drag Race",
			SourceUrl: fandomBase + "/Canada%27s_Drag_Race",
			Seasons: []SeedSeason{
				{Name: "Canada Season 3", Year: 2022, SourceUrl: fandomBase + "/Canada%27s_Drag_Race_(Season_3)"},
				{Name: "Canada Season 4", Year: 2023, SourceUrl: fandomBase + "/Canada%27s_Drag_Race_(Season_4)"},
			},
		},
		{
			Name:      "Drag Race Down Under",
			SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_Down_Under",
			Seasons: []SeedSeason{
				{Name: "Down Under Season 2", Year: 2022, SourceUrl: fandomBase + "/RuPaul%27s_Drag_Race_Down_Under_(Season_2)"},
			},
		},
	}
}

// RegisterSeedRecipes installs the per-franchise recipes the seed
// catalog needs. Franchises without an entry here fall through to the
// registry default.
func RegisterSeedRecipes(registry *Registry) error {
	recipes := []Recipe{
		{
			// US season pages use the standard wikitable but the UK/AU
			// mirror layout shows up on older revisions, so it stays as
			// a declared fallback.
			Franchise: "Drag Race US",
			Layouts:   DefaultRecipe().Layouts,
		},
		{
			// UK pages put the full name column before hometown and
			// label the last column "Outcome" inside a sortable table.
			Franchise: "Drag Race UK",
			Layouts: []Layout{
				{
					Name:          "uk contestants",
					TableSelector: "table.wikitable.sortable",
					HeaderRows:    1,
					Fields: map[Field]CellRule{
						FieldDragName: {Cell: HeaderCell, Index: 0, Inner: "a", Parser: ParserTrim},
						FieldRealName: {Cell: DataCell, Index: 0, Parser: ParserTrim},
						FieldAge:      {Cell: DataCell, Index: 1, Parser: ParserAge},
						FieldHometown: {Cell: DataCell, Index: 2, Parser: ParserTrim},
						FieldOutcome:  {Cell: DataCell, Index: -1, Parser: ParserOutcome},
					},
				},
				DefaultRecipe().Layouts[0],
			},
		},
	}

	for _, recipe := range recipes {
		err := registry.Register(recipe)
		if err != nil {
			return err
		}
	}
	return nil
}
