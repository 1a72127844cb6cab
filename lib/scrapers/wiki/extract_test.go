package wiki

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const seasonFixture = `
<html><body>
<table class="wikitable">
  <tr><th>Contestant</th><th>Age</th><th>Hometown</th><th>Outcome</th></tr>
  <tr>
    <th><a href="/wiki/Willow_Pill">Willow Pill</a></th>
    <td>26</td><td>Denver, Colorado</td><td>Winner</td>
  </tr>
  <tr>
    <th><a href="/wiki/Lady_Camden">Lady Camden</a></th>
    <td>31</td><td>Sacramento, California</td><td>Runner-up</td>
  </tr>
</table>
</body></html>`

func fixtureDoc(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractFromDocument(t *testing.T) {
	doc := fixtureDoc(t, seasonFixture)

	result, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.NoError(t, err)
	require.Equal(t, "wikitable", result.Layout)
	require.Len(t, result.Rows, 2)

	first := result.Rows[0]
	require.Equal(t, "Willow Pill", first.DragName)
	require.NotNil(t, first.Age)
	require.Equal(t, 26, *first.Age)
	require.Equal(t, "Denver, Colorado", first.Hometown)
	require.Equal(t, "Winner", first.Outcome)

	require.Equal(t, "Runner-Up", result.Rows[1].Outcome)
}

func TestExtractNegativeIndexResolvesFromEnd(t *testing.T) {
	// a wider row: the -1 outcome rule must land on the final cell
	// regardless of row width
	doc := fixtureDoc(t, `
<table class="wikitable">
  <tr><th>h</th></tr>
  <tr><th><a>Kornbread Jeté</a></th><td>29</td><td>Los Angeles</td><td>extra</td><td>more</td><td>Eliminated</td></tr>
</table>`)

	result, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Eliminated", result.Rows[0].Outcome)
}

func TestExtractTriesAlternativeLayoutsInOrder(t *testing.T) {
	// no table.wikitable on the page; the default recipe's sortable
	// fallback still matches
	doc := fixtureDoc(t, `
<table class="sortable">
  <tr><td>Name</td></tr>
  <tr><td><a>Crystal Methyd</a></td><td>28</td><td>Springfield, Missouri</td><td>Runner-up</td></tr>
</table>`)

	result, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.NoError(t, err)
	require.Equal(t, "sortable fallback", result.Layout)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Crystal Methyd", result.Rows[0].DragName)
}

func TestExtractEmptyDocument(t *testing.T) {
	doc := fixtureDoc(t, `<html><body><p>nothing here</p></body></html>`)

	_, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.ErrorIs(t, err, ErrExtractionEmpty)
}

func TestExtractSkipsRowsWithoutDragName(t *testing.T) {
	doc := fixtureDoc(t, `
<table class="wikitable">
  <tr><th>h</th></tr>
  <tr><th><a>Angeria Paris VanMicheals</a></th><td>27</td><td>Atlanta, Georgia</td><td>Eliminated</td></tr>
  <tr><td colspan="4">annotation row without a name</td></tr>
</table>`)

	result, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, 1, result.Skipped)
}

func TestExtractMissingAgeStaysNil(t *testing.T) {
	doc := fixtureDoc(t, `
<table class="wikitable">
  <tr><th>h</th></tr>
  <tr><th><a>Jaida Essence Hall</a></th><td>N/A</td><td>Milwaukee, Wisconsin</td><td>Winner</td></tr>
</table>`)

	result, err := extractFromDocument(context.Background(), doc, DefaultRecipe())
	require.NoError(t, err)
	require.Nil(t, result.Rows[0].Age)
}
