package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, fragment string) *goquery.Document {
	// td elements are dropped by the HTML5 parser unless they appear inside
	// a table, so wrap the fragment to keep doc.Find("td") working.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tr>" + fragment + "</tr></table>"))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCleanText(t *testing.T) {
	doc := docFrom(t, `<td>  Jinkx   Monsoon<sup>[1]</sup>
	<a href="#ref">[a]</a></td>`)
	got := CleanText(doc.Find("td"))
	require.Equal(t, "Jinkx Monsoon", got)
}

func TestCleanTextEmpty(t *testing.T) {
	doc := docFrom(t, `<td>   </td>`)
	require.Equal(t, "", CleanText(doc.Find("td")))
}

func TestCleanTextMultipleNodes(t *testing.T) {
	doc := docFrom(t, `<td>Willow</td><td>Pill</td>`)
	require.Equal(t, "WillowPill", CleanText(doc.Find("td")))
}
