package wiki

import (
	"regexp"
	"strconv"
	"strings"

	"dragdex-backend/lib/textutil"
)

// Parser names usable in a CellRule. Unknown names are rejected when the
// recipe is registered.
const (
	ParserTrim    = "trim"
	ParserAge     = "age"
	ParserOutcome = "outcome"
	ParserRaw     = "raw"
)

// parsedValue is what a parser yields: free text, a number, or both
// empty when the cell held nothing usable.
type parsedValue struct {
	Text   string
	Number *int
}

type parserFunc func(string) parsedValue

var parsers = map[string]parserFunc{
	ParserTrim:    func(s string) parsedValue { return parsedValue{Text: Trim(s)} },
	ParserAge:     func(s string) parsedValue { return parsedValue{Number: ExtractAge(s)} },
	ParserOutcome: func(s string) parsedValue { return parsedValue{Text: ExtractOutcome(s)} },
	ParserRaw:     func(s string) parsedValue { return parsedValue{Text: s} },
}

var twoDigitToken = regexp.MustCompile(`\b(\d{2})\b`)

// ExtractAge pulls the first two-digit token out of free text. There is
// no error case: text without a plausible age yields nil.
func ExtractAge(text string) *int {
	match := twoDigitToken.FindString(text)
	if match == "" {
		return nil
	}
	age, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &age
}

// outcome keywords in precedence order; the first one found in the cell
// text wins, so "3rd Place, Eliminated" normalizes to "Eliminated" only
// if no earlier keyword matched first.
var outcomeKeywords = []string{
	"winner",
	"runner-up",
	"eliminated",
	"disqualified",
}

// ExtractOutcome normalizes an elimination-column cell. Known keywords
// map to their canonical capitalized form; anything else passes through
// trimmed, and an empty cell yields "".
func ExtractOutcome(text string) string {
	lowered := strings.ToLower(text)
	for _, keyword := range outcomeKeywords {
		if strings.Contains(lowered, keyword) {
			return canonicalOutcome(keyword)
		}
	}
	return Trim(text)
}

func canonicalOutcome(keyword string) string {
	switch keyword {
	case "winner":
		return "Winner"
	case "runner-up":
		return "Runner-Up"
	case "eliminated":
		return "Eliminated"
	case "disqualified":
		return "Disqualified"
	}
	return keyword
}

// Trim collapses whitespace without any other interpretation.
func Trim(text string) string {
	return textutil.CollapseWhitespace(text)
}
