// Package extract pulls typed numeric values out of free text.
//
// Every extractor is built on PatternTable: an ordered list of regular
// expressions, each tagged with the unit its numbers are written in and the
// language it targets. The first acceptable match wins. A miss is reported
// with ok=false and is never an error.
package extract

import (
	"regexp"

	"github.com/shanehull/petcatalog/internal/units"
)

// Pattern is one entry of a PatternTable. Every non-empty capture group of Re
// must hold a number.
type Pattern struct {
	Re   *regexp.Regexp
	Unit units.Unit
	Lang string
	// Grouped parses numbers with thousands separators ("3,850").
	Grouped bool
	// Scale, when set, replaces the unit conversion of the raw number.
	Scale func(float64) float64
}

// Match is one hit of a pattern with its numbers already converted to the
// canonical unit.
type Match struct {
	Values  []float64
	Unit    units.Unit
	Lang    string
	Snippet string
	// Start and End are byte offsets of the match in the searched text.
	Start, End int
}

// PatternTable is tried top to bottom, most specific pattern first.
type PatternTable []Pattern

// First returns the first match, in table order and then text order, that
// accept approves. A nil accept approves everything.
func (pt PatternTable) First(text string, accept func(Match) bool) (Match, bool) {
	for _, p := range pt {
		for _, loc := range p.Re.FindAllStringSubmatchIndex(text, -1) {
			m, ok := p.build(text, loc)
			if !ok {
				continue
			}
			if accept == nil || accept(m) {
				return m, true
			}
		}
	}
	return Match{}, false
}

func (p Pattern) build(text string, loc []int) (Match, bool) {
	m := Match{Unit: p.Unit, Lang: p.Lang, Snippet: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 || loc[i] == loc[i+1] {
			continue
		}
		g := text[loc[i]:loc[i+1]]
		var (
			v  float64
			ok bool
		)
		if p.Grouped {
			v, ok = units.ParseGroupedNumber(g)
		} else {
			v, ok = units.ParseNumber(g)
		}
		if !ok {
			return Match{}, false
		}
		if p.Scale != nil {
			v = p.Scale(v)
		} else {
			v = units.ToCanonical(v, p.Unit)
		}
		m.Values = append(m.Values, v)
	}
	if len(m.Values) == 0 {
		return Match{}, false
	}
	return m, true
}
