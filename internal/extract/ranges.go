package extract

import (
	"log/slog"
	"regexp"
	"slices"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
	"github.com/shanehull/petcatalog/internal/units"
)

// Field selects which physical quantity a range is read as.
type Field string

const (
	Height   Field = "height"
	Weight   Field = "weight"
	Lifespan Field = "lifespan"
	Percent  Field = "percent"
)

// RangePolicy decides what happens to a match whose max is below its min.
type RangePolicy string

const (
	PolicyDiscard RangePolicy = "discard"
	PolicySwap    RangePolicy = "swap"
)

type RangeConfig struct {
	Policy           RangePolicy
	MaxHeightCM      float64
	MaxWeightKg      float64
	MaxLifespanYears float64
	// Locales restricts language-specific patterns; empty keeps all.
	Locales []string
	Logger  *slog.Logger
}

func DefaultRangeConfig() RangeConfig {
	return RangeConfig{
		Policy:           PolicyDiscard,
		MaxHeightCM:      120,
		MaxWeightKg:      120,
		MaxLifespanYears: 30,
	}
}

const num = `(\d+(?:[.,]\d+)?)`

// sep matches the word or dash between min and max after folding.
const sep = `\s*(?:-|\s(?:to|till|bis|a|och|et)\s)\s*`

type unitWord struct {
	word string
	unit units.Unit
	lang string
}

// rangeUnits lists metric units first, so "64-70 cm (25-28 in)" reads as cm.
var rangeUnits = map[Field][]unitWord{
	Height: {
		{`(?:cm|centimet(?:er|re)s?)\b`, units.Centimeter, ""},
		{`(?:inches|inch|in\b|")`, units.Inch, "en"},
	},
	Weight: {
		{`(?:kg|kilo(?:gram(?:me)?s?)?)\b`, units.Kilogram, ""},
		{`(?:pounds?|lbs?)\b`, units.Pound, "en"},
	},
	Lifespan: {
		{`(?:years?|yrs?)\b`, units.Year, "en"},
		{`jahre?\b`, units.Year, "de"},
		{`ar\b`, units.Year, "sv"},
		{`ans\b`, units.Year, "fr"},
	},
	Percent: {
		{`%`, units.Percent, ""},
	},
}

// buildRangeTable orders patterns from most to least specific: unit after
// both numbers, then unit after min only, then a single value.
func buildRangeTable(field Field) PatternTable {
	var pt PatternTable
	words := rangeUnits[field]
	for _, w := range words {
		pt = append(pt, Pattern{Re: regexp.MustCompile(num + `\s*` + w.word + sep + num + `\s*` + w.word), Unit: w.unit, Lang: w.lang})
	}
	for _, w := range words {
		pt = append(pt, Pattern{Re: regexp.MustCompile(num + sep + num + `\s*` + w.word), Unit: w.unit, Lang: w.lang})
	}
	for _, w := range words {
		pt = append(pt, Pattern{Re: regexp.MustCompile(num + `\s*` + w.word), Unit: w.unit, Lang: w.lang})
	}
	return pt
}

func forLocales(pt PatternTable, locales []string) PatternTable {
	if len(locales) == 0 {
		return pt
	}
	out := make(PatternTable, 0, len(pt))
	for _, p := range pt {
		if p.Lang == "" || slices.Contains(locales, p.Lang) {
			out = append(out, p)
		}
	}
	return out
}

// RangeExtractor reads "<min> - <max> <unit>" spans and returns them in the
// canonical unit of the field (cm, kg, years, percent).
type RangeExtractor struct {
	tables map[Field]PatternTable
	limits map[Field]float64
	policy RangePolicy
	logger *slog.Logger
}

func NewRangeExtractor(cfg RangeConfig) *RangeExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &RangeExtractor{
		tables: make(map[Field]PatternTable, len(rangeUnits)),
		limits: map[Field]float64{
			Height:   cfg.MaxHeightCM,
			Weight:   cfg.MaxWeightKg,
			Lifespan: cfg.MaxLifespanYears,
			Percent:  100,
		},
		policy: cfg.Policy,
		logger: logger,
	}
	for f := range rangeUnits {
		e.tables[f] = forLocales(buildRangeTable(f), cfg.Locales)
	}
	return e
}

// Extract returns the first plausible range for field in text, rounded to
// one decimal. A lone value is returned as a range of width zero.
func (e *RangeExtractor) Extract(text string, field Field) (model.Range, bool) {
	table, ok := e.tables[field]
	if !ok {
		return model.Range{}, false
	}
	var (
		out      model.Range
		rejected [][2]int
	)
	_, ok = table.First(textmatch.Fold(text), func(m Match) bool {
		// A fragment of an already rejected range is not a fresh value.
		for _, span := range rejected {
			if m.Start < span[1] && span[0] < m.End {
				return false
			}
		}
		r := model.Range{Min: m.Values[0], Max: m.Values[0]}
		if len(m.Values) > 1 {
			r.Max = m.Values[1]
		}
		if r.Max < r.Min {
			if e.policy != PolicySwap {
				e.logger.Debug("Discarded inverted range", "field", field, "match", m.Snippet)
				rejected = append(rejected, [2]int{m.Start, m.End})
				return false
			}
			r.Min, r.Max = r.Max, r.Min
		}
		if limit := e.limits[field]; r.Max <= 0 || (limit > 0 && r.Max > limit) {
			e.logger.Debug("Discarded implausible range", "field", field, "match", m.Snippet)
			rejected = append(rejected, [2]int{m.Start, m.End})
			return false
		}
		out = model.Range{Min: units.Round1(r.Min), Max: units.Round1(r.Max)}
		return true
	})
	return out, ok
}
