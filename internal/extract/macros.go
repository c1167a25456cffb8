package extract

import (
	"log/slog"
	"regexp"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
	"github.com/shanehull/petcatalog/internal/units"
)

// Nutrient names an analytical constituent. Its value is the product field
// it is stored under.
type Nutrient string

const (
	Protein  Nutrient = model.FieldProtein
	Fat      Nutrient = model.FieldFat
	Fiber    Nutrient = model.FieldFiber
	Ash      Nutrient = model.FieldAsh
	Moisture Nutrient = model.FieldMoisture
)

// Nutrients lists the constituents in label order.
var Nutrients = []Nutrient{Protein, Fat, Fiber, Ash, Moisture}

// Label is a folded nutrient label in one language.
type Label struct {
	Lang  string
	Words []string
}

// NutrientLabels are tried in order; the generic stem pattern comes last.
var NutrientLabels = map[Nutrient][]Label{
	Protein: {
		{"en", []string{"crude protein"}},
		{"de", []string{"rohprotein"}},
		{"sv", []string{"raprotein"}},
		{"fr", []string{"proteines brutes", "proteine brute", "proteines"}},
		{"en", []string{"protein"}},
	},
	Fat: {
		{"en", []string{"crude fat", "fat content", "crude oils and fats"}},
		{"de", []string{"rohfett", "fettgehalt"}},
		{"sv", []string{"rafett", "fetthalt"}},
		{"fr", []string{"matieres grasses brutes", "matieres grasses", "lipides"}},
		{"en", []string{"fat"}},
	},
	Fiber: {
		{"en", []string{"crude fibre", "crude fiber"}},
		{"de", []string{"rohfaser"}},
		{"sv", []string{"vaxttrad", "rafiber"}},
		{"fr", []string{"cellulose brute", "fibres brutes"}},
		{"en", []string{"fibre", "fiber"}},
	},
	Ash: {
		{"en", []string{"crude ash", "inorganic matter"}},
		{"de", []string{"rohasche"}},
		{"sv", []string{"raaska", "aska"}},
		{"fr", []string{"cendres brutes", "matieres minerales", "cendres"}},
		{"en", []string{"ash"}},
	},
	Moisture: {
		{"en", []string{"moisture"}},
		{"de", []string{"feuchtigkeit", "feuchte"}},
		{"sv", []string{"vattenhalt", "fukt"}},
		{"fr", []string{"humidite"}},
	},
}

var genericStems = map[Nutrient]string{
	Protein:  `prot\w*`,
	Fat:      `(?:fett|gras|lipid)\w*`,
	Fiber:    `(?:fib|fas|fiber)\w*`,
	Ash:      `(?:asch|cendr)\w*`,
	Moisture: `(?:moist|feucht|humid|vatten|water)\w*`,
}

// labelGap is what may sit between a label and its number: a colon,
// "min."/"max.", a short parenthetical.
const labelGap = `[^0-9%]{0,15}?`

// Bounds is a closed plausibility band.
type Bounds struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

func (b Bounds) Contains(x float64) bool { return x >= b.Min && x <= b.Max }

// DefaultKcalBounds are kcal per 100 g by food form. Unknown forms use dry.
func DefaultKcalBounds() map[string]Bounds {
	return map[string]Bounds{
		"dry":          {200, 600},
		"wet":          {40, 250},
		"raw":          {80, 350},
		"freeze_dried": {250, 650},
		"air_dried":    {250, 650},
		"treat":        {150, 650},
	}
}

const groupedNum = `(\d{1,3}(?:[., ]\d{3})+|\d+(?:[.,]\d+)?)`

const per = `\s*(?:/|per|pro|par)\s*`

var kcalTable = PatternTable{
	{Re: regexp.MustCompile(num + `\s*kcal` + per + `100\s*g\b`), Unit: units.Kcal},
	{Re: regexp.MustCompile(groupedNum + `\s*kcal(?:\s*me)?` + per + `kg\b`), Unit: units.Kcal, Grouped: true, Scale: func(v float64) float64 { return v / 10 }},
	{Re: regexp.MustCompile(groupedNum + `\s*kj` + per + `100\s*g\b`), Unit: units.KJ, Grouped: true},
	{Re: regexp.MustCompile(num + `\s*mj` + per + `kg\b`), Unit: units.KJ, Scale: func(v float64) float64 { return units.KJToKcal(v * 100) }},
}

// Atwater factors in kcal per gram.
const (
	atwaterProtein = 3.5
	atwaterFat     = 8.5
	atwaterCarb    = 3.5
)

type MacroConfig struct {
	KcalBounds map[string]Bounds
	Locales    []string
	Logger     *slog.Logger
}

// Kcal is an energy density in kcal per 100 g. Derived marks a value
// computed from macros rather than read from the source.
type Kcal struct {
	Value   float64
	Derived bool
}

type MacroResult struct {
	Percents map[Nutrient]float64
	Kcal     *Kcal
}

// MacroExtractor reads guaranteed-analysis style text.
type MacroExtractor struct {
	tables map[Nutrient]PatternTable
	bounds map[string]Bounds
	logger *slog.Logger
}

func NewMacroExtractor(cfg MacroConfig) *MacroExtractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bounds := cfg.KcalBounds
	if len(bounds) == 0 {
		bounds = DefaultKcalBounds()
	}
	e := &MacroExtractor{
		tables: make(map[Nutrient]PatternTable, len(Nutrients)),
		bounds: bounds,
		logger: logger,
	}
	for _, n := range Nutrients {
		var pt PatternTable
		for _, l := range NutrientLabels[n] {
			for _, w := range l.Words {
				re := regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b` + labelGap + num + `\s*%`)
				pt = append(pt, Pattern{Re: re, Unit: units.Percent, Lang: l.Lang})
			}
		}
		pt = forLocales(pt, cfg.Locales)
		generic := regexp.MustCompile(`\b` + genericStems[n] + `\s*[:=]?\s*` + num + `\s*%`)
		e.tables[n] = append(pt, Pattern{Re: generic, Unit: units.Percent})
	}
	return e
}

// BoundsFor returns the kcal band of a food form.
func (e *MacroExtractor) BoundsFor(form string) Bounds {
	if b, ok := e.bounds[form]; ok {
		return b
	}
	if b, ok := e.bounds["dry"]; ok {
		return b
	}
	return DefaultKcalBounds()["dry"]
}

// Extract reads the five constituents and the energy density from text.
// When no plausible kcal is stated but protein and fat are, kcal is derived
// and marked as such.
func (e *MacroExtractor) Extract(text, form string) MacroResult {
	folded := textmatch.Fold(text)
	res := MacroResult{Percents: make(map[Nutrient]float64, len(Nutrients))}
	for _, n := range Nutrients {
		m, ok := e.tables[n].First(folded, func(m Match) bool {
			v := m.Values[0]
			if v <= 0 || v >= 100 {
				e.logger.Debug("Discarded implausible percentage", "field", string(n), "match", m.Snippet)
				return false
			}
			return true
		})
		if ok {
			res.Percents[n] = units.Round1(m.Values[0])
		}
	}

	if kcal, ok := e.KcalFromText(folded, form); ok {
		res.Kcal = &Kcal{Value: kcal}
		return res
	}
	if kcal, ok := DeriveKcal(res.Percents); ok {
		if e.BoundsFor(form).Contains(kcal) {
			res.Kcal = &Kcal{Value: kcal, Derived: true}
		} else {
			e.logger.Debug("Discarded implausible derived kcal", "kcal", kcal, "form", form)
		}
	}
	return res
}

// KcalFromText returns the first stated energy density that falls within
// the band for form.
func (e *MacroExtractor) KcalFromText(text, form string) (float64, bool) {
	b := e.BoundsFor(form)
	m, ok := kcalTable.First(textmatch.Fold(text), func(m Match) bool {
		if !b.Contains(m.Values[0]) {
			e.logger.Debug("Discarded implausible kcal", "match", m.Snippet, "form", form)
			return false
		}
		return true
	})
	if !ok {
		return 0, false
	}
	return units.Round1(m.Values[0]), true
}

// DeriveKcal estimates kcal/100 g with modified Atwater factors. It needs
// both protein and fat; every other known percentage is subtracted before
// the remainder is counted as carbohydrate.
func DeriveKcal(percents map[Nutrient]float64) (float64, bool) {
	p, okP := percents[Protein]
	f, okF := percents[Fat]
	if !okP || !okF {
		return 0, false
	}
	var known float64
	for _, v := range percents {
		known += v
	}
	carbs := max(0, 100-known)
	return units.Round1(p*atwaterProtein + f*atwaterFat + carbs*atwaterCarb), true
}
