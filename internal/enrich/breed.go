package enrich

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/shanehull/petcatalog/internal/extract"
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/normalize"
	"github.com/shanehull/petcatalog/internal/tables"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

type BreedConfig struct {
	Locales []string
	Ranges  extract.RangeConfig
	// Priority overrides the bucket order of enum fields.
	Priority map[string][]string
	Logger   *slog.Logger
}

// traitLabels files a printed trait label under the quantity it measures.
var traitLabels = textmatch.NewTable(
	textmatch.Category{Key: string(extract.Lifespan), Keywords: []string{"life", "lebenserwartung", "livslangd", "esperance de vie", "longevite"}},
	textmatch.Category{Key: string(extract.Height), Keywords: []string{"height", "hohe", "mankhojd", "taille"}},
	textmatch.Category{Key: string(extract.Weight), Keywords: []string{"weight", "gewicht", "vikt", "poids"}},
)

type rangeFields struct {
	field    extract.Field
	min, max string
}

var breedRanges = []rangeFields{
	{extract.Height, model.FieldHeightMinCM, model.FieldHeightMaxCM},
	{extract.Weight, model.FieldWeightMinKg, model.FieldWeightMaxKg},
	{extract.Lifespan, model.FieldLifespanMinYears, model.FieldLifespanMaxYears},
}

var breedBooleans = []string{model.FieldGoodWithChildren, model.FieldGoodWithPets}

// BreedEnricher reads a raw breed page into catalog fields.
type BreedEnricher struct {
	ranges *extract.RangeExtractor
	enums  map[string]*normalize.EnumTable
	judges map[string]normalize.Indicators
	logger *slog.Logger
}

func NewBreedEnricher(t *tables.Tables, cfg BreedConfig) *BreedEnricher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rc, def := cfg.Ranges, extract.DefaultRangeConfig()
	if rc.Policy == "" {
		rc.Policy = def.Policy
	}
	if rc.MaxHeightCM <= 0 {
		rc.MaxHeightCM = def.MaxHeightCM
	}
	if rc.MaxWeightKg <= 0 {
		rc.MaxWeightKg = def.MaxWeightKg
	}
	if rc.MaxLifespanYears <= 0 {
		rc.MaxLifespanYears = def.MaxLifespanYears
	}
	rc.Locales = cfg.Locales
	rc.Logger = logger

	e := &BreedEnricher{
		ranges: extract.NewRangeExtractor(rc),
		enums:  make(map[string]*normalize.EnumTable),
		judges: make(map[string]normalize.Indicators),
		logger: logger,
	}
	for _, f := range t.EnumFields() {
		if table, ok := t.Enum(f, cfg.Locales, cfg.Priority[f]); ok {
			e.enums[f] = table
		}
	}
	for _, f := range breedBooleans {
		if ind, ok := t.Indicators(f, cfg.Locales); ok {
			e.judges[f] = ind
		}
	}
	return e
}

// Enrich fails only when the breed has no usable name. Ratings win over
// free text; free text is only consulted for fields a rating left open.
func (e *BreedEnricher) Enrich(raw model.RawBreed, runID string) (Result, error) {
	slug, err := model.BreedSlug(raw.Name)
	if err != nil {
		return Result{}, err
	}
	prov := raw.Provenance(runID)
	fs := make(model.FieldSet)
	fs.Set(model.FieldDisplayName, strings.TrimSpace(raw.Name), prov)

	byField := make(map[string][]string)
	for _, label := range sortedKeys(raw.Traits) {
		if f, ok := traitLabels.Match(label); ok {
			byField[f] = append(byField[f], raw.Traits[label])
		}
	}
	for _, r := range breedRanges {
		text := strings.Join(byField[string(r.field)], "\n")
		if rng, ok := e.ranges.Extract(text, r.field); ok {
			fs.Set(r.min, rng.Min, prov)
			fs.Set(r.max, rng.Max, prov)
		}
	}

	text := e.prose(raw)
	for _, f := range sortedKeys(e.enums) {
		table := e.enums[f]
		if score, ok := raw.Scores[f]; ok {
			if v, ok := table.FromScore(score); ok {
				fs.Set(f, v, prov)
				continue
			}
		}
		if v, ok := table.Classify(text); ok {
			fs.Set(f, v, prov)
		}
	}

	for _, f := range breedBooleans {
		judged := model.Unknown
		if score, ok := raw.Scores[f]; ok {
			judged = normalize.TristateFromScore(score)
		}
		if !judged.Known() {
			judged = e.judges[f].Judge(text)
		}
		fs.Set(f, judged, prov)
	}

	for _, f := range model.ContentSections {
		fs.Set(f, strings.TrimSpace(raw.Sections[f]), prov)
	}

	return Result{Entity: model.EntityBreed, Key: slug, Fields: fs}, nil
}

// prose is the free text the normalizers read: every trait value and every
// content section, in a stable order.
func (e *BreedEnricher) prose(raw model.RawBreed) string {
	var parts []string
	for _, label := range sortedKeys(raw.Traits) {
		parts = append(parts, label+": "+raw.Traits[label])
	}
	for _, f := range model.ContentSections {
		if s := raw.Sections[f]; s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
