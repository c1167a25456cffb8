package enrich

import (
	"log/slog"
	"strings"

	"github.com/shanehull/petcatalog/internal/brand"
	"github.com/shanehull/petcatalog/internal/extract"
	"github.com/shanehull/petcatalog/internal/ingredient"
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/tables"
	"github.com/shanehull/petcatalog/internal/textmatch"
	"github.com/shanehull/petcatalog/internal/units"
)

type ProductConfig struct {
	Locales      []string
	KcalBounds   map[string]extract.Bounds
	PriceBuckets []extract.PriceBucket
	Logger       *slog.Logger
}

// ProductEnricher reads a raw product into catalog fields.
type ProductEnricher struct {
	brands     *brand.Canonicalizer
	tokenizer  *ingredient.Tokenizer
	forms      *textmatch.Table
	lifeStages *textmatch.Table
	macros     *extract.MacroExtractor
	buckets    []extract.PriceBucket
	logger     *slog.Logger
}

func NewProductEnricher(t *tables.Tables, cfg ProductConfig) *ProductEnricher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	buckets := cfg.PriceBuckets
	if len(buckets) == 0 {
		buckets = extract.DefaultPriceBuckets()
	}
	return &ProductEnricher{
		brands:     t.Canonicalizer(),
		tokenizer:  t.Tokenizer(),
		forms:      t.FormTable(cfg.Locales),
		lifeStages: t.LifeStageTable(cfg.Locales),
		macros: extract.NewMacroExtractor(extract.MacroConfig{
			KcalBounds: cfg.KcalBounds,
			Locales:    cfg.Locales,
			Logger:     logger,
		}),
		buckets: buckets,
		logger:  logger,
	}
}

// Enrich fails only for a missing brand or name. The brand comes from the
// brand field alone; the product name is never searched for brand names.
func (e *ProductEnricher) Enrich(raw model.RawProduct, runID string) (Result, error) {
	rawBrand := strings.TrimSpace(raw.Brand)
	if rawBrand == "" {
		return Result{}, model.ErrMissingBrand
	}
	canon := e.brands.Canonicalize(rawBrand)
	name := strings.TrimSpace(raw.Name)
	key, err := model.ProductKey(canon.Slug, name)
	if err != nil {
		return Result{}, err
	}

	prov := raw.Provenance(runID)
	fs := make(model.FieldSet)
	fs.Set(model.FieldBrand, rawBrand, prov)
	fs.Set(model.FieldBrandSlug, canon.Slug, prov)
	fs.Set(model.FieldProductName, name, prov)

	described := strings.Join([]string{name, raw.Description}, "\n")
	form, ok := e.forms.MatchAffirmed(raw.FormHint)
	if !ok {
		form, ok = e.forms.MatchAffirmed(described)
	}
	if ok {
		fs.Set(model.FieldForm, form, prov)
	}
	if stage, ok := e.lifeStages.MatchAffirmed(described + "\n" + raw.FormHint); ok {
		fs.Set(model.FieldLifeStage, stage, prov)
	}

	if ingredients := strings.TrimSpace(raw.IngredientsText); ingredients != "" {
		fs.Set(model.FieldIngredientsRaw, ingredients, prov)
		fs.Set(model.FieldIngredientsTokens, e.tokenizer.Tokenize(ingredients), prov)
		if lang, ok := ingredient.DetectLanguage(ingredients); ok {
			fs.Set(model.FieldIngredientsLanguage, lang, prov)
		}
	}

	e.setMacros(fs, raw, form, prov)

	if perKg, ok := extract.PricePerKg(raw.PriceText, raw.PackageText, name); ok {
		fs.Set(model.FieldPricePerKg, perKg, prov)
		if bucket, ok := extract.BucketFor(perKg, e.buckets); ok {
			fs.Set(model.FieldPriceBucket, bucket, prov)
		}
	}

	return Result{Entity: model.EntityProduct, Key: key, Fields: fs}, nil
}

// setMacros reads the analysis text, lets structured nutriments override
// it, and derives kcal from protein and fat only when none was observed.
func (e *ProductEnricher) setMacros(fs model.FieldSet, raw model.RawProduct, form string, prov model.Provenance) {
	analysis := raw.AnalysisText
	if strings.TrimSpace(analysis) == "" {
		analysis = raw.Description
	}
	res := e.macros.Extract(analysis, form)
	percents := res.Percents
	for _, n := range extract.Nutrients {
		v, ok := raw.Nutriments[string(n)]
		if !ok {
			continue
		}
		if v <= 0 || v >= 100 {
			e.logger.Debug("Discarded implausible nutriment", "field", string(n), "value", v)
			continue
		}
		percents[n] = units.Round1(v)
	}
	for n, v := range percents {
		fs.Set(string(n), v, prov)
	}

	bounds := e.macros.BoundsFor(form)
	if v, ok := raw.Nutriments[model.FieldKcal]; ok {
		if bounds.Contains(v) {
			fs.Set(model.FieldKcal, units.Round1(v), prov)
			return
		}
		e.logger.Debug("Discarded implausible nutriment", "field", model.FieldKcal, "value", v, "form", form)
	}
	if res.Kcal != nil && !res.Kcal.Derived {
		fs.Set(model.FieldKcal, res.Kcal.Value, prov)
		return
	}
	if kcal, ok := extract.DeriveKcal(percents); ok && bounds.Contains(kcal) {
		fs.Set(model.FieldKcal, kcal, prov.AsDerived())
	}
}
