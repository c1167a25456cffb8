package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/shanehull/petcatalog/internal/textmatch"
)

var (
	ErrMissingBrand = errors.New("missing brand")
	ErrMissingName  = errors.New("missing product name")
)

// Product field names, shared by the extractors, the orchestrator and the
// catalog columns.
const (
	FieldBrand               = "brand"
	FieldBrandSlug           = "brand_slug"
	FieldProductName         = "product_name"
	FieldForm                = "form"
	FieldLifeStage           = "life_stage"
	FieldIngredientsRaw      = "ingredients_raw"
	FieldIngredientsTokens   = "ingredients_tokens"
	FieldIngredientsLanguage = "ingredients_language"
	FieldProtein             = "protein_pct"
	FieldFat                 = "fat_pct"
	FieldFiber               = "fiber_pct"
	FieldAsh                 = "ash_pct"
	FieldMoisture            = "moisture_pct"
	FieldKcal                = "kcal_per_100g"
	FieldPricePerKg          = "price_per_kg"
	FieldPriceBucket         = "price_bucket"
	FieldSources             = "sources"
)

// Record is a stored row keyed by field name. Values use the same Go types
// as FieldSet candidates: float64, string, Tristate, StringSet, []SourceTag.
type Record map[string]any

func (r Record) Text(field string) *string {
	if s, ok := r[field].(string); ok && s != "" {
		return &s
	}
	return nil
}

func (r Record) Float(field string) *float64 {
	if f, ok := r[field].(float64); ok {
		return &f
	}
	return nil
}

func (r Record) Tristate(field string) Tristate {
	t, _ := r[field].(Tristate)
	return t
}

func (r Record) Set(field string) StringSet {
	s, _ := r[field].(StringSet)
	return s
}

func (r Record) Sources() []SourceTag {
	s, _ := r[FieldSources].([]SourceTag)
	return s
}

// Macros are analytical constituents in percent.
type Macros struct {
	Protein  *float64
	Fat      *float64
	Fiber    *float64
	Ash      *float64
	Moisture *float64
}

type CatalogProduct struct {
	ProductKey          string
	Brand               string
	BrandSlug           string
	ProductName         string
	Form                *string
	LifeStage           *string
	IngredientsRaw      *string
	IngredientsTokens   StringSet
	IngredientsLanguage *string
	Macros              Macros
	KcalPer100g         *float64
	PricePerKg          *float64
	PriceBucket         *string
	Sources             []SourceTag
}

func ProductFromRecord(key string, r Record) CatalogProduct {
	p := CatalogProduct{
		ProductKey:          key,
		Form:                r.Text(FieldForm),
		LifeStage:           r.Text(FieldLifeStage),
		IngredientsRaw:      r.Text(FieldIngredientsRaw),
		IngredientsTokens:   r.Set(FieldIngredientsTokens),
		IngredientsLanguage: r.Text(FieldIngredientsLanguage),
		Macros: Macros{
			Protein:  r.Float(FieldProtein),
			Fat:      r.Float(FieldFat),
			Fiber:    r.Float(FieldFiber),
			Ash:      r.Float(FieldAsh),
			Moisture: r.Float(FieldMoisture),
		},
		KcalPer100g: r.Float(FieldKcal),
		PricePerKg:  r.Float(FieldPricePerKg),
		PriceBucket: r.Text(FieldPriceBucket),
		Sources:     r.Sources(),
	}
	if s := r.Text(FieldBrand); s != nil {
		p.Brand = *s
	}
	if s := r.Text(FieldBrandSlug); s != nil {
		p.BrandSlug = *s
	}
	if s := r.Text(FieldProductName); s != nil {
		p.ProductName = *s
	}
	return p
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)

// ProductKey derives the stable identity of a product from its canonical
// brand slug and its name. Case, accents, punctuation and spacing in the
// name do not change the key.
func ProductKey(brandSlug, name string) (string, error) {
	if strings.TrimSpace(brandSlug) == "" {
		return "", ErrMissingBrand
	}
	normName := strings.Trim(nonKeyChars.ReplaceAllString(textmatch.Fold(name), " "), " ")
	if normName == "" {
		return "", ErrMissingName
	}
	sum := sha256.Sum256([]byte(brandSlug + "|" + normName))
	return hex.EncodeToString(sum[:])[:24], nil
}
