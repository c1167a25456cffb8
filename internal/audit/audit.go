// Package audit reports how complete the catalog is and which brand slugs
// look like duplicates of each other.
package audit

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/storage"
	"github.com/shanehull/petcatalog/internal/units"
)

// DefaultMergeThreshold is the Jaro-Winkler similarity at which two brand
// slugs are reported as a possible duplicate.
const DefaultMergeThreshold = 0.92

// Catalog is the read side of storage the audit needs.
type Catalog interface {
	ProductCoverage(ctx context.Context) ([]storage.ProductCoverage, error)
	BreedCoverage(ctx context.Context) (storage.BreedCoverage, error)
	BrandSlugs(ctx context.Context) (map[string]int, error)
}

// BrandCoverage is the share of one brand's products, in percent, that have
// each field.
type BrandCoverage struct {
	BrandSlug    string  `yaml:"brand_slug"`
	Products     int     `yaml:"products"`
	Form         float64 `yaml:"form"`
	LifeStage    float64 `yaml:"life_stage"`
	Ingredients  float64 `yaml:"ingredients"`
	Protein      float64 `yaml:"protein"`
	Fat          float64 `yaml:"fat"`
	Kcal         float64 `yaml:"kcal"`
	Price        float64 `yaml:"price_per_kg"`
	KcalObserved int     `yaml:"kcal_observed"`
	KcalDerived  int     `yaml:"kcal_derived"`
}

type BreedCoverage struct {
	Breeds int `yaml:"breeds"`
	// Fields maps a breed field to the percent of breeds that have it.
	Fields map[string]float64 `yaml:"fields"`
}

// BrandMerge suggests that two slugs name the same brand.
type BrandMerge struct {
	Slug       string  `yaml:"slug"`
	Similar    string  `yaml:"similar"`
	Similarity float64 `yaml:"similarity"`
	Products   int     `yaml:"products"`
	// SimilarProducts counts the products filed under Similar.
	SimilarProducts int `yaml:"similar_products"`
}

type Report struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Products    []BrandCoverage `yaml:"products"`
	Breeds      BreedCoverage   `yaml:"breeds"`
	Merges      []BrandMerge    `yaml:"brand_merges"`
}

type Auditor struct {
	catalog   Catalog
	threshold float64
	now       func() time.Time
}

func New(catalog Catalog, threshold float64) *Auditor {
	if threshold <= 0 {
		threshold = DefaultMergeThreshold
	}
	return &Auditor{catalog: catalog, threshold: threshold, now: time.Now}
}

func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	products, err := a.catalog.ProductCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("product coverage: %w", err)
	}
	breeds, err := a.catalog.BreedCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("breed coverage: %w", err)
	}
	slugs, err := a.catalog.BrandSlugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("brand slugs: %w", err)
	}

	r := &Report{
		GeneratedAt: a.now().UTC(),
		Breeds:      breedCoverage(breeds),
		Merges:      SuggestBrandMerges(slugs, a.threshold),
	}
	for _, c := range products {
		r.Products = append(r.Products, brandCoverage(c))
	}
	return r, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return units.Round1(100 * float64(n) / float64(total))
}

func brandCoverage(c storage.ProductCoverage) BrandCoverage {
	return BrandCoverage{
		BrandSlug:    c.BrandSlug,
		Products:     c.Products,
		Form:         percent(c.Form, c.Products),
		LifeStage:    percent(c.LifeStage, c.Products),
		Ingredients:  percent(c.Ingredients, c.Products),
		Protein:      percent(c.Protein, c.Products),
		Fat:          percent(c.Fat, c.Products),
		Kcal:         percent(c.Kcal, c.Products),
		Price:        percent(c.Price, c.Products),
		KcalObserved: c.Kcal - c.KcalDerived,
		KcalDerived:  c.KcalDerived,
	}
}

func breedCoverage(c storage.BreedCoverage) BreedCoverage {
	return BreedCoverage{
		Breeds: c.Breeds,
		Fields: map[string]float64{
			"height":                    percent(c.Height, c.Breeds),
			"weight":                    percent(c.Weight, c.Breeds),
			"lifespan":                  percent(c.Lifespan, c.Breeds),
			model.FieldEnergy:           percent(c.Energy, c.Breeds),
			model.FieldTrainability:     percent(c.Trainability, c.Breeds),
			model.FieldShedding:         percent(c.Shedding, c.Breeds),
			model.FieldBarkLevel:        percent(c.BarkLevel, c.Breeds),
			model.FieldGrooming:         percent(c.Grooming, c.Breeds),
			model.FieldGoodWithChildren: percent(c.GoodWithChildren, c.Breeds),
			model.FieldGoodWithPets:     percent(c.GoodWithPets, c.Breeds),
		},
	}
}

// SuggestBrandMerges pairs every two slugs at least threshold similar,
// most similar first. Slug is the one with more products.
func SuggestBrandMerges(slugs map[string]int, threshold float64) []BrandMerge {
	names := make([]string, 0, len(slugs))
	for s := range slugs {
		names = append(names, s)
	}
	slices.Sort(names)

	var out []BrandMerge
	for i, a := range names {
		for _, b := range names[i+1:] {
			sim := matchr.JaroWinkler(a, b, false)
			if sim < threshold {
				continue
			}
			keep, other := a, b
			if slugs[b] > slugs[a] {
				keep, other = b, a
			}
			out = append(out, BrandMerge{
				Slug:            keep,
				Similar:         other,
				Similarity:      sim,
				Products:        slugs[keep],
				SimilarProducts: slugs[other],
			})
		}
	}
	slices.SortStableFunc(out, func(x, y BrandMerge) int {
		return cmp.Compare(y.Similarity, x.Similarity)
	})
	return out
}
