package audit

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/storage"
)

type fakeCatalog struct {
	products []storage.ProductCoverage
	breeds   storage.BreedCoverage
	slugs    map[string]int
	err      error
}

func (f fakeCatalog) ProductCoverage(context.Context) ([]storage.ProductCoverage, error) {
	return f.products, f.err
}

func (f fakeCatalog) BreedCoverage(context.Context) (storage.BreedCoverage, error) {
	return f.breeds, nil
}

func (f fakeCatalog) BrandSlugs(context.Context) (map[string]int, error) {
	return f.slugs, nil
}

var catalog = fakeCatalog{
	products: []storage.ProductCoverage{
		{BrandSlug: "acana", Products: 4, Form: 4, Ingredients: 3, Protein: 2, Fat: 2, Kcal: 3, KcalDerived: 1, Price: 1},
	},
	breeds: storage.BreedCoverage{Breeds: 3, Height: 3, Energy: 2, GoodWithPets: 1},
	slugs:  map[string]int{"acana": 4, "hills": 2, "hill_s": 9, "orijen": 1},
}

func TestRun(t *testing.T) {
	a := New(catalog, 0)
	a.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }

	r, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Products, 1)
	acana := r.Products[0]
	assert.Equal(t, 100.0, acana.Form)
	assert.Equal(t, 75.0, acana.Ingredients)
	assert.Equal(t, 0.0, acana.LifeStage)
	assert.Equal(t, 2, acana.KcalObserved)
	assert.Equal(t, 1, acana.KcalDerived)

	assert.Equal(t, 100.0, r.Breeds.Fields["height"])
	assert.Equal(t, 66.7, r.Breeds.Fields[model.FieldEnergy])
	assert.Equal(t, 33.3, r.Breeds.Fields[model.FieldGoodWithPets])

	require.Len(t, r.Merges, 1)
	assert.Equal(t, "hill_s", r.Merges[0].Slug, "the slug with more products is kept")
	assert.Equal(t, "hills", r.Merges[0].Similar)
	assert.Equal(t, 2, r.Merges[0].SimilarProducts)
}

func TestRunError(t *testing.T) {
	_, err := New(fakeCatalog{err: errors.New("no such table")}, 0).Run(context.Background())
	assert.ErrorContains(t, err, "product coverage")
}

func TestSuggestBrandMerges(t *testing.T) {
	assert.Empty(t, SuggestBrandMerges(map[string]int{"acana": 1, "orijen": 1}, DefaultMergeThreshold))
	assert.Empty(t, SuggestBrandMerges(nil, DefaultMergeThreshold))

	merges := SuggestBrandMerges(map[string]int{"royal_canin": 5, "royal_canine": 1, "royal_canin_vet": 2}, DefaultMergeThreshold)
	require.NotEmpty(t, merges)
	for i := 1; i < len(merges); i++ {
		assert.GreaterOrEqual(t, merges[i-1].Similarity, merges[i].Similarity)
	}
	assert.Equal(t, "royal_canin", merges[0].Slug)
	assert.Equal(t, "royal_canine", merges[0].Similar)
}

func TestWriteYAMLAndRenderTable(t *testing.T) {
	r, err := New(catalog, 0).Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "audit.yaml")
	require.NoError(t, WriteYAML(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Contains(t, back, "brand_merges")
	assert.Contains(t, string(data), "brand_slug: acana")

	var buf bytes.Buffer
	RenderTable(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "Product coverage")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "Possible duplicate brands")
	assert.Contains(t, out, "hill_s")
}
