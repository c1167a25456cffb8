package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/upsert"
)

var (
	fetched = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	site    = model.Provenance{Source: model.SourceSiteText, URL: "https://example.com/p/1", FetchedAt: fetched, RunID: "run-1"}
	opff    = model.Provenance{Source: model.SourceOPFF, URL: "https://world.openpetfoodfacts.org/product/1", FetchedAt: fetched, RunID: "run-1"}
)

func newTestRepo(t *testing.T) *SQLRepo {
	t.Helper()
	repo, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	repo.now = func() time.Time { return fetched }
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func productFields() model.FieldSet {
	fs := model.FieldSet{}
	fs.Set(model.FieldBrand, "Royal", site)
	fs.Set(model.FieldBrandSlug, "royal_canin", site)
	fs.Set(model.FieldProductName, "Maxi Adult", site)
	fs.Set(model.FieldForm, "dry", site)
	fs.Set(model.FieldProtein, 24.5, site)
	fs.Set(model.FieldFat, 14.0, site)
	fs.Set(model.FieldKcal, 420.0, site.AsDerived())
	fs.Set(model.FieldIngredientsTokens, model.NewStringSet("chicken", "rice"), site)
	return fs
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestInitIsRepeatable(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Init(context.Background()))
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.Get(context.Background(), model.EntityProduct, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.Get(context.Background(), model.Entity("cat"), "x")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestUpsertRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.Upsert(ctx, upsert.Plan{
		Entity:  model.EntityProduct,
		Key:     "k1",
		Insert:  true,
		Fields:  productFields(),
		Sources: []model.SourceTag{site.Tag()},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, model.EntityProduct, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)

	p := model.ProductFromRecord("k1", got.Record)
	assert.Equal(t, "royal_canin", p.BrandSlug)
	assert.Equal(t, "Maxi Adult", p.ProductName)
	require.NotNil(t, p.Form)
	assert.Equal(t, "dry", *p.Form)
	require.NotNil(t, p.Macros.Protein)
	assert.Equal(t, 24.5, *p.Macros.Protein)
	assert.Nil(t, p.Macros.Fiber)
	assert.True(t, p.IngredientsTokens.Equal(model.NewStringSet("rice", "chicken")))
	assert.Equal(t, []model.SourceTag{site.Tag()}, p.Sources)
	assert.Equal(t, []string{model.FieldKcal}, got.Derived.Sorted())

	// A partial update leaves other columns alone and replaces provenance
	// for the written field only.
	fs := model.FieldSet{}
	fs.Set(model.FieldKcal, 385.0, opff)
	fs.Set(model.FieldFiber, 2.5, opff)
	require.NoError(t, repo.Upsert(ctx, upsert.Plan{Entity: model.EntityProduct, Key: "k1", Fields: fs}))

	got, err = repo.Get(ctx, model.EntityProduct, "k1")
	require.NoError(t, err)
	assert.Equal(t, 385.0, got.Record[model.FieldKcal])
	assert.Equal(t, 2.5, got.Record[model.FieldFiber])
	assert.Equal(t, 24.5, got.Record[model.FieldProtein])
	assert.Empty(t, got.Derived)
	assert.Equal(t, []model.SourceTag{site.Tag()}, got.Record.Sources())
}

func TestUpsertBreedTristates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fs := model.FieldSet{}
	fs.Set(model.FieldDisplayName, "Beagle", site)
	fs.Set(model.FieldGoodWithChildren, model.True, site)
	fs.Set(model.FieldGoodWithPets, model.Unknown, site)
	fs.Set(model.FieldHeightMinCM, 33.0, site)
	fs.Set(model.FieldHeightMaxCM, 41.0, site)
	require.NoError(t, repo.Upsert(ctx, upsert.Plan{Entity: model.EntityBreed, Key: "beagle", Insert: true, Fields: fs}))

	got, err := repo.Get(ctx, model.EntityBreed, "beagle")
	require.NoError(t, err)
	b := model.BreedFromRecord("beagle", got.Record)
	assert.Equal(t, model.True, b.GoodWithChildren)
	assert.Equal(t, model.Unknown, b.GoodWithPets)
	assert.Equal(t, &model.Range{Min: 33, Max: 41}, b.Height)
	assert.Nil(t, b.Weight)
}

func TestUpsertRejectsUnknownFieldsAndTypes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fs := model.FieldSet{"colour": {Value: "tan", Provenance: site}}
	err := repo.Upsert(ctx, upsert.Plan{Entity: model.EntityBreed, Key: "beagle", Insert: true, Fields: fs})
	assert.ErrorIs(t, err, ErrUnknownField)

	fs = model.FieldSet{model.FieldProtein: {Value: "high", Provenance: site}}
	err = repo.Upsert(ctx, upsert.Plan{Entity: model.EntityProduct, Key: "k1", Insert: true, Fields: fs})
	assert.ErrorIs(t, err, ErrFieldType)

	got, err := repo.Get(ctx, model.EntityProduct, "k1")
	require.NoError(t, err)
	assert.Nil(t, got, "failed plan must not leave a row behind")
}

// The orchestrator against a real catalog: the second application of the
// same candidates writes nothing.
func TestOrchestratorAgainstCatalog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	o := upsert.New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := o.Apply(ctx, model.EntityProduct, "k1", productFields())
	require.NoError(t, err)
	assert.Equal(t, upsert.Inserted, got)

	got, err = o.Apply(ctx, model.EntityProduct, "k1", productFields())
	require.NoError(t, err)
	assert.Equal(t, upsert.Unchanged, got)

	more := productFields()
	more.Set(model.FieldIngredientsTokens, model.NewStringSet("chicken", "rice", "barley"), opff)
	got, err = o.Apply(ctx, model.EntityProduct, "k1", more)
	require.NoError(t, err)
	assert.Equal(t, upsert.Updated, got)

	stored, err := repo.Get(ctx, model.EntityProduct, "k1")
	require.NoError(t, err)
	assert.Len(t, stored.Record.Set(model.FieldIngredientsTokens), 3)
	assert.Len(t, stored.Record.Sources(), 2)
}

func TestBrandMappings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := []model.BrandMapping{
		{RawToken: "royal", Slug: "royal_canin", Family: "mars_petcare", Rule: "override"},
		{RawToken: "hill's", Slug: "hills", Rule: "override"},
	}
	require.NoError(t, repo.SaveBrandMappings(ctx, in))
	in[0].Series = "maxi"
	require.NoError(t, repo.SaveBrandMappings(ctx, in[:1]))

	got, err := repo.BrandMappings(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hill's", got[0].RawToken)
	assert.Equal(t, "maxi", got[1].Series)
}

func seedProducts(t *testing.T, repo *SQLRepo) {
	t.Helper()
	ctx := context.Background()
	for key, fs := range map[string]model.FieldSet{
		"k1": productFields(),
		"k2": func() model.FieldSet {
			fs := model.FieldSet{}
			fs.Set(model.FieldBrandSlug, "hills", opff)
			fs.Set(model.FieldProductName, "Science Plan Puppy", opff)
			fs.Set(model.FieldKcal, 380.0, opff)
			return fs
		}(),
	} {
		var tags []model.SourceTag
		for _, c := range fs {
			tags, _ = model.UnionSources(tags, []model.SourceTag{c.Provenance.Tag()})
		}
		require.NoError(t, repo.Upsert(ctx, upsert.Plan{Entity: model.EntityProduct, Key: key, Insert: true, Fields: fs, Sources: tags}))
	}
}

func TestCoverage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedProducts(t, repo)

	cov, err := repo.ProductCoverage(ctx)
	require.NoError(t, err)
	require.Len(t, cov, 2)
	assert.Equal(t, ProductCoverage{BrandSlug: "hills", Products: 1, Kcal: 1}, cov[0])
	assert.Equal(t, "royal_canin", cov[1].BrandSlug)
	assert.Equal(t, 1, cov[1].KcalDerived)
	assert.Equal(t, 1, cov[1].Form)

	slugs, err := repo.BrandSlugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"hills": 1, "royal_canin": 1}, slugs)

	bc, err := repo.BreedCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, BreedCoverage{}, bc)

	require.NoError(t, repo.RefreshViews(ctx))
	require.NoError(t, repo.RefreshViews(ctx))
	var n int
	require.NoError(t, repo.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM product_coverage_snapshot").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestExportCSV(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedProducts(t, repo)

	var buf bytes.Buffer
	n, err := repo.ExportCSV(ctx, &buf, model.EntityProduct, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "product_key", records[0][0])
	assert.Equal(t, "k1", records[1][0])
	assert.Contains(t, records[1], "chicken; rice")
	assert.Contains(t, records[1], "24.5")

	buf.Reset()
	n, err = repo.ExportCSV(ctx, &buf, model.EntityProduct, Filters{FilterSource: "opff"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.ExportCSV(ctx, &buf, model.EntityBreed, Filters{FilterBrandSlug: "hills"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestDeleteByFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedProducts(t, repo)

	_, err := repo.DeleteByFilters(ctx, model.EntityProduct, Filters{})
	assert.ErrorIs(t, err, ErrNoFilters)

	_, err = repo.DeleteByFilters(ctx, model.EntityProduct, Filters{"abn": "1"})
	assert.ErrorIs(t, err, ErrUnknownField)

	n, err := repo.DeleteByFilters(ctx, model.EntityProduct, Filters{FilterName: "MAXI ADULT", FilterBrandSlug: "royal_canin"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, model.EntityProduct, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	var orphans int
	require.NoError(t, repo.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM provenance WHERE record_key = 'k1'").Scan(&orphans))
	assert.Zero(t, orphans)

	got, err = repo.Get(ctx, model.EntityProduct, "k2")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
