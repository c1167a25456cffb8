package upsert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/petcatalog/internal/model"
)

// MockStore keeps records in memory and counts writes.
type MockStore struct {
	records  map[string]*Existing
	writes   int
	getError error
	upsError error
}

func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]*Existing)}
}

func (m *MockStore) Get(ctx context.Context, entity model.Entity, key string) (*Existing, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.records[string(entity)+"/"+key], nil
}

func (m *MockStore) Upsert(ctx context.Context, p Plan) error {
	if m.upsError != nil {
		return m.upsError
	}
	m.writes++
	id := string(p.Entity) + "/" + p.Key
	ex := m.records[id]
	if ex == nil {
		ex = &Existing{Record: model.Record{}, Derived: model.NewStringSet()}
		m.records[id] = ex
	}
	for f, c := range p.Fields {
		ex.Record[f] = c.Value
		if c.Provenance.Derived {
			ex.Derived.Add(f)
		} else {
			delete(ex.Derived, f)
		}
	}
	if p.Sources != nil {
		ex.Record[model.FieldSources] = p.Sources
	}
	return nil
}

var (
	fetched = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	site    = model.Provenance{Source: model.SourceSiteText, URL: "https://example.com/p/1", FetchedAt: fetched}
	opff    = model.Provenance{Source: model.SourceOPFF, URL: "https://world.openpetfoodfacts.org/product/1", FetchedAt: fetched}
)

func newOrchestrator(store Store) *Orchestrator {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func baseCandidates() model.FieldSet {
	fs := model.FieldSet{}
	fs.Set(model.FieldBrand, "Royal", site)
	fs.Set(model.FieldBrandSlug, "royal_canin", site)
	fs.Set(model.FieldProductName, "Maxi Adult", site)
	fs.Set(model.FieldProtein, 24.5, site)
	fs.Set(model.FieldFat, 14.0, site)
	fs.Set(model.FieldKcal, 420.0, site.AsDerived())
	fs.Set(model.FieldIngredientsTokens, model.NewStringSet("chicken", "rice"), site)
	fs.Set(model.FieldIngredientsRaw, "Chicken, Rice", site)
	return fs
}

func TestApplyIsIdempotent(t *testing.T) {
	store := NewMockStore()
	o := newOrchestrator(store)
	ctx := context.Background()

	got, err := o.Apply(ctx, model.EntityProduct, "k1", baseCandidates())
	require.NoError(t, err)
	assert.Equal(t, Inserted, got)
	assert.Equal(t, 1, store.writes)

	got, err = o.Apply(ctx, model.EntityProduct, "k1", baseCandidates())
	require.NoError(t, err)
	assert.Equal(t, Unchanged, got)
	assert.Equal(t, 1, store.writes, "second application must not write")

	stored := store.records["product/k1"].Record
	assert.Equal(t, 24.5, stored[model.FieldProtein])
	assert.Equal(t, []model.SourceTag{site.Tag()}, stored.Sources())
}

func TestPlanInsert(t *testing.T) {
	o := newOrchestrator(NewMockStore())
	p := o.Plan(nil, model.EntityProduct, "k1", baseCandidates())

	assert.True(t, p.Insert)
	assert.Len(t, p.Fields, 8)
	assert.Equal(t, []model.SourceTag{site.Tag()}, p.Sources, "derived values add no source")
}

func TestPlanFillIfMissing(t *testing.T) {
	o := newOrchestrator(NewMockStore())
	existing := &Existing{Record: model.Record{
		model.FieldProtein: 26.0,
		model.FieldFat:     "",
		model.FieldSources: []model.SourceTag{site.Tag()},
	}}

	fs := model.FieldSet{}
	fs.Set(model.FieldProtein, 24.5, opff)
	fs.Set(model.FieldFat, 14.0, opff)
	fs.Set(model.FieldFiber, 2.5, opff)

	p := o.Plan(existing, model.EntityProduct, "k1", fs)
	assert.False(t, p.Insert)
	assert.Equal(t, []string{model.FieldFat, model.FieldFiber}, p.Fields.Fields(), "populated protein is kept")
	assert.Equal(t, []model.SourceTag{opff.Tag(), site.Tag()}, p.Sources)
}

func TestPlanIngredientImprovement(t *testing.T) {
	o := newOrchestrator(NewMockStore())
	existing := &Existing{Record: model.Record{
		model.FieldIngredientsTokens:   model.NewStringSet("chicken", "rice"),
		model.FieldIngredientsRaw:      "Chicken, Rice",
		model.FieldIngredientsLanguage: "en",
		model.FieldSources:             []model.SourceTag{site.Tag()},
	}}

	tests := []struct {
		name   string
		tokens model.StringSet
		want   []string
	}{
		{"more tokens replace with raw text", model.NewStringSet("chicken", "rice", "barley"), []string{model.FieldIngredientsRaw, model.FieldIngredientsTokens}},
		{"same count keeps stored", model.NewStringSet("chicken", "maize"), []string{}},
		{"fewer tokens keep stored", model.NewStringSet("chicken"), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := model.FieldSet{}
			fs.Set(model.FieldIngredientsTokens, tt.tokens, site)
			fs.Set(model.FieldIngredientsRaw, "Chicken, Rice, Barley", site)
			fs.Set(model.FieldIngredientsLanguage, "en", site)

			p := o.Plan(existing, model.EntityProduct, "k1", fs)
			assert.Equal(t, tt.want, p.Fields.Fields())
			assert.Nil(t, p.Sources)
		})
	}
}

func TestPlanObservedReplacesDerived(t *testing.T) {
	o := newOrchestrator(NewMockStore())
	existing := &Existing{
		Record:  model.Record{model.FieldKcal: 420.0},
		Derived: model.NewStringSet(model.FieldKcal),
	}

	fs := model.FieldSet{}
	fs.Set(model.FieldKcal, 385.0, opff)
	p := o.Plan(existing, model.EntityProduct, "k1", fs)
	require.Contains(t, p.Fields, model.FieldKcal)
	assert.Equal(t, 385.0, p.Fields[model.FieldKcal].Value)

	derived := model.FieldSet{}
	derived.Set(model.FieldKcal, 400.0, site.AsDerived())
	p = o.Plan(existing, model.EntityProduct, "k1", derived)
	assert.Empty(t, p.Fields, "derived never replaces derived")
}

func TestPlanTristateUnknownIsMissing(t *testing.T) {
	o := newOrchestrator(NewMockStore())
	existing := &Existing{Record: model.Record{
		model.FieldGoodWithChildren: model.Unknown,
		model.FieldGoodWithPets:     model.True,
	}}
	fs := model.FieldSet{}
	fs.Set(model.FieldGoodWithChildren, model.False, site)
	fs.Set(model.FieldGoodWithPets, model.False, site)

	p := o.Plan(existing, model.EntityBreed, "beagle", fs)
	assert.Equal(t, []string{model.FieldGoodWithChildren}, p.Fields.Fields())
}

func TestApplyErrors(t *testing.T) {
	store := NewMockStore()
	store.getError = errors.New("connection refused")
	_, err := newOrchestrator(store).Apply(context.Background(), model.EntityProduct, "k1", baseCandidates())
	assert.ErrorIs(t, err, store.getError)

	store = NewMockStore()
	store.upsError = errors.New("disk full")
	got, err := newOrchestrator(store).Apply(context.Background(), model.EntityProduct, "k1", baseCandidates())
	assert.ErrorIs(t, err, store.upsError)
	assert.Equal(t, Unchanged, got)
}

func TestWithRules(t *testing.T) {
	always := map[string]Rule{model.FieldProtein: {Improves: func(old, c any) bool { return true }}}
	o := New(NewMockStore(), slog.New(slog.NewTextHandler(io.Discard, nil)), WithRules(always))

	fs := model.FieldSet{}
	fs.Set(model.FieldProtein, 30.0, site)
	p := o.Plan(&Existing{Record: model.Record{model.FieldProtein: 26.0}}, model.EntityProduct, "k1", fs)
	assert.Equal(t, []string{model.FieldProtein}, p.Fields.Fields())
}
