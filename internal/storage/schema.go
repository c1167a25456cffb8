package storage

import "github.com/shanehull/petcatalog/internal/model"

type kind int

const (
	kindText kind = iota
	kindReal
	kindTristate
	kindSet
	kindSources
)

type column struct {
	name string
	kind kind
}

type table struct {
	name   string
	key    string
	entity model.Entity
	// nameColumn is matched case-insensitively by the name filter.
	nameColumn string
	columns    []column
}

func (t table) column(name string) (column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

var productsTable = table{
	name:       "products",
	key:        "product_key",
	entity:     model.EntityProduct,
	nameColumn: model.FieldProductName,
	columns: []column{
		{model.FieldBrand, kindText},
		{model.FieldBrandSlug, kindText},
		{model.FieldProductName, kindText},
		{model.FieldForm, kindText},
		{model.FieldLifeStage, kindText},
		{model.FieldIngredientsRaw, kindText},
		{model.FieldIngredientsTokens, kindSet},
		{model.FieldIngredientsLanguage, kindText},
		{model.FieldProtein, kindReal},
		{model.FieldFat, kindReal},
		{model.FieldFiber, kindReal},
		{model.FieldAsh, kindReal},
		{model.FieldMoisture, kindReal},
		{model.FieldKcal, kindReal},
		{model.FieldPricePerKg, kindReal},
		{model.FieldPriceBucket, kindText},
		{model.FieldSources, kindSources},
	},
}

var breedsTable = table{
	name:       "breeds",
	key:        "breed_slug",
	entity:     model.EntityBreed,
	nameColumn: model.FieldDisplayName,
	columns: []column{
		{model.FieldDisplayName, kindText},
		{model.FieldHeightMinCM, kindReal},
		{model.FieldHeightMaxCM, kindReal},
		{model.FieldWeightMinKg, kindReal},
		{model.FieldWeightMaxKg, kindReal},
		{model.FieldLifespanMinYears, kindReal},
		{model.FieldLifespanMaxYears, kindReal},
		{model.FieldEnergy, kindText},
		{model.FieldTrainability, kindText},
		{model.FieldShedding, kindText},
		{model.FieldBarkLevel, kindText},
		{model.FieldGrooming, kindText},
		{model.FieldGoodWithChildren, kindTristate},
		{model.FieldGoodWithPets, kindTristate},
		{model.FieldHistory, kindText},
		{model.FieldPersonality, kindText},
		{model.FieldHealthIssues, kindText},
		{model.FieldGroomingNeeds, kindText},
		{model.FieldTrainingTips, kindText},
		{model.FieldFunFacts, kindText},
		{model.FieldSources, kindSources},
	},
}

func tableFor(entity model.Entity) (table, bool) {
	switch entity {
	case model.EntityProduct:
		return productsTable, true
	case model.EntityBreed:
		return breedsTable, true
	default:
		return table{}, false
	}
}

func (t table) ddl() string {
	q := "CREATE TABLE IF NOT EXISTS " + t.name + " (\n\t" + t.key + " TEXT PRIMARY KEY"
	for _, c := range t.columns {
		typ := "TEXT"
		if c.kind == kindReal {
			typ = "DOUBLE"
		}
		q += ",\n\t" + c.name + " " + typ
	}
	return q + ",\n\tcreated_at TEXT,\n\tupdated_at TEXT\n);"
}

// Timestamps are RFC 3339 text and sets are sorted JSON arrays, so the same
// schema reads the same on every driver.
var schema = []string{
	productsTable.ddl(),
	breedsTable.ddl(),
	`CREATE TABLE IF NOT EXISTS brand_map (
		raw_token TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		family TEXT,
		series TEXT,
		rule TEXT,
		updated_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS provenance (
		entity TEXT NOT NULL,
		record_key TEXT NOT NULL,
		field TEXT NOT NULL,
		source TEXT NOT NULL,
		source_url TEXT,
		fetched_at TEXT,
		derived BOOLEAN NOT NULL,
		run_id TEXT,
		PRIMARY KEY (entity, record_key, field)
	);`,
	`CREATE VIEW IF NOT EXISTS product_coverage AS
	SELECT p.brand_slug AS brand_slug,
		COUNT(*) AS products,
		COUNT(p.form) AS form,
		COUNT(p.life_stage) AS life_stage,
		COUNT(p.ingredients_tokens) AS ingredients,
		COUNT(p.protein_pct) AS protein,
		COUNT(p.fat_pct) AS fat,
		COUNT(p.kcal_per_100g) AS kcal,
		COUNT(d.record_key) AS kcal_derived,
		COUNT(p.price_per_kg) AS price
	FROM products p
	LEFT JOIN provenance d
		ON d.entity = 'product' AND d.record_key = p.product_key
		AND d.field = 'kcal_per_100g' AND d.derived
	GROUP BY p.brand_slug;`,
	`CREATE VIEW IF NOT EXISTS breed_coverage AS
	SELECT COUNT(*) AS breeds,
		COUNT(height_min_cm) AS height,
		COUNT(weight_min_kg) AS weight,
		COUNT(lifespan_min_years) AS lifespan,
		COUNT(energy) AS energy,
		COUNT(trainability) AS trainability,
		COUNT(shedding) AS shedding,
		COUNT(bark_level) AS bark_level,
		COUNT(grooming_frequency) AS grooming_frequency,
		COUNT(good_with_children) AS good_with_children,
		COUNT(good_with_pets) AS good_with_pets
	FROM breeds;`,
	`CREATE VIEW IF NOT EXISTS derived_fields AS
	SELECT entity, field, COUNT(*) AS records
	FROM provenance
	WHERE derived
	GROUP BY entity, field;`,
}

// snapshots are rebuilt from their views by RefreshViews.
var snapshots = map[string]string{
	"product_coverage_snapshot": "product_coverage",
	"breed_coverage_snapshot":   "breed_coverage",
}
