// Package tables holds the curated canonical tables: brand overrides and
// phrases, the ingredient dictionary and the keyword tables behind life
// stage, form, enum and tri-state classification.
//
// The tables ship embedded as JSON5. Override files in the same shape are
// merged on top, with the override winning: map entries are replaced key by
// key, lists are replaced whole.
package tables

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/shanehull/petcatalog/internal/brand"
	"github.com/shanehull/petcatalog/internal/ingredient"
	"github.com/shanehull/petcatalog/internal/normalize"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

//go:embed brands.json5
var brandsFile []byte

//go:embed ingredients.json5
var ingredientsFile []byte

//go:embed keywords.json5
var keywordsFile []byte

type BrandTable struct {
	Overrides map[string]brand.Entry `json:"overrides"`
	Phrases   []brand.Phrase         `json:"phrases"`
}

// IngredientTable maps a canonical ingredient to the label variants that
// mean it.
type IngredientTable map[string][]string

// Localized groups keywords by language code.
type Localized map[string][]string

type Bucket struct {
	Key      string    `json:"key"`
	Keywords Localized `json:"keywords"`
}

// EnumField lists buckets in priority order and, separately, in order of
// rising 1-5 score.
type EnumField struct {
	Buckets []Bucket `json:"buckets"`
	Scale   []string `json:"scale"`
}

type BooleanField struct {
	StrongPositive   Localized `json:"strong_positive"`
	ModeratePositive Localized `json:"moderate_positive"`
	Negative         Localized `json:"negative"`
}

type KeywordTable struct {
	LifeStage []Bucket                `json:"life_stage"`
	Form      []Bucket                `json:"form"`
	Enums     map[string]EnumField    `json:"enums"`
	Booleans  map[string]BooleanField `json:"booleans"`
}

// Overrides names JSON5 files merged over the embedded tables. Empty paths
// are skipped.
type Overrides struct {
	Brands      string
	Ingredients string
	Keywords    string
}

type Tables struct {
	Brands      BrandTable
	Ingredients IngredientTable
	Keywords    KeywordTable
}

// Load parses the embedded tables and merges any override files on top.
func Load(ov Overrides) (*Tables, error) {
	t := &Tables{}
	if err := load(brandsFile, ov.Brands, &t.Brands); err != nil {
		return nil, fmt.Errorf("brand table: %w", err)
	}
	if err := load(ingredientsFile, ov.Ingredients, &t.Ingredients); err != nil {
		return nil, fmt.Errorf("ingredient table: %w", err)
	}
	if err := load(keywordsFile, ov.Keywords, &t.Keywords); err != nil {
		return nil, fmt.Errorf("keyword table: %w", err)
	}
	return t, nil
}

// Default returns the embedded tables without overrides.
func Default() *Tables {
	t, err := Load(Overrides{})
	if err != nil {
		panic(err)
	}
	return t
}

func load[T any](embedded []byte, overridePath string, out *T) error {
	if err := json5.Unmarshal(embedded, out); err != nil {
		return err
	}
	if overridePath == "" {
		return nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return err
	}
	var override T
	if err := json5.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("%s: %w", overridePath, err)
	}
	if err := mergo.Merge(out, override, mergo.WithOverride); err != nil {
		return err
	}
	slog.Info("merging table with overrides", "file", overridePath)
	return nil
}

// Canonicalizer builds the brand canonicalizer from the brand table.
func (t *Tables) Canonicalizer() *brand.Canonicalizer {
	return brand.New(t.Brands.Overrides, t.Brands.Phrases)
}

// Tokenizer builds the ingredient tokenizer from the dictionary.
func (t *Tables) Tokenizer() *ingredient.Tokenizer {
	dict := make(map[string]string)
	for canonical, variants := range t.Ingredients {
		dict[canonical] = canonical
		for _, v := range variants {
			dict[v] = canonical
		}
	}
	return ingredient.NewTokenizer(dict)
}

func (t *Tables) LifeStageTable(locales []string) *textmatch.Table {
	return textmatch.NewTable(categories(t.Keywords.LifeStage, locales)...)
}

func (t *Tables) FormTable(locales []string) *textmatch.Table {
	return textmatch.NewTable(categories(t.Keywords.Form, locales)...)
}

// EnumFields lists the configured enum fields, sorted.
func (t *Tables) EnumFields() []string {
	out := make([]string, 0, len(t.Keywords.Enums))
	for f := range t.Keywords.Enums {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Enum builds the classifier for one enum field. A non-empty priority
// replaces the declared bucket order.
func (t *Tables) Enum(field string, locales, priority []string) (*normalize.EnumTable, bool) {
	f, ok := t.Keywords.Enums[field]
	if !ok {
		return nil, false
	}
	return normalize.NewEnumTable(categories(f.Buckets, locales), f.Scale).WithPriority(priority), true
}

// Indicators builds the tri-state indicator lists for one boolean field.
func (t *Tables) Indicators(field string, locales []string) (normalize.Indicators, bool) {
	f, ok := t.Keywords.Booleans[field]
	if !ok {
		return normalize.Indicators{}, false
	}
	return normalize.Indicators{
		StrongPositive:   f.StrongPositive.For(locales),
		ModeratePositive: f.ModeratePositive.For(locales),
		Negative:         f.Negative.For(locales),
	}, true
}

// For flattens the keywords of the given languages, in the order the
// languages are listed. No locales means all of them.
func (l Localized) For(locales []string) []string {
	if len(locales) == 0 {
		locales = make([]string, 0, len(l))
		for lang := range l {
			locales = append(locales, lang)
		}
		slices.Sort(locales)
	}
	var out []string
	for _, lang := range locales {
		out = append(out, l[lang]...)
	}
	return out
}

func categories(buckets []Bucket, locales []string) []textmatch.Category {
	out := make([]textmatch.Category, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, textmatch.Category{Key: b.Key, Keywords: b.Keywords.For(locales)})
	}
	return out
}
