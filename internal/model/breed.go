package model

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shanehull/petcatalog/internal/textmatch"
)

var ErrMissingBreed = errors.New("missing breed name")

// Breed field names.
const (
	FieldDisplayName      = "display_name"
	FieldHeightMinCM      = "height_min_cm"
	FieldHeightMaxCM      = "height_max_cm"
	FieldWeightMinKg      = "weight_min_kg"
	FieldWeightMaxKg      = "weight_max_kg"
	FieldLifespanMinYears = "lifespan_min_years"
	FieldLifespanMaxYears = "lifespan_max_years"
	FieldEnergy           = "energy"
	FieldTrainability     = "trainability"
	FieldShedding         = "shedding"
	FieldBarkLevel        = "bark_level"
	FieldGrooming         = "grooming_frequency"
	FieldGoodWithChildren = "good_with_children"
	FieldGoodWithPets     = "good_with_pets"
	FieldHistory          = "history"
	FieldPersonality      = "personality"
	FieldHealthIssues     = "health_issues"
	FieldGroomingNeeds    = "grooming_needs"
	FieldTrainingTips     = "training_tips"
	FieldFunFacts         = "fun_facts"
)

// ContentSections are the long-form text fields of a breed, in display order.
var ContentSections = []string{
	FieldHistory, FieldPersonality, FieldHealthIssues,
	FieldGroomingNeeds, FieldTrainingTips, FieldFunFacts,
}

// Range is a closed interval in a canonical unit. Min <= Max always holds
// for ranges built by the extractors.
type Range struct {
	Min float64
	Max float64
}

type BreedRecord struct {
	BreedSlug        string
	DisplayName      string
	Height           *Range // cm
	Weight           *Range // kg
	Lifespan         *Range // years
	Energy           *string
	Trainability     *string
	Shedding         *string
	BarkLevel        *string
	Grooming         *string
	GoodWithChildren Tristate
	GoodWithPets     Tristate
	Sections         map[string]string
	Sources          []SourceTag
}

func BreedFromRecord(slug string, r Record) BreedRecord {
	b := BreedRecord{
		BreedSlug:        slug,
		Height:           rangeOf(r, FieldHeightMinCM, FieldHeightMaxCM),
		Weight:           rangeOf(r, FieldWeightMinKg, FieldWeightMaxKg),
		Lifespan:         rangeOf(r, FieldLifespanMinYears, FieldLifespanMaxYears),
		Energy:           r.Text(FieldEnergy),
		Trainability:     r.Text(FieldTrainability),
		Shedding:         r.Text(FieldShedding),
		BarkLevel:        r.Text(FieldBarkLevel),
		Grooming:         r.Text(FieldGrooming),
		GoodWithChildren: r.Tristate(FieldGoodWithChildren),
		GoodWithPets:     r.Tristate(FieldGoodWithPets),
		Sections:         map[string]string{},
		Sources:          r.Sources(),
	}
	if s := r.Text(FieldDisplayName); s != nil {
		b.DisplayName = *s
	}
	for _, f := range ContentSections {
		if s := r.Text(f); s != nil {
			b.Sections[f] = *s
		}
	}
	return b
}

func rangeOf(r Record, minField, maxField string) *Range {
	lo, hi := r.Float(minField), r.Float(maxField)
	if lo == nil || hi == nil {
		return nil
	}
	return &Range{Min: *lo, Max: *hi}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// BreedSlug turns a display name such as "German Shepherd Dog" into
// "german-shepherd-dog".
func BreedSlug(name string) (string, error) {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(textmatch.Fold(name), "-"), "-")
	if slug == "" {
		return "", ErrMissingBreed
	}
	return slug, nil
}

// BrandMapping is one row of the persisted brand canonical map.
type BrandMapping struct {
	RawToken string
	Slug     string
	Family   string
	Series   string
	Rule     string
}
