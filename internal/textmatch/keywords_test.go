package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lifeStageTable() *Table {
	return NewTable(
		Category{Key: "all", Keywords: []string{"all life stages", "alle Lebensphasen", "alla åldrar"}},
		Category{Key: "puppy", Keywords: []string{"puppy", "Welpe", "valp", "chiot"}},
		Category{Key: "senior", Keywords: []string{"senior", "7+"}},
		Category{Key: "adult", Keywords: []string{"adult", "Erwachsene", "vuxen"}},
	)
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Råprotein", "raprotein"},
		{"  Matières   GRASSES ", "matieres grasses"},
		{"Weißfisch", "weissfisch"},
		{"Isn’t", "isn't"},
		{"Protéines brutes", "proteines brutes"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestTableMatch(t *testing.T) {
	table := lifeStageTable()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"english", "Adult Large Breed Chicken", "adult", true},
		{"german", "Trockenfutter für Welpen", "puppy", true},
		{"swedish diacritics", "Hundfoder för ALLA ÅLDRAR", "all", true},
		{"priority beats keyword length", "Puppy & adult formula", "puppy", true},
		{"all beats puppy", "for all life stages including puppy growth", "all", true},
		{"no match", "Grain free salmon", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Match(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableMatchAll(t *testing.T) {
	got := lifeStageTable().MatchAll("Senior and adult maintenance")
	assert.Equal(t, []string{"senior", "adult"}, got)
}

func TestTableReorder(t *testing.T) {
	table := lifeStageTable().Reorder([]string{"adult", "bogus", "puppy"})
	assert.Equal(t, []string{"adult", "puppy", "all", "senior"}, table.Keys())

	got, ok := table.Match("Puppy & adult formula")
	assert.True(t, ok)
	assert.Equal(t, "adult", got)
}

func TestNilTable(t *testing.T) {
	var table *Table
	_, ok := table.Match("anything")
	assert.False(t, ok)
	assert.Nil(t, table.MatchAll("anything"))
}

func TestContainsAffirmed(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   bool
	}{
		{"plain", "Very good with children and strangers.", "good with children", true},
		{"negated", "Not good with children, may harm toddlers", "good with children", false},
		{"contraction", "This breed isn't good with children", "good with children", false},
		{"curly apostrophe", "It doesn’t do well with cats", "do well with cats", false},
		{"negation in earlier clause", "Not a guard dog. Good with children.", "good with children", true},
		{"second occurrence affirmed", "Not good with children at first; later good with children", "good with children", true},
		{"german", "Der Hund ist nicht kinderlieb", "kinderlieb", false},
		{"absent", "Loves long walks", "good with children", false},
		{"inside a longer word", "Gilt als unverträglich mit Katzen", "verträglich", false},
		{"compound prefix", "Kinderliebe Hunde", "kinderlieb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsAffirmed(tt.text, tt.phrase))
		})
	}
}

func TestTableMatchAffirmed(t *testing.T) {
	table := NewTable(
		Category{Key: "heavy", Keywords: []string{"heavy shedder", "sheds heavily"}},
		Category{Key: "low", Keywords: []string{"light shedder", "sheds little"}},
	)

	got, ok := table.MatchAffirmed("Not a heavy shedder; a light shedder overall.")
	assert.True(t, ok)
	assert.Equal(t, "low", got)

	got, ok = table.Match("Not a heavy shedder; a light shedder overall.")
	assert.True(t, ok)
	assert.Equal(t, "heavy", got, "plain Match ignores negation")

	_, ok = table.MatchAffirmed("Never a heavy shedder")
	assert.False(t, ok)
}
