// Package brand maps raw brand strings to canonical brand slugs.
//
// Precedence is strict: the override table, then the phrase map, then
// generic slugification. Only the explicit brand field of a record is ever
// canonicalized; product names are never searched for brand names.
package brand

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

// Rules reported with every result.
const (
	RuleOverride = "override"
	RulePhrase   = "phrase"
	RuleSlugify  = "slugify"
)

// Entry is the canonical identity a raw token or phrase resolves to.
type Entry struct {
	Slug   string `json:"slug"`
	Family string `json:"family,omitempty"`
	Series string `json:"series,omitempty"`
}

// Phrase maps any brand containing Phrase (as whole words) to Entry. Used
// for merged and legacy brand groupings.
type Phrase struct {
	Phrase string `json:"phrase"`
	Entry
}

type Result struct {
	Entry
	Rule string
}

type Canonicalizer struct {
	overrides map[string]Entry
	phrases   []Phrase
}

// New builds a canonicalizer. Override keys are matched case- and
// accent-insensitively; phrases are checked in the given order.
func New(overrides map[string]Entry, phrases []Phrase) *Canonicalizer {
	c := &Canonicalizer{overrides: make(map[string]Entry, len(overrides))}
	for raw, e := range overrides {
		if k := textmatch.Fold(raw); k != "" {
			c.overrides[k] = e
		}
	}
	for _, p := range phrases {
		if f := strings.TrimSpace(nonAlnum.ReplaceAllString(textmatch.Fold(p.Phrase), " ")); f != "" {
			c.phrases = append(c.phrases, Phrase{Phrase: f, Entry: p.Entry})
		}
	}
	return c
}

// Canonicalize resolves a raw brand field. The result is empty only when
// raw has no letters or digits.
func (c *Canonicalizer) Canonicalize(raw string) Result {
	key := textmatch.Fold(raw)
	if e, ok := c.overrides[key]; ok {
		return Result{Entry: e, Rule: RuleOverride}
	}
	padded := " " + nonAlnum.ReplaceAllString(key, " ") + " "
	for _, p := range c.phrases {
		if strings.Contains(padded, " "+p.Phrase+" ") {
			return Result{Entry: p.Entry, Rule: RulePhrase}
		}
	}
	return Result{Entry: Entry{Slug: Slugify(raw)}, Rule: RuleSlugify}
}

// Mappings lists the override table as catalog rows, sorted by token.
func (c *Canonicalizer) Mappings() []model.BrandMapping {
	out := make([]model.BrandMapping, 0, len(c.overrides))
	for raw, e := range c.overrides {
		out = append(out, model.BrandMapping{RawToken: raw, Slug: e.Slug, Family: e.Family, Series: e.Series, Rule: RuleOverride})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawToken < out[j].RawToken })
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, replaces each run of other characters with a
// single underscore and trims underscores from both ends.
func Slugify(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(textmatch.Fold(s), "_"), "_")
}
