// Package normalize classifies free text into tri-state judgments and
// ordered enum buckets.
package normalize

import (
	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

// Indicators are the keyword lists behind one tri-state field. They are
// checked strong-positive, moderate-positive, negative, in that order.
type Indicators struct {
	StrongPositive   []string `json:"strong_positive"`
	ModeratePositive []string `json:"moderate_positive"`
	Negative         []string `json:"negative"`
}

// Judge returns True when a positive indicator occurs without a negation in
// front of it, False when a negative indicator occurs, and Unknown when the
// text says nothing either way. Silence is never read as False.
func (ind Indicators) Judge(text string) model.Tristate {
	if text == "" {
		return model.Unknown
	}
	for _, kw := range ind.StrongPositive {
		if textmatch.ContainsAffirmed(text, kw) {
			return model.True
		}
	}
	for _, kw := range ind.ModeratePositive {
		if textmatch.ContainsAffirmed(text, kw) {
			return model.True
		}
	}
	for _, kw := range ind.Negative {
		if textmatch.ContainsFolded(text, kw) {
			return model.False
		}
	}
	return model.Unknown
}

// TristateFromScore reads a 1-5 rating: 4 and 5 are True, 1 and 2 are
// False, 3 and anything off the scale are Unknown.
func TristateFromScore(score int) model.Tristate {
	switch {
	case score >= 4 && score <= 5:
		return model.True
	case score >= 1 && score <= 2:
		return model.False
	default:
		return model.Unknown
	}
}
