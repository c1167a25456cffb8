package upsert

import "github.com/shanehull/petcatalog/internal/model"

// Rule lets a candidate replace a populated field. Coupled fields are
// written together with the field whenever the rule fires, so values that
// describe the same thing stay consistent.
type Rule struct {
	Improves func(old, candidate any) bool
	Coupled  []string
}

// DefaultRules: an ingredient token set replaces the stored one only when it
// has more tokens, and then brings its raw text and language along.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		model.FieldIngredientsTokens: {
			Improves: MoreTokens,
			Coupled:  []string{model.FieldIngredientsRaw, model.FieldIngredientsLanguage},
		},
	}
}

func MoreTokens(old, candidate any) bool {
	o, _ := old.(model.StringSet)
	c, ok := candidate.(model.StringSet)
	return ok && len(c) > len(o)
}
