// Package textmatch classifies text spans against multi-language keyword
// tables.
//
// Matching is a case- and diacritic-insensitive substring search. A table is
// an ordered list of categories; when keywords from several categories occur
// in the same text, the category declared first wins. Keyword length plays no
// part in the tie-break.
package textmatch

import "strings"

// Category is one canonical key and the keyword variants that select it.
type Category struct {
	Key      string
	Keywords []string
}

// Table is an ordered, read-only set of categories.
type Table struct {
	categories []Category
}

// NewTable builds a table in the given priority order. Keywords are folded
// once here so Match only folds the input text.
func NewTable(categories ...Category) *Table {
	t := &Table{categories: make([]Category, 0, len(categories))}
	for _, c := range categories {
		folded := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			if f := Fold(kw); f != "" {
				folded = append(folded, f)
			}
		}
		t.categories = append(t.categories, Category{Key: c.Key, Keywords: folded})
	}
	return t
}

// Match returns the first category, in priority order, with a keyword that
// occurs in text.
func (t *Table) Match(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	haystack := Fold(text)
	if haystack == "" {
		return "", false
	}
	for _, c := range t.categories {
		if containsAny(haystack, c.Keywords) {
			return c.Key, true
		}
	}
	return "", false
}

// MatchAffirmed is Match, except that a keyword preceded by a negation in
// its clause ("not a heavy shedder") does not count.
func (t *Table) MatchAffirmed(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	haystack := Fold(text)
	for _, c := range t.categories {
		for _, kw := range c.Keywords {
			if affirmedIn(haystack, kw) {
				return c.Key, true
			}
		}
	}
	return "", false
}

// MatchAll returns every matching category in priority order.
func (t *Table) MatchAll(text string) []string {
	if t == nil {
		return nil
	}
	haystack := Fold(text)
	var keys []string
	for _, c := range t.categories {
		if containsAny(haystack, c.Keywords) {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Keys returns the category keys in priority order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.categories))
	for i, c := range t.categories {
		keys[i] = c.Key
	}
	return keys
}

// Reorder returns a copy whose priority follows order. Keys missing from
// order keep their relative position after the listed ones; unknown keys in
// order are ignored.
func (t *Table) Reorder(order []string) *Table {
	byKey := make(map[string]Category, len(t.categories))
	for _, c := range t.categories {
		byKey[c.Key] = c
	}
	out := &Table{categories: make([]Category, 0, len(t.categories))}
	placed := make(map[string]bool, len(order))
	for _, k := range order {
		if c, ok := byKey[k]; ok && !placed[k] {
			out.categories = append(out.categories, c)
			placed[k] = true
		}
	}
	for _, c := range t.categories {
		if !placed[c.Key] {
			out.categories = append(out.categories, c)
		}
	}
	return out
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
