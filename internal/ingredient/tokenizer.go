// Package ingredient turns ingredient declarations into sets of canonical
// ingredient names.
package ingredient

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/textmatch"
)

var (
	parenRegex   = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]`)
	percentRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)
	splitRegex   = regexp.MustCompile(`[,;]|\s(?:and|und|och|et|&)\s`)
	headerRegex  = regexp.MustCompile(`^(?:ingredients|composition|zutaten|zusammensetzung|ingredienser|sammansattning)\s*:\s*`)
	digitsRegex  = regexp.MustCompile(`^[\d\s.,]*$`)
)

// Stopwords are trimmed from either end of a fragment, never from the middle.
var stopwords = map[string]bool{
	"and": true, "with": true, "of": true, "in": true, "contains": true, "incl": true, "including": true,
	"und": true, "mit": true, "von": true, "aus": true,
	"och": true, "med": true, "av": true,
	"et": true, "avec": true, "de": true, "du": true, "des": true,
}

const fragmentCutset = " .:!?*\"'-_/"

// minReverseLen keeps very short fragments ("a", "of") from matching a
// canonical name that happens to start with them.
const minReverseLen = 4

// Tokenizer maps ingredient sentences onto a read-only canonical dictionary.
// It is safe for concurrent use.
type Tokenizer struct {
	dict map[string]string
	// keys sorted longest first, then lexically.
	keys       []string
	canonicals []string
}

// NewTokenizer builds a tokenizer from a variant -> canonical dictionary.
// Every canonical name also maps to itself, so tokenizing an already
// canonical list is a no-op.
func NewTokenizer(dict map[string]string) *Tokenizer {
	t := &Tokenizer{dict: make(map[string]string, len(dict)*2)}
	for variant, canonical := range dict {
		c := textmatch.Fold(canonical)
		if c == "" {
			continue
		}
		if v := textmatch.Fold(variant); v != "" {
			t.dict[v] = c
		}
		t.dict[c] = c
	}
	for k, c := range t.dict {
		t.keys = append(t.keys, k)
		if k == c {
			t.canonicals = append(t.canonicals, c)
		}
	}
	sort.Strings(t.canonicals)
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t
}

// Tokenize returns the set of canonical ingredients declared in sentence.
// Unknown fragments are kept verbatim (folded) rather than dropped.
func (t *Tokenizer) Tokenize(sentence string) model.StringSet {
	out := model.NewStringSet()
	for _, frag := range Fragments(sentence) {
		out.Add(t.Lookup(frag))
	}
	return out
}

// Fragments splits a declaration into cleaned, folded fragments without
// consulting the dictionary.
func Fragments(sentence string) []string {
	s := textmatch.Fold(sentence)
	s = headerRegex.ReplaceAllString(s, "")
	for {
		stripped := parenRegex.ReplaceAllString(s, " ")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = percentRegex.ReplaceAllString(s, " ")

	var out []string
	for _, part := range splitRegex.Split(s, -1) {
		if frag := clean(part); frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

func clean(part string) string {
	words := strings.Fields(strings.Trim(part, fragmentCutset))
	for len(words) > 0 && stopwords[strings.Trim(words[0], fragmentCutset)] {
		words = words[1:]
	}
	for len(words) > 0 && stopwords[strings.Trim(words[len(words)-1], fragmentCutset)] {
		words = words[:len(words)-1]
	}
	frag := strings.Trim(strings.Join(words, " "), fragmentCutset)
	if digitsRegex.MatchString(frag) {
		return ""
	}
	return frag
}

// Lookup resolves one cleaned fragment: exact entry first, then the longest
// entry contained in the fragment as whole words, then the one canonical name
// the fragment starts as whole words ("sweet" for "sweet potato"). A fragment
// that matches nothing, or starts more than one canonical name, is returned
// as is.
func (t *Tokenizer) Lookup(frag string) string {
	if c, ok := t.dict[frag]; ok {
		return c
	}
	padded := " " + frag + " "
	for _, k := range t.keys {
		if strings.Contains(padded, " "+k+" ") {
			return t.dict[k]
		}
	}
	if len(frag) >= minReverseLen {
		if c, ok := t.truncated(frag); ok {
			return c
		}
	}
	return frag
}

// truncated finds the single canonical name that begins with frag.
func (t *Tokenizer) truncated(frag string) (string, bool) {
	var match string
	for _, c := range t.canonicals {
		if !strings.HasPrefix(c+" ", frag+" ") {
			continue
		}
		if match != "" {
			return "", false
		}
		match = c
	}
	return match, match != ""
}
