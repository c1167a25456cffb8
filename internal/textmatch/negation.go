package textmatch

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// negations are folded words that flip the meaning of the phrase after them.
var negations = map[string]bool{
	"not": true, "never": true, "no": true, "isnt": true, "arent": true, "cant": true,
	"dont": true, "doesnt": true, "rarely": true, "hardly": true,
	"nicht": true, "kein": true, "keine": true, "nie": true,
	"inte": true, "aldrig": true, "ej": true,
	"pas": true, "jamais": true,
}

// negationWindow is how many words before a phrase are checked.
const negationWindow = 3

// ContainsAffirmed reports whether phrase occurs in text at least once,
// starting at a word boundary, without a negation word shortly before it in
// the same clause. Both arguments are folded first.
func ContainsAffirmed(text, phrase string) bool {
	return affirmedIn(Fold(text), Fold(phrase))
}

func affirmedIn(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		at := from + idx
		if wordStart(haystack, at) && !negatedBefore(haystack[:at]) {
			return true
		}
		from = at + len(needle)
	}
}

// ContainsFolded reports whether phrase occurs anywhere in text.
func ContainsFolded(text, phrase string) bool {
	needle := Fold(phrase)
	return needle != "" && strings.Contains(Fold(text), needle)
}

func wordStart(s string, at int) bool {
	if at == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func negatedBefore(prefix string) bool {
	if i := strings.LastIndexAny(prefix, ".,;:!?()"); i >= 0 {
		prefix = prefix[i+1:]
	}
	words := strings.Fields(prefix)
	start := len(words) - negationWindow
	if start < 0 {
		start = 0
	}
	for _, w := range words[start:] {
		w = strings.Trim(w, "\"'")
		if strings.HasSuffix(w, "n't") {
			return true
		}
		if negations[strings.ReplaceAll(w, "'", "")] {
			return true
		}
	}
	return false
}
