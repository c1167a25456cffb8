package ingredient

import (
	"regexp"

	"github.com/shanehull/petcatalog/internal/textmatch"
)

var wordRegex = regexp.MustCompile(`[a-z]+`)

// languageMarkers are frequent words of ingredient declarations that are
// unlikely in the other languages. Checked in this order on ties.
var languageMarkers = []struct {
	lang  string
	words []string
}{
	{"de", []string{"und", "zutaten", "huhn", "huhnerfleisch", "reis", "getrocknet", "getrocknetes", "fleisch", "tierische", "nebenerzeugnisse", "mais", "gerste", "lachs", "ente", "kartoffeln"}},
	{"sv", []string{"och", "ingredienser", "kyckling", "ris", "torkad", "torkat", "vete", "korn", "lax", "anka", "potatis", "majs", "animaliska", "biprodukter"}},
	{"fr", []string{"et", "composition", "poulet", "riz", "deshydrate", "deshydratee", "viande", "viandes", "orge", "saumon", "canard", "pommes", "terre", "sous", "produits", "animale"}},
	{"en", []string{"and", "ingredients", "chicken", "rice", "dried", "meal", "barley", "salmon", "duck", "potatoes", "corn", "meat", "derivatives", "by", "products", "with"}},
}

// DetectLanguage guesses the language of an ingredient declaration from
// marker words. It returns false when no marker occurs.
func DetectLanguage(text string) (string, bool) {
	counts := make(map[string]int, len(languageMarkers))
	for _, w := range wordRegex.FindAllString(textmatch.Fold(text), -1) {
		for _, m := range languageMarkers {
			for _, mw := range m.words {
				if w == mw {
					counts[m.lang]++
				}
			}
		}
	}
	best, bestN := "", 0
	for _, m := range languageMarkers {
		if counts[m.lang] > bestN {
			best, bestN = m.lang, counts[m.lang]
		}
	}
	return best, bestN > 0
}
