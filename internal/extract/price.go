package extract

import (
	"math"
	"regexp"

	"github.com/shanehull/petcatalog/internal/textmatch"
	"github.com/shanehull/petcatalog/internal/units"
)

const currency = `(?:€|\$|£|kr|sek|eur|usd|gbp|chf)`

var priceTable = PatternTable{
	{Re: regexp.MustCompile(currency + `\s*` + num)},
	{Re: regexp.MustCompile(num + `\s*(?:` + currency + `|:-)`)},
	{Re: regexp.MustCompile(`^` + num + `$`)},
}

var sizeWords = []struct {
	word string
	unit units.Unit
}{
	{`kg|kilo(?:gram(?:me)?s?)?`, units.Kilogram},
	{`g|gr|grams?|grammes?`, units.Gram},
	{`lbs?|pounds?`, units.Pound},
	{`oz|ounces?`, units.Ounce},
}

func raw(v float64) float64 { return v }

// packageTable keeps numbers in their written unit; PackageKg converts after
// multiplying out multipacks such as "6 x 400 g".
var packageTable = func() PatternTable {
	var pt PatternTable
	for _, w := range sizeWords {
		pt = append(pt, Pattern{Re: regexp.MustCompile(`(\d+)\s*[x×]\s*` + num + `\s*(?:` + w.word + `)\b`), Unit: w.unit, Scale: raw})
	}
	for _, w := range sizeWords {
		pt = append(pt, Pattern{Re: regexp.MustCompile(num + `\s*(?:` + w.word + `)\b`), Unit: w.unit, Scale: raw})
	}
	return pt
}()

// maxPackageKg rejects sizes no retail bag comes in.
const maxPackageKg = 50

// ParsePrice reads the first price in text. A bare number counts as a price
// only when it is all the text there is.
func ParsePrice(text string) (float64, bool) {
	m, ok := priceTable.First(textmatch.Fold(text), func(m Match) bool { return m.Values[0] > 0 })
	if !ok {
		return 0, false
	}
	return m.Values[0], true
}

// PackageKg reads the first package size in text, in kilograms.
func PackageKg(text string) (float64, bool) {
	var kg float64
	_, ok := packageTable.First(textmatch.Fold(text), func(m Match) bool {
		size := m.Values[len(m.Values)-1]
		if len(m.Values) == 2 {
			size *= m.Values[0]
		}
		kg = units.ToCanonical(size, m.Unit)
		return kg > 0 && kg <= maxPackageKg
	})
	return kg, ok
}

// PricePerKg combines a price with the first package size found in
// sizeTexts, which are tried in order.
func PricePerKg(priceText string, sizeTexts ...string) (float64, bool) {
	price, ok := ParsePrice(priceText)
	if !ok {
		return 0, false
	}
	for _, s := range sizeTexts {
		if kg, ok := PackageKg(s); ok {
			return math.Round(price/kg*100) / 100, true
		}
	}
	return 0, false
}

// PriceBucket is an upper bound on price per kg. A zero Below is open-ended.
type PriceBucket struct {
	Name  string  `mapstructure:"name"`
	Below float64 `mapstructure:"below"`
}

func DefaultPriceBuckets() []PriceBucket {
	return []PriceBucket{
		{Name: "budget", Below: 4},
		{Name: "mid", Below: 8},
		{Name: "premium", Below: 15},
		{Name: "super_premium"},
	}
}

// BucketFor returns the first bucket whose bound perKg is below.
func BucketFor(perKg float64, buckets []PriceBucket) (string, bool) {
	if perKg <= 0 {
		return "", false
	}
	for _, b := range buckets {
		if b.Below <= 0 || perKg < b.Below {
			return b.Name, true
		}
	}
	return "", false
}
