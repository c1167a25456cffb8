package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	cmPerInch  = 2.54
	kgPerPound = 0.453592
	kjPerKcal  = 4.184
	gPerOunce  = 28.349523125
)

func InchesToCM(x float64) float64 { return x * cmPerInch }
func CMToInches(x float64) float64 { return x / cmPerInch }
func LbsToKg(x float64) float64 { return x * kgPerPound }
func KgToLbs(x float64) float64 { return x / kgPerPound }
func KJToKcal(x float64) float64 { return x / kjPerKcal }
func KcalToKJ(x float64) float64 { return x * kjPerKcal }
func OuncesToGrams(x float64) float64 { return x * gPerOunce }

// Unit names the source unit of a number found in text.
type Unit string

const (
	Centimeter Unit = "cm"
	Inch       Unit = "in"
	Kilogram   Unit = "kg"
	Gram       Unit = "g"
	Pound      Unit = "lb"
	Ounce      Unit = "oz"
	Year       Unit = "year"
	Percent    Unit = "%"
	Kcal       Unit = "kcal"
	KJ         Unit = "kj"
)

// ToCanonical converts x from u into the canonical unit of its dimension
// (cm for length, kg for mass). Units without a conversion pass through.
func ToCanonical(x float64, u Unit) float64 {
	switch u {
	case Inch:
		return InchesToCM(x)
	case Pound:
		return LbsToKg(x)
	case Gram:
		return x / 1000
	case Ounce:
		return OuncesToGrams(x) / 1000
	case KJ:
		return KJToKcal(x)
	default:
		return x
	}
}

// Convert parses s and converts it from u. Malformed input yields ok=false.
func Convert(s string, u Unit) (float64, bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	return ToCanonical(v, u), true
}

var (
	reGrouped   = regexp.MustCompile(`^\d{1,3}(?:[., \x{00a0}]\d{3})+$`)
	reNumberish = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)?$`)
)

// ParseNumber parses a decimal number written with either '.' or ',' as the
// decimal separator ("24,5" and "24.5" are both 24.5).
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !reNumberish.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseGroupedNumber is ParseNumber for values that are expected to be large,
// such as kcal/kg. A separator followed by exactly three digits is read as a
// thousands separator, so "3,850" and "3.850" are both 3850.
func ParseGroupedNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if reGrouped.MatchString(s) {
		r := strings.NewReplacer(",", "", ".", "", " ", "", "\u00a0", "")
		return ParseNumber(r.Replace(s))
	}
	return ParseNumber(s)
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
