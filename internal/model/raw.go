package model

import "time"

// RawProduct is what a product source hands over before any extraction.
// Text fields are left as found; empty means the source had nothing.
type RawProduct struct {
	Source          string
	URL             string
	FetchedAt       time.Time
	Brand           string
	Name            string
	Description     string
	IngredientsText string
	AnalysisText    string
	PriceText       string
	PackageText     string
	FormHint        string
	// Nutriments carries structured values from APIs that already expose
	// them, keyed by product field name (protein_pct, kcal_per_100g, ...).
	Nutriments map[string]float64
}

func (r RawProduct) Provenance(runID string) Provenance {
	return Provenance{Source: r.Source, URL: r.URL, FetchedAt: r.FetchedAt, RunID: runID}
}

// RawBreed is the unprocessed content of one breed page.
type RawBreed struct {
	Source    string
	URL       string
	FetchedAt time.Time
	Name      string
	// Sections maps a content field (history, personality, ...) to its text.
	Sections map[string]string
	// Traits maps a trait label as printed on the page ("Height", "Life
	// Expectancy", "Energy Level") to its free text.
	Traits map[string]string
	// Scores holds 1-5 ratings keyed by breed field name.
	Scores map[string]int
}

func (r RawBreed) Provenance(runID string) Provenance {
	return Provenance{Source: r.Source, URL: r.URL, FetchedAt: r.FetchedAt, RunID: runID}
}
