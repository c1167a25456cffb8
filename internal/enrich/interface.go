package enrich

import (
	"github.com/shanehull/petcatalog/internal/model"
)

// Result is the candidate field set for one catalog record.
type Result struct {
	Entity model.Entity
	Key    string
	Fields model.FieldSet
}

// Enricher turns one raw source record into catalog candidates. It returns
// an error only when the record has no identity; every other miss just
// leaves a field out.
type Enricher[R any] interface {
	Enrich(raw R, runID string) (Result, error)
}

var (
	_ Enricher[model.RawProduct] = (*ProductEnricher)(nil)
	_ Enricher[model.RawBreed]   = (*BreedEnricher)(nil)
)
