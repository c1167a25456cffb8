package source

import (
	"context"

	"github.com/shanehull/petcatalog/internal/model"
)

// Sourcer yields raw records of one kind from one origin.
type Sourcer[T any] interface {
	Name() string
	Fetch(ctx context.Context) ([]T, error)
}

type (
	ProductSourcer = Sourcer[model.RawProduct]
	BreedSourcer   = Sourcer[model.RawBreed]
)
