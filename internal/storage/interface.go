package storage

import (
	"context"
	"io"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/upsert"
)

type Repository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, entity model.Entity, key string) (*upsert.Existing, error)
	Upsert(ctx context.Context, plan upsert.Plan) error
	SaveBrandMappings(ctx context.Context, mappings []model.BrandMapping) error
	BrandMappings(ctx context.Context) ([]model.BrandMapping, error)
	BrandSlugs(ctx context.Context) (map[string]int, error)
	ProductCoverage(ctx context.Context) ([]ProductCoverage, error)
	BreedCoverage(ctx context.Context) (BreedCoverage, error)
	RefreshViews(ctx context.Context) error
	ExportCSV(ctx context.Context, w io.Writer, entity model.Entity, filters Filters) (int, error)
	DeleteByFilters(ctx context.Context, entity model.Entity, filters Filters) (int64, error)
	Close() error
}

var _ Repository = (*SQLRepo)(nil)
