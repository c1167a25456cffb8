package storage

import (
	"context"
	"database/sql"
)

// ProductCoverage counts the populated product fields of one brand.
type ProductCoverage struct {
	BrandSlug   string `yaml:"brand_slug"`
	Products    int    `yaml:"products"`
	Form        int    `yaml:"form"`
	LifeStage   int    `yaml:"life_stage"`
	Ingredients int    `yaml:"ingredients"`
	Protein     int    `yaml:"protein"`
	Fat         int    `yaml:"fat"`
	Kcal        int    `yaml:"kcal"`
	KcalDerived int    `yaml:"kcal_derived"`
	Price       int    `yaml:"price"`
}

type BreedCoverage struct {
	Breeds           int `yaml:"breeds"`
	Height           int `yaml:"height"`
	Weight           int `yaml:"weight"`
	Lifespan         int `yaml:"lifespan"`
	Energy           int `yaml:"energy"`
	Trainability     int `yaml:"trainability"`
	Shedding         int `yaml:"shedding"`
	BarkLevel        int `yaml:"bark_level"`
	Grooming         int `yaml:"grooming_frequency"`
	GoodWithChildren int `yaml:"good_with_children"`
	GoodWithPets     int `yaml:"good_with_pets"`
}

func (r *SQLRepo) ProductCoverage(ctx context.Context) ([]ProductCoverage, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT brand_slug, products, form, life_stage, ingredients, protein, fat, kcal, kcal_derived, price
	FROM product_coverage
	ORDER BY brand_slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductCoverage
	for rows.Next() {
		var c ProductCoverage
		var slug sql.NullString
		if err := rows.Scan(&slug, &c.Products, &c.Form, &c.LifeStage, &c.Ingredients,
			&c.Protein, &c.Fat, &c.Kcal, &c.KcalDerived, &c.Price); err != nil {
			return nil, err
		}
		c.BrandSlug = slug.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLRepo) BreedCoverage(ctx context.Context) (BreedCoverage, error) {
	var c BreedCoverage
	err := r.db.QueryRowContext(ctx, `
	SELECT breeds, height, weight, lifespan, energy, trainability, shedding,
		bark_level, grooming_frequency, good_with_children, good_with_pets
	FROM breed_coverage`).Scan(&c.Breeds, &c.Height, &c.Weight, &c.Lifespan, &c.Energy,
		&c.Trainability, &c.Shedding, &c.BarkLevel, &c.Grooming, &c.GoodWithChildren, &c.GoodWithPets)
	return c, err
}
