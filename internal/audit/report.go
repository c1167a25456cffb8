package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// WriteYAML writes the report to path, creating its directory.
func WriteYAML(path string, r *Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v) }

// RenderTable prints the report as terminal tables.
func RenderTable(w io.Writer, r *Report) {
	t := newTable(w, "Product coverage")
	t.AppendHeader(table.Row{"Brand", "Products", "Form", "Life stage", "Ingredients", "Protein", "Fat", "Kcal", "Derived kcal", "Price/kg"})
	for _, c := range r.Products {
		t.AppendRow(table.Row{c.BrandSlug, c.Products, pct(c.Form), pct(c.LifeStage), pct(c.Ingredients),
			pct(c.Protein), pct(c.Fat), pct(c.Kcal), c.KcalDerived, pct(c.Price)})
	}
	t.Render()

	t = newTable(w, fmt.Sprintf("Breed coverage (%d breeds)", r.Breeds.Breeds))
	t.AppendHeader(table.Row{"Field", "Coverage"})
	fields := make([]string, 0, len(r.Breeds.Fields))
	for f := range r.Breeds.Fields {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		t.AppendRow(table.Row{f, pct(r.Breeds.Fields[f])})
	}
	t.Render()

	if len(r.Merges) == 0 {
		return
	}
	t = newTable(w, "Possible duplicate brands")
	t.AppendHeader(table.Row{"Slug", "Products", "Similar", "Products", "Similarity"})
	for _, m := range r.Merges {
		t.AppendRow(table.Row{m.Slug, m.Products, m.Similar, m.SimilarProducts, fmt.Sprintf("%.3f", m.Similarity)})
	}
	t.Render()
}
