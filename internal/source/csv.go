package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shanehull/petcatalog/internal/model"
)

// CSVSource reads hand-collected products from a CSV file. Columns are
// matched by header name, case-insensitively, and may appear in any order:
// brand, name, description, ingredients, analysis, price, package, form, url.
type CSVSource struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

func NewCSVSource(path string, logger *slog.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger, now: time.Now}
}

func (s *CSVSource) Name() string {
	return model.SourceCSV
}

func (s *CSVSource) Fetch(ctx context.Context) ([]model.RawProduct, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("could not open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Read header to find column indexes
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read csv header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("csv %s has no name column", s.path)
	}

	fetchedAt := s.now().UTC()
	var products []model.RawProduct
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return products, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("Skipping malformed csv row", "line", line, "err", err)
			continue
		}

		get := func(key string) string {
			if idx, ok := cols[key]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		url := get("url")
		if url == "" {
			url = fmt.Sprintf("file://%s#L%d", s.path, line)
		}
		products = append(products, model.RawProduct{
			Source:          model.SourceCSV,
			URL:             url,
			FetchedAt:       fetchedAt,
			Brand:           get("brand"),
			Name:            get("name"),
			Description:     get("description"),
			IngredientsText: get("ingredients"),
			AnalysisText:    get("analysis"),
			PriceText:       get("price"),
			PackageText:     get("package"),
			FormHint:        get("form"),
		})
	}

	s.logger.Info("CSV import read", "path", s.path, "rows", len(products))
	return products, nil
}
