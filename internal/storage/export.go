package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shanehull/petcatalog/internal/model"
)

// Filter keys accepted by ExportCSV and DeleteByFilters.
const (
	FilterKey       = "key"
	FilterBrandSlug = "brand_slug"
	FilterName      = "name"
	FilterSource    = "source"
)

// Filters select records; all given filters must match.
type Filters map[string]string

func (t table) where(filters Filters) (string, []any, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conditions []string
	var args []any
	for _, k := range keys {
		v := filters[k]
		switch k {
		case FilterKey:
			conditions = append(conditions, t.key+" = ?")
			args = append(args, v)
		case FilterBrandSlug:
			if t.entity != model.EntityProduct {
				return "", nil, fmt.Errorf("%w: %s filter on %s", ErrUnknownField, k, t.name)
			}
			conditions = append(conditions, "brand_slug = ?")
			args = append(args, v)
		case FilterName:
			conditions = append(conditions, "lower("+t.nameColumn+") = ?")
			args = append(args, strings.ToLower(v))
		case FilterSource:
			conditions = append(conditions, "lower(sources) LIKE ?")
			args = append(args, `%"source":"`+strings.ToLower(v)+`"%`)
		default:
			return "", nil, fmt.Errorf("%w: filter %q", ErrUnknownField, k)
		}
	}
	if len(conditions) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// ExportCSV writes the matching records of one entity as CSV with a header
// row and returns the number of records written. No filters exports all.
func (r *SQLRepo) ExportCSV(ctx context.Context, w io.Writer, entity model.Entity, filters Filters) (int, error) {
	t, ok := tableFor(entity)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	where, args, err := t.where(filters)
	if err != nil {
		return 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", t.selectList(), t.name, where, t.key), args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	header := []string{t.key}
	for _, c := range t.columns {
		header = append(header, c.name)
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		key, rec, err := t.scan(rows)
		if err != nil {
			return n, err
		}
		line := []string{key}
		for _, c := range t.columns {
			line = append(line, formatCell(rec[c.name]))
		}
		if err := cw.Write(line); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case model.Tristate:
		return x.String()
	case model.StringSet:
		return strings.Join(x.Sorted(), "; ")
	case []model.SourceTag:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// DeleteByFilters removes matching records and their provenance rows. At
// least one filter is required.
func (r *SQLRepo) DeleteByFilters(ctx context.Context, entity model.Entity, filters Filters) (int64, error) {
	t, ok := tableFor(entity)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if len(filters) == 0 {
		return 0, ErrNoFilters
	}
	where, args, err := t.where(filters)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM "+t.name+where, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM provenance WHERE entity = ? AND record_key NOT IN (SELECT %s FROM %s)", t.key, t.name),
		string(entity))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.logger.Info("Deleted records", "entity", entity, "count", n)
	return n, nil
}
