package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/shanehull/petcatalog/internal/model"
	"github.com/shanehull/petcatalog/internal/upsert"
)

// Catalog drivers. duckdb and sqlite take a file path, libsql a
// libsql:// URL with an authToken parameter.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported catalog driver")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrUnknownField      = errors.New("unknown field")
	ErrFieldType         = errors.New("field value has wrong type")
	ErrNoFilters         = errors.New("no filters provided")
)

type SQLRepo struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

func Open(driver, dsn string, logger *slog.Logger) (*SQLRepo, error) {
	switch driver {
	case DriverDuckDB, DriverSQLite, DriverLibSQL:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; the pipeline's workers share the handle.
		db.SetMaxOpenConns(1)
	}
	return &SQLRepo{db: db, driver: driver, logger: logger, now: time.Now}, nil
}

func (r *SQLRepo) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	r.logger.Debug("catalog schema ready", "driver", r.driver)
	return nil
}

// Get loads a record and the set of its fields whose value was derived. It
// returns nil, nil when the record does not exist.
func (r *SQLRepo) Get(ctx context.Context, entity model.Entity, key string) (*upsert.Existing, error) {
	t, ok := tableFor(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.selectList(), t.name, t.key)
	_, rec, err := t.scan(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT field FROM provenance WHERE entity = ? AND record_key = ? AND derived",
		string(entity), key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	derived := model.NewStringSet()
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		derived.Add(f)
	}
	return &upsert.Existing{Record: rec, Derived: derived}, rows.Err()
}

// Upsert writes the planned fields and their provenance rows in one
// transaction. Columns outside the plan are left as they are.
func (r *SQLRepo) Upsert(ctx context.Context, plan upsert.Plan) error {
	t, ok := tableFor(plan.Entity)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, plan.Entity)
	}

	cols := []string{t.key}
	args := []any{plan.Key}
	for _, f := range plan.Fields.Fields() {
		c, ok := t.column(f)
		if !ok || c.kind == kindSources {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, t.name, f)
		}
		v, err := encode(c, plan.Fields[f].Value)
		if err != nil {
			return err
		}
		cols = append(cols, f)
		args = append(args, v)
	}
	if plan.Sources != nil {
		v, err := encode(column{model.FieldSources, kindSources}, plan.Sources)
		if err != nil {
			return err
		}
		cols = append(cols, model.FieldSources)
		args = append(args, v)
	}
	now := r.now().UTC().Format(time.RFC3339)
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	var set []string
	for _, c := range cols[1:] {
		if c != "created_at" {
			set = append(set, c+" = excluded."+c)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.name, strings.Join(cols, ", "), placeholders(len(cols)), t.key, strings.Join(set, ", "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write %s: %w", t.name, err)
	}
	for _, f := range plan.Fields.Fields() {
		p := plan.Fields[f].Provenance
		_, err := tx.ExecContext(ctx, `
		INSERT INTO provenance (entity, record_key, field, source, source_url, fetched_at, derived, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity, record_key, field) DO UPDATE SET
			source = excluded.source,
			source_url = excluded.source_url,
			fetched_at = excluded.fetched_at,
			derived = excluded.derived,
			run_id = excluded.run_id`,
			string(plan.Entity), plan.Key, f, p.Source, nullable(p.URL), timestamp(p.FetchedAt), p.Derived, nullable(p.RunID))
		if err != nil {
			return fmt.Errorf("write provenance %s: %w", f, err)
		}
	}
	return tx.Commit()
}

func (r *SQLRepo) SaveBrandMappings(ctx context.Context, mappings []model.BrandMapping) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := r.now().UTC().Format(time.RFC3339)
	for _, m := range mappings {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO brand_map (raw_token, slug, family, series, rule, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (raw_token) DO UPDATE SET
			slug = excluded.slug,
			family = excluded.family,
			series = excluded.series,
			rule = excluded.rule,
			updated_at = excluded.updated_at`,
			m.RawToken, m.Slug, nullable(m.Family), nullable(m.Series), m.Rule, now)
		if err != nil {
			return fmt.Errorf("save brand %q: %w", m.RawToken, err)
		}
	}
	return tx.Commit()
}

func (r *SQLRepo) BrandMappings(ctx context.Context) ([]model.BrandMapping, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT raw_token, slug, family, series, rule FROM brand_map ORDER BY raw_token")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BrandMapping
	for rows.Next() {
		var m model.BrandMapping
		var family, series, rule sql.NullString
		if err := rows.Scan(&m.RawToken, &m.Slug, &family, &series, &rule); err != nil {
			return nil, err
		}
		m.Family, m.Series, m.Rule = family.String, series.String, rule.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// BrandSlugs counts stored products per brand slug.
func (r *SQLRepo) BrandSlugs(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT brand_slug, COUNT(*) FROM products WHERE brand_slug IS NOT NULL GROUP BY brand_slug")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var slug string
		var n int
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, err
		}
		out[slug] = n
	}
	return out, rows.Err()
}

// RefreshViews rebuilds the coverage snapshot tables from their views.
func (r *SQLRepo) RefreshViews(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range slices.Sorted(maps.Keys(snapshots)) {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return err
		}
		q := fmt.Sprintf("CREATE TABLE %s AS SELECT *, CURRENT_TIMESTAMP AS refreshed_at FROM %s", name, snapshots[name])
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("refresh %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Info("Views refreshed", "snapshots", len(snapshots))
	return nil
}

func (r *SQLRepo) Close() error {
	return r.db.Close()
}

func (r *SQLRepo) DB() *sql.DB {
	return r.db
}

func (t table) selectList() string {
	names := make([]string, 0, len(t.columns)+1)
	names = append(names, t.key)
	for _, c := range t.columns {
		names = append(names, c.name)
	}
	return strings.Join(names, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads a row selected with selectList.
func (t table) scan(s scanner) (string, model.Record, error) {
	var key string
	texts := make([]sql.NullString, len(t.columns))
	reals := make([]sql.NullFloat64, len(t.columns))
	dest := []any{&key}
	for i, c := range t.columns {
		if c.kind == kindReal {
			dest = append(dest, &reals[i])
		} else {
			dest = append(dest, &texts[i])
		}
	}
	if err := s.Scan(dest...); err != nil {
		return "", nil, err
	}

	rec := model.Record{}
	for i, c := range t.columns {
		switch c.kind {
		case kindReal:
			if reals[i].Valid {
				rec[c.name] = reals[i].Float64
			}
		case kindText:
			if texts[i].Valid && texts[i].String != "" {
				rec[c.name] = texts[i].String
			}
		case kindTristate:
			if ts := model.ParseTristate(texts[i].String); ts.Known() {
				rec[c.name] = ts
			}
		case kindSet:
			if texts[i].Valid {
				var set model.StringSet
				if err := json.Unmarshal([]byte(texts[i].String), &set); err != nil {
					return "", nil, fmt.Errorf("decode %s: %w", c.name, err)
				}
				rec[c.name] = set
			}
		case kindSources:
			if texts[i].Valid {
				var tags []model.SourceTag
				if err := json.Unmarshal([]byte(texts[i].String), &tags); err != nil {
					return "", nil, fmt.Errorf("decode %s: %w", c.name, err)
				}
				rec[c.name] = tags
			}
		}
	}
	return key, rec, nil
}

func encode(c column, v any) (any, error) {
	switch c.kind {
	case kindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindReal:
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case kindTristate:
		if ts, ok := v.(model.Tristate); ok {
			if !ts.Known() {
				return nil, nil
			}
			return ts.String(), nil
		}
	case kindSet:
		if s, ok := v.(model.StringSet); ok {
			b, err := json.Marshal(s)
			return string(b), err
		}
	case kindSources:
		if tags, ok := v.([]model.SourceTag); ok {
			b, err := json.Marshal(tags)
			return string(b), err
		}
	}
	return nil, fmt.Errorf("%w: %s holds %T", ErrFieldType, c.name, v)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
