// Package postgres reads warehouse tables from a Postgres database.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
	"salesdash/internal/source"
)

func init() {
	source.Register("postgres", New)
}

// DB reads tables through a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a pool for options.dsn (environment-expanded).
func New(ctx context.Context, cfg config.Source) (source.Source, error) {
	dsn := source.ExpandDSN(cfg.Options.String("dsn", ""))
	if dsn == "" {
		return nil, fmt.Errorf("postgres: options.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() { d.pool.Close() }

// ReadTable selects the spec's source columns from the spec's relation.
// The relation may be schema-qualified ("wwi.fact_sale").
//
// Errors:
//   - *source.DataNotFoundError when the relation is missing or unreadable.
func (d *DB) ReadTable(ctx context.Context, spec source.TableSpec) (*dataset.Table, error) {
	q := selectSQL(spec)

	rows, err := d.pool.Query(ctx, q)
	if err != nil {
		return nil, &source.DataNotFoundError{Table: spec.Name, Path: spec.Relation, Err: err}
	}
	defer rows.Close()

	out, err := dataset.New(spec.ColumnNames())
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		cells, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", spec.Relation, err)
		}
		row := make([]any, len(spec.Columns))
		for i := range row {
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read %s: %w", spec.Relation, err)
	}
	return out, nil
}

func selectSQL(spec source.TableSpec) string {
	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		src := c.Source
		if src == "" {
			src = c.Name
		}
		cols[i] = sqlIdent(src)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), relIdent(spec.Relation))
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// relIdent quotes each part of a possibly schema-qualified relation name.
func relIdent(rel string) string {
	parts := strings.Split(rel, ".")
	for i, p := range parts {
		parts[i] = sqlIdent(p)
	}
	return strings.Join(parts, ".")
}
