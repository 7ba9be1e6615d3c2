// Package sqlite reads warehouse tables from a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
	"salesdash/internal/source"
)

func init() {
	source.Register("sqlite", New)
}

// DB reads tables from a single SQLite database.
//
// modernc.org/sqlite returns TEXT as string and INTEGER/REAL as int64/float64,
// which is exactly the cell model the loader coerces from.
type DB struct {
	db *sql.DB
}

// New opens the SQLite database named by options.dsn (environment-expanded).
func New(ctx context.Context, cfg config.Source) (source.Source, error) {
	dsn := source.ExpandDSN(cfg.Options.String("dsn", ""))
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: options.dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() { _ = d.db.Close() }

// ReadTable selects the spec's source columns from the spec's relation.
//
// Errors:
//   - *source.DataNotFoundError when the relation is missing or the select
//     fails; a table we cannot read is equivalent to an absent input file.
func (d *DB) ReadTable(ctx context.Context, spec source.TableSpec) (*dataset.Table, error) {
	q := selectSQL(spec)

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &source.DataNotFoundError{Table: spec.Name, Path: spec.Relation, Err: err}
	}
	defer rows.Close()

	out, err := dataset.New(spec.ColumnNames())
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		cells := make([]any, len(spec.Columns))
		scan := make([]any, len(spec.Columns))
		for i := range cells {
			scan[i] = &cells[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", spec.Relation, err)
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		if err := out.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", spec.Relation, err)
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
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), sqlIdent(spec.Relation))
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
