// Package mssql reads warehouse tables from SQL Server. The six tables mirror
// the WideWorldImportersDW star schema, so this backend can point straight at
// the upstream warehouse.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
	"salesdash/internal/source"
)

func init() {
	source.Register("mssql", New)
}

// DB reads tables over a database/sql connection using the mssql driver.
type DB struct {
	db *sql.DB
}

// New opens a connection for options.dsn (environment-expanded).
func New(ctx context.Context, cfg config.Source) (source.Source, error) {
	dsn := source.ExpandDSN(cfg.Options.String("dsn", ""))
	if dsn == "" {
		return nil, fmt.Errorf("mssql: options.dsn is required")
	}
	db, err := sql.Open("sqlserver", dsn)
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
// The relation may be schema-qualified ("Fact.Sale").
//
// Errors:
//   - *source.DataNotFoundError when the relation is missing or unreadable.
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
			return nil, fmt.Errorf("mssql: scan %s: %w", spec.Relation, err)
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
		return nil, fmt.Errorf("mssql: read %s: %w", spec.Relation, err)
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

// sqlIdent brackets an identifier the SQL Server way.
func sqlIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func relIdent(rel string) string {
	parts := strings.Split(rel, ".")
	for i, p := range parts {
		parts[i] = sqlIdent(p)
	}
	return strings.Join(parts, ".")
}
