// Package dataset provides a small in-memory table model used by the
// warehouse loader and the report engine. A Table is a header plus positional
// rows; cells are nil (missing), string, int64 or float64.
package dataset

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over positional rows.
//
// Ownership contract:
//   - A Table handed out by the warehouse loader is shared and must be treated
//     as immutable by callers.
//   - Derive* methods return independent tables; mutating a derived table never
//     touches its parent.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty table with the given column names.
//
// Edge cases:
//   - Duplicate column names are rejected; the join layer relies on unique
//     names for collision suffixing.
func New(columns []string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("dataset: empty column name at position %d", i)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c)
		}
		idx[c] = i
	}
	return &Table{
		cols:  append([]string(nil), columns...),
		index: idx,
	}, nil
}

// MustNew is New for static schemas and tests.
func MustNew(columns []string) *Table {
	t, err := New(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// AppendRow appends a positional row. The row length must match the header.
func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("dataset: row length %d != columns length %d", len(row), len(t.cols))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Columns returns the column names in order. Callers must not mutate it.
func (t *Table) Columns() []string { return t.cols }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// ColumnIndex returns the position of a column and whether it exists.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Value returns the cell at (row, column name). Missing cells are nil.
//
// Errors:
//   - Returns an error for an unknown column or an out-of-range row; the
//     caller decides whether that is a programming error.
func (t *Table) Value(row int, column string) (any, error) {
	i, ok := t.index[column]
	if !ok {
		return nil, fmt.Errorf("dataset: unknown column %q", column)
	}
	if row < 0 || row >= len(t.rows) {
		return nil, fmt.Errorf("dataset: row %d out of range (have %d)", row, len(t.rows))
	}
	return t.rows[row][i], nil
}

// Row returns the positional cells of one row. Callers must not mutate it.
func (t *Table) Row(row int) []any { return t.rows[row] }

// Column returns all cells of one column in row order.
//
// Errors:
//   - Returns an error for an unknown column.
func (t *Table) Column(name string) ([]any, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	out := make([]any, len(t.rows))
	for r := range t.rows {
		out[r] = t.rows[r][i]
	}
	return out, nil
}

// MapColumn rewrites every cell of one column through fn. Only valid on
// tables the caller privately owns (the loader's pre-join coercion step);
// shared views are immutable.
func (t *Table) MapColumn(name string, fn func(any) any) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("dataset: unknown column %q", name)
	}
	for r := range t.rows {
		t.rows[r][i] = fn(t.rows[r][i])
	}
	return nil
}

// DeriveWhere returns an independent table holding the rows for which keep
// returns true. Row cell slices are copied, so the derived table can be
// mutated without affecting the parent.
func (t *Table) DeriveWhere(keep func(row []any) bool) *Table {
	out := &Table{
		cols:  t.cols,
		index: t.index,
	}
	for _, row := range t.rows {
		if keep(row) {
			out.rows = append(out.rows, append([]any(nil), row...))
		}
	}
	return out
}

// Equal reports whether two tables have the same header and the same cells,
// comparing cells by normalized key form. Intended for tests.
func Equal(a, b *Table) bool {
	if len(a.cols) != len(b.cols) || len(a.rows) != len(b.rows) {
		return false
	}
	for i := range a.cols {
		if a.cols[i] != b.cols[i] {
			return false
		}
	}
	for r := range a.rows {
		for c := range a.cols {
			if NormalizeKey(a.rows[r][c]) != NormalizeKey(b.rows[r][c]) {
				return false
			}
		}
	}
	return true
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace, so the
// hot path can skip TrimSpace allocations for already-clean values.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return first == ' ' || first == '\t' || first == '\n' || first == '\r' ||
		last == ' ' || last == '\t' || last == '\n' || last == '\r'
}

func trimIfNeeded(s string) string {
	if hasEdgeSpace(s) {
		return strings.TrimSpace(s)
	}
	return s
}
