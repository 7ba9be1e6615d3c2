package source

// TableSpec describes one warehouse table as the backends must deliver it.
// The specs live in internal/warehouse; they are defined here so backends can
// consume them without a circular import.
type TableSpec struct {
	// Name is the logical table name ("fact_sale", "dim_city", ...).
	Name string

	// File is the CSV file name for directory-based sources.
	File string

	// AltFiles are fallback CSV file names tried when File is absent. Used to
	// keep reading historical exports whose names were misspelled.
	AltFiles []string

	// Relation is the SQL relation name for database-backed sources.
	Relation string

	// Columns lists the required columns in output order.
	Columns []ColumnSpec
}

// ColumnSpec maps a source column to its normalized name and value kind.
type ColumnSpec struct {
	// Name is the normalized column name used throughout the dashboard
	// ("customer_key", "state_province", ...).
	Name string

	// Source is the column's spelling at the source ("Customer Key"). CSV
	// headers are also matched after snake_case normalization, so Source
	// mainly matters for SQL backends, which quote it verbatim.
	Source string

	// Kind drives coercion in the loader: KindString, KindInt or KindFloat.
	Kind ValueKind
}

// ValueKind is the target cell type for a column.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
)

// ColumnNames returns the normalized column names in spec order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
