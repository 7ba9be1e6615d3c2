// Package source abstracts where the warehouse tables come from. Backends
// register themselves by kind; the loader only sees the Source interface.
package source

import (
	"context"
	"fmt"
	"os"
	"sync"

	"salesdash/internal/config"
	"salesdash/internal/dataset"
)

// Source reads whole reference tables from some backend (a CSV directory, a
// SQLite file, a Postgres or SQL Server database).
//
// IMPORTANT: This interface is intentionally minimal. The dashboard reads each
// table exactly once per process, so there is no streaming or pagination here.
type Source interface {
	// Close releases any backend resources. Treat as "call once" at shutdown.
	Close()

	// ReadTable materializes one table with the spec's normalized column names,
	// in spec column order. Cells are string/int64/float64/nil depending on the
	// backend; the loader applies kind coercion afterwards.
	//
	// Errors:
	//   - *DataNotFoundError when the table's file or relation is missing or
	//     unreadable.
	//   - Other errors for backend failures (bad DSN, scan errors, ...).
	ReadTable(ctx context.Context, spec TableSpec) (*dataset.Table, error)
}

// DataNotFoundError reports a required input table that is absent or
// unreadable. It is terminal for a load: the loader surfaces it and produces
// no partial view.
type DataNotFoundError struct {
	Table string // logical table name, e.g. "fact_sale"
	Path  string // file path or relation name, backend-specific
	Err   error
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("source: data not found: table=%s path=%s: %v", e.Table, e.Path, e.Err)
}

func (e *DataNotFoundError) Unwrap() error { return e.Err }

// ---- backend factories, selected by config kind ----

type factory func(ctx context.Context, cfg config.Source) (Source, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a source backend under a kind (e.g. "csvdir", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Failing fast
//     here avoids ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("source: Register called with empty kind")
	}
	if f == nil {
		panic("source: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("source: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Source using the registered backend factory.
//
// Concurrency:
//   - Safe for concurrent use with Register; New takes a read lock while
//     selecting the factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported, or whatever the
//     factory returns.
func New(ctx context.Context, cfg config.Source) (Source, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("source: missing source.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported source.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ExpandDSN applies environment expansion to DSN-like options so configs can
// reference ${PGPASSWORD} and friends without embedding secrets.
func ExpandDSN(dsn string) string { return os.ExpandEnv(dsn) }
