// Package warehouse loads the six reference tables and integrates them into
// the single denormalized view the report engine works on.
package warehouse

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"salesdash/internal/dataset"
	"salesdash/internal/metrics"
	"salesdash/internal/source"
)

// Logger is the minimal logging interface used by the loader.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Loader reads the warehouse tables once and memoizes the Integrated View for
// the process lifetime.
//
// Concurrency:
//   - Load is safe for concurrent callers; all of them observe the same
//     cached instance once the first load succeeds.
//   - A failed load is NOT cached. The next call retries from scratch, so a
//     fixed data directory recovers without a restart.
//
// The cached view is shared and immutable; filtering derives copies.
type Loader struct {
	Source source.Source
	Logger Logger

	mu   sync.Mutex
	view *dataset.Table
}

// NewLoader builds a Loader over a table source.
func NewLoader(src source.Source) *Loader {
	return &Loader{Source: src}
}

// Load returns the Integrated View, computing and caching it on first use.
//
// The view is produced by left-joining the fact table against the five
// dimensions in a fixed sequence (customer, city, employee, stock item,
// date). Left joins anchored on the fact table never drop or duplicate fact
// rows, so the view's row count equals the fact table's row count (dimension
// key uniqueness is an assumed precondition, not verified here).
//
// Errors:
//   - *source.DataNotFoundError when any of the six tables is missing or
//     unreadable. Terminal: no partial view is returned or cached.
func (l *Loader) Load(ctx context.Context) (*dataset.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.view != nil {
		return l.view, nil
	}

	logf := l.logger()
	start := time.Now()

	view, err := l.build(ctx, logf)
	if err != nil {
		metrics.IncCounter("dashboard_load_total", 1, metrics.Labels{"status": "error"})
		return nil, err
	}

	dur := time.Since(start)
	metrics.IncCounter("dashboard_load_total", 1, metrics.Labels{"status": "ok"})
	metrics.ObserveHistogram("dashboard_load_duration_seconds", dur.Seconds(), nil)
	logf("stage=load ok rows=%d cols=%d duration=%s", view.NumRows(), len(view.Columns()), dur.Truncate(time.Millisecond))

	l.view = view
	return l.view, nil
}

func (l *Loader) build(ctx context.Context, logf func(format string, v ...any)) (*dataset.Table, error) {
	tables := make(map[string]*dataset.Table, len(Schema()))
	for _, spec := range Schema() {
		t, err := l.Source.ReadTable(ctx, spec)
		if err != nil {
			return nil, err
		}
		coerceTable(t, spec)
		logf("stage=read table=%s rows=%d", spec.Name, t.NumRows())
		tables[spec.Name] = t
	}

	view := tables[TableFactSale]
	for _, step := range joinSequence {
		joined, err := dataset.LeftJoin(view, tables[step.table], step.leftKey, step.rightKey, step.suffix)
		if err != nil {
			return nil, err
		}
		view = joined
	}

	return view, nil
}

func (l *Loader) logger() func(format string, v ...any) {
	if l.Logger == nil {
		d := log.New(discardWriter{}, "", 0)
		return d.Printf
	}
	return l.Logger.Printf
}

// coerceTable converts each column's cells to the spec's target kind.
// Cells that cannot be coerced become nil (missing); source data is taken as
// is beyond missing-value handling, so a malformed numeric never fails a load.
func coerceTable(t *dataset.Table, spec source.TableSpec) {
	for _, c := range spec.Columns {
		switch c.Kind {
		case source.KindInt:
			_ = t.MapColumn(c.Name, coerceInt)
		case source.KindFloat:
			_ = t.MapColumn(c.Name, coerceFloat)
		}
	}
}

func coerceInt(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return nil
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
		// Some exports render integer keys as "42.0".
		if f, err := strconv.ParseFloat(x, 64); err == nil && f == float64(int64(f)) {
			return int64(f)
		}
		return nil
	default:
		return nil
	}
}

func coerceFloat(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
		return nil
	default:
		return nil
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
