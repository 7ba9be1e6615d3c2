// Package metrics is a minimal metrics facade. Core packages emit counters
// and histogram samples through package-level functions; binaries decide at
// startup which backend (if any) receives them. The default backend is a nop,
// so instrumentation costs nothing when metrics are disabled.
package metrics

import "sync/atomic"

// Labels are free-form metric labels (e.g. {"status": "ok"}).
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits any buffered data. Backends that submit synchronously
	// may no-op.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// holder keeps the stored concrete type constant, as atomic.Value requires.
type holder struct{ b Backend }

var current atomic.Value

func init() {
	current.Store(holder{nopBackend{}})
}

// SetBackend installs the active backend. Call once at startup, before any
// metric is emitted; later calls swap the backend atomically.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	current.Store(holder{b})
}

func backend() Backend { return current.Load().(holder).b }

// IncCounter adds delta to a named counter.
func IncCounter(name string, delta float64, labels Labels) {
	backend().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a named distribution.
func ObserveHistogram(name string, value float64, labels Labels) {
	backend().ObserveHistogram(name, value, labels)
}

// Flush submits buffered metrics on the active backend.
func Flush() error { return backend().Flush() }
