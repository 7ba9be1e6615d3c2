package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"salesdash/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

func newTestBackend(t *testing.T, fs *fakeSubmitter, opts Options) *Backend {
	t.Helper()
	opts.submitter = fs
	if opts.now == nil {
		opts.now = func() time.Time { return time.Unix(1000, 0) }
	}
	if opts.newTicker == nil {
		opts.newTicker = func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) }
	}
	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v, want nil", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// TestResolveEnvTag verifies environment-tag precedence and defaults.
//
// Edge cases:
//   - ENV wins over DD_ENV.
//   - Whitespace-only env vars are ignored.
//   - If neither is set, "env:unknown" is returned.
func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

// TestStatusKeyRoundTrip verifies key encoding/decoding.
func TestStatusKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		status string
	}{
		{name: "normal", metric: "dashboard_load_total", status: "ok"},
		{name: "empty_metric", metric: "", status: "ok"},
		{name: "empty_status", metric: "dashboard_load_total", status: ""},
		{name: "both_empty", metric: "", status: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := statusKey(tc.metric, tc.status)
			metric, status := splitStatusKey(k)
			if metric != tc.metric || status != tc.status {
				t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", metric, status, tc.metric, tc.status)
			}
		})
	}

	t.Run("split_without_separator", func(t *testing.T) {
		metric, status := splitStatusKey("no-sep")
		if metric != "no-sep" || status != "" {
			t.Fatalf("splitStatusKey()=(%q,%q), want=(%q,%q)", metric, status, "no-sep", "")
		}
	})
}

// TestWithTags verifies tag concatenation and immutability.
func TestWithTags(t *testing.T) {
	base := []string{"env:test", "job:salesdash"}
	extras := []string{"status:ok"}
	got := withTags(base, extras...)
	want := []string{"env:test", "job:salesdash", "status:ok"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice; base should not change when output is modified")
	}
}

// TestDdName verifies internal snake_case names convert to Datadog dot form
// with the duration unit suffix kept intact.
func TestDdName(t *testing.T) {
	if got := ddName("dashboard_load_total"); got != "dashboard.load.total" {
		t.Fatalf("ddName()=%q, want dashboard.load.total", got)
	}
	if got := ddName("dashboard_load_duration_seconds"); got != "dashboard.load.duration_seconds" {
		t.Fatalf("ddName()=%q, want dashboard.load.duration_seconds", got)
	}
	if got := ddName("dashboard_summarize_duration_seconds"); got != "dashboard.summarize.duration_seconds" {
		t.Fatalf("ddName()=%q, want dashboard.summarize.duration_seconds", got)
	}
}

// TestPercentileNearestRank verifies percentile behavior.
func TestPercentileNearestRank(t *testing.T) {
	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p90_small_n", s: []float64{1, 2, 3, 4, 5}, p: 0.90, want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
				t.Fatalf("percentileNearestRank(%v,%v)=%v, want %v", tc.s, tc.p, got, tc.want)
			}
		})
	}
}

// TestGaugeSeries verifies gaugeSeries timestamps and values.
func TestGaugeSeries(t *testing.T) {
	now := int64(1234567)
	s := gaugeSeries("dashboard.test.gauge", 3.14, []string{"env:test"}, now)

	if s.Metric != "dashboard.test.gauge" {
		t.Fatalf("Metric=%q, want %q", s.Metric, "dashboard.test.gauge")
	}
	if s.Type == nil || *s.Type != datadogV2.METRICINTAKETYPE_GAUGE {
		t.Fatalf("Type=%v, want GAUGE", s.Type)
	}
	if len(s.Points) != 1 {
		t.Fatalf("Points.len=%d, want 1", len(s.Points))
	}
	if s.Points[0].Timestamp == nil || *s.Points[0].Timestamp != now {
		t.Fatalf("Timestamp=%v, want %d", s.Points[0].Timestamp, now)
	}
	if s.Points[0].Value == nil || *s.Points[0].Value != 3.14 {
		t.Fatalf("Value=%v, want 3.14", s.Points[0].Value)
	}
}

// TestAppendPercentiles verifies the percentile gauges and that the input
// sample slice is not mutated.
//
// Coverage target:
//   - appendPercentiles
func TestAppendPercentiles(t *testing.T) {
	now := int64(999)
	base := []string{"env:test", "job:salesdash"}

	orig := []float64{5, 1, 3, 2, 4}
	in := append([]float64(nil), orig...) // preserve for mutation check

	series := appendPercentiles(nil, "dashboard.load.duration_seconds", base, in, now)

	// Expect 5 gauges: p50, p90, p99, max, samples.
	if len(series) != 5 {
		t.Fatalf("series.len=%d, want 5", len(series))
	}
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("samples mutated: got %v, want %v", in, orig)
	}

	var foundSamples bool
	for _, s := range series {
		if s.Metric == "dashboard.load.duration_seconds.samples" {
			foundSamples = true
			if s.Points[0].Value == nil || *s.Points[0].Value != 5 {
				t.Fatalf("samples gauge value=%v, want 5", s.Points[0].Value)
			}
			break
		}
	}
	if !foundSamples {
		t.Fatalf("did not find samples gauge series")
	}
}

// TestNewBackend_Defaults verifies defaults and initialization behavior
// without real HTTP.
//
// Coverage target:
//   - NewBackend
func TestNewBackend_Defaults(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{
		JobName:    "", // should default
		FlushEvery: 0,  // should default
		Tags:       []string{"service:dashboard"},
	})

	// env tag depends on env vars; require only the job and extra tags.
	if !contains(b.baseTags, "job:salesdash") {
		t.Fatalf("baseTags missing job:salesdash: %v", b.baseTags)
	}
	if !contains(b.baseTags, "service:dashboard") {
		t.Fatalf("baseTags missing service:dashboard: %v", b.baseTags)
	}
	if b.flushEvery != 60*time.Second {
		t.Fatalf("flushEvery=%s, want 60s", b.flushEvery)
	}
}

// TestFlush_SubmitsAndResets verifies Flush submits buffered metrics and
// resets buffers.
//
// Coverage target:
//   - Flush
func TestFlush_SubmitsAndResets(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{JobName: "dash", FlushEvery: 24 * time.Hour})

	b.IncCounter("dashboard_load_total", 2, metrics.Labels{"status": "ok"})
	b.IncCounter("dashboard_load_total", 1, metrics.Labels{"status": "error"})
	b.IncCounter("dashboard_summary_requests_total", 7, nil)
	b.ObserveHistogram("dashboard_load_duration_seconds", 0.5, nil)
	b.ObserveHistogram("dashboard_summarize_duration_seconds", 0.01, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}

	b.mu.Lock()
	empty := len(b.counts) == 0 && len(b.samples) == 0
	b.mu.Unlock()
	if !empty {
		t.Fatalf("buffers not reset after Flush")
	}

	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}

	var metricNames []string
	for _, s := range payload.Series {
		metricNames = append(metricNames, s.Metric)
	}
	wantContains := []string{
		"dashboard.load.total",
		"dashboard.summary.requests.total",
		"dashboard.load.duration_seconds.p50",
		"dashboard.load.duration_seconds.samples",
		"dashboard.summarize.duration_seconds.p99",
	}
	for _, w := range wantContains {
		if !contains(metricNames, w) {
			t.Fatalf("payload missing metric %q; got=%v", w, metricNames)
		}
	}

	// The two status buckets of the same counter must stay distinct series.
	var okSeries, errSeries bool
	for _, s := range payload.Series {
		if s.Metric != "dashboard.load.total" {
			continue
		}
		if contains(s.Tags, "status:ok") {
			okSeries = true
		}
		if contains(s.Tags, "status:error") {
			errSeries = true
		}
	}
	if !okSeries || !errSeries {
		t.Fatalf("expected distinct status series; ok=%v error=%v", okSeries, errSeries)
	}
}

// TestFlush_NoDataDoesNotSubmit verifies Flush returns nil and does not
// submit when empty.
//
// Coverage target:
//   - Flush empty-path
func TestFlush_NoDataDoesNotSubmit(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{JobName: "dash", FlushEvery: 24 * time.Hour})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 0 {
		t.Fatalf("unexpected submission count=%d, want 0", fs.count())
	}
}

// TestLoopAndClose verifies the background loop flushes periodically and
// Close performs a final flush.
//
// Coverage target:
//   - loop
//   - Close
func TestLoopAndClose(t *testing.T) {
	fs := &fakeSubmitter{}

	// Real ticker with a fast interval, so loop is exercised.
	opts := Options{
		JobName:    "dash",
		FlushEvery: 5 * time.Millisecond,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(2000, 0) },
	}
	b, err := NewBackend(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}

	b.IncCounter("dashboard_load_total", 1, nil)

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) {
		if fs.count() >= 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if fs.count() < 1 {
		_ = b.Close()
		t.Fatalf("expected at least one background Flush submission; got %d", fs.count())
	}

	b.IncCounter("dashboard_load_total", 1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() err=%v, want nil", err)
	}
	if fs.count() < 2 {
		t.Fatalf("expected at least 2 submissions after Close; got %d", fs.count())
	}
}

// TestBackend_ConcurrentAccess verifies thread-safety of buffering.
func TestBackend_ConcurrentAccess(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{JobName: "dash", FlushEvery: 24 * time.Hour})

	workers := runtime.GOMAXPROCS(0) * 4
	iters := 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				b.IncCounter("dashboard_load_total", 1, metrics.Labels{"status": "ok"})
				b.IncCounter("dashboard_summary_requests_total", 1, nil)
				b.ObserveHistogram("dashboard_load_duration_seconds", 0.01, nil)
			}
		}()
	}
	wg.Wait()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}
}

// TestIncCounterAndObserveHistogram_EdgeCases verifies ignored paths.
func TestIncCounterAndObserveHistogram_EdgeCases(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{JobName: "dash", FlushEvery: 24 * time.Hour})

	// Non-positive counter deltas and negative samples are dropped.
	b.IncCounter("dashboard_load_total", 0, nil)
	b.IncCounter("dashboard_load_total", -3, nil)
	b.ObserveHistogram("dashboard_load_duration_seconds", -1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 0 {
		t.Fatalf("dropped events still produced a submission; count=%d", fs.count())
	}
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty_returns_nil",
			in:   "",
			want: nil,
		},
		{
			name: "trims_and_skips_empty_segments",
			in:   " env:prod , ,service:dashboard,  ,team:data ",
			want: []string{"env:prod", "service:dashboard", "team:data"},
		},
		{
			name: "single_tag",
			in:   "service:dashboard",
			want: []string{"service:dashboard"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTagsCSV(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
