package report

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"salesdash/internal/dataset"
	"salesdash/internal/metrics"
)

// Placeholder categories substituted for missing values before grouping, so
// group-by never silently drops rows with an unknown size or brand. The
// Spanish labels are the ones the dashboard has always displayed.
const (
	PlaceholderSize  = "Sin Talla"
	PlaceholderBrand = "Sin Marca"
)

// StateMetric is one state's aggregate, with its 2-letter code when mapped.
type StateMetric struct {
	State string  `json:"state"`
	Code  string  `json:"code,omitempty"`
	Value float64 `json:"value"`
}

// CategorySales is a revenue total for one categorical group.
type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

// Summary holds the metric and chart inputs for one filtered row-set.
//
// Grouped slices are in first-seen row order; any display ordering is the
// presentation layer's concern.
type Summary struct {
	UniqueColors int     `json:"unique_colors"`
	UniqueSizes  int     `json:"unique_sizes"`
	AvgUnitPrice float64 `json:"avg_unit_price"` // NaN when the row-set is empty

	// TotalRevenue is the plain sum of unit_price. It deliberately ignores
	// quantity, reproducing the metric the dashboard has always shown; see
	// DESIGN.md before "fixing" it.
	TotalRevenue float64 `json:"total_revenue"`

	RevenueByState   []StateMetric   `json:"revenue_by_state"`
	SalesBySize      []CategorySales `json:"sales_by_size"`
	SalesByBrand     []CategorySales `json:"sales_by_brand"`
	MedianTaxByState []StateMetric   `json:"median_tax_by_state"`
}

// MarshalJSON renders AvgUnitPrice as null when it is NaN, since JSON has no
// NaN literal and an empty filter result is a normal outcome.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	wire := struct {
		alias
		AvgUnitPrice *float64 `json:"avg_unit_price"`
	}{alias: alias(s)}
	if !math.IsNaN(s.AvgUnitPrice) {
		v := s.AvgUnitPrice
		wire.AvgUnitPrice = &v
	}
	return json.Marshal(wire)
}

// Summarize computes the Summary for a filtered row-set.
//
// Determinism: pure function of the input rows; grouped aggregates follow
// the row-set's insertion order.
//
// Empty input: zero counts and sums, empty groups, AvgUnitPrice = NaN.
func Summarize(view *dataset.Table) Summary {
	start := time.Now()

	price := column(view, "unit_price")
	tax := column(view, "tax_amount")
	state := column(view, "state_province")
	color := column(view, "color")
	size := column(view, "size")
	brand := column(view, "brand")

	s := Summary{
		UniqueColors: countDistinct(color),
		UniqueSizes:  countDistinct(size),
		AvgUnitPrice: round2(mean(price)),
		TotalRevenue: sum(price),
	}

	for _, g := range sumByKey(state, price) {
		s.RevenueByState = append(s.RevenueByState, StateMetric{
			State: g.key,
			Code:  StateCode(g.key),
			Value: g.sum,
		})
	}

	// Explicit placeholder substitution before grouping; see PlaceholderSize.
	for _, g := range sumByKey(fillMissing(size, PlaceholderSize), price) {
		s.SalesBySize = append(s.SalesBySize, CategorySales{Category: g.key, Revenue: g.sum})
	}
	for _, g := range sumByKey(fillMissing(brand, PlaceholderBrand), price) {
		s.SalesByBrand = append(s.SalesByBrand, CategorySales{Category: g.key, Revenue: g.sum})
	}

	for _, g := range samplesByKey(state, tax) {
		s.MedianTaxByState = append(s.MedianTaxByState, StateMetric{
			State: g.key,
			Code:  StateCode(g.key),
			Value: median(g.samples),
		})
	}

	metrics.ObserveHistogram("dashboard_summarize_duration_seconds", time.Since(start).Seconds(), nil)
	return s
}

// column fetches a column, tolerating views built without it (nil cells).
func column(view *dataset.Table, name string) []any {
	vals, err := view.Column(name)
	if err != nil {
		return make([]any, view.NumRows())
	}
	return vals
}

// fillMissing replaces nil cells with a placeholder category.
func fillMissing(vals []any, placeholder string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = placeholder
		} else {
			out[i] = v
		}
	}
	return out
}

// countDistinct counts distinct non-missing values by normalized key form.
func countDistinct(vals []any) int {
	seen := make(map[string]struct{})
	for _, v := range vals {
		k := dataset.NormalizeKey(v)
		if k == "" {
			continue
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func sum(vals []any) float64 {
	total := 0.0
	for _, v := range vals {
		if f, ok := asFloat(v); ok {
			total += f
		}
	}
	return total
}

// mean ignores missing cells; NaN when nothing is numeric.
func mean(vals []any) float64 {
	total, n := 0.0, 0
	for _, v := range vals {
		if f, ok := asFloat(v); ok {
			total += f
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return total / float64(n)
}

func round2(f float64) float64 {
	if math.IsNaN(f) {
		return f
	}
	return math.Round(f*100) / 100
}

// median of a sample set; mean of the middle two on even counts. The input
// slice is sorted in place (callers pass freshly-grouped samples).
func median(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(samples)
	if n%2 == 1 {
		return samples[n/2]
	}
	return (samples[n/2-1] + samples[n/2]) / 2
}

type keyedSum struct {
	key string
	sum float64
}

// sumByKey sums vals per string key in first-seen key order. Rows with a
// missing key are dropped (group-by drops null keys); missing vals count as 0.
func sumByKey(keys, vals []any) []keyedSum {
	idx := make(map[string]int)
	out := make([]keyedSum, 0, 8)
	for i, kv := range keys {
		k, ok := kv.(string)
		if !ok || k == "" {
			continue
		}
		j, seen := idx[k]
		if !seen {
			j = len(out)
			idx[k] = j
			out = append(out, keyedSum{key: k})
		}
		if f, ok := asFloat(vals[i]); ok {
			out[j].sum += f
		}
	}
	return out
}

type keyedSamples struct {
	key     string
	samples []float64
}

// samplesByKey collects numeric samples per string key in first-seen order,
// dropping rows with a missing key or a missing sample.
func samplesByKey(keys, vals []any) []keyedSamples {
	idx := make(map[string]int)
	out := make([]keyedSamples, 0, 8)
	for i, kv := range keys {
		k, ok := kv.(string)
		if !ok || k == "" {
			continue
		}
		f, ok := asFloat(vals[i])
		if !ok {
			continue
		}
		j, seen := idx[k]
		if !seen {
			j = len(out)
			idx[k] = j
			out = append(out, keyedSamples{key: k})
		}
		out[j].samples = append(out[j].samples, f)
	}
	return out
}
