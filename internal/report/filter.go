// Package report filters the Integrated View and computes the Summary the
// presentation layer renders. Every user interaction is a fresh, stateless
// Filter+Summarize pass over the immutable cached view.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"salesdash/internal/dataset"
)

// All is the sentinel filter value meaning "no restriction on this dimension".
const All = "All"

// InvalidFilterError reports a filter value that cannot be interpreted, e.g.
// a non-numeric year. It is propagated to the caller; there is no silent
// fallback to unfiltered data.
type InvalidFilterError struct {
	Field string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("report: invalid %s filter value %q", e.Field, e.Value)
}

// Filter returns an independent row-set restricted to the selected state and
// calendar year. Either selection may be All.
//
// Matching rules:
//   - state: exact string match against state_province.
//   - year: integer equality against calendar_year. The stored value may be a
//     floating-point rendering of the year (2013.0), so it is compared by
//     integer value, not by textual form.
//   - Rows with a missing value in a concretely-filtered column are excluded;
//     a left-join null never matches.
//
// Errors:
//   - *InvalidFilterError when year is neither All nor an integer.
func Filter(view *dataset.Table, state, year string) (*dataset.Table, error) {
	wantYear := int64(0)
	filterYear := false
	if year != All {
		y, err := strconv.ParseInt(strings.TrimSpace(year), 10, 64)
		if err != nil {
			return nil, &InvalidFilterError{Field: "year", Value: year}
		}
		wantYear = y
		filterYear = true
	}
	filterState := state != All

	stateIx := -1
	yearIx := -1
	if filterState {
		i, ok := view.ColumnIndex("state_province")
		if !ok {
			return nil, fmt.Errorf("report: view has no state_province column")
		}
		stateIx = i
	}
	if filterYear {
		i, ok := view.ColumnIndex("calendar_year")
		if !ok {
			return nil, fmt.Errorf("report: view has no calendar_year column")
		}
		yearIx = i
	}

	return view.DeriveWhere(func(row []any) bool {
		if filterState && !stateMatches(row[stateIx], state) {
			return false
		}
		if filterYear && !yearMatches(row[yearIx], wantYear) {
			return false
		}
		return true
	}), nil
}

func stateMatches(v any, want string) bool {
	s, ok := v.(string)
	return ok && s == want
}

func yearMatches(v any, want int64) bool {
	switch x := v.(type) {
	case int64:
		return x == want
	case float64:
		return x == float64(want)
	default:
		return false
	}
}
