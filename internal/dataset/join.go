package dataset

import (
	"fmt"
	"strconv"
)

// LeftJoin joins right onto t, keeping every left row exactly once.
//
// Semantics:
//   - Rows match when NormalizeKey(left[leftKey]) == NormalizeKey(right[rightKey]).
//   - A left row with a nil/empty key never matches; its right-side cells are nil.
//   - Dimension keys are assumed unique; if right has duplicates, the first
//     occurrence wins. This keeps the row-count invariant (output rows ==
//     left rows) that the loader depends on.
//
// Column layout of the result:
//   - All left columns, in order, under their original names.
//   - Then all right columns except rightKey when it is spelled the same as
//     leftKey (joining on one shared name keeps a single key column). A right
//     key with a different name (salesperson_key = employee_key) is kept.
//   - A right column whose name already exists in the output gets the suffix
//     appended; nothing is overwritten.
func LeftJoin(t, right *Table, leftKey, rightKey, suffix string) (*Table, error) {
	li, ok := t.index[leftKey]
	if !ok {
		return nil, fmt.Errorf("dataset: left join: left table has no column %q", leftKey)
	}
	ri, ok := right.index[rightKey]
	if !ok {
		return nil, fmt.Errorf("dataset: left join: right table has no column %q", rightKey)
	}

	// First occurrence wins on duplicate keys.
	byKey := make(map[string]int, len(right.rows))
	for r := range right.rows {
		k := NormalizeKey(right.rows[r][ri])
		if k == "" {
			continue
		}
		if _, seen := byKey[k]; !seen {
			byKey[k] = r
		}
	}

	// Right columns carried into the output, with collision suffixes.
	taken := make(map[string]bool, len(t.cols)+len(right.cols))
	outCols := make([]string, 0, len(t.cols)+len(right.cols))
	for _, c := range t.cols {
		outCols = append(outCols, c)
		taken[c] = true
	}

	carried := make([]int, 0, len(right.cols))
	for i, c := range right.cols {
		if i == ri && rightKey == leftKey {
			continue
		}
		name := c
		if taken[name] {
			name = c + suffix
		}
		if taken[name] {
			return nil, fmt.Errorf("dataset: left join: column %q collides even with suffix %q", c, suffix)
		}
		taken[name] = true
		outCols = append(outCols, name)
		carried = append(carried, i)
	}

	out, err := New(outCols)
	if err != nil {
		return nil, err
	}

	out.rows = make([][]any, 0, len(t.rows))
	for _, lrow := range t.rows {
		row := make([]any, 0, len(outCols))
		row = append(row, lrow...)

		k := NormalizeKey(lrow[li])
		if rr, matched := byKey[k]; k != "" && matched {
			rrow := right.rows[rr]
			for _, ci := range carried {
				row = append(row, rrow[ci])
			}
		} else {
			for range carried {
				row = append(row, nil)
			}
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// NormalizeKey produces a stable string form for join matching and in-memory
// grouping, so that int64(7), float64(7) and "7" all land in the same bucket.
//
// Hot-path rules:
//   - Avoid fmt.Sprint for common primitive types.
//   - Trim edge whitespace on strings.
//   - Treat nil/empty as "".
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""

	case string:
		return trimIfNeeded(t)

	case []byte:
		return trimIfNeeded(string(t))

	case bool:
		if t {
			return "true"
		}
		return "false"

	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)

	case float32:
		return normalizeFloatKey(float64(t))
	case float64:
		return normalizeFloatKey(t)

	default:
		return trimIfNeeded(fmt.Sprint(v))
	}
}

// normalizeFloatKey renders integral floats without a fractional part so a
// REAL surrogate key (20130101.0) matches its integer spelling.
func normalizeFloatKey(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
