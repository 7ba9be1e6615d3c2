package dataset

import (
	"testing"
)

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New([]string{"a", "b", "a"}); err == nil {
		t.Fatalf("expected error for duplicate column")
	}
	if _, err := New([]string{"a", ""}); err == nil {
		t.Fatalf("expected error for empty column name")
	}
}

func TestAppendRowLengthMismatch(t *testing.T) {
	tb := MustNew([]string{"a", "b"})
	if err := tb.AppendRow([]any{1}); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestDeriveWhereIsIndependent(t *testing.T) {
	tb := MustNew([]string{"a"})
	_ = tb.AppendRow([]any{"x"})
	_ = tb.AppendRow([]any{"y"})

	got := tb.DeriveWhere(func(row []any) bool { return row[0] == "x" })
	if got.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", got.NumRows())
	}

	// Mutating the derived table must not touch the parent.
	got.Row(0)[0] = "mutated"
	v, _ := tb.Value(0, "a")
	if v != "x" {
		t.Fatalf("parent cell changed to %v", v)
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"", ""},
		{"  x ", "x"},
		{int64(7), "7"},
		{float64(7), "7"},
		{7.5, "7.5"},
		{[]byte("abc"), "abc"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Errorf("NormalizeKey(%v) = %q, want %q", c.in, got, c.want)
		}
	}

	// int64(7), float64(7.0) and "7" must land in the same join bucket.
	if NormalizeKey(int64(7)) != NormalizeKey(float64(7)) || NormalizeKey("7") != NormalizeKey(int64(7)) {
		t.Fatalf("mixed-type key forms diverge")
	}
}
