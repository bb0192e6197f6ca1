package compare

import (
	"testing"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

func fieldRecord(id string, fields map[string]string) domain.Record {
	return domain.Record{ID: id, Fields: fields}
}

func arrayRecord(id string, arrays map[string][]string) domain.Record {
	return domain.Record{ID: id, Arrays: arrays}
}

func TestExactCompare(t *testing.T) {
	c, err := NewExact("last-exact", "last")
	if err != nil {
		t.Fatalf("NewExact: %v", err)
	}
	if got := c.Levels(); got != 2 {
		t.Fatalf("expected 2 levels, got %d", got)
	}

	tests := []struct {
		name     string
		a, b     map[string]string
		expected domain.Level
	}{
		{"equal values", map[string]string{"last": "smith"}, map[string]string{"last": "smith"}, 0},
		{"different values", map[string]string{"last": "smith"}, map[string]string{"last": "jones"}, 1},
		{"left missing", nil, map[string]string{"last": "smith"}, domain.LevelNull},
		{"right empty", map[string]string{"last": "smith"}, map[string]string{"last": ""}, domain.LevelNull},
		{"both missing", nil, nil, domain.LevelNull},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := fieldRecord("a", tc.a)
			b := fieldRecord("b", tc.b)
			if got := c.Compare(&a, &b); got != tc.expected {
				t.Errorf("expected level %d, got %d", tc.expected, got)
			}
			// Comparisons are symmetric.
			if got := c.Compare(&b, &a); got != tc.expected {
				t.Errorf("reversed: expected level %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestExactValidation(t *testing.T) {
	if _, err := NewExact("", "last"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewExact("x", ""); err == nil {
		t.Error("expected error for empty attribute")
	}
}

func TestStringSimilarityCompare(t *testing.T) {
	c, err := NewStringSimilarity("last-fuzzy", "last", []float64{1.0, 0.9, 0.7})
	if err != nil {
		t.Fatalf("NewStringSimilarity: %v", err)
	}
	if got := c.Levels(); got != 4 {
		t.Fatalf("expected 4 levels, got %d", got)
	}

	tests := []struct {
		name     string
		a, b     string
		expected domain.Level
	}{
		// JaroWinkler("smith", "smith") == 1.0
		{"identical", "smith", "smith", 0},
		// JaroWinkler("martha", "marhta") ~= 0.961
		{"transposed", "martha", "marhta", 1},
		// JaroWinkler("dwayne", "duane") ~= 0.84
		{"close", "dwayne", "duane", 2},
		// Entirely different strings share no matches.
		{"disjoint", "abc", "xyz", 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := fieldRecord("a", map[string]string{"last": tc.a})
			b := fieldRecord("b", map[string]string{"last": tc.b})
			if got := c.Compare(&a, &b); got != tc.expected {
				t.Errorf("Compare(%q, %q): expected level %d, got %d (sim=%v)",
					tc.a, tc.b, tc.expected, got, JaroWinkler(tc.a, tc.b))
			}
		})
	}

	a := fieldRecord("a", nil)
	b := fieldRecord("b", map[string]string{"last": "smith"})
	if got := c.Compare(&a, &b); got != domain.LevelNull {
		t.Errorf("expected null level for missing value, got %d", got)
	}
}

func TestStringSimilarityValidation(t *testing.T) {
	tests := []struct {
		name    string
		cutoffs []float64
	}{
		{"empty cutoffs", nil},
		{"non-decreasing", []float64{0.9, 0.9}},
		{"increasing", []float64{0.7, 0.9}},
		{"zero cutoff", []float64{0.9, 0}},
		{"above one", []float64{1.5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewStringSimilarity("x", "last", tc.cutoffs); err == nil {
				t.Errorf("expected error for cutoffs %v", tc.cutoffs)
			}
		})
	}
}

func TestArrayIntersectionCompare(t *testing.T) {
	c, err := NewArrayIntersection("tokens", "tokens", []int{3, 2, 1})
	if err != nil {
		t.Fatalf("NewArrayIntersection: %v", err)
	}
	if got := c.Levels(); got != 4 {
		t.Fatalf("expected 4 levels, got %d", got)
	}

	tests := []struct {
		name     string
		a, b     []string
		expected domain.Level
	}{
		{"three common", []string{"a", "b", "c"}, []string{"a", "b", "c", "d"}, 0},
		{"two common", []string{"a", "b", "x"}, []string{"a", "b", "y"}, 1},
		{"one common", []string{"a", "x"}, []string{"a", "y"}, 2},
		{"no common", []string{"x"}, []string{"y"}, 3},
		// Duplicate tokens count once.
		{"duplicates", []string{"a", "a", "a"}, []string{"a", "a"}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := arrayRecord("a", map[string][]string{"tokens": tc.a})
			b := arrayRecord("b", map[string][]string{"tokens": tc.b})
			if got := c.Compare(&a, &b); got != tc.expected {
				t.Errorf("expected level %d, got %d", tc.expected, got)
			}
			if got := c.Compare(&b, &a); got != tc.expected {
				t.Errorf("reversed: expected level %d, got %d", tc.expected, got)
			}
		})
	}

	a := arrayRecord("a", nil)
	b := arrayRecord("b", map[string][]string{"tokens": {"a"}})
	if got := c.Compare(&a, &b); got != domain.LevelNull {
		t.Errorf("expected null level for missing array, got %d", got)
	}
}

func TestArrayIntersectionValidation(t *testing.T) {
	if _, err := NewArrayIntersection("x", "tokens", nil); err == nil {
		t.Error("expected error for empty sizes")
	}
	if _, err := NewArrayIntersection("x", "tokens", []int{2, 3}); err == nil {
		t.Error("expected error for increasing sizes")
	}
	if _, err := NewArrayIntersection("x", "tokens", []int{2, 0}); err == nil {
		t.Error("expected error for non-positive size")
	}
}

func TestIntersectionSize(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected int
	}{
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"subset", []string{"a", "b"}, []string{"a", "b", "c"}, 2},
		{"duplicates on one side", []string{"a", "a"}, []string{"a"}, 1},
		{"empty side", nil, []string{"a"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := intersectionSize(tc.a, tc.b); got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}
