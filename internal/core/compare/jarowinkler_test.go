package compare

import (
	"math"
	"testing"
)

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "martha", "martha", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "martha", "", 0.0},
		{"no common characters", "abc", "xyz", 0.0},
		// Classic reference pairs from the record-linkage literature.
		{"martha/marhta", "martha", "marhta", 0.9611},
		{"dwayne/duane", "dwayne", "duane", 0.8400},
		{"dixon/dicksonx", "dixon", "dicksonx", 0.8133},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := JaroWinkler(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 0.001 {
				t.Errorf("JaroWinkler(%q, %q) = %v, expected %v", tc.a, tc.b, got, tc.expected)
			}
			// Symmetry holds for every input.
			if rev := JaroWinkler(tc.b, tc.a); math.Abs(got-rev) > 1e-12 {
				t.Errorf("asymmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestJaroWinklerRange(t *testing.T) {
	inputs := []string{"", "a", "ab", "smith", "smyth", "jonathan", "jönathan"}
	for _, a := range inputs {
		for _, b := range inputs {
			got := JaroWinkler(a, b)
			if got < 0 || got > 1 {
				t.Errorf("JaroWinkler(%q, %q) = %v out of [0, 1]", a, b, got)
			}
		}
	}
}
