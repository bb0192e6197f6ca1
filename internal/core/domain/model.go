// Package domain holds the data model shared by the record-linkage core:
// records, candidate pairs, comparison levels, the Fellegi-Sunter match
// model, and the run diagnostics that the engine reports back to callers.
package domain

import "fmt"

// Record is a single row of the dataset under deduplication. Fields holds
// scalar attributes, Arrays holds token-sequence attributes. A missing key or
// an empty value counts as null for blocking and comparison purposes.
// Records are immutable once handed to the engine.
type Record struct {
	ID     string
	Fields map[string]string
	Arrays map[string][]string
}

// Field returns the scalar attribute value and whether it is non-null.
func (r *Record) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok && v != ""
}

// Array returns the token-array attribute value and whether it is non-null.
func (r *Record) Array(name string) ([]string, bool) {
	v, ok := r.Arrays[name]
	return v, ok && len(v) > 0
}

// Pair is an unordered candidate pair of record indices with Left < Right.
// Indices refer to positions in the engine's record slice, not user IDs.
type Pair struct {
	Left  uint32
	Right uint32
}

// Key packs the pair into a single uint64 for set membership tests.
func (p Pair) Key() uint64 {
	return uint64(p.Left)<<32 | uint64(p.Right)
}

// PairFromKey unpacks a packed pair key.
func PairFromKey(k uint64) Pair {
	return Pair{Left: uint32(k >> 32), Right: uint32(k)}
}

// Level is a discrete similarity level produced by a comparison. Levels are
// ordered by decreasing similarity: 0 is the most similar, higher values are
// less similar. LevelNull marks a comparison where either input was missing.
type Level int8

// LevelNull is the reserved level for null inputs. Null observations are
// excluded from both parameter estimation and scoring.
const LevelNull Level = -1

// BlockingRule names the attributes two records must agree on (all non-null
// and equal) to become a candidate pair.
type BlockingRule struct {
	Name       string
	Attributes []string
}

// Contains reports whether the rule blocks on the given attribute.
func (r BlockingRule) Contains(attr string) bool {
	for _, a := range r.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// ComparisonParams holds the learned probabilities for one comparison:
// M[l] is the probability of observing level l given a true match, U[l]
// given a true non-match. Both sum to 1 across non-null levels.
type ComparisonParams struct {
	Name string
	M    []float64
	U    []float64
}

// MatchModel is the full Fellegi-Sunter parameter set: a global prior
// probability of match plus per-comparison level probabilities. The model is
// produced by the estimator and consumed read-only by the scorer.
type MatchModel struct {
	Prior       float64
	Comparisons []ComparisonParams
}

// Clone returns a deep copy, used to thread model state between EM rounds
// without aliasing the previous round's slices.
func (m MatchModel) Clone() MatchModel {
	out := MatchModel{Prior: m.Prior, Comparisons: make([]ComparisonParams, len(m.Comparisons))}
	for i, c := range m.Comparisons {
		out.Comparisons[i] = ComparisonParams{
			Name: c.Name,
			M:    append([]float64(nil), c.M...),
			U:    append([]float64(nil), c.U...),
		}
	}
	return out
}

// Edge is a scored candidate pair, reported when audit output is enabled.
type Edge struct {
	LeftID      string  `json:"left_id"`
	RightID     string  `json:"right_id"`
	Probability float64 `json:"probability"`
}

// RuleStats summarizes what a single blocking rule contributed.
type RuleStats struct {
	Rule          string `json:"rule"`
	Groups        int    `json:"groups"`
	MaxGroupSize  int    `json:"max_group_size"`
	PairsEmitted  int64  `json:"pairs_emitted"`
	SkippedGroups int    `json:"skipped_groups"`
}

// Warning codes reported on a run result. Warnings never abort a run.
const (
	WarnOversizeGroup    = "oversize_group"
	WarnEMNonConvergence = "em_non_convergence"
	WarnFlooredLevel     = "floored_level"
	WarnEmptyTraining    = "empty_training_block"
	WarnNoTrainingRules  = "no_training_rules"
)

// Warning is a non-fatal diagnostic surfaced by the engine.
type Warning struct {
	Code       string `json:"code"`
	Rule       string `json:"rule,omitempty"`
	Comparison string `json:"comparison,omitempty"`
	Message    string `json:"message"`
}

func (w Warning) String() string {
	if w.Rule != "" {
		return fmt.Sprintf("%s (rule %q): %s", w.Code, w.Rule, w.Message)
	}
	if w.Comparison != "" {
		return fmt.Sprintf("%s (comparison %q): %s", w.Code, w.Comparison, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
