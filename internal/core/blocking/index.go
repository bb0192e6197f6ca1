// Package blocking generates the candidate-pair set from the full record set
// using a union of blocking rules. Records are grouped by each rule's
// attribute-tuple value and every within-group pair is emitted; pairs are
// deduplicated across rules in a roaring bitmap keyed by the packed pair.
package blocking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// OversizePolicy controls what happens when a rule produces a group larger
// than the configured cap.
type OversizePolicy int

const (
	// SkipOversize drops the oversized group, records it in the rule stats
	// and surfaces a warning. The run proceeds.
	SkipOversize OversizePolicy = iota
	// FailOversize aborts the run with an OversizeError.
	FailOversize
)

// keySeparator joins attribute values into a group key. Unit separator keeps
// composite keys unambiguous for values containing ordinary punctuation.
const keySeparator = "\x1f"

// Config holds configuration for the blocking index.
type Config struct {
	// MaxGroupSize caps the size of a single blocking group. 0 disables the
	// cap. A key shared by g records emits g*(g-1)/2 pairs, so a cap of
	// 10000 bounds a single group at ~50M pairs.
	MaxGroupSize int
	// Policy selects the oversize behavior.
	Policy OversizePolicy
	// Workers bounds rule-level parallelism. 0 means one worker per rule.
	Workers int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		MaxGroupSize: 10000,
		Policy:       SkipOversize,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.MaxGroupSize < 0 {
		return errors.New("max group size must not be negative")
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	return nil
}

// OversizeError is returned under FailOversize when a group exceeds the cap.
type OversizeError struct {
	Rule string
	Size int
	Cap  int
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("blocking rule %q produced a group of %d records, cap is %d", e.Rule, e.Size, e.Cap)
}

// Index groups records by blocking-rule keys and emits candidate pairs.
type Index struct {
	config Config
	logger ports.Logger
}

// NewIndex creates a new blocking index.
func NewIndex(config Config, logger ports.Logger) (*Index, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Index{config: config, logger: logger}, nil
}

// CandidateSet is the deduplicated pair set produced by all rules. It is
// write-once: built behind the blocking barrier, read-only afterward.
type CandidateSet struct {
	bm *roaring64.Bitmap
}

// Len returns the number of distinct candidate pairs.
func (s *CandidateSet) Len() int {
	return int(s.bm.GetCardinality())
}

// Contains reports whether the pair is in the candidate set.
func (s *CandidateSet) Contains(p domain.Pair) bool {
	return s.bm.Contains(p.Key())
}

// Pairs materializes the set as a slice in ascending packed-key order, which
// makes downstream iteration order deterministic across runs.
func (s *CandidateSet) Pairs() []domain.Pair {
	out := make([]domain.Pair, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, domain.PairFromKey(it.Next()))
	}
	return out
}

// Candidates applies every rule to the record set and merges the emitted
// pairs into one deduplicated candidate set. Rules are processed in
// parallel; the merge happens after all workers finish, so callers see a
// globally consistent set. Per-rule stats credit pairs to the rule that
// emitted them before deduplication.
func (ix *Index) Candidates(ctx context.Context, records []domain.Record, rules []domain.BlockingRule) (*CandidateSet, []domain.RuleStats, []domain.Warning, error) {
	bitmaps := make([]*roaring64.Bitmap, len(rules))
	stats := make([]domain.RuleStats, len(rules))
	warns := make([][]domain.Warning, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	if ix.config.Workers > 0 {
		g.SetLimit(ix.config.Workers)
	}
	for i, rule := range rules {
		g.Go(func() error {
			bm, st, w, err := ix.rulePairs(gctx, records, rule)
			if err != nil {
				return err
			}
			bitmaps[i], stats[i], warns[i] = bm, st, w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	merged := roaring64.New()
	for _, bm := range bitmaps {
		merged.Or(bm)
	}

	var warnings []domain.Warning
	for _, w := range warns {
		warnings = append(warnings, w...)
	}

	ix.logger.Info("Blocking completed",
		"rules", len(rules),
		"candidate_pairs", merged.GetCardinality(),
		"warnings", len(warnings),
	)

	return &CandidateSet{bm: merged}, stats, warnings, nil
}

// RulePairs emits the pairs of a single rule as a slice. Groups within one
// rule partition the records that satisfy it, so no deduplication is needed.
// Used by the estimator to build per-training-rule EM populations.
func (ix *Index) RulePairs(ctx context.Context, records []domain.Record, rule domain.BlockingRule) ([]domain.Pair, domain.RuleStats, []domain.Warning, error) {
	bm, st, warns, err := ix.rulePairs(ctx, records, rule)
	if err != nil {
		return nil, domain.RuleStats{}, nil, err
	}
	set := CandidateSet{bm: bm}
	return set.Pairs(), st, warns, nil
}

func (ix *Index) rulePairs(ctx context.Context, records []domain.Record, rule domain.BlockingRule) (*roaring64.Bitmap, domain.RuleStats, []domain.Warning, error) {
	groups := make(map[string][]uint32)
	for i := range records {
		key, ok := groupKey(&records[i], rule.Attributes)
		if !ok {
			continue
		}
		groups[key] = append(groups[key], uint32(i))
	}

	bm := roaring64.New()
	st := domain.RuleStats{Rule: rule.Name, Groups: len(groups)}
	var warnings []domain.Warning
	oversized := 0
	largest := 0

	for _, members := range groups {
		select {
		case <-ctx.Done():
			return nil, domain.RuleStats{}, nil, ctx.Err()
		default:
		}

		n := len(members)
		if n > st.MaxGroupSize {
			st.MaxGroupSize = n
		}
		// Groups of size 0 or 1 contribute no pairs.
		if n < 2 {
			continue
		}
		if ix.config.MaxGroupSize > 0 && n > ix.config.MaxGroupSize {
			if ix.config.Policy == FailOversize {
				return nil, domain.RuleStats{}, nil, &OversizeError{Rule: rule.Name, Size: n, Cap: ix.config.MaxGroupSize}
			}
			st.SkippedGroups++
			oversized++
			if n > largest {
				largest = n
			}
			continue
		}
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				bm.Add(domain.Pair{Left: members[a], Right: members[b]}.Key())
			}
		}
	}
	st.PairsEmitted = int64(bm.GetCardinality())

	if oversized > 0 {
		ix.logger.Warn("Blocking rule produced oversized groups",
			"rule", rule.Name,
			"skipped_groups", oversized,
			"largest_group", largest,
			"cap", ix.config.MaxGroupSize,
		)
		warnings = append(warnings, domain.Warning{
			Code: domain.WarnOversizeGroup,
			Rule: rule.Name,
			Message: fmt.Sprintf("%d group(s) exceeded the cap of %d (largest had %d records) and were skipped",
				oversized, ix.config.MaxGroupSize, largest),
		})
	}

	ix.logger.Debug("Blocking rule applied",
		"rule", rule.Name,
		"groups", st.Groups,
		"max_group_size", st.MaxGroupSize,
		"pairs", st.PairsEmitted,
	)

	return bm, st, warnings, nil
}

// groupKey builds the composite key for a record under a rule. The second
// return value is false when any rule attribute is null, in which case the
// record joins no group for this rule.
func groupKey(rec *domain.Record, attrs []string) (string, bool) {
	if len(attrs) == 1 {
		return rec.Fields[attrs[0]], rec.Fields[attrs[0]] != ""
	}
	var sb strings.Builder
	for i, attr := range attrs {
		v, ok := rec.Field(attr)
		if !ok {
			return "", false
		}
		if i > 0 {
			sb.WriteString(keySeparator)
		}
		sb.WriteString(v)
	}
	return sb.String(), true
}
