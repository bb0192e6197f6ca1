package recordlinkage

import (
	"time"

	"github.com/baditaflorin/go_record_linkage/internal/core/compare"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/core/score"
	"github.com/baditaflorin/go_record_linkage/internal/pool"
)

// Aliases re-exporting the shared data model, so callers construct records
// and read results without importing internal packages.
type (
	// Record is a single input row. See internal/core/domain.
	Record = domain.Record
	// MatchModel is the learned Fellegi-Sunter parameter set.
	MatchModel = domain.MatchModel
	// Edge is a scored candidate pair.
	Edge = domain.Edge
	// Warning is a non-fatal run diagnostic.
	Warning = domain.Warning
	// RuleStats summarizes one blocking rule's contribution.
	RuleStats = domain.RuleStats
)

// Result is the outcome of a deduplication run.
type Result struct {
	// RunID uniquely identifies this run in logs and audit output.
	RunID string
	// Assignments maps every input record ID to its cluster ID. A cluster
	// is identified by the lexicographically smallest record ID it
	// contains.
	Assignments map[string]string
	// Clusters maps cluster ID to its sorted member record IDs.
	Clusters map[string][]string
	// Model is the match model the run trained and scored with.
	Model MatchModel
	// Edges is the full scored candidate list, populated only when audit
	// edges are enabled.
	Edges []Edge
	// Warnings collects the non-fatal diagnostics of the run.
	Warnings []Warning
	// BlockingStats reports per-rule group and pair counts.
	BlockingStats []RuleStats
	// Records is the number of input records.
	Records int
	// CandidatePairs is the size of the deduplicated candidate set.
	CandidatePairs int
	// Duration is the wall time of the whole run.
	Duration time.Duration

	builder *compare.Builder
	scorer  *score.Scorer
	vecPool *pool.LevelBufferPool
}

// ScorePair scores two records under this run's trained model, returning
// their match probability. Symmetric: ScorePair(a, b) == ScorePair(b, a).
func (r *Result) ScorePair(a, b Record) float64 {
	buf := r.vecPool.Get()
	defer r.vecPool.Put(buf)
	*buf = r.builder.Vector(&a, &b, *buf)
	return r.scorer.Probability(*buf)
}
