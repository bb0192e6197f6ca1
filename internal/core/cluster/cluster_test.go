package cluster

import (
	"reflect"
	"testing"

	"github.com/baditaflorin/go_record_linkage/internal/adapters/logger"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

func testRecords(ids ...string) []domain.Record {
	out := make([]domain.Record, len(ids))
	for i, id := range ids {
		out[i] = domain.Record{ID: id}
	}
	return out
}

func newTestBuilder(t *testing.T, threshold float64) *Builder {
	t.Helper()
	b, err := NewBuilder(Config{Threshold: threshold}, logger.NewNoopLogger())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestConfigValidate(t *testing.T) {
	for _, threshold := range []float64{0, -0.5, 1.1} {
		if err := (Config{Threshold: threshold}).Validate(); err == nil {
			t.Errorf("expected error for threshold %v", threshold)
		}
	}
	if err := (Config{Threshold: 1}).Validate(); err != nil {
		t.Errorf("threshold 1 should be valid, got %v", err)
	}
}

func TestBuildTransitiveClosure(t *testing.T) {
	b := newTestBuilder(t, 0.9)
	records := testRecords("r1", "r2", "r3", "r4")
	// r1-r2 and r2-r3 are above threshold; r1-r3 is below but joins the same
	// cluster through r2. r4 has no edge at all.
	pairs := []domain.Pair{
		{Left: 0, Right: 1},
		{Left: 1, Right: 2},
		{Left: 0, Right: 2},
	}
	probs := []float64{0.95, 0.95, 0.2}

	res, err := b.Build(records, pairs, probs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Edges != 2 {
		t.Errorf("expected 2 surviving edges, got %d", res.Edges)
	}
	if len(res.Members) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Members))
	}
	if got := res.Assignments["r1"]; got != "r1" {
		t.Errorf("cluster must be labeled by its smallest member ID, got %q", got)
	}
	if res.Assignments["r3"] != "r1" {
		t.Errorf("r3 should join r1's cluster through r2, got %q", res.Assignments["r3"])
	}
	if res.Assignments["r4"] != "r4" {
		t.Errorf("r4 should be a singleton, got %q", res.Assignments["r4"])
	}
	if got := res.Members["r1"]; !reflect.DeepEqual(got, []string{"r1", "r2", "r3"}) {
		t.Errorf("expected sorted members [r1 r2 r3], got %v", got)
	}
}

func TestBuildThresholdBoundary(t *testing.T) {
	b := newTestBuilder(t, 0.9)
	records := testRecords("r1", "r2", "r3")
	pairs := []domain.Pair{{Left: 0, Right: 1}, {Left: 1, Right: 2}}
	// Exactly-at-threshold joins; just-below does not.
	probs := []float64{0.9, 0.8999999}

	res, err := b.Build(records, pairs, probs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Assignments["r2"] != "r1" {
		t.Error("pair scoring exactly at the threshold must become an edge")
	}
	if res.Assignments["r3"] != "r3" {
		t.Error("pair scoring below the threshold must not become an edge")
	}
}

func TestBuildNoEdgesAllSingletons(t *testing.T) {
	b := newTestBuilder(t, 0.99)
	records := testRecords("b", "a", "c")

	res, err := b.Build(records, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Members) != 3 {
		t.Fatalf("expected 3 singleton clusters, got %d", len(res.Members))
	}
	for _, r := range records {
		if res.Assignments[r.ID] != r.ID {
			t.Errorf("singleton %s should be its own cluster, got %q", r.ID, res.Assignments[r.ID])
		}
	}
}

func TestBuildSmallestIDWins(t *testing.T) {
	b := newTestBuilder(t, 0.5)
	// The smallest ID sits in the middle of the chain, not at an endpoint.
	records := testRecords("zeta", "alpha", "mike")
	pairs := []domain.Pair{{Left: 0, Right: 1}, {Left: 1, Right: 2}}
	probs := []float64{0.9, 0.9}

	res, err := b.Build(records, pairs, probs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, id := range []string{"zeta", "alpha", "mike"} {
		if res.Assignments[id] != "alpha" {
			t.Errorf("record %s: expected cluster alpha, got %q", id, res.Assignments[id])
		}
	}
}

func TestBuildLengthMismatch(t *testing.T) {
	b := newTestBuilder(t, 0.9)
	if _, err := b.Build(testRecords("r1", "r2"), []domain.Pair{{Left: 0, Right: 1}}, nil); err == nil {
		t.Error("expected error for mismatched pairs and probabilities")
	}
}

func TestBuildRaisingThresholdRefinesClusters(t *testing.T) {
	records := testRecords("r1", "r2", "r3", "r4")
	pairs := []domain.Pair{
		{Left: 0, Right: 1},
		{Left: 1, Right: 2},
		{Left: 2, Right: 3},
	}
	probs := []float64{0.99, 0.8, 0.6}

	loose, err := newTestBuilder(t, 0.5).Build(records, pairs, probs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	strict, err := newTestBuilder(t, 0.95).Build(records, pairs, probs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Every strict cluster must be contained in a loose cluster: raising the
	// threshold only removes edges, so clusters can only split.
	for id, strictCluster := range strict.Assignments {
		for other, otherCluster := range strict.Assignments {
			if strictCluster == otherCluster && loose.Assignments[id] != loose.Assignments[other] {
				t.Errorf("records %s and %s share a strict cluster but not a loose one", id, other)
			}
		}
	}
	if len(strict.Members) < len(loose.Members) {
		t.Errorf("raising the threshold should not reduce cluster count: %d vs %d",
			len(strict.Members), len(loose.Members))
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(3, 4)
	if uf.find(0) != uf.find(1) {
		t.Error("0 and 1 should share a root")
	}
	if uf.find(0) == uf.find(3) {
		t.Error("0 and 3 should not share a root")
	}
	uf.union(1, 3)
	if uf.find(0) != uf.find(4) {
		t.Error("union should be transitive")
	}
	// Self-union is a no-op.
	uf.union(2, 2)
	if uf.find(2) != 2 {
		t.Error("singleton should remain its own root")
	}
}
