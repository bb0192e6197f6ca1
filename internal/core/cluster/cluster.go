// Package cluster turns scored candidate pairs into the terminal cluster
// assignment. Pairs at or above the match threshold become edges of an
// undirected graph whose connected components are the clusters, so two
// records can share a cluster through a chain of above-threshold
// intermediaries even when their direct score falls below the threshold.
// Records without a surviving edge form singleton clusters.
package cluster

import (
	"errors"
	"sort"
	"time"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Config holds configuration for the cluster builder.
type Config struct {
	// Threshold is the minimum match probability for a pair to become an
	// edge. Must be in (0, 1].
	Threshold float64
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return errors.New("match threshold must be in (0, 1]")
	}
	return nil
}

// Builder extracts connected components from scored pairs.
type Builder struct {
	config Config
	logger ports.Logger
}

// NewBuilder creates a cluster builder.
func NewBuilder(config Config, logger ports.Logger) (*Builder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Builder{config: config, logger: logger}, nil
}

// Result is the clustering output: every input record appears in exactly one
// cluster, identified by the lexicographically smallest record ID in its
// component. That tie-break is fixed so identical inputs and parameters
// reproduce identical identifiers across runs.
type Result struct {
	// Assignments maps record ID to cluster ID.
	Assignments map[string]string
	// Members maps cluster ID to its record IDs, sorted.
	Members map[string][]string
	// Edges is the number of pairs that met the threshold.
	Edges int
}

// Build unions every pair scoring at or above the threshold and labels the
// resulting components. probs[i] is the match probability of pairs[i]; the
// edge set must be fully materialized before this call.
func (b *Builder) Build(records []domain.Record, pairs []domain.Pair, probs []float64) (*Result, error) {
	if len(pairs) != len(probs) {
		return nil, errors.New("pairs and probabilities must have equal length")
	}
	start := time.Now()

	uf := newUnionFind(len(records))
	edges := 0
	for i, pair := range pairs {
		if probs[i] >= b.config.Threshold {
			uf.union(pair.Left, pair.Right)
			edges++
		}
	}

	// Component representative -> smallest member ID.
	clusterID := make(map[uint32]string, len(records))
	for i := range records {
		root := uf.find(uint32(i))
		id := records[i].ID
		if cur, ok := clusterID[root]; !ok || id < cur {
			clusterID[root] = id
		}
	}

	res := &Result{
		Assignments: make(map[string]string, len(records)),
		Members:     make(map[string][]string),
		Edges:       edges,
	}
	for i := range records {
		cid := clusterID[uf.find(uint32(i))]
		res.Assignments[records[i].ID] = cid
		res.Members[cid] = append(res.Members[cid], records[i].ID)
	}
	for _, members := range res.Members {
		sort.Strings(members)
	}

	b.logger.Info("Clustering completed",
		"records", len(records),
		"edges", edges,
		"clusters", len(res.Members),
		"threshold", b.config.Threshold,
		"duration", time.Since(start),
	)
	return res, nil
}
