package recordlinkage

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/baditaflorin/go_record_linkage/internal/adapters/logger"
	"github.com/baditaflorin/go_record_linkage/internal/core/blocking"
	"github.com/baditaflorin/go_record_linkage/internal/core/cluster"
	"github.com/baditaflorin/go_record_linkage/internal/core/compare"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/core/estimate"
	"github.com/baditaflorin/go_record_linkage/internal/core/score"
	"github.com/baditaflorin/go_record_linkage/internal/pool"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
	"github.com/baditaflorin/go_record_linkage/internal/warmup"
)

// Engine runs the full deduplication pipeline: blocking, comparison,
// unsupervised parameter estimation, scoring, and clustering. An Engine is
// immutable after New and safe for concurrent Dedupe calls.
type Engine struct {
	config    engineConfig
	logger    ports.Logger
	comparers []ports.Comparer
	builder   *compare.Builder
	index     *blocking.Index
	estimator *estimate.Estimator
	clusterer *cluster.Builder
	vecPool   *pool.LevelBufferPool
}

// New creates an engine from the provided functional options. All
// configuration is validated here: schema mismatches, empty rule or
// comparison sets, and out-of-range tunables fail fast before any data is
// touched.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		log, err := createDefaultLogger()
		if err != nil {
			return nil, err
		}
		cfg.logger = logger.FromExisting(log)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	comparers, err := buildComparers(cfg.comparisons)
	if err != nil {
		return nil, err
	}

	builder, err := compare.NewBuilder(comparers, cfg.workers, cfg.logger)
	if err != nil {
		return nil, err
	}

	policy := blocking.SkipOversize
	if cfg.failOnOversize {
		policy = blocking.FailOversize
	}
	index, err := blocking.NewIndex(blocking.Config{
		MaxGroupSize: cfg.maxGroupSize,
		Policy:       policy,
		Workers:      cfg.workers,
	}, cfg.logger)
	if err != nil {
		return nil, err
	}

	estimator, err := estimate.NewEstimator(estimate.Config{
		USampleMaxPairs: cfg.uSampleMaxPairs,
		MaxIterations:   cfg.emMaxIterations,
		Tolerance:       cfg.emTolerance,
		Seed:            cfg.seed,
		Floor:           estimate.DefaultConfig().Floor,
		Workers:         cfg.workers,
	}, builder, cfg.logger)
	if err != nil {
		return nil, err
	}

	clusterer, err := cluster.NewBuilder(cluster.Config{Threshold: cfg.matchThreshold}, cfg.logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:    cfg,
		logger:    cfg.logger,
		comparers: comparers,
		builder:   builder,
		index:     index,
		estimator: estimator,
		clusterer: clusterer,
		vecPool:   pool.NewLevelBufferPool(len(comparers)),
	}

	if cfg.warmUp {
		mgr := warmup.NewManager(cfg.logger, warmup.DefaultConfig())
		for _, c := range comparers {
			mgr.RegisterComparer(c)
		}
		mgr.WarmUp(context.Background())
	}

	return e, nil
}

// Dedupe runs the pipeline over the record set and returns the cluster
// assignment covering every input record exactly once. An empty record set
// is not an error and yields an empty result; records that never match
// anything come back as singleton clusters.
func (e *Engine) Dedupe(ctx context.Context, records []Record) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	if err := checkIdentifiers(records); err != nil {
		return nil, err
	}

	e.logger.Info("Deduplication run started",
		"run_id", runID,
		"records", len(records),
		"blocking_rules", len(e.config.blockingRules),
		"comparisons", len(e.comparers),
		"training_rules", len(e.config.trainingRules),
	)

	var warnings []Warning

	// Blocking and u-sampling are independent; run them concurrently and
	// join before estimation continues.
	var (
		candidates *blocking.CandidateSet
		stats      []RuleStats
		model      = e.estimator.InitialModel()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, st, w, err := e.index.Candidates(gctx, records, e.config.blockingRules)
		if err != nil {
			return err
		}
		candidates, stats = set, st
		warnings = append(warnings, w...)
		return nil
	})
	var uModel MatchModel
	var uWarnings []Warning
	g.Go(func() error {
		m, w, err := e.estimator.EstimateU(gctx, records, model)
		if err != nil {
			return err
		}
		uModel, uWarnings = m, w
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	model = uModel
	warnings = append(warnings, uWarnings...)

	// EM rounds run strictly in sequence: each consumes the model state the
	// previous round left behind.
	if len(e.config.trainingRules) == 0 {
		warnings = append(warnings, Warning{
			Code:    domain.WarnNoTrainingRules,
			Message: "no training rules configured; match probabilities keep their initial estimates",
		})
	}
	for _, rule := range e.config.trainingRules {
		pairs, _, w, err := e.index.RulePairs(ctx, records, rule)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)

		excluded := make([]bool, len(e.comparers))
		for k, c := range e.comparers {
			excluded[k] = rule.Contains(c.Attribute())
		}
		model, w, err = e.estimator.TrainM(ctx, records, model, pairs, rule.Name, excluded)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	pairs := candidates.Pairs()
	vectors, err := e.builder.Vectors(ctx, records, pairs)
	if err != nil {
		return nil, err
	}

	scorer, err := score.NewScorer(model)
	if err != nil {
		return nil, err
	}
	probs, err := e.scoreAll(ctx, scorer, vectors, len(pairs))
	if err != nil {
		return nil, err
	}

	clustered, err := e.clusterer.Build(records, pairs, probs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:          runID,
		Assignments:    clustered.Assignments,
		Clusters:       clustered.Members,
		Model:          model,
		Warnings:       warnings,
		BlockingStats:  stats,
		Records:        len(records),
		CandidatePairs: len(pairs),
		Duration:       time.Since(start),
		builder:        e.builder,
		scorer:         scorer,
		vecPool:        e.vecPool,
	}
	if e.config.auditEdges {
		res.Edges = make([]Edge, len(pairs))
		for i, pair := range pairs {
			res.Edges[i] = Edge{
				LeftID:      records[pair.Left].ID,
				RightID:     records[pair.Right].ID,
				Probability: probs[i],
			}
		}
	}

	e.logger.Info("Deduplication run completed",
		"run_id", runID,
		"records", len(records),
		"candidate_pairs", len(pairs),
		"clusters", len(res.Clusters),
		"warnings", len(warnings),
		"duration", res.Duration,
	)
	return res, nil
}

// scoreAll scores every candidate vector in parallel chunks.
func (e *Engine) scoreAll(ctx context.Context, scorer *score.Scorer, vectors []domain.Level, numPairs int) ([]float64, error) {
	probs := make([]float64, numPairs)
	if numPairs == 0 {
		return probs, nil
	}
	width := e.builder.Width()
	workers := e.config.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (numPairs + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < numPairs; lo += chunk {
		hi := lo + chunk
		if hi > numPairs {
			hi = numPairs
		}
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				if p%4096 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				probs[p] = scorer.Probability(vectors[p*width : (p+1)*width])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return probs, nil
}

// checkIdentifiers rejects empty and duplicate record IDs.
func checkIdentifiers(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		id := records[i].ID
		if id == "" {
			return fmt.Errorf("record at position %d: %w", i, ErrEmptyID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("record %q: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// validateConfig enforces the fail-fast contract: every attribute referenced
// by a rule or comparison must exist in the declared schema, and the rule
// and comparison sets must be non-empty.
func validateConfig(cfg engineConfig) error {
	if len(cfg.blockingRules) == 0 {
		return ErrNoRules
	}
	if len(cfg.comparisons) == 0 {
		return ErrNoComparisons
	}
	for _, rule := range cfg.blockingRules {
		for _, attr := range rule.Attributes {
			if !cfg.schema.hasField(attr) {
				return &SchemaError{Kind: "blocking rule", Name: rule.Name, Attribute: attr}
			}
		}
	}
	for _, rule := range cfg.trainingRules {
		for _, attr := range rule.Attributes {
			if !cfg.schema.hasField(attr) {
				return &SchemaError{Kind: "training rule", Name: rule.Name, Attribute: attr}
			}
		}
	}
	for _, spec := range cfg.comparisons {
		switch spec.Kind {
		case KindArrayIntersection:
			if !cfg.schema.hasArray(spec.Attribute) {
				return &SchemaError{Kind: "comparison", Name: spec.Name, Attribute: spec.Attribute}
			}
		case KindExact, KindStringSimilarity:
			if !cfg.schema.hasField(spec.Attribute) {
				return &SchemaError{Kind: "comparison", Name: spec.Name, Attribute: spec.Attribute}
			}
		default:
			return fmt.Errorf("comparison %q has unknown kind %q", spec.Name, spec.Kind)
		}
	}
	return nil
}

// buildComparers instantiates the closed set of comparison variants.
func buildComparers(specs []ComparisonSpec) ([]ports.Comparer, error) {
	out := make([]ports.Comparer, 0, len(specs))
	for _, spec := range specs {
		var (
			c   ports.Comparer
			err error
		)
		switch spec.Kind {
		case KindExact:
			c, err = compare.NewExact(spec.Name, spec.Attribute)
		case KindStringSimilarity:
			c, err = compare.NewStringSimilarity(spec.Name, spec.Attribute, spec.Cutoffs)
		case KindArrayIntersection:
			c, err = compare.NewArrayIntersection(spec.Name, spec.Attribute, spec.Sizes)
		default:
			err = fmt.Errorf("comparison %q has unknown kind %q", spec.Name, spec.Kind)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
