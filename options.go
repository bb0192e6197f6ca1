package recordlinkage

import (
	"github.com/baditaflorin/l"

	"github.com/baditaflorin/go_record_linkage/internal/adapters/logger"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// ComparisonKind selects one of the closed set of comparison variants.
type ComparisonKind string

// Comparison kinds.
const (
	KindExact             ComparisonKind = "exact"
	KindStringSimilarity  ComparisonKind = "string-similarity"
	KindArrayIntersection ComparisonKind = "array-intersection"
)

// ComparisonSpec configures one comparison of the engine.
type ComparisonSpec struct {
	// Name identifies the comparison in the match model and diagnostics.
	Name string
	// Attribute is the record attribute the comparison reads. Exact and
	// string-similarity comparisons read scalar fields; array-intersection
	// comparisons read token arrays.
	Attribute string
	// Kind selects the comparison variant.
	Kind ComparisonKind
	// Cutoffs are the descending Jaro-Winkler cutoffs of a
	// string-similarity comparison.
	Cutoffs []float64
	// Sizes are the descending intersection sizes of an array-intersection
	// comparison.
	Sizes []int
}

// Schema declares the attributes records carry: scalar field names and
// token-array names. Every attribute referenced by a rule or comparison must
// be declared here; violations fail at construction time, before any
// blocking runs.
type Schema struct {
	Fields []string
	Arrays []string
}

func (s Schema) hasField(name string) bool {
	for _, f := range s.Fields {
		if f == name {
			return true
		}
	}
	return false
}

func (s Schema) hasArray(name string) bool {
	for _, a := range s.Arrays {
		if a == name {
			return true
		}
	}
	return false
}

// Option defines a functional option for configuring the engine.
type Option func(*engineConfig)

type engineConfig struct {
	schema          Schema
	blockingRules   []domain.BlockingRule
	trainingRules   []domain.BlockingRule
	comparisons     []ComparisonSpec
	matchThreshold  float64
	uSampleMaxPairs int
	emMaxIterations int
	emTolerance     float64
	maxGroupSize    int
	failOnOversize  bool
	workers         int
	seed            int64
	auditEdges      bool
	warmUp          bool
	logger          ports.Logger
}

// Default configuration values.
const (
	DefaultMatchThreshold  = 0.99
	DefaultUSampleMaxPairs = 1_000_000
	DefaultEMMaxIterations = 25
	DefaultEMTolerance     = 1e-4
	DefaultMaxGroupSize    = 10000
	DefaultSeed            = 1
)

func defaultEngineConfig() engineConfig {
	return engineConfig{
		matchThreshold:  DefaultMatchThreshold,
		uSampleMaxPairs: DefaultUSampleMaxPairs,
		emMaxIterations: DefaultEMMaxIterations,
		emTolerance:     DefaultEMTolerance,
		maxGroupSize:    DefaultMaxGroupSize,
		seed:            DefaultSeed,
	}
}

// WithSchema declares the record attribute schema.
func WithSchema(fields []string, arrays []string) Option {
	return func(cfg *engineConfig) {
		cfg.schema = Schema{Fields: fields, Arrays: arrays}
	}
}

// WithBlockingRule appends a blocking rule over the named attributes. Rules
// are applied in the order added; the resulting candidate set is
// order-independent.
func WithBlockingRule(name string, attributes ...string) Option {
	return func(cfg *engineConfig) {
		cfg.blockingRules = append(cfg.blockingRules, domain.BlockingRule{Name: name, Attributes: attributes})
	}
}

// WithTrainingRule appends an EM training rule. Each rule's pairs form one
// EM population; rounds run in the order added, each refining the model
// state left by the previous round.
func WithTrainingRule(name string, attributes ...string) Option {
	return func(cfg *engineConfig) {
		cfg.trainingRules = append(cfg.trainingRules, domain.BlockingRule{Name: name, Attributes: attributes})
	}
}

// WithComparison appends a comparison definition.
func WithComparison(spec ComparisonSpec) Option {
	return func(cfg *engineConfig) {
		cfg.comparisons = append(cfg.comparisons, spec)
	}
}

// WithMatchThreshold sets the probability above which a scored pair becomes
// a cluster edge.
func WithMatchThreshold(threshold float64) Option {
	return func(cfg *engineConfig) {
		cfg.matchThreshold = threshold
	}
}

// WithUSampleMaxPairs bounds the random sample used to estimate
// u-probabilities.
func WithUSampleMaxPairs(n int) Option {
	return func(cfg *engineConfig) {
		cfg.uSampleMaxPairs = n
	}
}

// WithEMMaxIterations caps each EM training round.
func WithEMMaxIterations(n int) Option {
	return func(cfg *engineConfig) {
		cfg.emMaxIterations = n
	}
}

// WithEMTolerance sets the log-likelihood convergence tolerance of EM.
func WithEMTolerance(tol float64) Option {
	return func(cfg *engineConfig) {
		cfg.emTolerance = tol
	}
}

// WithMaxGroupSize caps the size of a single blocking group; larger groups
// are skipped with a warning (or abort the run, see WithFailOnOversize).
// 0 disables the cap.
func WithMaxGroupSize(n int) Option {
	return func(cfg *engineConfig) {
		cfg.maxGroupSize = n
	}
}

// WithFailOnOversize makes oversized blocking groups fatal instead of
// skipped.
func WithFailOnOversize() Option {
	return func(cfg *engineConfig) {
		cfg.failOnOversize = true
	}
}

// WithWorkers bounds the parallel fan-out of the data-parallel stages.
// 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(cfg *engineConfig) {
		cfg.workers = n
	}
}

// WithSeed fixes the random seed of the u-sample, making runs reproducible.
func WithSeed(seed int64) Option {
	return func(cfg *engineConfig) {
		cfg.seed = seed
	}
}

// WithAuditEdges includes the full scored edge list on the run result.
func WithAuditEdges() Option {
	return func(cfg *engineConfig) {
		cfg.auditEdges = true
	}
}

// WithWarmUp primes comparers before the first run.
func WithWarmUp(enabled bool) Option {
	return func(cfg *engineConfig) {
		cfg.warmUp = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(log l.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger.FromExisting(log)
	}
}

// withPortsLogger sets a logger already satisfying the internal interface.
// Used by tests.
func withPortsLogger(log ports.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = log
	}
}
