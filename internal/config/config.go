// Package config loads and validates the TOML run manifests consumed by the
// linkage CLI. A manifest names the record source, the cluster sink, and the
// full engine option set, so a run is reproducible from the file alone.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	recordlinkage "github.com/baditaflorin/go_record_linkage"
	"github.com/baditaflorin/go_record_linkage/internal/adapters/normalizer"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Input describes where records come from.
type Input struct {
	// Kind is "sqlite" or "csv".
	Kind string `toml:"kind"`
	// Path of the database file or CSV file.
	Path string `toml:"path"`
	// Table holds the records (sqlite only).
	Table string `toml:"table"`
	// IDColumn holds the unique record identifier.
	IDColumn string `toml:"id_column"`
	// FieldColumns are read as scalar attributes.
	FieldColumns []string `toml:"field_columns"`
	// ArrayColumns are read as token arrays.
	ArrayColumns []string `toml:"array_columns"`
	// ArraySeparator splits array columns; defaults to a single space.
	ArraySeparator string `toml:"array_separator"`
	// Normalize names the normalizer applied to loaded attribute values:
	// "none" (default), "default" or "name".
	Normalize string `toml:"normalize"`
}

// Output describes where cluster assignments go.
type Output struct {
	// Table receives the assignments (sqlite input only).
	Table string `toml:"table"`
	// EdgesPath optionally receives the scored edge list as JSON for audit.
	EdgesPath string `toml:"edges_path"`
}

// Rule is a blocking or training rule in the manifest.
type Rule struct {
	Name       string   `toml:"name"`
	Attributes []string `toml:"attributes"`
}

// Comparison is one comparison definition in the manifest.
type Comparison struct {
	Name      string    `toml:"name"`
	Attribute string    `toml:"attribute"`
	Kind      string    `toml:"kind"`
	Cutoffs   []float64 `toml:"cutoffs"`
	Sizes     []int     `toml:"sizes"`
}

// Engine carries the engine tunables.
type Engine struct {
	MatchThreshold         float64 `toml:"match_threshold"`
	USampleMaxPairs        int     `toml:"u_sample_max_pairs"`
	EMMaxIterations        int     `toml:"em_max_iterations"`
	EMConvergenceTolerance float64 `toml:"em_convergence_tolerance"`
	MaxGroupSize           int     `toml:"max_group_size"`
	FailOnOversize         bool    `toml:"fail_on_oversize"`
	Workers                int     `toml:"workers"`
	Seed                   int64   `toml:"seed"`
	AuditEdges             bool    `toml:"audit_edges"`
	WarmUp                 bool    `toml:"warm_up"`
}

// Config is a full run manifest.
type Config struct {
	Input         Input        `toml:"input"`
	Output        Output       `toml:"output"`
	Engine        Engine       `toml:"engine"`
	BlockingRules []Rule       `toml:"blocking_rules"`
	TrainingRules []Rule       `toml:"training_rules"`
	Comparisons   []Comparison `toml:"comparisons"`
}

// Load reads the manifest at path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalizer returns the attribute normalizer the manifest selects, or nil
// when normalization is disabled. The name is checked during Validate, so a
// loaded manifest never yields an error here.
func (c *Config) Normalizer() ports.Normalizer {
	n, _ := normalizer.ForName(c.Input.Normalize)
	return n
}

// EngineOptions translates the manifest into engine options. Schema is
// derived from the declared input columns.
func (c *Config) EngineOptions() []recordlinkage.Option {
	opts := []recordlinkage.Option{
		recordlinkage.WithSchema(c.Input.FieldColumns, c.Input.ArrayColumns),
		recordlinkage.WithMatchThreshold(c.Engine.MatchThreshold),
		recordlinkage.WithUSampleMaxPairs(c.Engine.USampleMaxPairs),
		recordlinkage.WithEMMaxIterations(c.Engine.EMMaxIterations),
		recordlinkage.WithEMTolerance(c.Engine.EMConvergenceTolerance),
		recordlinkage.WithMaxGroupSize(c.Engine.MaxGroupSize),
		recordlinkage.WithWorkers(c.Engine.Workers),
		recordlinkage.WithSeed(c.Engine.Seed),
		recordlinkage.WithWarmUp(c.Engine.WarmUp),
	}
	if c.Engine.FailOnOversize {
		opts = append(opts, recordlinkage.WithFailOnOversize())
	}
	if c.Engine.AuditEdges || c.Output.EdgesPath != "" {
		opts = append(opts, recordlinkage.WithAuditEdges())
	}
	for _, rule := range c.BlockingRules {
		opts = append(opts, recordlinkage.WithBlockingRule(rule.Name, rule.Attributes...))
	}
	for _, rule := range c.TrainingRules {
		opts = append(opts, recordlinkage.WithTrainingRule(rule.Name, rule.Attributes...))
	}
	for _, cmp := range c.Comparisons {
		opts = append(opts, recordlinkage.WithComparison(recordlinkage.ComparisonSpec{
			Name:      cmp.Name,
			Attribute: cmp.Attribute,
			Kind:      recordlinkage.ComparisonKind(cmp.Kind),
			Cutoffs:   cmp.Cutoffs,
			Sizes:     cmp.Sizes,
		}))
	}
	return opts
}
