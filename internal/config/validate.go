package config

import (
	"errors"
	"fmt"

	"github.com/baditaflorin/go_record_linkage/internal/adapters/normalizer"
)

// Validate ensures the manifest is usable. Engine-side validation (schema
// references, cutoff ordering) happens again inside the engine; this layer
// catches manifest-shape problems with file-oriented messages.
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateRules(); err != nil {
		return err
	}
	return c.validateComparisons()
}

func (c *Config) validateInput() error {
	switch c.Input.Kind {
	case "sqlite":
		if c.Input.Table == "" {
			return errors.New("input.table is required for sqlite input")
		}
	case "csv":
	default:
		return fmt.Errorf("input.kind must be \"sqlite\" or \"csv\", got %q", c.Input.Kind)
	}
	if c.Input.Path == "" {
		return errors.New("input.path is required")
	}
	if len(c.Input.FieldColumns)+len(c.Input.ArrayColumns) == 0 {
		return errors.New("at least one of input.field_columns or input.array_columns is required")
	}
	if _, err := normalizer.ForName(c.Input.Normalize); err != nil {
		return fmt.Errorf("input.normalize: %w", err)
	}
	return nil
}

func (c *Config) validateRules() error {
	if len(c.BlockingRules) == 0 {
		return errors.New("at least one [[blocking_rules]] entry is required")
	}
	for i, rule := range c.BlockingRules {
		if rule.Name == "" {
			return fmt.Errorf("blocking_rules[%d]: name is required", i)
		}
		if len(rule.Attributes) == 0 {
			return fmt.Errorf("blocking rule %q: attributes must not be empty", rule.Name)
		}
	}
	for i, rule := range c.TrainingRules {
		if rule.Name == "" {
			return fmt.Errorf("training_rules[%d]: name is required", i)
		}
		if len(rule.Attributes) == 0 {
			return fmt.Errorf("training rule %q: attributes must not be empty", rule.Name)
		}
	}
	return nil
}

func (c *Config) validateComparisons() error {
	if len(c.Comparisons) == 0 {
		return errors.New("at least one [[comparisons]] entry is required")
	}
	for i, cmp := range c.Comparisons {
		if cmp.Name == "" {
			return fmt.Errorf("comparisons[%d]: name is required", i)
		}
		switch cmp.Kind {
		case "exact":
		case "string-similarity":
			if len(cmp.Cutoffs) == 0 {
				return fmt.Errorf("comparison %q: string-similarity requires cutoffs", cmp.Name)
			}
		case "array-intersection":
			if len(cmp.Sizes) == 0 {
				return fmt.Errorf("comparison %q: array-intersection requires sizes", cmp.Name)
			}
		default:
			return fmt.Errorf("comparison %q: unknown kind %q", cmp.Name, cmp.Kind)
		}
	}
	return nil
}
