package config

import recordlinkage "github.com/baditaflorin/go_record_linkage"

// Default returns a manifest pre-filled with the engine defaults.
func Default() *Config {
	return &Config{
		Input: Input{
			Kind:           "sqlite",
			Table:          "records",
			IDColumn:       "id",
			ArraySeparator: " ",
			Normalize:      "none",
		},
		Output: Output{
			Table: "clusters",
		},
		Engine: Engine{
			MatchThreshold:         recordlinkage.DefaultMatchThreshold,
			USampleMaxPairs:        recordlinkage.DefaultUSampleMaxPairs,
			EMMaxIterations:        recordlinkage.DefaultEMMaxIterations,
			EMConvergenceTolerance: recordlinkage.DefaultEMTolerance,
			MaxGroupSize:           recordlinkage.DefaultMaxGroupSize,
			Seed:                   recordlinkage.DefaultSeed,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.Input.ArraySeparator == "" {
		c.Input.ArraySeparator = " "
	}
	if c.Input.IDColumn == "" {
		c.Input.IDColumn = "id"
	}
	if c.Input.Normalize == "" {
		c.Input.Normalize = "none"
	}
	if c.Output.Table == "" {
		c.Output.Table = "clusters"
	}
}
