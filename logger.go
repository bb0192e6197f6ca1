// Package recordlinkage resolves which records of a tabular dataset refer to
// the same real-world entity, assigning every record a cluster identifier.
// The pipeline blocks records into candidate pairs, compares each pair into
// a vector of discrete similarity levels, learns a Fellegi-Sunter match
// model without labels (random-pair sampling for the non-match distribution,
// Expectation-Maximization for the match distribution), scores pairs via
// base-2 log-likelihood ratios, and clusters above-threshold edges into
// connected components.
package recordlinkage

import (
	"os"

	"github.com/baditaflorin/l"
)

// createDefaultLogger creates and returns a default logger instance.
func createDefaultLogger() (l.Logger, error) {
	return l.NewStandardFactory().CreateLogger(l.Config{
		Output:      os.Stdout,
		JsonFormat:  false,
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,      // 1MB buffer
		MaxFileSize: 10 * 1024 * 1024, // 10MB max file size
		MaxBackups:  5,
		AddSource:   true,
		Metrics:     true,
	})
}
