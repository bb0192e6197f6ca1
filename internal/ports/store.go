package ports

import (
	"context"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

// RecordSource loads the full record set for a run. Sources are read once;
// the engine never writes back through them.
type RecordSource interface {
	Load(ctx context.Context) ([]domain.Record, error)
}

// ClusterSink persists the terminal cluster assignment, a mapping from
// record ID to cluster ID covering every input record exactly once.
type ClusterSink interface {
	Write(ctx context.Context, assignments map[string]string) error
}
