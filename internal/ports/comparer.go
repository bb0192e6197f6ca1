package ports

import (
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

// Comparer maps a pair of attribute values onto one of an ordered set of
// discrete similarity levels. Implementations must be pure and symmetric:
// Compare(a, b) == Compare(b, a), and must return domain.LevelNull when the
// attribute is missing on either side.
type Comparer interface {
	// Name identifies the comparison in the match model and diagnostics.
	Name() string
	// Attribute is the record attribute this comparison reads.
	Attribute() string
	// Levels is the number of non-null levels, 0..Levels()-1 ordered by
	// decreasing similarity.
	Levels() int
	// Compare returns the observed level for the two records.
	Compare(a, b *domain.Record) domain.Level
}
