package recordlinkage

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRules is returned when no blocking rule is configured.
	ErrNoRules = errors.New("at least one blocking rule is required")
	// ErrNoComparisons is returned when no comparison is configured.
	ErrNoComparisons = errors.New("at least one comparison is required")
	// ErrDuplicateID is returned when two input records share an identifier.
	ErrDuplicateID = errors.New("duplicate record identifier")
	// ErrEmptyID is returned when an input record has no identifier.
	ErrEmptyID = errors.New("record identifier must not be empty")
)

// SchemaError reports a rule or comparison referencing an attribute the
// declared schema does not carry. Raised at engine construction, before any
// blocking runs.
type SchemaError struct {
	// Kind is "blocking rule", "training rule" or "comparison".
	Kind string
	// Name of the offending rule or comparison.
	Name string
	// Attribute that is missing from the schema.
	Attribute string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s %q references attribute %q not present in the schema", e.Kind, e.Name, e.Attribute)
}
