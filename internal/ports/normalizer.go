package ports

// Normalizer defines the interface for attribute value normalization.
// Normalization is a collaborator concern: the engine expects already-cleaned
// values, but the surrounding application (CLI, server) cleans with these.
type Normalizer interface {
	Normalize(text string) string
}
