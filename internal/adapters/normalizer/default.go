// Package normalizer provides attribute value normalizers used by the
// surrounding application before records enter the engine. The engine itself
// assumes already-cleaned values; these adapters are offered to the CLI and
// server ingestion paths.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// DefaultNormalizer lowercases text and replaces punctuation with spaces,
// collapsing runs of whitespace to a single space.
type DefaultNormalizer struct{}

// NewDefaultNormalizer creates a new default normalizer.
func NewDefaultNormalizer() ports.Normalizer {
	return &DefaultNormalizer{}
}

// Normalize converts the input to lower case, folds punctuation into spaces
// and trims the result.
func (n *DefaultNormalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(text))
	lastWasSpace := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsPunct(r) || unicode.IsSpace(r) {
			if !lastWasSpace {
				sb.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimRight(sb.String(), " ")
}
