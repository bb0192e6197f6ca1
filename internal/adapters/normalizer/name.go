package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// NameNormalizer prepares person and company names for linkage: it strips
// diacritics (NFD decomposition, combining marks removed), lowercases with
// an ASCII fast path, and folds punctuation into single spaces. "Núñez" and
// "Nunez" normalize to the same key.
type NameNormalizer struct {
	// asciiTable pre-computes the decision for ASCII bytes: 0 keep, 1 fold
	// to space, 2 lowercase.
	asciiTable [128]byte
	stripMarks transform.Transformer
}

// NewNameNormalizer creates a new name normalizer.
func NewNameNormalizer() ports.Normalizer {
	n := &NameNormalizer{
		stripMarks: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
	for i := 0; i < 128; i++ {
		r := rune(i)
		switch {
		case unicode.IsPunct(r) || unicode.IsSpace(r):
			n.asciiTable[i] = 1
		case unicode.IsUpper(r):
			n.asciiTable[i] = 2
		default:
			n.asciiTable[i] = 0
		}
	}
	return n
}

// Normalize returns the accent-free, lowercased, punctuation-folded form of
// the input.
func (n *NameNormalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	if !isASCII(text) {
		if stripped, _, err := transform.String(n.stripMarks, text); err == nil {
			text = stripped
		}
	}

	var sb strings.Builder
	sb.Grow(len(text))
	lastWasSpace := true
	for _, r := range text {
		if r < 128 {
			switch n.asciiTable[r] {
			case 0:
				sb.WriteRune(r)
				lastWasSpace = false
			case 1:
				if !lastWasSpace {
					sb.WriteRune(' ')
					lastWasSpace = true
				}
			case 2:
				sb.WriteRune(r + ('a' - 'A'))
				lastWasSpace = false
			}
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) {
			if !lastWasSpace {
				sb.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
		lastWasSpace = false
	}
	return strings.TrimRight(sb.String(), " ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 {
			return false
		}
	}
	return true
}

// Tokens normalizes the input and splits it into whitespace-separated
// tokens, the shape expected by array-intersection comparisons.
func (n *NameNormalizer) Tokens(text string) []string {
	return strings.Fields(n.Normalize(text))
}
