// Package compare implements the comparison definitions of the engine and
// the builder that turns candidate pairs into comparison vectors. Three
// comparison kinds exist: exact equality, string similarity over ordered
// Jaro-Winkler cutoffs, and token-array intersection at sizes. All comparers
// are pure and symmetric and yield the reserved null level when the
// attribute is missing on either side.
package compare

import (
	"errors"
	"fmt"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Exact is a two-level comparer: level 0 when the values are equal, level 1
// otherwise.
type Exact struct {
	name string
	attr string
}

// NewExact creates an exact-match comparer on the given attribute.
func NewExact(name, attr string) (*Exact, error) {
	if name == "" || attr == "" {
		return nil, errors.New("exact comparison requires a name and an attribute")
	}
	return &Exact{name: name, attr: attr}, nil
}

// Name identifies the comparison.
func (c *Exact) Name() string { return c.name }

// Attribute is the record attribute read by this comparison.
func (c *Exact) Attribute() string { return c.attr }

// Levels returns the number of non-null levels.
func (c *Exact) Levels() int { return 2 }

// Compare returns level 0 for equal values, level 1 otherwise.
func (c *Exact) Compare(a, b *domain.Record) domain.Level {
	av, aok := a.Field(c.attr)
	bv, bok := b.Field(c.attr)
	if !aok || !bok {
		return domain.LevelNull
	}
	if av == bv {
		return 0
	}
	return 1
}

// StringSimilarity discretizes a Jaro-Winkler similarity onto ordered
// cutoffs: level k is the first cutoff the similarity reaches, and values
// below every cutoff land on the final level.
type StringSimilarity struct {
	name    string
	attr    string
	cutoffs []float64
}

// NewStringSimilarity creates a string-similarity comparer. Cutoffs must be
// strictly decreasing values in (0, 1].
func NewStringSimilarity(name, attr string, cutoffs []float64) (*StringSimilarity, error) {
	if name == "" || attr == "" {
		return nil, errors.New("string-similarity comparison requires a name and an attribute")
	}
	if len(cutoffs) == 0 {
		return nil, fmt.Errorf("string-similarity comparison %q requires at least one cutoff", name)
	}
	prev := 1.0001
	for _, c := range cutoffs {
		if c <= 0 || c > 1 {
			return nil, fmt.Errorf("string-similarity comparison %q: cutoff %v out of (0,1]", name, c)
		}
		if c >= prev {
			return nil, fmt.Errorf("string-similarity comparison %q: cutoffs must be strictly decreasing", name)
		}
		prev = c
	}
	return &StringSimilarity{name: name, attr: attr, cutoffs: append([]float64(nil), cutoffs...)}, nil
}

// Name identifies the comparison.
func (c *StringSimilarity) Name() string { return c.name }

// Attribute is the record attribute read by this comparison.
func (c *StringSimilarity) Attribute() string { return c.attr }

// Levels returns one level per cutoff plus the below-minimum level.
func (c *StringSimilarity) Levels() int { return len(c.cutoffs) + 1 }

// Compare maps the Jaro-Winkler similarity of the two values onto a level.
func (c *StringSimilarity) Compare(a, b *domain.Record) domain.Level {
	av, aok := a.Field(c.attr)
	bv, bok := b.Field(c.attr)
	if !aok || !bok {
		return domain.LevelNull
	}
	sim := JaroWinkler(av, bv)
	for i, cutoff := range c.cutoffs {
		if sim >= cutoff {
			return domain.Level(i)
		}
	}
	return domain.Level(len(c.cutoffs))
}

// ArrayIntersection compares token arrays by intersection size. The observed
// level is the highest configured size t such that the intersection has at
// least t tokens and at least one side has at least t tokens; arrays meeting
// no size land on the below-minimum level.
type ArrayIntersection struct {
	name  string
	attr  string
	sizes []int
}

// NewArrayIntersection creates an array-intersection comparer. Sizes must be
// strictly decreasing positive integers.
func NewArrayIntersection(name, attr string, sizes []int) (*ArrayIntersection, error) {
	if name == "" || attr == "" {
		return nil, errors.New("array-intersection comparison requires a name and an attribute")
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("array-intersection comparison %q requires at least one size", name)
	}
	prev := int(^uint(0) >> 1)
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("array-intersection comparison %q: size %d must be positive", name, s)
		}
		if s >= prev {
			return nil, fmt.Errorf("array-intersection comparison %q: sizes must be strictly decreasing", name)
		}
		prev = s
	}
	return &ArrayIntersection{name: name, attr: attr, sizes: append([]int(nil), sizes...)}, nil
}

// Name identifies the comparison.
func (c *ArrayIntersection) Name() string { return c.name }

// Attribute is the record attribute read by this comparison.
func (c *ArrayIntersection) Attribute() string { return c.attr }

// Levels returns one level per size plus the below-minimum level.
func (c *ArrayIntersection) Levels() int { return len(c.sizes) + 1 }

// Compare returns the level of the largest satisfied intersection size.
func (c *ArrayIntersection) Compare(a, b *domain.Record) domain.Level {
	av, aok := a.Array(c.attr)
	bv, bok := b.Array(c.attr)
	if !aok || !bok {
		return domain.LevelNull
	}
	inter := intersectionSize(av, bv)
	longest := len(av)
	if len(bv) > longest {
		longest = len(bv)
	}
	for i, size := range c.sizes {
		if inter >= size && longest >= size {
			return domain.Level(i)
		}
	}
	return domain.Level(len(c.sizes))
}

// intersectionSize counts distinct tokens present on both sides.
func intersectionSize(a, b []string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	count := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			count++
			delete(set, t)
		}
	}
	return count
}

var _ ports.Comparer = (*Exact)(nil)
var _ ports.Comparer = (*StringSimilarity)(nil)
var _ ports.Comparer = (*ArrayIntersection)(nil)
