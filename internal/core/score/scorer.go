// Package score converts comparison vectors into match probabilities under a
// trained Fellegi-Sunter match model. Scoring is pure and deterministic
// given a fixed model.
package score

import (
	"errors"
	"math"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

// probabilityFloor replaces a zero probability so the log-likelihood ratio
// stays finite. Estimation already floors unobserved levels; this is the
// scorer-side guard for models built elsewhere.
const probabilityFloor = 1e-4

// Scorer scores comparison vectors against a match model.
type Scorer struct {
	model     domain.MatchModel
	priorOdds float64
}

// NewScorer creates a scorer for the given model. The model prior must lie
// strictly between 0 and 1.
func NewScorer(model domain.MatchModel) (*Scorer, error) {
	if model.Prior <= 0 || model.Prior >= 1 {
		return nil, errors.New("match model prior must be in (0, 1)")
	}
	if len(model.Comparisons) == 0 {
		return nil, errors.New("match model has no comparisons")
	}
	return &Scorer{
		model:     model,
		priorOdds: math.Log2(model.Prior / (1 - model.Prior)),
	}, nil
}

// LogOdds accumulates the base-2 log-likelihood ratio of the vector plus the
// prior log-odds. Null levels contribute nothing.
func (s *Scorer) LogOdds(vec []domain.Level) float64 {
	total := s.priorOdds
	for k, level := range vec {
		if level == domain.LevelNull {
			continue
		}
		params := s.model.Comparisons[k]
		m := params.M[level]
		u := params.U[level]
		if m <= 0 {
			m = probabilityFloor
		}
		if u <= 0 {
			u = probabilityFloor
		}
		total += math.Log2(m / u)
	}
	return total
}

// Probability converts the total log-odds of the vector to a probability via
// the logistic transform 1 / (1 + 2^-L).
func (s *Scorer) Probability(vec []domain.Level) float64 {
	return 1 / (1 + math.Exp2(-s.LogOdds(vec)))
}
