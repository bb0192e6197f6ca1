// Package estimate learns the Fellegi-Sunter match model without labels.
// The non-match (u) distribution comes from a bounded random sample of pairs
// drawn from the full record set; the match (m) distribution comes from
// Expectation-Maximization runs over enriched candidate populations, one per
// training rule. Each EM round takes the current model by value and returns
// an updated one, so the otherwise-implicit state threading stays auditable.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baditaflorin/go_record_linkage/internal/core/compare"
	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Config holds configuration for the estimator.
type Config struct {
	// USampleMaxPairs bounds the random sample used for u-estimation.
	USampleMaxPairs int
	// MaxIterations caps a single EM run.
	MaxIterations int
	// Tolerance stops EM once the absolute log-likelihood change per
	// iteration falls below it.
	Tolerance float64
	// Seed drives the u-sample; fixed seeds make runs reproducible.
	Seed int64
	// Floor replaces probabilities of levels never observed during
	// estimation, keeping log-likelihood ratios finite.
	Floor float64
	// Workers bounds the parallel fan-out of E-steps and sampling. 0 means
	// GOMAXPROCS.
	Workers int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		USampleMaxPairs: 1_000_000,
		MaxIterations:   25,
		Tolerance:       1e-4,
		Seed:            1,
		Floor:           1e-4,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.USampleMaxPairs <= 0 {
		return errors.New("u-sample max pairs must be positive")
	}
	if c.MaxIterations <= 0 {
		return errors.New("EM max iterations must be positive")
	}
	if c.Tolerance <= 0 {
		return errors.New("EM tolerance must be positive")
	}
	if c.Floor <= 0 || c.Floor >= 0.5 {
		return errors.New("probability floor must be in (0, 0.5)")
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	return nil
}

// Estimator populates a match model from unlabeled data.
type Estimator struct {
	config  Config
	builder *compare.Builder
	logger  ports.Logger
}

// NewEstimator creates an estimator over the builder's comparisons.
func NewEstimator(config Config, builder *compare.Builder, logger ports.Logger) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Estimator{config: config, builder: builder, logger: logger}, nil
}

// InitialModel returns the starting parameter set: prior 0.5, uniform u, and
// a head-heavy m that puts 0.9 on the most-similar level with the remainder
// split across the rest. EM refines m from here; the u-sample replaces u.
func (e *Estimator) InitialModel() domain.MatchModel {
	comparers := e.builder.Comparers()
	model := domain.MatchModel{
		Prior:       0.5,
		Comparisons: make([]domain.ComparisonParams, len(comparers)),
	}
	for k, c := range comparers {
		levels := c.Levels()
		m := make([]float64, levels)
		u := make([]float64, levels)
		m[0] = 0.9
		for l := 1; l < levels; l++ {
			m[l] = 0.1 / float64(levels-1)
		}
		if levels == 1 {
			m[0] = 1
		}
		for l := 0; l < levels; l++ {
			u[l] = 1 / float64(levels)
		}
		model.Comparisons[k] = domain.ComparisonParams{Name: c.Name(), M: m, U: u}
	}
	return model
}

// EstimateU estimates the non-match level distribution of every comparison
// from a random sample of record pairs, up to the configured maximum. A
// uniformly random pair is overwhelmingly likely to be a non-match, so the
// empirical level frequencies stand in for u directly. When the full pair
// space fits under the cap it is enumerated instead of sampled.
func (e *Estimator) EstimateU(ctx context.Context, records []domain.Record, model domain.MatchModel) (domain.MatchModel, []domain.Warning, error) {
	n := len(records)
	if n < 2 {
		return model, nil, nil
	}
	start := time.Now()

	total := uint64(n) * uint64(n-1) / 2
	var pairs []domain.Pair
	if total <= uint64(e.config.USampleMaxPairs) {
		pairs = make([]domain.Pair, 0, total)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, domain.Pair{Left: uint32(i), Right: uint32(j)})
			}
		}
	} else {
		rng := rand.New(rand.NewSource(e.config.Seed))
		pairs = make([]domain.Pair, 0, e.config.USampleMaxPairs)
		for len(pairs) < e.config.USampleMaxPairs {
			i, j := rng.Intn(n), rng.Intn(n)
			if i == j {
				continue
			}
			if i > j {
				i, j = j, i
			}
			pairs = append(pairs, domain.Pair{Left: uint32(i), Right: uint32(j)})
		}
	}

	vectors, err := e.builder.Vectors(ctx, records, pairs)
	if err != nil {
		return model, nil, err
	}

	comparers := e.builder.Comparers()
	width := e.builder.Width()
	out := model.Clone()
	var warnings []domain.Warning

	for k, c := range comparers {
		counts := make([]float64, c.Levels())
		observed := 0.0
		for p := 0; p < len(pairs); p++ {
			level := vectors[p*width+k]
			if level == domain.LevelNull {
				continue
			}
			counts[level]++
			observed++
		}
		if observed == 0 {
			warnings = append(warnings, domain.Warning{
				Code:       domain.WarnFlooredLevel,
				Comparison: c.Name(),
				Message:    "no non-null observations in the u-sample; keeping prior u estimate",
			})
			continue
		}
		u := make([]float64, c.Levels())
		floored := 0
		for l := range counts {
			u[l] = counts[l] / observed
			if u[l] < e.config.Floor {
				u[l] = e.config.Floor
				floored++
			}
		}
		normalize(u)
		out.Comparisons[k].U = u
		if floored > 0 {
			warnings = append(warnings, domain.Warning{
				Code:       domain.WarnFlooredLevel,
				Comparison: c.Name(),
				Message:    fmt.Sprintf("%d level(s) unobserved or rare in the u-sample were floored to %v", floored, e.config.Floor),
			})
		}
	}

	e.logger.Info("u-probabilities estimated",
		"sampled_pairs", len(pairs),
		"possible_pairs", total,
		"seed", e.config.Seed,
		"duration", time.Since(start),
	)
	return out, warnings, nil
}

// TrainM runs one EM round over the pairs generated by a single training
// rule, refining the match-side probabilities and the prior. Comparisons
// flagged in excluded are uninformative under this rule (typically the
// rule's own blocking attributes) and carry their previous estimate through
// unchanged. The round is non-fatal on non-convergence: the last iterate is
// kept and a warning is surfaced.
func (e *Estimator) TrainM(ctx context.Context, records []domain.Record, model domain.MatchModel, pairs []domain.Pair, ruleName string, excluded []bool) (domain.MatchModel, []domain.Warning, error) {
	if len(pairs) == 0 {
		return model, []domain.Warning{{
			Code:    domain.WarnEmptyTraining,
			Rule:    ruleName,
			Message: "training rule generated no pairs; match probabilities unchanged",
		}}, nil
	}
	start := time.Now()

	vectors, err := e.builder.Vectors(ctx, records, pairs)
	if err != nil {
		return model, nil, err
	}

	out := model.Clone()
	comparers := e.builder.Comparers()

	prevLL := math.Inf(-1)
	delta := math.Inf(1)
	converged := false
	iterations := 0

	for iter := 0; iter < e.config.MaxIterations; iter++ {
		iterations = iter + 1

		red, err := e.eStep(ctx, out, vectors, len(pairs))
		if err != nil {
			return model, nil, err
		}

		// M-step: posterior-weighted level shares, floored and renormalized
		// per comparison.
		for k, c := range comparers {
			if excluded[k] || red.observedWeight[k] == 0 {
				continue
			}
			m := make([]float64, c.Levels())
			for l := range m {
				m[l] = red.levelWeight[k][l] / red.observedWeight[k]
				if m[l] < e.config.Floor {
					m[l] = e.config.Floor
				}
			}
			normalize(m)
			out.Comparisons[k].M = m
		}
		prior := red.posteriorSum / float64(len(pairs))
		if prior < e.config.Floor {
			prior = e.config.Floor
		}
		if prior > 1-e.config.Floor {
			prior = 1 - e.config.Floor
		}
		out.Prior = prior

		delta = math.Abs(red.logLikelihood - prevLL)
		prevLL = red.logLikelihood
		if delta < e.config.Tolerance {
			converged = true
			break
		}
	}

	var warnings []domain.Warning
	if !converged {
		e.logger.Warn("EM did not converge",
			"rule", ruleName,
			"iterations", iterations,
			"log_likelihood_delta", delta,
		)
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarnEMNonConvergence,
			Rule:    ruleName,
			Message: fmt.Sprintf("stopped after %d iterations with log-likelihood delta %.3g; keeping last iterate", iterations, delta),
		})
	}

	e.logger.Info("EM round completed",
		"rule", ruleName,
		"pairs", len(pairs),
		"iterations", iterations,
		"converged", converged,
		"prior", out.Prior,
		"duration", time.Since(start),
	)
	return out, warnings, nil
}

// reduction is the global result of one E-step: posterior-weighted level
// counts per comparison, total posterior mass, and the log-likelihood of the
// data under the current model.
type reduction struct {
	levelWeight    [][]float64
	observedWeight []float64
	posteriorSum   float64
	logLikelihood  float64
}

func (e *Estimator) newReduction() *reduction {
	comparers := e.builder.Comparers()
	red := &reduction{
		levelWeight:    make([][]float64, len(comparers)),
		observedWeight: make([]float64, len(comparers)),
	}
	for k, c := range comparers {
		red.levelWeight[k] = make([]float64, c.Levels())
	}
	return red
}

func (r *reduction) merge(other *reduction) {
	for k := range r.levelWeight {
		for l := range r.levelWeight[k] {
			r.levelWeight[k][l] += other.levelWeight[k][l]
		}
		r.observedWeight[k] += other.observedWeight[k]
	}
	r.posteriorSum += other.posteriorSum
	r.logLikelihood += other.logLikelihood
}

// eStep computes posterior match probabilities for every pair in parallel
// and reduces the posterior-weighted counts. Workers accumulate into
// chunk-local reductions merged after the barrier, so no locks are held on
// the hot path.
func (e *Estimator) eStep(ctx context.Context, model domain.MatchModel, vectors []domain.Level, numPairs int) (*reduction, error) {
	width := e.builder.Width()
	chunk := (numPairs + e.config.Workers - 1) / e.config.Workers
	partials := make([]*reduction, 0, e.config.Workers)
	for lo := 0; lo < numPairs; lo += chunk {
		partials = append(partials, e.newReduction())
	}

	g, gctx := errgroup.WithContext(ctx)
	idx := 0
	for lo := 0; lo < numPairs; lo += chunk {
		hi := lo + chunk
		if hi > numPairs {
			hi = numPairs
		}
		part := partials[idx]
		idx++
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				if p%1024 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				row := vectors[p*width : (p+1)*width]
				pm, pu := 1.0, 1.0
				for k, level := range row {
					if level == domain.LevelNull {
						continue
					}
					pm *= model.Comparisons[k].M[level]
					pu *= model.Comparisons[k].U[level]
				}
				likelihood := model.Prior*pm + (1-model.Prior)*pu
				w := model.Prior * pm / likelihood
				part.logLikelihood += math.Log(likelihood)
				part.posteriorSum += w
				for k, level := range row {
					if level == domain.LevelNull {
						continue
					}
					part.levelWeight[k][level] += w
					part.observedWeight[k] += w
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := e.newReduction()
	for _, part := range partials {
		total.merge(part)
	}
	return total, nil
}

// normalize scales the slice to sum to 1.
func normalize(p []float64) {
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range p {
		p[i] /= sum
	}
}
