package compare

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Builder computes comparison vectors for candidate pairs. Vectors are laid
// out as a flat level matrix, one row of Width() levels per pair, so the
// parallel workers write disjoint regions without synchronization.
type Builder struct {
	comparers []ports.Comparer
	workers   int
	logger    ports.Logger
}

// NewBuilder creates a vector builder over the configured comparisons.
// workers bounds the data-parallel fan-out; 0 means GOMAXPROCS.
func NewBuilder(comparers []ports.Comparer, workers int, logger ports.Logger) (*Builder, error) {
	if len(comparers) == 0 {
		return nil, errors.New("at least one comparison is required")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{comparers: comparers, workers: workers, logger: logger}, nil
}

// Width is the number of comparisons, i.e. the length of one vector row.
func (b *Builder) Width() int { return len(b.comparers) }

// Comparers exposes the configured comparisons in order.
func (b *Builder) Comparers() []ports.Comparer { return b.comparers }

// Vector computes a single comparison vector into dst, growing it as needed.
func (b *Builder) Vector(left, right *domain.Record, dst []domain.Level) []domain.Level {
	dst = dst[:0]
	for _, c := range b.comparers {
		dst = append(dst, c.Compare(left, right))
	}
	return dst
}

// Vectors computes the flat level matrix for all pairs. Row p occupies
// indices [p*Width(), (p+1)*Width()). The call returns only after every
// worker finished, giving downstream stages a fully materialized matrix.
func (b *Builder) Vectors(ctx context.Context, records []domain.Record, pairs []domain.Pair) ([]domain.Level, error) {
	width := b.Width()
	out := make([]domain.Level, len(pairs)*width)
	if len(pairs) == 0 {
		return out, nil
	}

	start := time.Now()
	chunk := (len(pairs) + b.workers - 1) / b.workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(pairs); lo += chunk {
		hi := lo + chunk
		if hi > len(pairs) {
			hi = len(pairs)
		}
		g.Go(func() error {
			for p := lo; p < hi; p++ {
				if p%1024 == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
				}
				pair := pairs[p]
				left, right := &records[pair.Left], &records[pair.Right]
				row := out[p*width : (p+1)*width]
				for k, c := range b.comparers {
					row[k] = c.Compare(left, right)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Debug("Comparison vectors computed",
		"pairs", len(pairs),
		"comparisons", width,
		"workers", b.workers,
		"duration", time.Since(start),
	)
	return out, nil
}
