// Package warmup primes comparers and normalizers before a run so first-use
// latency (pool fills, lookup-table faults, JIT-ish branch warm-up) does not
// land inside the measured pipeline stages.
package warmup

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// Config defines configuration for warming up the system.
type Config struct {
	// Concurrency is the number of concurrent warmup routines.
	Concurrency int
	// Iterations per routine.
	Iterations int
	// Duration limits the warmup (0 means no time limit).
	Duration time.Duration
	// ForceGC runs a garbage collection after warmup.
	ForceGC bool
}

// DefaultConfig returns the default warmup configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: runtime.NumCPU(),
		Iterations:  500,
		Duration:    2 * time.Second,
		ForceGC:     true,
	}
}

// Manager handles warmup for registered components.
type Manager struct {
	logger      ports.Logger
	comparers   []ports.Comparer
	normalizers []ports.Normalizer
	config      Config
}

// NewManager creates a new warmup manager.
func NewManager(logger ports.Logger, config Config) *Manager {
	return &Manager{logger: logger, config: config}
}

// RegisterComparer adds a comparer to be warmed up.
func (m *Manager) RegisterComparer(c ports.Comparer) {
	m.comparers = append(m.comparers, c)
}

// RegisterNormalizer adds a normalizer to be warmed up.
func (m *Manager) RegisterNormalizer(n ports.Normalizer) {
	m.normalizers = append(m.normalizers, n)
}

// WarmUp runs the warmup process for all registered components.
func (m *Manager) WarmUp(ctx context.Context) {
	if len(m.comparers)+len(m.normalizers) == 0 {
		return
	}
	start := time.Now()
	m.logger.Info("Starting engine warmup",
		"comparers", len(m.comparers),
		"normalizers", len(m.normalizers),
		"concurrency", m.config.Concurrency,
		"iterations", m.config.Iterations,
	)

	warmupCtx := ctx
	if m.config.Duration > 0 {
		var cancel context.CancelFunc
		warmupCtx, cancel = context.WithTimeout(ctx, m.config.Duration)
		defer cancel()
	}

	left, right, variant := sampleRecords(m.comparers)

	var wg sync.WaitGroup
	for i := 0; i < m.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < m.config.Iterations; j++ {
				select {
				case <-warmupCtx.Done():
					return
				default:
				}
				for _, c := range m.comparers {
					if j%2 == 0 {
						_ = c.Compare(left, right)
					} else {
						_ = c.Compare(left, variant)
					}
				}
				for _, n := range m.normalizers {
					_ = n.Normalize("Étienne O'Connor-Smith, Jr.")
				}
			}
		}()
	}
	wg.Wait()

	if m.config.ForceGC {
		m.logger.Debug("Forcing garbage collection after warmup")
		runtime.GC()
	}

	m.logger.Info("Engine warmup completed", "duration", time.Since(start))
}

// sampleRecords fabricates records covering every attribute the registered
// comparers read: an identical pair and a near-miss variant.
func sampleRecords(comparers []ports.Comparer) (*domain.Record, *domain.Record, *domain.Record) {
	left := &domain.Record{ID: "warmup-a", Fields: map[string]string{}, Arrays: map[string][]string{}}
	right := &domain.Record{ID: "warmup-b", Fields: map[string]string{}, Arrays: map[string][]string{}}
	variant := &domain.Record{ID: "warmup-c", Fields: map[string]string{}, Arrays: map[string][]string{}}
	for i, c := range comparers {
		attr := c.Attribute()
		value := fmt.Sprintf("sample value %d", i)
		left.Fields[attr] = value
		right.Fields[attr] = value
		variant.Fields[attr] = value + " variant"
		tokens := strings.Fields(value)
		left.Arrays[attr] = tokens
		right.Arrays[attr] = tokens
		variant.Arrays[attr] = append(tokens[:len(tokens):len(tokens)], "variant")
	}
	return left, right, variant
}
