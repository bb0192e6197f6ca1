// Package pool provides small sync.Pool wrappers for buffers reused on hot
// scoring paths.
package pool

import (
	"sync"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
)

// LevelBufferPool pools comparison-vector scratch slices so per-pair scoring
// does not allocate.
type LevelBufferPool struct {
	pool sync.Pool
}

// NewLevelBufferPool creates a pool of level slices with the given capacity.
func NewLevelBufferPool(capacity int) *LevelBufferPool {
	return &LevelBufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				buffer := make([]domain.Level, 0, capacity)
				return &buffer
			},
		},
	}
}

// Get retrieves a level buffer from the pool.
func (p *LevelBufferPool) Get() *[]domain.Level {
	return p.pool.Get().(*[]domain.Level)
}

// Put returns a level buffer to the pool, resetting its length.
func (p *LevelBufferPool) Put(buffer *[]domain.Level) {
	*buffer = (*buffer)[:0]
	p.pool.Put(buffer)
}
