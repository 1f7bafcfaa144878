package certgen

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Worker sizing bounds for ResolveWorkers.
const (
	// MinWorkers ensures at least one compiler can run.
	MinWorkers = 1

	// MaxAutoWorkers caps the GOMAXPROCS-based estimate; each compiler
	// process can take hundreds of megabytes.
	MaxAutoWorkers = 16
)

// Semaphore is a counted admission gate. *semaphore.Weighted implements it.
type Semaphore interface {
	Acquire(ctx context.Context, n int64) error
	Release(n int64)
}

// Pool is the process-wide admission control shared by every batch. It
// bounds the number of compiler processes running at once, whichever batch
// they belong to.
type Pool struct {
	sem  Semaphore
	size int
}

// NewPool returns a Pool admitting at most size concurrent compilations.
func NewPool(size int) *Pool {
	if size < MinWorkers {
		size = MinWorkers
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

var sharedPool struct {
	once sync.Once
	pool *Pool
}

// SharedPool returns the process-wide Pool, sized from Current() on first use.
func SharedPool() *Pool {
	sharedPool.once.Do(func() {
		sharedPool.pool = NewPool(Current().MaxWorkersGlobal())
	})
	return sharedPool.pool
}

// ResolveWorkers determines a worker cap.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolveWorkers(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs inside containers.
	n := runtime.GOMAXPROCS(0)
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxAutoWorkers {
		return MaxAutoWorkers
	}
	return n
}
