package certgen

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CompileFunc compiles one artifact. It returns "" and a nil error when ctx
// was cancelled before the artifact was compiled.
type CompileFunc func(ctx context.Context, a Artifact) (string, error)

// Scheduler runs the compilations of one batch at a time under a per-batch
// cap and the Pool's global cap.
type Scheduler struct {
	pool       *Pool
	perBatch   int
	concurrent bool
	logger     *zap.Logger
	batchSem   func(n int64) Semaphore
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func withBatchSemaphore(f func(n int64) Semaphore) SchedulerOption {
	return func(s *Scheduler) { s.batchSem = f }
}

// NewScheduler returns a Scheduler using cfg's concurrency settings. Nil cfg
// and pool default to Current() and SharedPool().
func NewScheduler(cfg *Configuration, pool *Pool, opts ...SchedulerOption) *Scheduler {
	if cfg == nil {
		cfg = Current()
	}
	if pool == nil {
		pool = SharedPool()
	}
	s := &Scheduler{
		pool:       pool,
		perBatch:   cfg.MaxWorkersPerBatch(),
		concurrent: cfg.Concurrent(),
		logger:     zap.NewNop(),
		batchSem: func(n int64) Semaphore {
			return semaphore.NewWeighted(n)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run compiles artifacts and returns the output paths in completion order.
// The first error stops the batch: in concurrent mode it cancels jobs that
// have not started compiling and is the error returned; later errors are
// dropped. Outputs of jobs that completed are returned alongside an error.
func (s *Scheduler) Run(ctx context.Context, artifacts []Artifact, compile CompileFunc) ([]string, error) {
	s.logger.Debug("scheduling batch",
		zap.Int("artifacts", len(artifacts)),
		zap.Bool("concurrent", s.concurrent),
		zap.Int("per_batch", s.perBatch),
		zap.Int("global", s.pool.Size()))

	if !s.concurrent {
		return s.runSequential(ctx, artifacts, compile)
	}
	return s.runConcurrent(ctx, artifacts, compile)
}

func (s *Scheduler) runSequential(ctx context.Context, artifacts []Artifact, compile CompileFunc) ([]string, error) {
	outputs := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path, err := s.compileOne(ctx, nil, a, compile)
		if err != nil {
			return outputs, err
		}
		if path == "" {
			if err := ctx.Err(); err != nil {
				return outputs, err
			}
			continue
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (s *Scheduler) runConcurrent(ctx context.Context, artifacts []Artifact, compile CompileFunc) ([]string, error) {
	batch := s.batchSem(int64(s.perBatch))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	outputs := make([]string, 0, len(artifacts))

	for _, a := range artifacts {
		g.Go(func() error {
			path, err := s.compileOne(gctx, batch, a, compile)
			if err != nil {
				s.logger.Warn("job failed, cancelling batch", zap.String("artifact", a.Name), zap.Error(err))
				return err
			}
			if path == "" {
				return nil
			}
			mu.Lock()
			outputs = append(outputs, path)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return outputs, err
}

// compileOne takes the batch permit (when batch is non-nil), then the global
// permit, and compiles a unless ctx is done. Permits are released global
// first. A job that never got to compile returns "".
func (s *Scheduler) compileOne(ctx context.Context, batch Semaphore, a Artifact, compile CompileFunc) (string, error) {
	if batch != nil {
		if err := batch.Acquire(ctx, 1); err != nil {
			return "", nil
		}
		defer batch.Release(1)
	}
	if err := s.pool.sem.Acquire(ctx, 1); err != nil {
		return "", nil
	}
	defer s.pool.sem.Release(1)

	if ctx.Err() != nil {
		return "", nil
	}
	return compile(ctx, a)
}
