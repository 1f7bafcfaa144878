package certgen

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/dateutil"
	"github.com/alnah/go-certgen/internal/fileutil"
)

// dateProperty is the global property resolved through dateutil when it
// holds "auto" or "auto:FORMAT".
const dateProperty = "date"

// BatchState is a batch's lifecycle position.
type BatchState int

// Batch states.
const (
	BatchCreated BatchState = iota
	BatchChecked
	BatchRunning
	BatchSucceeded
	BatchFailed
)

// String returns the lowercase state name.
func (s BatchState) String() string {
	switch s {
	case BatchCreated:
		return "created"
	case BatchChecked:
		return "checked"
	case BatchRunning:
		return "running"
	case BatchSucceeded:
		return "succeeded"
	case BatchFailed:
		return "failed"
	}
	return "unknown"
}

// Batch compiles every template for every recipient.
type Batch struct {
	recipients []Recipient
	templates  []*Template
	global     GlobalProperties
	workDir    string
	outDir     string

	compiler  *Compiler
	scheduler *Scheduler
	logger    *zap.Logger

	mu      sync.Mutex
	state   BatchState
	outputs []string
}

type batchOptions struct {
	cfg      *Configuration
	pool     *Pool
	compiler *Compiler
	logger   *zap.Logger
	global   GlobalProperties
	now      func() time.Time
}

// BatchOption customizes a Batch.
type BatchOption func(*batchOptions)

// WithConfiguration sets the limits and caps. Defaults to Current().
func WithConfiguration(cfg *Configuration) BatchOption {
	return func(o *batchOptions) { o.cfg = cfg }
}

// WithPool sets the admission pool shared with other batches. Defaults to
// SharedPool().
func WithPool(p *Pool) BatchOption {
	return func(o *batchOptions) { o.pool = p }
}

// WithBatchCompiler replaces the compiler built from the configuration.
func WithBatchCompiler(c *Compiler) BatchOption {
	return func(o *batchOptions) { o.compiler = c }
}

// WithLogger sets the logger for the batch and the components it builds.
func WithLogger(l *zap.Logger) BatchOption {
	return func(o *batchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithGlobalProperties sets the batch-wide substitution values.
func WithGlobalProperties(g GlobalProperties) BatchOption {
	return func(o *batchOptions) { o.global = g }
}

func withNow(now func() time.Time) BatchOption {
	return func(o *batchOptions) { o.now = now }
}

// NewBatch returns a batch pairing each template with each recipient.
// Directories are resolved to absolute paths and created by Execute.
// An "auto" date global property is resolved here, once per batch.
func NewBatch(recipients []Recipient, templates []*Template, workDir, outDir string, opts ...BatchOption) (*Batch, error) {
	const op = "new batch"

	o := batchOptions{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = Current()
	}

	if workDir == "" {
		return nil, configErrorf(op, "working directory is required")
	}
	if outDir == "" {
		return nil, configErrorf(op, "output directory is required")
	}
	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return nil, newError(KindFileAccess, op, workDir, err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return nil, newError(KindFileAccess, op, outDir, err)
	}

	global, err := resolveGlobal(o.global, o.now())
	if err != nil {
		return nil, newError(KindConfiguration, op, "", err)
	}

	if o.compiler == nil {
		o.compiler = NewCompiler(o.cfg, WithCompilerLogger(o.logger))
	}

	return &Batch{
		recipients: recipients,
		templates:  templates,
		global:     global,
		workDir:    absWork,
		outDir:     absOut,
		compiler:   o.compiler,
		scheduler:  NewScheduler(o.cfg, o.pool, WithSchedulerLogger(o.logger)),
		logger:     o.logger,
	}, nil
}

// resolveGlobal returns a copy of g with an auto date property formatted.
func resolveGlobal(g GlobalProperties, now time.Time) (GlobalProperties, error) {
	out := make(GlobalProperties, len(g))
	for k, v := range g {
		out[k] = v
	}
	if v, ok := out.String(dateProperty); ok && dateutil.IsAuto(v) {
		resolved, err := dateutil.ResolveDate(v, now)
		if err != nil {
			return nil, err
		}
		out[dateProperty] = resolved
	}
	return out, nil
}

// State returns the batch's lifecycle state.
func (b *Batch) State() BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Check validates every (template, recipient) pair without compiling and
// without advancing name counters. It returns the first incompatibility.
func (b *Batch) Check() error {
	b.mu.Lock()
	if b.state == BatchRunning {
		b.mu.Unlock()
		return ErrBatchRunning
	}
	b.mu.Unlock()

	for _, t := range b.templates {
		for _, r := range b.recipients {
			if err := t.Check(r, b.global); err != nil {
				return err
			}
		}
	}

	b.mu.Lock()
	if b.state == BatchCreated {
		b.state = BatchChecked
	}
	b.mu.Unlock()
	return nil
}

// Execute generates every artifact, then compiles them. It returns the first
// error encountered; output files are available only after it succeeds.
func (b *Batch) Execute(ctx context.Context) error {
	b.mu.Lock()
	if b.state == BatchRunning {
		b.mu.Unlock()
		return ErrBatchRunning
	}
	b.state = BatchRunning
	b.outputs = nil
	b.mu.Unlock()

	outputs, err := b.execute(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = outputs
	if err != nil {
		b.state = BatchFailed
		b.logger.Error("batch failed", zap.Error(err), zap.Int("completed", len(outputs)))
		return err
	}
	b.state = BatchSucceeded
	b.logger.Info("batch succeeded", zap.Int("outputs", len(outputs)))
	return nil
}

func (b *Batch) execute(ctx context.Context) ([]string, error) {
	for _, dir := range []string{b.workDir, b.outDir} {
		if _, err := fileutil.EnsureDir(dir, dirPermissions); err != nil {
			return nil, newError(KindFileAccess, "create directory", dir, err)
		}
	}

	artifacts, err := b.generate()
	if err != nil {
		return nil, err
	}
	b.logger.Debug("artifacts generated", zap.Int("count", len(artifacts)))

	return b.scheduler.Run(ctx, artifacts, func(ctx context.Context, a Artifact) (string, error) {
		return b.compiler.Compile(ctx, a, b.workDir, b.outDir)
	})
}

// generate expands templates in order, template by template. Counters are
// therefore assigned before any compilation starts.
func (b *Batch) generate() ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(b.templates)*len(b.recipients))
	for _, t := range b.templates {
		for _, r := range b.recipients {
			a, err := t.Generate(r, b.global)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, a)
		}
	}
	return artifacts, nil
}

// OutputFiles returns the compiled file paths of a successful Execute.
func (b *Batch) OutputFiles() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BatchSucceeded {
		return nil, ErrBatchNotSucceeded
	}
	return append([]string(nil), b.outputs...), nil
}

// WorkingDirectory returns the absolute working directory.
func (b *Batch) WorkingDirectory() string { return b.workDir }

// OutputDirectory returns the absolute output directory.
func (b *Batch) OutputDirectory() string { return b.outDir }
