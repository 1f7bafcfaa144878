package certgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/yamlutil"
)

// reservedKeys are batch description keys a Session owns; uploaded
// configuration may not set them.
var reservedKeys = []string{"outputDirectory", "workingDirectory", "templates", "resources"}

// File is an uploaded or generated file.
type File struct {
	Name    string
	Content []byte
}

// SessionConfig holds the server-side settings shared by every session.
type SessionConfig struct {
	// WorkingDirectory and OutputDirectory are base directories; each
	// session works in a subdirectory named after its ID.
	WorkingDirectory string
	OutputDirectory  string

	// Templates and Resources are paths available to every session.
	Templates []string
	Resources []string

	// KeepFiles keeps a session's output directory after Generate or Close.
	KeepFiles bool

	Logger       *zap.Logger
	BatchOptions []BatchOption
}

// Session accumulates one remote job: recipient data, uploaded templates
// and resources. Generated files are returned by content and the session's
// directories are removed afterwards.
type Session struct {
	id      string
	cfg     SessionConfig
	workDir string
	outDir  string
	logger  *zap.Logger

	mu     sync.Mutex
	batch  BatchFile
	closed bool
}

// NewSession allocates a session ID and creates its directories.
func NewSession(cfg SessionConfig) (*Session, error) {
	const op = "new session"

	if cfg.WorkingDirectory == "" || cfg.OutputDirectory == "" {
		return nil, configErrorf(op, "working and output base directories are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	work, err := fileutil.EnsureDir(filepath.Join(cfg.WorkingDirectory, id), dirPermissions)
	if err != nil {
		return nil, newError(KindFileAccess, op, cfg.WorkingDirectory, err)
	}
	out, err := fileutil.EnsureDir(filepath.Join(cfg.OutputDirectory, id), dirPermissions)
	if err != nil {
		_ = os.RemoveAll(work)
		return nil, newError(KindFileAccess, op, cfg.OutputDirectory, err)
	}

	s := &Session{
		id:      id,
		cfg:     cfg,
		workDir: work,
		outDir:  out,
		logger:  logger.With(zap.String("session", id)),
		batch: BatchFile{
			Templates:        append([]string(nil), cfg.Templates...),
			Resources:        append([]string(nil), cfg.Resources...),
			WorkingDirectory: work,
			OutputDirectory:  out,
		},
	}
	s.logger.Info("session opened")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetConfigurationData replaces the session's recipients and global
// properties with those of a YAML or JSON batch description. Directory,
// template and resource keys are rejected.
func (s *Session) SetConfigurationData(data []byte) error {
	const op = "set configuration"

	keys, err := yamlutil.TopLevelKeys(data)
	if err != nil {
		return newError(KindConfiguration, op, "", err)
	}
	for _, k := range keys {
		for _, r := range reservedKeys {
			if k == r {
				return configErrorf(op, "illegal entry %s in batch configuration, the server sets it", k)
			}
		}
	}

	bf, err := ParseBatchFile(data, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.batch.Students = bf.Students
	s.batch.Global = bf.Global
	return nil
}

// AddResourceFile stores a resource in the working directory. Names that
// are not already safe are rejected, since templates refer to resources by
// name.
func (s *Session) AddResourceFile(f File) error {
	name, ok := fileutil.SanitizeFilename(f.Name)
	if !ok {
		return configErrorf("add resource",
			"invalid resource filename %q: names may only contain letters, digits, '-', '_' and '.', "+
				"must not start with '-' and must be shorter than 255 characters; a valid version would be %q",
			f.Name, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path, err := s.store(name, f.Content)
	if err != nil {
		return err
	}
	s.batch.Resources = append(s.batch.Resources, path)
	return nil
}

// AddTemplateFile stores a template in the working directory under a
// sanitized name, which it returns.
func (s *Session) AddTemplateFile(f File) (string, error) {
	name, ok := fileutil.SanitizeFilename(f.Name)
	if !ok {
		s.logger.Warn("template renamed", zap.String("name", f.Name), zap.String("stored_as", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path, err := s.store(name, f.Content)
	if err != nil {
		return "", err
	}
	s.batch.Templates = append(s.batch.Templates, path)
	return name, nil
}

// store writes content into the working directory. Callers hold s.mu.
func (s *Session) store(name string, content []byte) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	path := filepath.Join(s.workDir, name)
	if err := os.WriteFile(path, content, filePermissions); err != nil {
		return "", newError(KindFileAccess, "store upload", path, err)
	}
	return path, nil
}

// Check builds the batch and validates it without compiling.
func (s *Session) Check() error {
	b, err := s.build()
	if err != nil {
		return err
	}
	return b.Check()
}

// Generate compiles the batch and returns the generated files. On success
// the session is closed and its directories removed.
func (s *Session) Generate(ctx context.Context) ([]File, error) {
	b, err := s.build()
	if err != nil {
		return nil, err
	}
	if err := b.Execute(ctx); err != nil {
		return nil, err
	}
	paths, err := b.OutputFiles()
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p) // #nosec G304 -- path produced by the compiler
		if err != nil {
			return nil, newError(KindFileAccess, "read output", p, err)
		}
		files = append(files, File{Name: filepath.Base(p), Content: content})
	}

	s.logger.Info("session generated", zap.Int("files", len(files)))
	if err := s.Close(); err != nil {
		s.logger.Warn("session cleanup failed", zap.Error(err))
	}
	return files, nil
}

func (s *Session) build() (*Batch, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	bf := s.batch
	bf.Templates = append([]string(nil), s.batch.Templates...)
	bf.Resources = append([]string(nil), s.batch.Resources...)
	s.mu.Unlock()

	opts := append([]BatchOption{WithLogger(s.logger)}, s.cfg.BatchOptions...)
	return bf.Build(opts...)
}

// Close removes the working directory and, unless KeepFiles is set, the
// output directory. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if err := os.RemoveAll(s.workDir); err != nil {
		errs = append(errs, err)
	}
	if !s.cfg.KeepFiles {
		if err := os.RemoveAll(s.outDir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing session %s: %w", s.id, err)
	}
	s.logger.Info("session closed")
	return nil
}
