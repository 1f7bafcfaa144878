package certgen

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can discriminate failures without
// matching on message text.
type Kind int

// Error kinds.
const (
	KindConfiguration Kind = iota + 1 // malformed or missing batch, recipient or template data
	KindTemplate                      // template syntax the scanner cannot interpret
	KindFileAccess                    // reading, writing or moving files
	KindProcessSpawn                  // unable to start a process
	KindCompilerMissing               // compiler binary not found or not executable
	KindCompilerExecution             // compiler exited with a non-zero status
	KindProcessWait                   // unable to observe the child's exit
	KindConfigurationAlreadySet       // Setup called more than once
)

// Sentinel errors, one per Kind. An *Error matches its sentinel under errors.Is.
var (
	ErrInvalidConfiguration    = errors.New("invalid configuration")
	ErrInvalidTemplate         = errors.New("invalid template")
	ErrFileAccess              = errors.New("file access failed")
	ErrProcessSpawn            = errors.New("failed to start process")
	ErrCompilerMissing         = errors.New("compiler not found")
	ErrCompilerExecution       = errors.New("compiler execution failed")
	ErrProcessWait             = errors.New("failed to wait for process")
	ErrConfigurationAlreadySet = errors.New("configuration already set")
)

// Batch and session lifecycle errors.
var (
	ErrBatchNotSucceeded = errors.New("batch has not completed successfully")
	ErrBatchRunning      = errors.New("batch is already running")
	ErrSessionClosed     = errors.New("session is closed")
)

var kindSentinels = map[Kind]error{
	KindConfiguration:           ErrInvalidConfiguration,
	KindTemplate:                ErrInvalidTemplate,
	KindFileAccess:              ErrFileAccess,
	KindProcessSpawn:            ErrProcessSpawn,
	KindCompilerMissing:         ErrCompilerMissing,
	KindCompilerExecution:       ErrCompilerExecution,
	KindProcessWait:             ErrProcessWait,
	KindConfigurationAlreadySet: ErrConfigurationAlreadySet,
}

// String returns the sentinel message for the kind.
func (k Kind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by the engine.
// Op names the failed operation, Path the file involved (if any) and Err the
// underlying cause (if any).
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Error formats as "op: kind (path): cause", omitting empty parts.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// configErrorf builds a KindConfiguration error with a formatted cause.
func configErrorf(op, format string, args ...any) *Error {
	return newError(KindConfiguration, op, "", fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
