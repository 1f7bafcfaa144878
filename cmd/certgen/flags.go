package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for CLI usage.
var (
	ErrUsage              = errors.New("invalid usage")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrNoInput            = errors.New("no batch file specified")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidTimeout     = errors.New("invalid timeout")
	ErrConflictingFlags   = errors.New("conflicting flags")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// engineFlags override the engine section of the configuration file.
type engineFlags struct {
	workers    int
	timeout    string
	sandbox    bool
	noSandbox  bool
	sequential bool
}

// batchFlags holds all flags for the run and check commands.
type batchFlags struct {
	common  commonFlags
	engine  engineFlags
	output  string
	workDir string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addEngineFlags adds engine override flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel compilers (0 = from config or auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-certificate timeout (e.g., 30s, 2m)")
	fs.BoolVar(&f.sandbox, "sandbox", false, "compile inside a container")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "run the compiler directly")
	fs.BoolVar(&f.sequential, "sequential", false, "compile one certificate at a time")
}

// newBatchFlagSet registers the run/check flags into f.
// Shell completion reads the same FlagSet.
func newBatchFlagSet(name string, f *batchFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVarP(&f.output, "output", "o", "", "output directory (overrides the batch file)")
	fs.StringVar(&f.workDir, "work-dir", "", "working directory (overrides the batch file)")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	return fs
}

// parseBatchFlags parses run/check flags and returns positional args.
func parseBatchFlags(name string, args []string, usage func(io.Writer), stderr io.Writer) (*batchFlags, []string, error) {
	f := &batchFlags{}
	fs := newBatchFlagSet(name, f)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if f.engine.sandbox && f.engine.noSandbox {
		return nil, nil, fmt.Errorf("%w: --sandbox and --no-sandbox", ErrConflictingFlags)
	}
	if f.common.quiet && f.common.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose", ErrConflictingFlags)
	}
	return f, fs.Args(), nil
}
