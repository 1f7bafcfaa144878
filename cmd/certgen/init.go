package main

import (
	"errors"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-certgen/internal/assets"
)

// initFlags holds the init command flags.
type initFlags struct {
	force     bool
	assetPath string
	quiet     bool
}

func newInitFlagSet(f *initFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.BoolVar(&f.force, "force", false, "overwrite existing files")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	return fs
}

// runInit writes the starter project files into a directory.
func runInit(args []string, env *Environment) error {
	f := &initFlags{}
	fs := newInitFlagSet(f)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { printInitUsage(env.Stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	dir := "."
	switch fs.NArg() {
	case 0:
	case 1:
		dir = fs.Arg(0)
	default:
		return fmt.Errorf("%w: expected at most one directory, got %d arguments", ErrUsage, fs.NArg())
	}

	loader, err := assets.NewAssetResolver(f.assetPath)
	if err != nil {
		return err
	}
	written, err := assets.WriteScaffold(loader, dir, f.force)
	if err != nil {
		return err
	}

	if !f.quiet {
		if loader.HasCustomLoader() {
			fmt.Fprintf(env.Stdout, "using assets from %s\n", f.assetPath)
		}
		for _, p := range written {
			fmt.Fprintf(env.Stdout, "wrote %s\n", p)
		}
		batch := filepath.Join(dir, assets.BatchFile)
		fmt.Fprintf(env.Stdout, "Next: edit %s and run 'certgen run %s'\n", batch, batch)
	}
	return nil
}
