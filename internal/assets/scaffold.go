package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scaffold file names, in the order WriteScaffold writes them.
const (
	StyleFile    = "certificate-generator.sty"
	TemplateFile = "certificate.tex"
	BatchFile    = "batch.yaml"
	ConfigFile   = "certgen.yaml"
)

// ScaffoldFiles lists every file of a new project.
var ScaffoldFiles = []string{StyleFile, TemplateFile, BatchFile, ConfigFile}

// WriteScaffold writes every scaffold file into dir, creating it if needed,
// and returns the written paths. Existing files are kept and reported with
// ErrAssetExists unless force is set; nothing is written in that case.
func WriteScaffold(l AssetLoader, dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	contents := make([][]byte, len(ScaffoldFiles))
	for i, name := range ScaffoldFiles {
		dst := filepath.Join(dir, name)
		if !force {
			if _, err := os.Stat(dst); err == nil {
				return nil, fmt.Errorf("%w: %s (use --force to overwrite)", ErrAssetExists, dst)
			}
		}
		content, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		contents[i] = content
	}

	written := make([]string, 0, len(ScaffoldFiles))
	for i, name := range ScaffoldFiles {
		dst := filepath.Join(dir, name)
		if err := os.WriteFile(dst, contents[i], 0o644); err != nil { // #nosec G306 -- project files are meant to be shared
			return written, fmt.Errorf("writing %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}
