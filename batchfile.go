package certgen

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/yamlutil"
)

// BatchFile is a batch description as read from YAML or JSON.
type BatchFile struct {
	Students         []Recipient      `yaml:"students"`
	Templates        []string         `yaml:"templates"`
	Resources        []string         `yaml:"resources,omitempty"`
	Global           GlobalProperties `yaml:"global,omitempty"`
	WorkingDirectory string           `yaml:"workingDirectory,omitempty"`
	OutputDirectory  string           `yaml:"outputDirectory,omitempty"`
}

// LoadBatchFile reads a batch description. Relative paths in it are
// resolved against the file's directory.
func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- batch file path is user-provided
	if err != nil {
		return nil, newError(KindFileAccess, "read batch file", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(KindFileAccess, "read batch file", path, err)
	}
	bf, err := ParseBatchFile(data, filepath.Dir(abs))
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = path
		}
		return nil, err
	}
	return bf, nil
}

// ParseBatchFile decodes a batch description, rejecting unknown keys.
// Relative paths are resolved against baseDir unless it is empty.
func ParseBatchFile(data []byte, baseDir string) (*BatchFile, error) {
	const op = "parse batch file"

	var bf BatchFile
	if err := yamlutil.UnmarshalStrict(data, &bf); err != nil {
		return nil, newError(KindConfiguration, op, "", err)
	}
	if baseDir != "" {
		for i, p := range bf.Templates {
			bf.Templates[i] = resolvePath(baseDir, p)
		}
		for i, p := range bf.Resources {
			bf.Resources[i] = resolvePath(baseDir, p)
		}
		if bf.WorkingDirectory != "" {
			bf.WorkingDirectory = resolvePath(baseDir, bf.WorkingDirectory)
		}
		if bf.OutputDirectory != "" {
			bf.OutputDirectory = resolvePath(baseDir, bf.OutputDirectory)
		}
	}
	return &bf, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Build creates both directories, stages resources into the working
// directory, loads the templates and returns the Batch.
func (bf *BatchFile) Build(opts ...BatchOption) (*Batch, error) {
	const op = "build batch"

	if len(bf.Templates) == 0 {
		return nil, configErrorf(op, "no templates listed")
	}
	if bf.WorkingDirectory == "" {
		return nil, configErrorf(op, "no working directory")
	}
	if bf.OutputDirectory == "" {
		return nil, configErrorf(op, "no output directory")
	}

	work, err := fileutil.EnsureDir(bf.WorkingDirectory, dirPermissions)
	if err != nil {
		return nil, newError(KindFileAccess, "create directory", bf.WorkingDirectory, err)
	}
	out, err := fileutil.EnsureDir(bf.OutputDirectory, dirPermissions)
	if err != nil {
		return nil, newError(KindFileAccess, "create directory", bf.OutputDirectory, err)
	}

	if err := StageResources(work, bf.Resources); err != nil {
		return nil, err
	}

	templates := make([]*Template, 0, len(bf.Templates))
	for _, p := range bf.Templates {
		t, err := LoadTemplate(p)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}

	opts = append([]BatchOption{WithGlobalProperties(bf.Global)}, opts...)
	return NewBatch(bf.Students, templates, work, out, opts...)
}
