package certgen

import (
	"path/filepath"

	"github.com/alnah/go-certgen/internal/fileutil"
)

// StageResources copies each resource into workDir under its base name.
// A resource that already is the destination file is left alone.
func StageResources(workDir string, paths []string) error {
	for _, src := range paths {
		dst := filepath.Join(workDir, filepath.Base(src))
		if fileutil.SameFile(src, dst) {
			continue
		}
		if err := fileutil.CopyFile(src, dst); err != nil {
			return newError(KindFileAccess, "stage resource", src, err)
		}
	}
	return nil
}
