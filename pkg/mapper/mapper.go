// Package mapper rebases source paths onto the target root.
package mapper

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrOutsideRoot is returned when a source path is not a descendant of
// the configured source root. It indicates a traversal or configuration
// inconsistency; producing a target path for such an entry would write
// outside the mirrored tree.
var ErrOutsideRoot = errors.New("source path is not under the source root")

// Map computes the target location of sourcePath by replacing its
// sourceRoot prefix with targetRoot, preserving the remainder.
// sourcePath itself maps to targetRoot.
func Map(sourceRoot, targetRoot, sourcePath string) (string, error) {
	rel, err := filepath.Rel(sourceRoot, sourcePath)
	if err != nil {
		return "", errors.Wrapf(ErrOutsideRoot, "relativize %s against %s: %v", sourcePath, sourceRoot, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideRoot, "%s escapes %s", sourcePath, sourceRoot)
	}

	return filepath.Join(targetRoot, rel), nil
}
