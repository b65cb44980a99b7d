package filter

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Mode selects how a Set interprets membership.
type Mode int

const (
	// Excluding permits everything except the listed values.
	Excluding Mode = iota
	// Including permits only the listed values.
	Including
)

func (m Mode) String() string {
	if m == Including {
		return "including"
	}
	return "excluding"
}

// Set is a filter over a single feature of a filesystem entry (its
// extension, or one of its folder names). An empty Excluding set
// permits everything; an empty Including set permits nothing.
type Set struct {
	mode   Mode
	values map[string]struct{}
}

func NewSet(mode Mode, values []string) Set {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return Set{mode: mode, values: set}
}

// NewExtensionSet builds a Set whose values are normalized file
// extensions: each value is prefixed with a dot if it does not already
// carry one, so "jpg" and ".jpg" store the same value.
func NewExtensionSet(mode Mode, extensions []string) Set {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, NormalizeExtension(ext))
	}
	return NewSet(mode, normalized)
}

// NormalizeExtension ensures a single leading dot. It is idempotent.
func NormalizeExtension(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

func (s Set) Mode() Mode {
	return s.mode
}

func (s Set) Empty() bool {
	return len(s.values) == 0
}

func (s Set) contains(value string) bool {
	_, ok := s.values[value]
	return ok
}

// PermitsExtension reports whether a file with the given extension
// passes the filter. The extension must already carry its leading dot
// ("" for files without one), as produced by filepath.Ext.
func (s Set) PermitsExtension(ext string) bool {
	if s.mode == Including {
		return s.contains(ext)
	}
	return !s.contains(ext)
}

// PermitsFolders reports whether a directory path passes the filter.
// A folder name matches when any non-empty path segment equals it,
// case-sensitively. Under Excluding, no segment may match; under
// Including, at least one must.
func (s Set) PermitsFolders(path string) bool {
	if s.mode == Including {
		return anySegmentIn(path, s)
	}
	return !anySegmentIn(path, s)
}

func anySegmentIn(path string, s Set) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == "" {
			continue
		}
		if s.contains(segment) {
			return true
		}
	}
	return false
}

// Rules bundles the filter dimensions applied during traversal.
// The zero value (empty Excluding sets, no patterns) permits everything.
type Rules struct {
	Extensions Set
	Folders    Set

	// Patterns are doublestar globs matched against the entry path
	// relative to the source root; a match excludes the entry.
	Patterns []string
}

// ShouldCopy decides whether a filesystem entry is eligible for
// copying. Directories are judged by the folder set, files by the
// extension set of their base name. An entry whose base name cannot
// be determined is excluded.
func (r Rules) ShouldCopy(path string, isDir bool) bool {
	if isDir {
		return r.Folders.PermitsFolders(path)
	}

	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return false
	}

	return r.Extensions.PermitsExtension(filepath.Ext(base))
}

// MatchesPattern reports whether relPath matches any configured glob
// pattern. Invalid patterns never match.
func (r Rules) MatchesPattern(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range r.Patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}
	}
	return false
}
