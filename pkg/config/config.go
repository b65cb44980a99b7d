package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/shahondin1624/filescraper/pkg/filter"
)

var (
	ErrSourceNotDirectory = errors.New("source root is not a directory")
	ErrTargetInsideSource = errors.New("target root must not be inside the source root")
)

// Config describes a single scrape run. It is built once by the CLI,
// validated before traversal starts, and shared read-only across all
// copy workers afterwards.
type Config struct {
	// SourceRoot is the directory scraped recursively.
	SourceRoot string
	// TargetRoot is the directory the mirrored tree is written to.
	// It is created if it does not exist.
	TargetRoot string

	Rules filter.Rules

	// FollowSymlinks descends into symlinked directories and copies
	// symlinked file contents instead of treating links as leaves.
	FollowSymlinks bool
}

// Validate fails fast on configuration problems that would make the
// whole run meaningless. Per-item conditions are left to the scanner
// and copier.
func (c Config) Validate() error {
	stat, err := os.Stat(c.SourceRoot)
	if err != nil {
		return errors.Wrapf(err, "failed to stat source root %s", c.SourceRoot)
	}
	if !stat.IsDir() {
		return errors.Wrapf(ErrSourceNotDirectory, "source %s", c.SourceRoot)
	}

	if c.TargetRoot == "" {
		return errors.New("no target root provided")
	}

	src, err := filepath.Abs(c.SourceRoot)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve source root %s", c.SourceRoot)
	}
	dst, err := filepath.Abs(c.TargetRoot)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve target root %s", c.TargetRoot)
	}

	// Copying a tree into itself would scrape its own output.
	if dst == src || strings.HasPrefix(dst, src+string(filepath.Separator)) {
		return errors.Wrapf(ErrTargetInsideSource, "target %s, source %s", c.TargetRoot, c.SourceRoot)
	}

	return nil
}
