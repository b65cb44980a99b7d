package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/shahondin1624/filescraper/pkg/config"
)

// Scanner walks the source root sequentially and materializes the list
// of entries eligible for copying. The list is finite and complete
// before the copy phase starts, so progress reporting knows the total
// up front.
//
// Unreadable entries are skipped with a diagnostic; a single bad entry
// never aborts the scan. Excluded directories are pruned, which is the
// single source of truth for folder exclusion: nothing below a pruned
// directory is ever tested.
type Scanner struct {
	conf   config.Config
	logger zerolog.Logger

	// visited holds resolved directory paths when following symlinks,
	// to break link cycles.
	visited map[string]struct{}
}

func New(conf config.Config, logger zerolog.Logger) *Scanner {
	return &Scanner{
		conf:    conf,
		logger:  logger.With().Str("component", "scanner").Logger(),
		visited: make(map[string]struct{}),
	}
}

func (s *Scanner) Scan(ctx context.Context) ([]Entry, error) {
	root := s.conf.SourceRoot

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat source root %s", root)
	}

	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		s.visited[resolved] = struct{}{}
	}

	if !s.conf.Rules.ShouldCopy(root, true) {
		s.logger.Debug().Str("path", root).Msg("Source root excluded by folder filter, nothing to do")
		return nil, nil
	}

	entries := []Entry{{SourcePath: root, IsDir: true, FileInfo: info}}
	if err := s.walkDir(ctx, root, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Scanner) walkDir(ctx context.Context, dir string, out *[]Entry) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Debug().Str("path", dir).Err(err).Msg("Could not read directory, skipping")
		return nil
	}

	for _, child := range children {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.visit(ctx, filepath.Join(dir, child.Name()), child, out); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) visit(ctx context.Context, path string, d fs.DirEntry, out *[]Entry) error {
	info, err := d.Info()
	if err != nil {
		s.logger.Debug().Str("path", path).Err(err).Msg("Could not access entry, skipping")
		return nil
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return s.visitSymlink(ctx, path, out)
	}

	if info.IsDir() {
		return s.visitDir(ctx, path, info, out)
	}

	if !info.Mode().IsRegular() {
		s.logger.Warn().Str("path", path).Str("type", info.Mode().String()).Msg("Ignoring unsupported file type")
		return nil
	}

	s.visitFile(path, info, out)
	return nil
}

func (s *Scanner) visitDir(ctx context.Context, path string, info os.FileInfo, out *[]Entry) error {
	if !s.included(path, true) {
		// Pruned: the subtree is never descended into.
		return nil
	}

	*out = append(*out, Entry{SourcePath: path, IsDir: true, FileInfo: info})
	return s.walkDir(ctx, path, out)
}

func (s *Scanner) visitFile(path string, info os.FileInfo, out *[]Entry) {
	if !s.included(path, false) {
		return
	}

	*out = append(*out, Entry{SourcePath: path, FileInfo: info})
}

func (s *Scanner) visitSymlink(ctx context.Context, path string, out *[]Entry) error {
	if !s.conf.FollowSymlinks {
		// Leaf entry: the link itself is recreated at the target.
		if !s.included(path, false) {
			return nil
		}

		target, err := os.Readlink(path)
		if err != nil {
			s.logger.Debug().Str("path", path).Err(err).Msg("Could not read symlink, skipping")
			return nil
		}

		info, err := os.Lstat(path)
		if err != nil {
			s.logger.Debug().Str("path", path).Err(err).Msg("Could not access symlink, skipping")
			return nil
		}

		*out = append(*out, Entry{
			SourcePath:    path,
			FileInfo:      info,
			IsSymlink:     true,
			SymlinkTarget: target,
		})
		return nil
	}

	// Dereference. Broken links are skipped, not fatal.
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Debug().Str("path", path).Err(err).Msg("Could not resolve symlink, skipping")
		return nil
	}

	if info.IsDir() {
		if !s.included(path, true) {
			return nil
		}

		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			s.logger.Debug().Str("path", path).Err(err).Msg("Could not resolve symlink, skipping")
			return nil
		}
		if _, seen := s.visited[resolved]; seen {
			s.logger.Debug().Str("path", path).Str("resolved", resolved).Msg("Symlink cycle detected, skipping")
			return nil
		}
		s.visited[resolved] = struct{}{}

		*out = append(*out, Entry{SourcePath: path, IsDir: true, FileInfo: info})
		return s.walkDir(ctx, path, out)
	}

	if !info.Mode().IsRegular() {
		s.logger.Warn().Str("path", path).Str("type", info.Mode().String()).Msg("Ignoring unsupported symlink target type")
		return nil
	}

	s.visitFile(path, info, out)
	return nil
}

// included applies the filter rules and glob patterns to a single
// entry, logging the skip decision.
func (s *Scanner) included(path string, isDir bool) bool {
	if !s.conf.Rules.ShouldCopy(path, isDir) {
		s.logger.Debug().Str("path", path).Msg("Skipped copying, excluded by filter")
		return false
	}

	if len(s.conf.Rules.Patterns) > 0 {
		rel, err := filepath.Rel(s.conf.SourceRoot, path)
		if err == nil && s.conf.Rules.MatchesPattern(rel) {
			s.logger.Debug().Str("path", path).Msg("Skipped copying, excluded by pattern")
			return false
		}
	}

	return true
}
