package copier

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/detailyang/go-fallocate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shahondin1624/filescraper/pkg/mapper"
	"github.com/shahondin1624/filescraper/pkg/scanner"
	"github.com/shahondin1624/filescraper/pkg/utils/cp"
	"github.com/shahondin1624/filescraper/pkg/utils/progress"
	"github.com/shahondin1624/filescraper/pkg/utils/size"
)

// Copier copies a batch of candidate entries in parallel. Failures are
// isolated per entry: a failed item is logged and counted, the rest of
// the batch keeps going. The pool only stops early if the context is
// cancelled.
type Copier struct {
	conf   Config
	logger zerolog.Logger

	// Stats
	total       atomic.Int64
	processed   atomic.Int64
	copied      atomic.Int64
	failed      atomic.Int64
	bytesCopied atomic.Int64
}

// Summary aggregates a finished batch for reporting. It never drives
// control flow.
type Summary struct {
	Total       int64
	Copied      int64
	Failed      int64
	BytesCopied int64
	Elapsed     time.Duration
}

func New(conf Config, logger zerolog.Logger) *Copier {
	if err := conf.Validate(); err != nil {
		panic(err)
	}

	return &Copier{
		conf:   conf,
		logger: logger.With().Str("component", "copier").Logger(),
	}
}

func (c *Copier) Stats() progress.Stats {
	return progress.Stats{
		Total:       c.total.Load(),
		Processed:   c.processed.Load(),
		Copied:      c.copied.Load(),
		Failed:      c.failed.Load(),
		BytesCopied: c.bytesCopied.Load(),
	}
}

// Run copies all entries and returns the batch summary with the total
// wall-clock elapsed time. rateLimiter can be nil, in which case no
// rate limiting is applied.
func (c *Copier) Run(ctx context.Context, entries []scanner.Entry, rateLimiter *rate.Limiter) (Summary, error) {
	startTime := time.Now()
	c.total.Store(int64(len(entries)))

	jobs := make(chan scanner.Entry)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(jobs)
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- entry:
			}
		}
		return nil
	})

	for i := 0; i < c.conf.workers(); i++ {
		eg.Go(func() error {
			// Local copy buffer, avoid reallocations.
			copyBuffer := make([]byte, c.conf.BlockSize)

			for entry := range jobs {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				c.process(ctx, entry, copyBuffer, rateLimiter)
			}

			return nil
		})
	}

	err := eg.Wait()

	return Summary{
		Total:       c.total.Load(),
		Copied:      c.copied.Load(),
		Failed:      c.failed.Load(),
		BytesCopied: c.bytesCopied.Load(),
		Elapsed:     time.Since(startTime),
	}, err
}

// process handles a single entry. It never returns an error: every
// failure is recorded against the entry and the batch carries on.
func (c *Copier) process(ctx context.Context, entry scanner.Entry, copyBuffer []byte, rateLimiter *rate.Limiter) {
	// Exactly one bump per candidate, success or failure.
	defer c.processed.Add(1)

	targetPath, err := mapper.Map(c.conf.SourceRoot, c.conf.TargetRoot, entry.SourcePath)
	if err != nil {
		c.fail(entry, err, "Failed to map source path to target")
		return
	}

	if entry.IsDir {
		// Directories are only materialized, no data is copied.
		// MkdirAll is idempotent, so races with workers creating
		// parents for files below are harmless.
		if err := os.MkdirAll(targetPath, entry.FileInfo.Mode().Perm()); err != nil {
			c.fail(entry, err, "Failed to create target directory")
			return
		}
		c.logger.Trace().Str("path", targetPath).Msg("Ensured directory")
		return
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		c.fail(entry, err, "Failed to create target parent directories")
		return
	}

	if entry.IsSymlink {
		if err := c.recreateSymlink(entry, targetPath); err != nil {
			c.fail(entry, err, "Failed to recreate symlink")
			return
		}
		c.copied.Add(1)
		c.logger.Debug().Str("source", entry.SourcePath).Str("target", entry.SymlinkTarget).
			Str("destination", targetPath).Msg("Recreated symlink")
		return
	}

	if err := c.copyFile(ctx, entry, targetPath, copyBuffer, rateLimiter); err != nil {
		c.fail(entry, err, "Failed to copy file")
		return
	}

	c.copied.Add(1)
	c.logger.Debug().
		Str("source", entry.SourcePath).
		Str("destination", targetPath).
		Int64("size", entry.FileInfo.Size()).
		Str("sizeHuman", size.FormatBytes(entry.FileInfo.Size())).
		Msg("Copied file")
}

func (c *Copier) fail(entry scanner.Entry, err error, msg string) {
	c.failed.Add(1)
	c.logger.Warn().Str("path", entry.SourcePath).Err(err).Msg(msg)
}

func (c *Copier) trackBytes(written, _ int64) {
	c.bytesCopied.Add(written)
}

func (c *Copier) copyFile(
	ctx context.Context,
	entry scanner.Entry,
	targetPath string,
	copyBuffer []byte,
	rateLimiter *rate.Limiter,
) error {
	srcFD, err := os.Open(entry.SourcePath)
	if err != nil {
		return errors.Wrap(err, "failed to open for reading")
	}
	defer srcFD.Close()

	// Re-runs overwrite whatever is already there.
	dstFD, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.FileInfo.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "failed to open for writing")
	}

	fileSize := entry.FileInfo.Size()
	if fileSize > 0 {
		if err := fallocate.Fallocate(dstFD, 0, fileSize); err != nil {
			// fallocate can fail on some filesystems; the copy still works.
			c.logger.Trace().Str("path", targetPath).Err(err).Msg("Could not preallocate disk space, continuing anyway")
		}
	}

	_, err = cp.Copy(ctx, dstFD, srcFD,
		cp.WithBuffer(copyBuffer),
		cp.WithRateLimiter(rateLimiter),
		cp.WithProgressTracker(c.trackBytes),
	)
	if err != nil {
		_ = dstFD.Close()
		return err
	}

	if err := dstFD.Close(); err != nil {
		return errors.Wrap(err, "failed to close destination")
	}

	return nil
}

func (c *Copier) recreateSymlink(entry scanner.Entry, targetPath string) error {
	// Replace a stale link from a previous run.
	if _, err := os.Lstat(targetPath); err == nil {
		if err := os.Remove(targetPath); err != nil {
			return errors.Wrap(err, "failed to remove existing target")
		}
	}

	if err := os.Symlink(entry.SymlinkTarget, targetPath); err != nil {
		return errors.Wrapf(err, "failed to create symlink %s -> %s", targetPath, entry.SymlinkTarget)
	}

	return nil
}
