package root

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/shahondin1624/filescraper/pkg/config"
	"github.com/shahondin1624/filescraper/pkg/copier"
	"github.com/shahondin1624/filescraper/pkg/filter"
	"github.com/shahondin1624/filescraper/pkg/scanner"
	"github.com/shahondin1624/filescraper/pkg/utils/log"
	"github.com/shahondin1624/filescraper/pkg/utils/progress"
	"github.com/shahondin1624/filescraper/pkg/utils/size"
)

func buildRules() (filter.Rules, error) {
	if len(includeExtensions) > 0 && len(excludeExtensions) > 0 {
		return filter.Rules{}, errors.New("--include-ext and --exclude-ext are mutually exclusive")
	}
	if len(includeFolders) > 0 && len(excludeFolders) > 0 {
		return filter.Rules{}, errors.New("--include-folder and --exclude-folder are mutually exclusive")
	}

	extensions := filter.NewExtensionSet(filter.Excluding, excludeExtensions)
	if len(includeExtensions) > 0 {
		extensions = filter.NewExtensionSet(filter.Including, includeExtensions)
	}

	folders := filter.NewSet(filter.Excluding, excludeFolders)
	if len(includeFolders) > 0 {
		folders = filter.NewSet(filter.Including, includeFolders)
	}

	return filter.Rules{
		Extensions: extensions,
		Folders:    folders,
		Patterns:   excludePatterns,
	}, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	var logger zerolog.Logger
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rules, err := buildRules()
	if err != nil {
		return err
	}

	conf := config.Config{
		SourceRoot:     args[0],
		TargetRoot:     args[1],
		Rules:          rules,
		FollowSymlinks: followSymlinks,
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(conf.TargetRoot, 0755); err != nil {
		return errors.Wrapf(err, "failed to create target root %s", conf.TargetRoot)
	}

	var progressBar *progress.Progress
	progressDone := make(chan struct{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		progressBar = progress.New(os.Stderr, 100*time.Millisecond)

		// So we can print out summary.
		defer func() {
			cancel()
			<-progressDone
		}()

		go func() {
			defer close(progressDone)
			progressBar.Start(ctx)
		}()
	}

	if progressBar == nil {
		logger = log.GetLogger(os.Stderr, false)
	} else {
		logger = log.GetLogger(progressBar, true)
	}

	s := scanner.New(conf, logger)
	entries, err := s.Scan(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to scan source tree")
	}

	logger.Info().Int("count", len(entries)).Msg("Found files and directories eligible for copying")

	copierConfig := copier.Config{
		SourceRoot: conf.SourceRoot,
		TargetRoot: conf.TargetRoot,
		Workers:    concurrency,
		BlockSize:  int(size.MustParse(blockSize)),
	}
	if err := copierConfig.Validate(); err != nil {
		return err
	}

	var transferRateLimiter *rate.Limiter
	if limit := size.MustParse(transferRateLimitStr); limit > 0 {
		// Burst covers one block per worker so all workers can make progress.
		transferRateLimiter = rate.NewLimiter(rate.Limit(limit), copierConfig.BlockSize*runtime.GOMAXPROCS(0))
	}

	c := copier.New(copierConfig, logger)
	if progressBar != nil {
		progressBar.SetStatsGetter(c.Stats)
	}

	summary, err := c.Run(ctx, entries, transferRateLimiter)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		logger.Warn().Int64("failed", summary.Failed).Int64("total", summary.Total).
			Msg("Some entries could not be copied")
	}
	logger.Info().Int64("copied", summary.Copied).
		Str("bytes", size.FormatBytes(summary.BytesCopied)).
		Dur("elapsed", summary.Elapsed).
		Msg("Finished copying all files")

	printElapsed(cmd.OutOrStdout(), summary.Elapsed)

	// Partial failure is not a process failure.
	return nil
}

// printElapsed writes the final human-readable timing line. Colored
// output is only enabled on linux.
func printElapsed(out io.Writer, elapsed time.Duration) {
	msg := fmt.Sprintf("Whole operation took %s", elapsed.Round(time.Millisecond))
	if runtime.GOOS == "linux" {
		_, _ = color.New(color.FgGreen).Fprintln(out, msg)
		return
	}
	_, _ = fmt.Fprintln(out, msg)
}
