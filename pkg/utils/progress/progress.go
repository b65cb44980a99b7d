package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shahondin1624/filescraper/pkg/utils/size"
)

var (
	SpeedSmoothingTime = 5 * time.Second
)

// Stats is a snapshot of the copy phase. The total is known up front
// because traversal materializes the candidate list before copying
// starts.
type Stats struct {
	Total       int64 // Number of candidate entries in the batch.
	Processed   int64 // Entries handled so far, successful or not.
	Copied      int64 // Files whose contents were copied.
	Failed      int64 // Entries that failed.
	BytesCopied int64 // Total file bytes written.
}

// Progress renders a single updating status line on a terminal.
type Progress struct {
	mu  *sync.Mutex
	out io.Writer

	updatePeriod time.Duration

	statsGetter func() Stats

	stats       Stats
	lastStats   Stats // lastStats before screen is updated
	lastUpdated time.Time
}

func New(out io.Writer, updatePeriod time.Duration) *Progress {
	return &Progress{
		mu:           &sync.Mutex{},
		out:          out,
		updatePeriod: updatePeriod,
	}
}

// Write implements io.Writer so Progress can be used as the logger
// output: log lines erase the current progress text first, so they do
// not interleave with the status line.
func (p *Progress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Erase current progress text, and move to line start.
	_, _ = fmt.Fprint(p.out, "\033[2K\r")

	n, err := p.out.Write(b)
	if err != nil {
		return n, err
	}

	// Make sure it ends in a newline so progress can be displayed on a new line.
	if n > 0 && b[n-1] != '\n' {
		_, _ = fmt.Fprintln(p.out)
	}

	return n, nil
}

func (p *Progress) Start(ctx context.Context) {
	startTime := time.Now()

	t := time.NewTicker(p.updatePeriod)
	defer t.Stop()

out:
	for {
		select {
		case <-ctx.Done():
			break out
		case <-t.C:
			p.mu.Lock()
			if p.statsGetter != nil {
				p.stats = p.statsGetter()
			}
			_, _ = fmt.Fprint(p.out, "\033[2K\r"+p.formatStats())
			p.mu.Unlock()
		}
	}

	_, _ = fmt.Fprintln(p.out) // Last new line.

	runTime := time.Since(startTime)

	if p.stats.Processed > 0 {
		p.mu.Lock()
		defer p.mu.Unlock()

		_, _ = fmt.Fprintf(p.out, `
Summary:
    Run time:        %s
    Entries handled: %s of %s
    Files copied:    %s
    Failures:        %s
    Bytes copied:    %s
    Transfer speed:  %s/s
`, runTime.Round(time.Millisecond).String(),
			size.FormatNumber(p.stats.Processed),
			size.FormatNumber(p.stats.Total),
			size.FormatNumber(p.stats.Copied),
			size.FormatNumber(p.stats.Failed),
			size.FormatBytes(p.stats.BytesCopied),
			size.FormatBytes(int64(float64(p.stats.BytesCopied)/runTime.Seconds())),
		)
	}
}

func (p *Progress) SetStatsGetter(f func() Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statsGetter = f
}

// lock before calling
func (p *Progress) formatStats() string {
	timeDiff := time.Since(p.lastUpdated)
	timeDiffSeconds := timeDiff.Seconds()

	percent := int64(0)
	if p.stats.Total > 0 {
		percent = p.stats.Processed * 100 / p.stats.Total
	}

	ret := fmt.Sprintf("%s/%s %s (%d%%) | %s at %s/s",
		size.FormatNumber(p.stats.Processed),
		size.FormatNumber(p.stats.Total),
		singularOrPlural(p.stats.Total, "entry", "entries"),
		percent,
		size.FormatBytes(p.stats.BytesCopied),
		size.FormatBytes(int64(float64(p.stats.BytesCopied-p.lastStats.BytesCopied)/timeDiffSeconds)),
	)

	if p.stats.Failed > 0 {
		ret += fmt.Sprintf(" | %s failed", size.FormatNumber(p.stats.Failed))
	}

	needSpeedRecalculation := timeDiff > SpeedSmoothingTime
	if needSpeedRecalculation {
		p.lastStats = p.stats
		p.lastUpdated = time.Now()
	}

	return ret
}

func singularOrPlural(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
