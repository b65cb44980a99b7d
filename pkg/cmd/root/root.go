package root

import (
	"github.com/spf13/cobra"

	"github.com/shahondin1624/filescraper/pkg/utils/log"
)

var (
	includeExtensions []string
	excludeExtensions []string
	includeFolders    []string
	excludeFolders    []string
	excludePatterns   []string

	followSymlinks bool
	concurrency    int
	blockSize      = "256k"

	transferRateLimitStr string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filescraper [flags] SOURCE TARGET",
		Short: "Recursively scrape files from a source tree into a mirrored target tree",
		Long: `
Walks SOURCE recursively, filters entries by file extension and folder
name, and copies everything that passes into TARGET, preserving the
relative directory structure.

Filters come in two flavors per dimension:
  --exclude-ext / --exclude-folder  copy everything except the listed values
  --include-ext / --include-folder  copy only the listed values
The include and exclude flavors of one dimension are mutually
exclusive. Extensions may be given with or without the leading dot.
Folder names are matched case-sensitively against every path segment;
an excluded folder prunes its whole subtree.

Copying is best-effort: a file that cannot be copied is logged and
counted, the rest of the batch carries on, and the process still
exits 0.


`,
		Args:         cobra.ExactArgs(2),
		RunE:         runScrape,
		SilenceUsage: true,
	}

	f := cmd.Flags()

	// Filters
	f.StringSliceVar(&includeExtensions, "include-ext", nil, "Only copy files with these extensions (e.g., jpg,png)")
	f.StringSliceVar(&excludeExtensions, "exclude-ext", nil, "Copy all files except those with these extensions")
	f.StringSliceVar(&includeFolders, "include-folder", nil, "Only copy directories whose path contains one of these folder names")
	f.StringSliceVar(&excludeFolders, "exclude-folder", nil, "Skip directories whose path contains one of these folder names")
	f.StringSliceVar(&excludePatterns, "exclude", nil, "Skip entries matching these glob patterns, relative to SOURCE (e.g., '**/*.log')")

	// Traversal
	f.BoolVar(&followSymlinks, "follow-symlinks", false, "Copy files pointed to by symlinks instead of the symlinks themselves")

	// Copy engine
	f.IntVarP(&concurrency, "concurrency", "c", 0, "Number of parallel copy workers (default: number of CPUs)")
	f.StringVar(&blockSize, "block-size", blockSize, "Internal input and output block size (e.g., 32k, 1m)")
	f.StringVar(&transferRateLimitStr, "transfer-rate-limit", "", "Limit bytes copied per second (e.g., 1m, 500k)")

	pf := cmd.PersistentFlags()
	pf.CountVarP(&log.Verbosity, "verbose", "v", "Enable verbose output (-v for debug, -vv for trace)")

	return cmd
}
