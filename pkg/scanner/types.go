package scanner

import (
	"os"
)

// Entry is a filesystem entry that passed filtering and is queued for
// the copy phase. It is produced once during traversal and consumed
// exactly once by a copy worker.
type Entry struct {
	// SourcePath is the path of the entry under the source root.
	SourcePath string

	IsDir bool

	FileInfo os.FileInfo

	// IsSymlink marks links that are not being followed; they are
	// recreated at the target instead of having contents copied.
	IsSymlink bool

	SymlinkTarget string
}
