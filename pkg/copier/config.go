package copier

import (
	"runtime"

	"github.com/pkg/errors"
)

type Config struct {
	// SourceRoot and TargetRoot are the roots used for rebasing each
	// candidate's path.
	SourceRoot string
	TargetRoot string

	// Workers is the size of the copy pool. Zero means one worker per
	// available CPU.
	Workers int

	// BlockSize is the per-worker copy buffer size in bytes.
	BlockSize int
}

func (c *Config) Validate() error {
	if c.SourceRoot == "" {
		return errors.New("no source root provided")
	}
	if c.TargetRoot == "" {
		return errors.New("no target root provided")
	}
	if c.Workers < 0 {
		return errors.New("Workers must not be negative")
	}
	if c.BlockSize <= 0 {
		return errors.New("BlockSize must be greater than 0")
	}
	return nil
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
