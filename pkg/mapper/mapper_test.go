package mapper

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRebasesOntoTargetRoot(t *testing.T) {
	got, err := Map(
		filepath.Join("test", "bin"),
		filepath.Join("tar", "bin2"),
		filepath.Join("test", "bin", "path"),
	)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("tar", "bin2", "path"), got)
}

func TestMapPreservesNestedRemainder(t *testing.T) {
	got, err := Map("/src", "/dst", "/src/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/dst", "a", "b", "c.txt"), got)
}

func TestMapRootMapsToTargetRoot(t *testing.T) {
	got, err := Map("/src", "/dst", "/src")
	require.NoError(t, err)
	assert.Equal(t, "/dst", got)
}

func TestMapFailsOutsideRoot(t *testing.T) {
	_, err := Map("/src/deep", "/dst", "/src/other/file.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideRoot))

	_, err = Map(filepath.Join("test", "bin"), "/dst", filepath.Join("elsewhere", "path"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutsideRoot))
}
