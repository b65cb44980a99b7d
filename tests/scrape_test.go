package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahondin1624/filescraper/pkg/cmd/root"
)

// Test helper functions

func writeFile(t *testing.T, path, content string) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	require.NoError(t, err)
	err = os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
}

func readFile(t *testing.T, path string) string {
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runScraper(args ...string) ([]byte, error) {
	// A fresh command instance rebinds all flags to their defaults.
	cmd := root.NewCommand()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	cmd.SetArgs(args)

	err := cmd.Execute()

	combined := append(stdout.Bytes(), stderr.Bytes()...)

	return combined, err
}

// Test cases

func TestScrape_MirrorsWholeTree(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "top.txt"), "top content")
	writeFile(t, filepath.Join(sourceDir, "level1", "mid.txt"), "mid content")
	writeFile(t, filepath.Join(sourceDir, "level1", "level2", "deep.txt"), "deep content")

	output, err := runScraper(sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.Equal(t, "top content", readFile(t, filepath.Join(targetDir, "top.txt")))
	assert.Equal(t, "mid content", readFile(t, filepath.Join(targetDir, "level1", "mid.txt")))
	assert.Equal(t, "deep content", readFile(t, filepath.Join(targetDir, "level1", "level2", "deep.txt")))

	assert.Contains(t, string(output), "Whole operation took")
}

func TestScrape_ExcludeExtensions(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "photo.jpg"), "jpg")
	writeFile(t, filepath.Join(sourceDir, "notes.txt"), "txt")
	writeFile(t, filepath.Join(sourceDir, "cache.tmp"), "tmp")

	output, err := runScraper("--exclude-ext", "jpg,tmp", sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.True(t, fileExists(filepath.Join(targetDir, "notes.txt")))
	assert.False(t, fileExists(filepath.Join(targetDir, "photo.jpg")))
	assert.False(t, fileExists(filepath.Join(targetDir, "cache.tmp")))
}

func TestScrape_IncludeExtensionsWithAndWithoutDot(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "a.jpg"), "a")
	writeFile(t, filepath.Join(sourceDir, "b.png"), "b")
	writeFile(t, filepath.Join(sourceDir, "c.txt"), "c")
	writeFile(t, filepath.Join(sourceDir, "noext"), "n")

	output, err := runScraper("--include-ext", ".jpg,png", sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.True(t, fileExists(filepath.Join(targetDir, "a.jpg")))
	assert.True(t, fileExists(filepath.Join(targetDir, "b.png")))
	assert.False(t, fileExists(filepath.Join(targetDir, "c.txt")))
	// Extensionless files never match a non-empty include list.
	assert.False(t, fileExists(filepath.Join(targetDir, "noext")))
}

func TestScrape_ExcludeFolderPrunesSubtree(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "src", "main.go"), "code")
	writeFile(t, filepath.Join(sourceDir, "bin", "tool"), "bin")
	writeFile(t, filepath.Join(sourceDir, "bin", "nested", "deep.txt"), "deep")

	output, err := runScraper("--exclude-folder", "bin", sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.True(t, fileExists(filepath.Join(targetDir, "src", "main.go")))
	assert.False(t, fileExists(filepath.Join(targetDir, "bin")))
	assert.False(t, fileExists(filepath.Join(targetDir, "bin", "nested", "deep.txt")))
}

func TestScrape_GlobExclude(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "app.log"), "log")
	writeFile(t, filepath.Join(sourceDir, "sub", "trace.log"), "log")
	writeFile(t, filepath.Join(sourceDir, "sub", "keep.txt"), "keep")

	output, err := runScraper("--exclude", "**/*.log", sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.True(t, fileExists(filepath.Join(targetDir, "sub", "keep.txt")))
	assert.False(t, fileExists(filepath.Join(targetDir, "app.log")))
	assert.False(t, fileExists(filepath.Join(targetDir, "sub", "trace.log")))
}

func TestScrape_ConflictingFilterFlags(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	_, err := runScraper("--include-ext", "jpg", "--exclude-ext", "png", sourceDir, targetDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestScrape_MissingSourceFailsFast(t *testing.T) {
	targetDir := filepath.Join(t.TempDir(), "target")

	_, err := runScraper(filepath.Join(t.TempDir(), "does-not-exist"), targetDir)
	require.Error(t, err)
	assert.False(t, fileExists(targetDir))
}

func TestScrape_SourceFileFailsFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.txt"), "x")

	_, err := runScraper(filepath.Join(dir, "plain.txt"), filepath.Join(t.TempDir(), "target"))
	require.Error(t, err)
}

func TestScrape_RerunOverwrites(t *testing.T) {
	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "file.txt"), "first")

	output, err := runScraper(sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	writeFile(t, filepath.Join(sourceDir, "file.txt"), "second")

	output, err = runScraper(sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.Equal(t, "second", readFile(t, filepath.Join(targetDir, "file.txt")))
}

func TestScrape_PartialFailureStillExitsZero(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	sourceDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(sourceDir, "ok.txt"), "ok")
	writeFile(t, filepath.Join(sourceDir, "locked.txt"), "locked")
	require.NoError(t, os.Chmod(filepath.Join(sourceDir, "locked.txt"), 0000))
	t.Cleanup(func() {
		_ = os.Chmod(filepath.Join(sourceDir, "locked.txt"), 0644)
	})

	output, err := runScraper(sourceDir, targetDir)
	require.NoError(t, err, "partial failure must not fail the process: %s", string(output))

	assert.Equal(t, "ok", readFile(t, filepath.Join(targetDir, "ok.txt")))
	assert.False(t, fileExists(filepath.Join(targetDir, "locked.txt")))
}

func TestScrape_FollowSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}

	sourceDir := t.TempDir()
	otherDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "target")

	writeFile(t, filepath.Join(otherDir, "real", "linked.txt"), "linked content")
	require.NoError(t, os.Symlink(filepath.Join(otherDir, "real"), filepath.Join(sourceDir, "link")))

	output, err := runScraper("--follow-symlinks", sourceDir, targetDir)
	require.NoError(t, err, "filescraper failed: %s", string(output))

	assert.Equal(t, "linked content", readFile(t, filepath.Join(targetDir, "link", "linked.txt")))
}
