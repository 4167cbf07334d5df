package stream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanner_Scan_AppliesDefaultExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "node_modules/pkg/index.go", "package pkg")
	writeFile(t, dir, "dist/out.go", "package out")
	writeFile(t, dir, "util_test.go", "package main")

	s := NewScanner()
	files, _, err := s.Scan(dir, ScanOptions{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go"}, files)
}

func TestScanner_Scan_IncludeTestsOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "main_test.go", "package main")

	s := NewScanner()
	files, _, err := s.Scan(dir, ScanOptions{Extensions: []string{".go"}, IncludeTests: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "main_test.go"}, files)
}

func TestScanner_Scan_RespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "vendor/\n")
	writeFile(t, dir, "main.go", "package main")
	writeFile(t, dir, "vendor/dep.go", "package dep")

	s := NewScanner()
	files, _, err := s.Scan(dir, ScanOptions{Extensions: []string{".go"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go"}, files)
}

func TestBatches_DividesIntoFixedSizeGroups(t *testing.T) {
	files := make([]string, 85)
	for i := range files {
		files[i] = "f"
	}
	batches := Batches(files, 40)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 40)
	assert.Len(t, batches[1], 40)
	assert.Len(t, batches[2], 5)
}

func TestParseBatchMessage_RoundTrips(t *testing.T) {
	values := map[string]any{
		"job_id":        "8fd5b9aa-6e2a-4e2e-9f1a-7c0a6d8f8c9b",
		"repository":    "acme/widgets",
		"batch_number":  "2",
		"total_batches": "4",
		"total_files":   "80",
		"files":         "a.go,b.go",
	}

	msg, err := parseBatchMessage(values)
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", msg.Repository)
	assert.Equal(t, 2, msg.BatchNumber)
	assert.Equal(t, 4, msg.TotalBatches)
	assert.Equal(t, []string{"a.go", "b.go"}, msg.Files)
}

func TestParseBatchMessage_RejectsMalformedJobID(t *testing.T) {
	_, err := parseBatchMessage(map[string]any{"job_id": "not-a-uuid", "batch_number": "1", "total_batches": "1"})
	require.Error(t, err)
}
