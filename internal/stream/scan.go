// Package stream implements C7/C8: the durable producer/consumer pipeline
// for batch indexing a repository, per spec §4.6. Grounded on
// _examples/jinford-dev-rag/pkg/indexer/filter/ignore_filter.go's
// .gitignore-plus-default-patterns exclusion scheme.
package stream

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ErrTooManyFiles is returned when a scan would exceed HardFileCap.
var ErrTooManyFiles = errors.New("repository scan exceeds the file cap")

// HardFileCap and SoftFileWarn are spec §4.6's producer limits: a scan
// producing more than HardFileCap files is rejected outright; one between
// SoftFileWarn and HardFileCap is accepted but logged as a warning.
const (
	HardFileCap  = 10000
	SoftFileWarn = 5000
)

// DefaultBatchSize is spec §4.6's fixed batch size.
const DefaultBatchSize = 40

// defaultExcludes are spec §4.6's always-on exclusions, layered under
// whatever .gitignore the repository supplies.
var defaultExcludes = []string{
	"node_modules",
	"dist",
	"build",
	".git",
}

// defaultTestExcludes are skipped unless IncludeTests is set.
var defaultTestExcludes = []string{
	"*.spec.*",
	"*.test.*",
	"*_test.*",
	"__tests__",
}

// ScanOptions parameterizes a directory scan.
type ScanOptions struct {
	Extensions   []string // e.g. []string{".go", ".py"}; empty means all files
	IncludeTests bool
}

// Scanner walks a repository directory tree applying spec §4.6's inclusion
// and exclusion rules.
type Scanner struct{}

// NewScanner builds a Scanner. It has no state; a value receiver would do,
// but a type keeps the package's exported surface symmetric with Producer/Consumer.
func NewScanner() *Scanner { return &Scanner{} }

// Scan walks root and returns every matching file's path relative to root.
// It returns ErrTooManyFiles rather than a partial result when the walk
// would exceed HardFileCap, since a silently-truncated index is worse than
// a refused one.
func (s *Scanner) Scan(root string, opts ScanOptions) ([]string, bool, error) {
	patterns := append([]string{}, defaultExcludes...)
	if !opts.IncludeTests {
		patterns = append(patterns, defaultTestExcludes...)
	}
	patterns = append(patterns, readGitignore(root)...)

	var matcher *gitignore.GitIgnore
	if len(patterns) > 0 {
		matcher = gitignore.CompileIgnoreLines(patterns...)
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}
		if !matchesExtension(rel, opts.Extensions) {
			return nil
		}

		files = append(files, rel)
		if len(files) > HardFileCap {
			return fmt.Errorf("scan %s: %w (cap %d)", root, ErrTooManyFiles, HardFileCap)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return files, len(files) >= SoftFileWarn, nil
}

func matchesExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func readGitignore(root string) []string {
	raw, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// Batches divides files into fixed-size groups, per spec §4.6's batching step.
func Batches(files []string, batchSize int) [][]string {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var batches [][]string
	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[i:end])
	}
	return batches
}
