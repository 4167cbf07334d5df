// Package symbolpath implements spec.md §4.7: computing the hierarchical
// name_path for a chunk. Grounded on
// _examples/original_source/api/services/symbol_path_service.py, translated
// to Go idiom (no exceptions, explicit slog.Logger, sort.Slice).
package symbolpath

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// defaultPrefixes is the language-keyed prefix-stripping table supplied by
// the Python original; languages absent here fall back to {"api", "src"}.
var defaultPrefixes = map[string][]string{
	"python":     {"api", "src"},
	"javascript": {"src"},
	"typescript": {"src"},
	"go":         {"pkg"},
	"java":       {"src", "main", "java"},
	"php":        {"src", "app"},
}

var defaultExtensions = map[string][]string{
	"python":     {".py"},
	"javascript": {".js", ".jsx"},
	"typescript": {".ts", ".tsx"},
	"go":         {".go"},
	"java":       {".java"},
	"php":        {".php"},
}

// packageMarkers are filenames dropped as meaningless trailing path segments.
var packageMarkers = map[string]bool{"__init__": true, "index": true}

// Service computes name_path and parent chains. Build one with New: the
// zero value has a nil logger, which panics on the warning paths.
// Prefixes/Extensions may be overridden for languages the default tables
// don't cover.
type Service struct {
	Prefixes   map[string][]string
	Extensions map[string][]string
	logger     *slog.Logger
}

// New returns a Service seeded with the default prefix/extension tables.
func New(log *slog.Logger) *Service {
	return &Service{
		Prefixes:   defaultPrefixes,
		Extensions: defaultExtensions,
		logger:     logger.Component(log, "symbolpath"),
	}
}

// GenerateNamePath computes <module_path>.<parent_chain>.<name>, satisfying
// spec §8 invariant 4: the result always ends with ".{name}" or equals name
// when module_path is empty.
func (s *Service) GenerateNamePath(chunkName, filePath, repositoryRoot, language string, parentContext []string) string {
	modulePath := s.fileToModulePath(filePath, repositoryRoot, language)

	segments := make([]string, 0, len(parentContext)+2)
	if modulePath != "" {
		segments = append(segments, modulePath)
	}
	segments = append(segments, parentContext...)
	segments = append(segments, chunkName)

	return strings.Join(segments, ".")
}

func (s *Service) fileToModulePath(filePath, repositoryRoot, language string) string {
	rel := filePath
	if repositoryRoot != "" {
		if r, ok := strings.CutPrefix(filePath, repositoryRoot); ok {
			rel = strings.TrimPrefix(r, "/")
		} else {
			s.logger.Warn("file outside repository root", slog.String("file_path", filePath), slog.String("repository_root", repositoryRoot))
		}
	}

	parts := strings.Split(filepathToSlash(rel), "/")

	prefixes, ok := s.Prefixes[language]
	if !ok {
		prefixes = []string{"api", "src"}
	}
	for len(parts) > 0 && containsStr(prefixes, parts[0]) {
		parts = parts[1:]
	}

	if len(parts) > 0 && parts[len(parts)-1] != "" {
		exts, ok := s.Extensions[language]
		if !ok {
			exts = []string{".py", ".js", ".ts", ".go", ".java"}
		}
		last := parts[len(parts)-1]
		for _, ext := range exts {
			if strings.HasSuffix(last, ext) {
				parts[len(parts)-1] = strings.TrimSuffix(last, ext)
				break
			}
		}
	}

	if len(parts) > 0 && packageMarkers[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 0 {
		return "root"
	}
	return strings.Join(parts, ".")
}

func filepathToSlash(p string) string { return path.Clean(strings.ReplaceAll(p, `\`, "/")) }

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ChunkRange is the minimal shape ExtractParentContext needs from a chunk —
// kept independent of domain.CodeChunk so the algorithm is unit-testable
// without constructing full entities.
type ChunkRange struct {
	Name      string
	ChunkType domain.ChunkType
	StartLine int
	EndLine   int
}

// ExtractParentContext returns the containing classes of chunk, ordered
// outermost → innermost, per spec §4.7 and §8 invariant 13. Overlapping
// (non-nested) parents are logged as a warning but tolerated, never fatal.
func (s *Service) ExtractParentContext(chunk ChunkRange, allChunks []ChunkRange) []string {
	var parents []ChunkRange

	for _, candidate := range allChunks {
		if candidate.ChunkType != domain.ChunkClass {
			continue
		}
		if candidate.StartLine == chunk.StartLine && candidate.EndLine == chunk.EndLine {
			continue
		}
		// Strict containment: parent starts before and ends after the child.
		if candidate.StartLine < chunk.StartLine && candidate.EndLine > chunk.EndLine {
			parents = append(parents, candidate)
		}
	}

	for i, p1 := range parents {
		for _, p2 := range parents[i+1:] {
			p1ContainsP2 := p1.StartLine < p2.StartLine && p1.EndLine > p2.EndLine
			p2ContainsP1 := p2.StartLine < p1.StartLine && p2.EndLine > p1.EndLine
			if !p1ContainsP2 && !p2ContainsP1 {
				s.logger.Warn("overlapping parent classes detected",
					slog.String("parent1", p1.Name), slog.String("parent2", p2.Name),
					slog.String("chunk", chunk.Name))
			}
		}
	}

	// Largest range first = outermost parent.
	sort.SliceStable(parents, func(i, j int) bool {
		return (parents[i].EndLine - parents[i].StartLine) > (parents[j].EndLine - parents[j].StartLine)
	})

	names := make([]string, len(parents))
	for i, p := range parents {
		names[i] = p.Name
	}
	return names
}
