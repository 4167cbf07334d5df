package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	enry "github.com/go-enry/go-enry/v2"

	"github.com/mnemolite/mnemolite/internal/chunk"
	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
	"github.com/mnemolite/mnemolite/internal/stream"
)

// BatchProcessor adapts Service into stream.BatchProcessor: C8's consumer
// invokes one of these per claimed batch (spec §4.6), in-process rather
// than as a subprocess — the goroutine-worker-pool equivalent spec.md §9's
// "Subprocess-per-batch" design note describes.
type BatchProcessor struct {
	service  *Service
	errors   domain.ErrorWriter
	registry *chunk.LanguageRegistry
	repoRoot string
	opts     Options
	logger   *slog.Logger
}

// NewBatchProcessor builds a BatchProcessor rooted at repoRoot (the
// directory Producer scanned), resolving each batch file's language from its
// extension via the shared language registry.
func NewBatchProcessor(service *Service, errors domain.ErrorWriter, repoRoot string, opts Options, log *slog.Logger) *BatchProcessor {
	return &BatchProcessor{
		service:  service,
		errors:   errors,
		registry: chunk.DefaultRegistry(),
		repoRoot: repoRoot,
		opts:     opts,
		logger:   logger.Component(log, "indexing.batch"),
	}
}

var _ stream.BatchProcessor = (*BatchProcessor)(nil)

// ProcessBatch runs index_file for every file in the batch, recording
// per-file failures against the error repository without aborting the rest
// of the batch (spec §4.5's "each file succeeds or fails atomically").
func (p *BatchProcessor) ProcessBatch(ctx context.Context, repository, commitHash string, files []string) stream.BatchResult {
	var result stream.BatchResult

	for _, relPath := range files {
		absPath := filepath.Join(p.repoRoot, relPath)

		content, err := os.ReadFile(absPath)
		if err != nil {
			result.ErrorCount++
			msg := err.Error()
			result.Errors = append(result.Errors, relPath+": "+msg)
			p.recordError(ctx, repository, relPath, domain.ErrorPersistence, msg)
			continue
		}

		if len(content) >= domain.MaxFileSizeBytes {
			msg := fmt.Sprintf("file size %d bytes meets or exceeds the %d byte cap", len(content), domain.MaxFileSizeBytes)
			result.ErrorCount++
			result.Errors = append(result.Errors, relPath+": "+msg)
			p.recordError(ctx, repository, relPath, domain.ErrorValidation, msg)
			continue
		}

		language := p.detectLanguage(relPath, content)

		if _, err := p.service.IndexFile(ctx, repository, commitHash, relPath, string(content), language, p.opts); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, relPath+": "+err.Error())
			p.recordError(ctx, repository, relPath, classifyError(err), err.Error())
			continue
		}

		result.SuccessCount++
	}

	return result
}

// detectLanguage resolves a file's language tag: extension lookup against
// the chunk registry first (fast, deterministic for the languages it
// covers), falling back to go-enry's content-based classifier for files
// whose extension isn't registered (e.g. extensionless scripts, unfamiliar
// suffixes) so they still land under a real language tag in metadata/search
// filters rather than "unknown" whenever enry recognizes a registered name.
func (p *BatchProcessor) detectLanguage(relPath string, content []byte) string {
	if config, ok := p.registry.GetByExtension(filepath.Ext(relPath)); ok {
		return config.Name
	}
	guess := strings.ToLower(enry.GetLanguage(filepath.Base(relPath), content))
	if config, ok := p.registry.GetByName(guess); ok {
		return config.Name
	}
	if guess != "" {
		return guess
	}
	return "unknown"
}

func (p *BatchProcessor) recordError(ctx context.Context, repository, filePath string, errType domain.ErrorType, message string) {
	if p.errors == nil {
		return
	}
	err := p.errors.Record(ctx, domain.IndexingError{
		Repository: repository,
		FilePath:   filePath,
		ErrorType:  errType,
		Message:    message,
	})
	if err != nil {
		p.logger.Warn("failed to record indexing error", slog.String("file_path", filePath), slog.String("error", err.Error()))
	}
}

// classifyError maps a generic index_file failure to the closed error_type
// enum; most plumbing errors surface as persistence failures since the
// chunker/embedder already wrap their own domain.ErrorType on the way out.
func classifyError(err error) domain.ErrorType {
	if de, ok := domain.AsDomainError(err); ok {
		return de.Type
	}
	return domain.ErrorPersistence
}
