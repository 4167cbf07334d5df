package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

type fakeErrorWriter struct {
	records []domain.IndexingError
}

func (f *fakeErrorWriter) Record(_ context.Context, e domain.IndexingError) error {
	f.records = append(f.records, e)
	return nil
}

func TestProcessBatch_RejectsOversizedFileBeforeChunking(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, domain.MaxFileSizeBytes+1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "huge.go"), big, 0o600))

	errs := &fakeErrorWriter{}
	p := NewBatchProcessor(nil, errs, dir, Options{}, nil)

	result := p.ProcessBatch(context.Background(), "repo", "", []string{"huge.go"})

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, errs.records, 1)
	assert.Equal(t, domain.ErrorValidation, errs.records[0].ErrorType)
	assert.Equal(t, "huge.go", errs.records[0].FilePath)
}

func TestDetectLanguage_PrefersRegisteredExtension(t *testing.T) {
	p := NewBatchProcessor(nil, nil, t.TempDir(), Options{}, nil)
	assert.Equal(t, "go", p.detectLanguage("main.go", []byte("package main\n")))
}

func TestDetectLanguage_UnrecognizableContentFallsBackToUnknown(t *testing.T) {
	p := NewBatchProcessor(nil, nil, t.TempDir(), Options{}, nil)
	assert.Equal(t, "unknown", p.detectLanguage("data.binxyz", nil))
}
