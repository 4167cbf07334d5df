package stream

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

type stubProcessor struct {
	result BatchResult
}

func (s *stubProcessor) ProcessBatch(_ context.Context, _, _ string, files []string) BatchResult {
	return s.result
}

type countingGraphBuilder struct {
	calls int32
}

func (g *countingGraphBuilder) Build(_ context.Context, _ string) error {
	atomic.AddInt32(&g.calls, 1)
	return nil
}

func batchValues(jobID uuid.UUID, repo string, batchNumber, totalBatches, totalFiles int, files []string) map[string]any {
	joined := ""
	for i, f := range files {
		if i > 0 {
			joined += ","
		}
		joined += f
	}
	return map[string]any{
		"job_id":        jobID.String(),
		"repository":    repo,
		"commit_hash":   "",
		"batch_number":  strconv.Itoa(batchNumber),
		"total_batches": strconv.Itoa(totalBatches),
		"total_files":   strconv.Itoa(totalFiles),
		"files":         joined,
	}
}

// TestConsumerHandle_CompletionFiresExactlyOnceUnderConcurrency reproduces
// the scenario the numerically-last-batch trigger got wrong: batches finish
// out of order under a worker pool, and only the call whose Advance pushes
// processed+failed to TotalFiles may finalize the job.
func TestConsumerHandle_CompletionFiresExactlyOnceUnderConcurrency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := "acme/widgets"
	jobID := uuid.New()
	status := NewJobStatusStore(client)
	require.NoError(t, status.Init(context.Background(), domain.IndexingJob{
		JobID: jobID, Repository: repo, TotalFiles: 9, TotalBatches: 3, Status: domain.JobPending,
	}))

	graphBuilder := &countingGraphBuilder{}
	processor := &stubProcessor{result: BatchResult{SuccessCount: 3, ErrorCount: 0}}
	consumer := NewConsumer(client, "test-consumer", processor, status, graphBuilder, 3, nil)

	var wg sync.WaitGroup
	// Batch 3 (the numerically last) is started first and may finish first,
	// but completion must still wait for batches 1 and 2.
	order := []int{3, 1, 2}
	for _, n := range order {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			files := []string{fmt.Sprintf("f%d-a", n), fmt.Sprintf("f%d-b", n), fmt.Sprintf("f%d-c", n)}
			values := batchValues(jobID, repo, n, 3, 9, files)
			consumer.handle(context.Background(), streamKey(repo), fmt.Sprintf("%d-0", n), values, repo)
		}(n)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&graphBuilder.calls), "graph build must fire exactly once")

	job, err := status.Get(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, job.Status)
	require.Equal(t, 9, job.ProcessedFiles)
}

func TestConsumerHandle_PartialFailureYieldsPartialStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := "acme/widgets"
	jobID := uuid.New()
	status := NewJobStatusStore(client)
	require.NoError(t, status.Init(context.Background(), domain.IndexingJob{
		JobID: jobID, Repository: repo, TotalFiles: 3, TotalBatches: 1, Status: domain.JobPending,
	}))

	processor := &stubProcessor{result: BatchResult{SuccessCount: 2, ErrorCount: 1, Errors: []string{"bad.go: parse error"}}}
	graphBuilder := &countingGraphBuilder{}
	consumer := NewConsumer(client, "test-consumer", processor, status, graphBuilder, 1, nil)

	values := batchValues(jobID, repo, 1, 1, 3, []string{"a", "b", "bad.go"})
	consumer.handle(context.Background(), streamKey(repo), "1-0", values, repo)

	job, err := status.Get(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, domain.JobPartial, job.Status)
	require.Equal(t, int32(1), atomic.LoadInt32(&graphBuilder.calls))
}
