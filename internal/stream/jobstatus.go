package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// RedisJobStatusStore implements domain.JobStatusStore over the same hash
// Producer.initStatus populates, keeping the hash's 24h TTL refreshed on
// every advance so a slow run doesn't lose its own status mid-flight.
type RedisJobStatusStore struct {
	client *redis.Client
}

// NewJobStatusStore builds a RedisJobStatusStore.
func NewJobStatusStore(client *redis.Client) *RedisJobStatusStore {
	return &RedisJobStatusStore{client: client}
}

var _ domain.JobStatusStore = (*RedisJobStatusStore)(nil)

// Init writes the initial status hash. Producer.initStatus already does
// this at enqueue time; Init exists so a consumer recovering a job it did
// not itself enqueue (e.g. after a crash) can still satisfy the interface.
func (s *RedisJobStatusStore) Init(ctx context.Context, job domain.IndexingJob) error {
	key := statusKey(job.Repository)
	if err := s.client.HSet(ctx, key, map[string]any{
		"job_id":          job.JobID.String(),
		"repository":      job.Repository,
		"total_files":     job.TotalFiles,
		"total_batches":   job.TotalBatches,
		"processed_files": job.ProcessedFiles,
		"failed_files":    job.FailedFiles,
		"current_batch":   job.CurrentBatch,
		"status":          string(job.Status),
		"started_at":      job.StartedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return fmt.Errorf("init status for %s: %w", job.Repository, err)
	}
	return s.client.Expire(ctx, key, statusTTL).Err()
}

// Get returns nil, nil when no status hash exists for the repository.
func (s *RedisJobStatusStore) Get(ctx context.Context, repository string) (*domain.IndexingJob, error) {
	raw, err := s.client.HGetAll(ctx, statusKey(repository)).Result()
	if err != nil {
		return nil, fmt.Errorf("get status for %s: %w", repository, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	job := domain.IndexingJob{Repository: repository}
	job.JobID, _ = uuid.Parse(raw["job_id"])
	job.TotalFiles, _ = strconv.Atoi(raw["total_files"])
	job.TotalBatches, _ = strconv.Atoi(raw["total_batches"])
	job.ProcessedFiles, _ = strconv.Atoi(raw["processed_files"])
	job.FailedFiles, _ = strconv.Atoi(raw["failed_files"])
	job.CurrentBatch, _ = strconv.Atoi(raw["current_batch"])
	job.Status = domain.JobStatus(raw["status"])
	if t, err := time.Parse(time.RFC3339, raw["started_at"]); err == nil {
		job.StartedAt = t
	}
	if raw["completed_at"] != "" {
		if t, err := time.Parse(time.RFC3339, raw["completed_at"]); err == nil {
			job.CompletedAt = &t
		}
	}
	if raw["errors"] != "" {
		job.Errors = strings.Split(raw["errors"], "\n")
	}
	return &job, nil
}

// Advance atomically increments the processed/failed counters and appends
// any batch errors, per spec §4.6 step 3. Errors past domain.MaxJobErrors
// are dropped, mirroring IndexingJob.AppendError's bound. The returned
// totals are read from the same pipelined HINCRBY that applied the delta, so
// the caller that observes processedFiles+failedFiles==TotalFiles is
// guaranteed to be the one call that pushed the count there — batches
// complete out of order under concurrency, so this is the only race-free way
// to detect "the job just finished".
func (s *RedisJobStatusStore) Advance(ctx context.Context, repository string, processedDelta, failedDelta, currentBatch int, batchErrors []string) (int, int, error) {
	key := statusKey(repository)
	pipe := s.client.TxPipeline()
	processedCmd := pipe.HIncrBy(ctx, key, "processed_files", int64(processedDelta))
	failedCmd := pipe.HIncrBy(ctx, key, "failed_files", int64(failedDelta))
	pipe.HSet(ctx, key, "current_batch", currentBatch)
	pipe.Expire(ctx, key, statusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("advance status for %s: %w", repository, err)
	}
	processedFiles, failedFiles := int(processedCmd.Val()), int(failedCmd.Val())

	if len(batchErrors) == 0 {
		return processedFiles, failedFiles, nil
	}
	if err := s.appendErrors(ctx, key, batchErrors); err != nil {
		return processedFiles, failedFiles, err
	}
	return processedFiles, failedFiles, nil
}

func (s *RedisJobStatusStore) appendErrors(ctx context.Context, key string, batchErrors []string) error {
	existing, err := s.client.HGet(ctx, key, "errors").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read existing errors: %w", err)
	}

	var all []string
	if existing != "" {
		all = strings.Split(existing, "\n")
	}
	all = append(all, batchErrors...)
	if len(all) > domain.MaxJobErrors {
		all = all[len(all)-domain.MaxJobErrors:]
	}

	return s.client.HSet(ctx, key, "errors", strings.Join(all, "\n")).Err()
}

// Finish sets the terminal status and completed_at timestamp.
func (s *RedisJobStatusStore) Finish(ctx context.Context, repository string, status domain.JobStatus) error {
	key := statusKey(repository)
	return s.client.HSet(ctx, key, map[string]any{
		"status":       string(status),
		"completed_at": time.Now().Format(time.RFC3339),
	}).Err()
}
