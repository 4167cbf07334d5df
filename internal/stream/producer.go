package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// streamMaxLen bounds the Redis Stream with approximate trimming, per spec
// §4.6: "bounded stream length (e.g. 1000, approximate trim)".
const streamMaxLen = 1000

// statusTTL is spec §4.6's 24h status-hash lifetime.
const statusTTL = 24 * time.Hour

func streamKey(repository string) string { return "mnemolite:stream:" + repository }
func statusKey(repository string) string { return "mnemolite:status:" + repository }

// BatchMessage is one stream entry's payload, per spec §4.6.
type BatchMessage struct {
	JobID        uuid.UUID
	Repository   string
	CommitHash   string
	BatchNumber  int
	TotalBatches int
	TotalFiles   int
	Files        []string
	CreatedAt    time.Time
}

// Producer scans a repository, emits batched stream messages, and
// initializes the job's status hash.
type Producer struct {
	client    *redis.Client
	scanner   *Scanner
	batchSize int
	logger    *slog.Logger
}

// NewProducer builds a Producer over an already-connected Redis client.
func NewProducer(client *redis.Client, log *slog.Logger) *Producer {
	return &Producer{client: client, scanner: NewScanner(), batchSize: DefaultBatchSize, logger: logger.Component(log, "stream.producer")}
}

// Enqueue scans root, divides the result into batches, publishes one stream
// message per batch, and initializes the status hash. It returns the job so
// the caller can report a job_id back to whoever triggered the run.
func (p *Producer) Enqueue(ctx context.Context, repository, root string, opts ScanOptions) (domain.IndexingJob, error) {
	files, warnedLarge, err := p.scanner.Scan(root, opts)
	if err != nil {
		return domain.IndexingJob{}, fmt.Errorf("scan %s: %w", root, err)
	}
	if warnedLarge {
		p.logger.Warn("large repository scan", slog.String("repository", repository), slog.Int("files", len(files)))
	}

	batches := Batches(files, p.batchSize)
	job := domain.IndexingJob{
		JobID:        uuid.New(),
		Repository:   repository,
		CommitHash:   ResolveCommitHash(root),
		TotalFiles:   len(files),
		TotalBatches: len(batches),
		Status:       domain.JobPending,
		StartedAt:    time.Now(),
	}

	if err := p.initStatus(ctx, job); err != nil {
		return domain.IndexingJob{}, fmt.Errorf("init status for %s: %w", repository, err)
	}

	for i, batch := range batches {
		msg := BatchMessage{
			JobID:        job.JobID,
			Repository:   repository,
			CommitHash:   job.CommitHash,
			BatchNumber:  i + 1,
			TotalBatches: len(batches),
			TotalFiles:   job.TotalFiles,
			Files:        batch,
			CreatedAt:    time.Now(),
		}
		if err := p.publish(ctx, msg); err != nil {
			return job, fmt.Errorf("publish batch %d/%d for %s: %w", i+1, len(batches), repository, err)
		}
	}

	p.logger.Info("enqueued repository for indexing",
		slog.String("repository", repository), slog.Int("files", len(files)), slog.Int("batches", len(batches)))
	return job, nil
}

func (p *Producer) publish(ctx context.Context, msg BatchMessage) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(msg.Repository),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"job_id":        msg.JobID.String(),
			"repository":    msg.Repository,
			"commit_hash":   msg.CommitHash,
			"batch_number":  strconv.Itoa(msg.BatchNumber),
			"total_batches": strconv.Itoa(msg.TotalBatches),
			"total_files":   strconv.Itoa(msg.TotalFiles),
			"files":         strings.Join(msg.Files, ","),
			"created_at":    msg.CreatedAt.Format(time.RFC3339),
		},
	}).Err()
}

func (p *Producer) initStatus(ctx context.Context, job domain.IndexingJob) error {
	key := statusKey(job.Repository)
	if err := p.client.HSet(ctx, key, map[string]any{
		"job_id":          job.JobID.String(),
		"repository":      job.Repository,
		"total_files":     job.TotalFiles,
		"total_batches":   job.TotalBatches,
		"processed_files": 0,
		"failed_files":    0,
		"current_batch":   0,
		"status":          string(domain.JobPending),
		"started_at":      job.StartedAt.Format(time.RFC3339),
	}).Err(); err != nil {
		return err
	}
	return p.client.Expire(ctx, key, statusTTL).Err()
}

// parseBatchMessage decodes a stream entry back into a BatchMessage.
func parseBatchMessage(values map[string]any) (BatchMessage, error) {
	get := func(k string) string {
		v, _ := values[k].(string)
		return v
	}

	jobID, err := uuid.Parse(get("job_id"))
	if err != nil {
		return BatchMessage{}, fmt.Errorf("parse job_id: %w", err)
	}
	batchNumber, err := strconv.Atoi(get("batch_number"))
	if err != nil {
		return BatchMessage{}, fmt.Errorf("parse batch_number: %w", err)
	}
	totalBatches, err := strconv.Atoi(get("total_batches"))
	if err != nil {
		return BatchMessage{}, fmt.Errorf("parse total_batches: %w", err)
	}
	totalFiles, err := strconv.Atoi(get("total_files"))
	if err != nil {
		return BatchMessage{}, fmt.Errorf("parse total_files: %w", err)
	}

	var files []string
	if raw := get("files"); raw != "" {
		files = strings.Split(raw, ",")
	}

	return BatchMessage{
		JobID:        jobID,
		Repository:   get("repository"),
		CommitHash:   get("commit_hash"),
		BatchNumber:  batchNumber,
		TotalBatches: totalBatches,
		TotalFiles:   totalFiles,
		Files:        files,
	}, nil
}
