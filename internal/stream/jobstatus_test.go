package stream

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

func newTestStore(t *testing.T) *RedisJobStatusStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewJobStatusStore(client)
}

func TestRedisJobStatusStore_AdvanceReturnsPostIncrementTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := "acme/widgets"

	require.NoError(t, store.Init(ctx, domain.IndexingJob{
		JobID: uuid.New(), Repository: repo, TotalFiles: 10, TotalBatches: 2, Status: domain.JobPending,
	}))

	processed, failed, err := store.Advance(ctx, repo, 3, 1, 1, nil)
	require.NoError(t, err)
	require.Equal(t, 3, processed)
	require.Equal(t, 1, failed)

	// A second, concurrent-looking batch pushes the running totals further;
	// the returned values reflect the cumulative count, not the delta.
	processed, failed, err = store.Advance(ctx, repo, 5, 1, 2, []string{"bad.go: boom"})
	require.NoError(t, err)
	require.Equal(t, 8, processed)
	require.Equal(t, 2, failed)

	job, err := store.Get(ctx, repo)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, []string{"bad.go: boom"}, job.Errors)
}

func TestRedisJobStatusStore_Finish(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := "acme/widgets"

	require.NoError(t, store.Init(ctx, domain.IndexingJob{JobID: uuid.New(), Repository: repo, Status: domain.JobPending}))
	require.NoError(t, store.Finish(ctx, repo, domain.JobCompleted))

	job, err := store.Get(ctx, repo)
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestRedisJobStatusStore_GetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Get(context.Background(), "no/such-repo")
	require.NoError(t, err)
	require.Nil(t, job)
}
