package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/storage/sqlite"
)

func newRepo(t *testing.T, path string) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: path,
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryInvalidConfig(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryOperations(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, filepath.Join(t.TempDir(), "test.db"))
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ops := []model.Operation{
		{ID: "op1", Kind: model.OperationKindCancel, TaskID: "t1", CreatedAt: t0},
		{ID: "op2", Kind: model.OperationKindRetry, TaskID: "t1", Error: "something", CreatedAt: t0.Add(2 * time.Second)},
		{ID: "op3", Kind: model.OperationKindBatch, URL: "https://example.com", TaskIDs: []string{"t2", "t3"}, CreatedAt: t0.Add(time.Second)},
	}
	for _, op := range ops {
		require.NoError(t, repo.AppendOperation(ctx, op))
	}

	got, err := repo.ListOperations(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.Operation{ops[1], ops[2], ops[0]}, got)

	got, err = repo.ListOperations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Operation{ops[1]}, got)

	err = repo.AppendOperation(ctx, ops[0])
	assert.True(t, errors.Is(err, model.ErrAlreadyExists))
}

func TestRepositoryAssignsID(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, repo.AppendOperation(ctx, model.Operation{Kind: model.OperationKindCancel, TaskID: "t1", CreatedAt: time.Now()}))

	got, err := repo.ListOperations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.Nil(t, got[0].TaskIDs)
}

func TestRepositoryPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	repo1, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: path})
	require.NoError(t, err)
	require.NoError(t, repo1.AppendOperation(ctx, model.Operation{ID: "op1", Kind: model.OperationKindRetryFailed, TaskID: "t1", CreatedAt: time.Now()}))
	require.NoError(t, repo1.Close())

	// Reopening should run the migrations again without changes.
	repo2 := newRepo(t, path)
	got, err := repo2.ListOperations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "op1", got[0].ID)
	assert.Equal(t, model.OperationKindRetryFailed, got[0].Kind)
}
