package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestOpen_SQLiteAndHealth(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, "sqlite3", db.Dialect())
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))

	// migrations are idempotent
	require.NoError(t, db.migrate(context.Background()))
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost:5432/console"))
	assert.True(t, IsPostgres("postgresql://localhost/console"))
	assert.False(t, IsPostgres("file:provider-console.db"))
	assert.False(t, IsPostgres(":memory:"))
}

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), nil)
	ctx := context.Background()

	id, err := repo.LoadJobID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, repo.SaveJobID(ctx, "abc123"))
	require.NoError(t, repo.SaveJobID(ctx, "def456"))

	id, err = repo.LoadJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def456", id)
}

func TestUploadRepository(t *testing.T) {
	repo := NewUploadRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	startErr := "500 Internal Server Error"
	first := entity.Upload{
		Filename: "providers.csv", Kind: constants.UploadCSV, JobID: "job-1",
		SHA256: "aaa", SizeBytes: 120, UploadedAt: base,
	}
	second := entity.Upload{
		ID: uuid.New(), Filename: "roster.pdf", Kind: constants.UploadPDF, JobID: "job-2",
		SHA256: "bbb", SizeBytes: 4096, UploadedAt: base.Add(time.Minute), StartError: &startErr,
	}
	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, second))

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "job-2", all[0].JobID, "newest first")
	assert.Equal(t, second.ID, all[0].ID)
	require.NotNil(t, all[0].StartError)
	assert.Equal(t, startErr, *all[0].StartError)
	assert.Nil(t, all[1].StartError)
	assert.True(t, base.Equal(all[1].UploadedAt))
	assert.Equal(t, constants.UploadCSV, all[1].Kind)
	assert.NotEqual(t, uuid.Nil, all[1].ID)

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	found, err := repo.FindBySHA256(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, "job-1", found.JobID)

	_, err = repo.FindBySHA256(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
