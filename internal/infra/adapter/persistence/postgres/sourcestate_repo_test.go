package postgres

import (
	"context"
	"testing"
	"time"

	"feedmill/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStateRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	repo := &SourceStateRepo{db: db}

	mock.ExpectQuery("SELECT source_id, url").WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows(nil))

	got, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSourceStateRepo_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	repo := &SourceStateRepo{db: db}

	mock.ExpectExec("INSERT INTO source_states").WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	err = repo.Put(context.Background(), &entity.SourceState{SourceID: 1, URL: "https://x", FrequencyTier: entity.TierDaily, LastCheckedAt: &now})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLetterRepo_RecordAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	repo := &DeadLetterRepo{db: db}

	mock.ExpectExec("INSERT INTO dead_letters").WillReturnResult(sqlmock.NewResult(0, 1))
	err = repo.Record(context.Background(), &entity.DeadLetter{ID: "dl-1", ArticleIDs: []int64{1, 2}, Attempts: 5, LastError: "boom", CreatedAt: time.Now()})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, article_ids").WithArgs(50).WillReturnRows(
		sqlmock.NewRows([]string{"id", "article_ids", "attempts", "last_error", "created_at"}).
			AddRow("dl-1", "{1,2}", 5, "boom", time.Now()))
	out, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "dl-1", out[0].ID)
}
