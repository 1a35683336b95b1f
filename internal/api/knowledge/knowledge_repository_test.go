package knowledge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepositoryCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM knowledge_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	repo := NewRepository(mock, discardLogger())
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertChunk(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`INSERT INTO knowledge_documents`).
		WithArgs("Star Ferry", "Crosses the harbour", 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id.String()))

	repo := NewRepository(mock, discardLogger())
	got, err := repo.InsertChunk(context.Background(), "Star Ferry", "Crosses the harbour", 2,
		map[string]any{"category": "tourism"}, []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertChunkError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO knowledge_documents`).
		WillReturnError(errors.New("relation does not exist"))

	repo := NewRepository(mock, discardLogger())
	_, err = repo.InsertChunk(context.Background(), "t", "c", 0, nil, []float32{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestRepositorySearchSimilar(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first, second := uuid.New(), uuid.New()
	rows := pgxmock.NewRows([]string{"id", "title", "content", "metadata", "score"}).
		AddRow(first.String(), "Victoria Peak", "Views over the harbour", []byte(`{"category":"tourism"}`), 0.92).
		AddRow(second.String(), "Star Ferry", "Harbour crossing", []byte(`not json`), 0.71)

	mock.ExpectQuery(`SELECT id, title, content, metadata`).
		WithArgs(pgxmock.AnyArg(), 2).
		WillReturnRows(rows)

	repo := NewRepository(mock, discardLogger())
	docs, err := repo.SearchSimilar(context.Background(), []float32{0.5, 0.5}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, first, docs[0].ID)
	assert.Equal(t, "Victoria Peak", docs[0].Title)
	assert.Equal(t, "tourism", docs[0].Metadata["category"])
	assert.InDelta(t, 0.92, docs[0].Score, 1e-9)

	assert.Equal(t, "Star Ferry", docs[1].Title)
	assert.Nil(t, docs[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySearchSimilarQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, title, content, metadata`).
		WillReturnError(errors.New("operator does not exist: vector <=> vector"))

	repo := NewRepository(mock, discardLogger())
	docs, err := repo.SearchSimilar(context.Background(), []float32{1}, 3)
	require.Error(t, err)
	assert.Nil(t, docs)
}
