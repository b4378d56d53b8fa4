package identity

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	store, err := NewStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestInsert(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO sensors`).
		WithArgs("hall-42").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(1)))

	id, err := store.Insert(context.Background(), "hall-42")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE id`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, found, err := store.Get(context.Background(), 99)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNameUsesCacheAfterInsert(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO sensors`).
		WithArgs("hall-42").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(1)))
	// The cached id still hits the by-id query, not the by-name one.
	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE id`).
		WithArgs(int64(1)).
		WillReturnRows(mock.NewRows([]string{"id", "name"}).AddRow(int64(1), "hall-42"))

	_, err := store.Insert(context.Background(), "hall-42")
	require.NoError(t, err)

	ident, found, err := store.GetByName(context.Background(), "hall-42")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), ident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNameStaleCacheFallsThrough(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	store.nameIds.Add("hall-42", int64(1))

	// The cached id is gone, so the store falls back to the name query.
	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE id`).
		WithArgs(int64(1)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE name`).
		WithArgs("hall-42").
		WillReturnRows(mock.NewRows([]string{"id", "name"}).AddRow(int64(2), "hall-42"))

	ident, found, err := store.GetByName(context.Background(), "hall-42")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), ident.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNameNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE name`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, found, err := store.GetByName(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name FROM sensors ORDER BY id`).
		WithArgs(0, 100).
		WillReturnRows(mock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "hall-42").
			AddRow(int64(2), "hall-43"))

	sensors, err := store.List(context.Background(), 0, 100)
	assert.NoError(t, err)
	assert.Len(t, sensors, 2)
	assert.Equal(t, "hall-43", sensors[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEvictsNameCache(t *testing.T) {
	store, mock := newMockStore(t)
	defer mock.Close()

	store.nameIds.Add("hall-42", int64(1))

	mock.ExpectQuery(`SELECT id, name FROM sensors WHERE id`).
		WithArgs(int64(1)).
		WillReturnRows(mock.NewRows([]string{"id", "name"}).AddRow(int64(1), "hall-42"))
	mock.ExpectExec(`DELETE FROM sensors`).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := store.Delete(context.Background(), 1)
	assert.NoError(t, err)
	_, cached := store.nameIds.Get("hall-42")
	assert.False(t, cached)
	assert.NoError(t, mock.ExpectationsWereMet())
}
