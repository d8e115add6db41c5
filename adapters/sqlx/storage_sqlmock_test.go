package sqlx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "github.com/ryandem1/minesweeper-async/adapters/sqlx"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_Add_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total, checks FROM score_ledger WHERE scope = \$1 FOR UPDATE`).
		WithArgs("default").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO score_ledger`).
		WithArgs("default", 10.0, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	total, err := store.Add(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 10.0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Add_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()
	store.WithScope("arena")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total, checks FROM score_ledger`).
		WithArgs("arena").
		WillReturnRows(sqlmock.NewRows([]string{"total", "checks"}).AddRow(4.5, 3))
	mock.ExpectExec(`UPDATE score_ledger SET total = \$1, checks = \$2, updated_at = \$3 WHERE scope = \$4`).
		WithArgs(6.0, int64(4), sqlmock.AnyArg(), "arena").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.Add(context.Background(), 1.5)
	require.NoError(t, err)
	require.Equal(t, 6.0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Add_RollsBackOnFailure(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT total, checks FROM score_ledger`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.Add(context.Background(), 1)
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Add_RejectsNegativeDelta(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	_, err := store.Add(context.Background(), -1)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Total(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT total FROM score_ledger`).
		WithArgs("default").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT total FROM score_ledger`).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(12.25))

	total, err := store.Total(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)

	total, err = store.Total(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12.25, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Checks(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT checks FROM score_ledger`).
		WithArgs("default").
		WillReturnRows(sqlmock.NewRows([]string{"checks"}).AddRow(7))

	n, err := store.Checks(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS score_ledger`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Driver: "sqlite", DSN: "x"})
	require.Error(t, err)

	_, err = storage.New(context.Background(), storage.DefaultConfig(storage.DriverPostgres))
	require.Error(t, err)
}
