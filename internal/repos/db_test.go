package repos

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDB_MigratesAndSeeds(t *testing.T) {
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var users, books int
	require.NoError(t, db.Get(&users, `SELECT COUNT(*) FROM users`))
	require.NoError(t, db.Get(&books, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 5, users)
	assert.Equal(t, 5, books)

	// both steps are safe to repeat on a populated store
	require.NoError(t, Migrate(db))
	require.NoError(t, SeedDefaults(context.Background(), db))
	require.NoError(t, db.Get(&users, `SELECT COUNT(*) FROM users`))
	require.NoError(t, db.Get(&books, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 5, users)
	assert.Equal(t, 5, books)
}

func TestSchemaGuards(t *testing.T) {
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, err = db.Exec(`UPDATE books SET quantity = -1 WHERE id = 1`)
	assert.Error(t, err, "negative stock must be rejected by the schema")

	_, err = db.Exec(`INSERT INTO cart_lines(user_id, book_id, quantity, created_at, updated_at) VALUES (1, 999, 1, 'x', 'x')`)
	assert.True(t, IsForeignKeyViolation(err), "foreign keys must be enforced, got %v", err)
	assert.False(t, IsUniqueViolation(err))

	users := NewUserRepo(db)
	_, err = users.Create(ctx, "ALICE", "a@inkwell.test", "h", "customer")
	assert.True(t, IsUniqueViolation(err), "got %v", err)
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, DriverPostgres, driverFor("postgres://u:p@localhost:5432/inkwell"))
	assert.Equal(t, DriverPostgres, driverFor("postgresql://localhost/inkwell"))
	assert.Equal(t, DriverSQLite, driverFor("inkwell.db"))
	assert.Equal(t, DriverSQLite, driverFor(":memory:"))
}

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, DriverSQLite), mock
}

func TestInTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM cart_lines").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := InTx(context.Background(), db, func(tx *sqlx.Tx) error {
			return NewCartRepo(db).WithTx(tx).Clear(context.Background(), 4)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := mockDB(t)
		boom := errors.New("disk I/O error")
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE books").WillReturnError(boom)
		mock.ExpectRollback()

		err := InTx(context.Background(), db, func(tx *sqlx.Tx) error {
			_, err := NewBookRepo(db).WithTx(tx).Decrement(context.Background(), 1, 2)
			return err
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		db, mock := mockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = InTx(context.Background(), db, func(*sqlx.Tx) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecrementGuard(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(`UPDATE books\s+SET quantity = quantity - \?`).
		WithArgs(3, sqlmock.AnyArg(), int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewBookRepo(db).Decrement(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, ok, "no row updated means not enough stock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
