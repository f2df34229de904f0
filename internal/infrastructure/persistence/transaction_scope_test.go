package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appinv "github.com/ims/backend/internal/application/inventory"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	t.Run("sets lock timeout and commits", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '5000ms'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		scope := NewGormTransactionScope(db.DB, 5*time.Second)
		var got appinv.TransactionalRepositories
		err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			got = repos
			return nil
		})

		require.NoError(t, err)
		assert.NotNil(t, got.ProductRepo())
		assert.NotNil(t, got.BatchRepo())
		assert.NotNil(t, got.UsageRepo())
		assert.NotNil(t, got.SaleRepo())
		assert.NotNil(t, got.DeliveryRepo())
		assert.NotNil(t, got.AlertRepo())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the function fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '5000ms'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		scope := NewGormTransactionScope(db.DB, 5*time.Second)
		err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips lock timeout when disabled", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		scope := NewGormTransactionScope(db.DB, 0)
		err := scope.Execute(context.Background(), func(repos appinv.TransactionalRepositories) error {
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapLockError(t *testing.T) {
	t.Run("translates a pgx lock_not_available into LockTimeoutError", func(t *testing.T) {
		err := mapLockError(&pgconn.PgError{Code: lockNotAvailable}, "stock batches")

		var lockErr *inventory.LockTimeoutError
		require.ErrorAs(t, err, &lockErr)
		assert.Equal(t, "stock batches", lockErr.Resource)
	})

	t.Run("translates a wrapped pgx error", func(t *testing.T) {
		wrapped := fmt.Errorf("acquiring row locks: %w", &pgconn.PgError{Code: lockNotAvailable})
		err := mapLockError(wrapped, "delivery")

		var lockErr *inventory.LockTimeoutError
		require.ErrorAs(t, err, &lockErr)
		assert.Equal(t, "delivery", lockErr.Resource)
	})

	t.Run("translates a lib/pq lock_not_available", func(t *testing.T) {
		err := mapLockError(&pq.Error{Code: lockNotAvailable}, "stock batches")

		var lockErr *inventory.LockTimeoutError
		require.ErrorAs(t, err, &lockErr)
		assert.Equal(t, "stock batches", lockErr.Resource)
	})

	t.Run("leaves other pg errors untouched", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505"}
		err := mapLockError(pgErr, "stock batches")
		assert.Same(t, error(pgErr), err)
	})

	t.Run("passes other errors through", func(t *testing.T) {
		err := mapLockError(assert.AnError, "stock batches")
		assert.ErrorIs(t, err, assert.AnError)
	})
}
