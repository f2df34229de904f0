package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormDeliveryRepository_FindBySaleID(t *testing.T) {
	t.Run("returns the delivery of the sale", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		saleID := uuid.New()
		deliveryID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "deliveries" WHERE sale_id = `).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "status", "customer_name"}).
				AddRow(deliveryID.String(), saleID.String(), "out_for_delivery", "Asha"))

		repo := NewGormDeliveryRepository(db.DB)
		delivery, err := repo.FindBySaleID(context.Background(), saleID)

		require.NoError(t, err)
		require.NotNil(t, delivery)
		assert.Equal(t, deliveryID, delivery.ID)
		assert.Equal(t, "Asha", delivery.CustomerName)
	})

	t.Run("no delivery yields nil without error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "deliveries" WHERE sale_id = `).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormDeliveryRepository(db.DB)
		delivery, err := repo.FindBySaleID(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Nil(t, delivery)
	})
}

func TestGormDeliveryRepository_FindBySaleIDForUpdate(t *testing.T) {
	t.Run("locks the delivery row", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		saleID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "deliveries" WHERE sale_id = .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "status", "customer_name"}).
				AddRow(uuid.New().String(), saleID.String(), "undelivered", "Ravi"))

		repo := NewGormDeliveryRepository(db.DB)
		delivery, err := repo.FindBySaleIDForUpdate(context.Background(), saleID)

		require.NoError(t, err)
		require.NotNil(t, delivery)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no delivery yields nil without error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "deliveries" WHERE sale_id = .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		repo := NewGormDeliveryRepository(db.DB)
		delivery, err := repo.FindBySaleIDForUpdate(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Nil(t, delivery)
	})
}
