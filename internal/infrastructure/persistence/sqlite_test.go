package persistence

import (
	"testing"

	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the full schema migrated.
// Repository tests that exercise real SQL run against it; queries that need
// PostgreSQL row locking or ILIKE still go through sqlmock.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&inventory.Product{},
		&inventory.StockBatch{},
		&inventory.UsageRecord{},
		&inventory.InventoryAlert{},
		&sales.Sale{},
		&sales.SaleLine{},
		&sales.Delivery{},
		&UnitConversionRow{},
	)
	require.NoError(t, err)
	return db
}
