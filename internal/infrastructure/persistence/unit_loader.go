package persistence

import (
	"context"

	"github.com/ims/backend/internal/domain/unit"
	"gorm.io/gorm"
)

// UnitConversionRow is the persistence model for a unit conversion entry
type UnitConversionRow struct {
	DisplayUnit string `gorm:"primaryKey"`
	BaseUnit    string `gorm:"not null"`
	Factor      int64  `gorm:"not null"`
	UnitType    string `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnitConversionRow) TableName() string {
	return "unit_conversions"
}

// GormUnitLoader loads the unit conversion table from the database
type GormUnitLoader struct {
	db *gorm.DB
}

// NewGormUnitLoader creates a new GormUnitLoader
func NewGormUnitLoader(db *gorm.DB) *GormUnitLoader {
	return &GormUnitLoader{db: db}
}

// LoadConversions fetches every conversion row
func (l *GormUnitLoader) LoadConversions(ctx context.Context) ([]unit.Conversion, error) {
	var rows []UnitConversionRow
	if err := l.db.WithContext(ctx).Order("display_unit ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	conversions := make([]unit.Conversion, 0, len(rows))
	for _, row := range rows {
		conversions = append(conversions, unit.Conversion{
			DisplayUnit: row.DisplayUnit,
			BaseUnit:    row.BaseUnit,
			Factor:      row.Factor,
			UnitType:    row.UnitType,
		})
	}
	return conversions, nil
}

// Ensure GormUnitLoader implements unit.Loader
var _ unit.Loader = (*GormUnitLoader)(nil)
