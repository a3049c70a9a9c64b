package entities

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ingredient is a canonical (name, measurement unit) pair of the catalog.
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name            string    `gorm:"size:128;not null;uniqueIndex:idx_ingredients_name_unit,priority:1" json:"name"`
	MeasurementUnit string    `gorm:"size:64;not null;uniqueIndex:idx_ingredients_name_unit,priority:2" json:"measurement_unit"`
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}
