package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a stock item consumed by invoiced jobs
type Material struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Quantity  int             `gorm:"not null;default:0" json:"quantity"` // available stock, kept >= 0 by the application
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	Images    []MaterialImage `gorm:"foreignKey:MaterialID" json:"images"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Material model
func (Material) TableName() string {
	return "materials"
}

// MaterialImage is a stored photo of a material
type MaterialImage struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	MaterialID uint   `gorm:"not null;index" json:"material_id"`
	ImageKey   string `gorm:"not null" json:"image_key"`
	ImageURL   string `gorm:"-" json:"image_url,omitempty"`
}

// TableName specifies the table name for the MaterialImage model
func (MaterialImage) TableName() string {
	return "material_images"
}
