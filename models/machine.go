package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Machine statuses; only Active machines can be assigned to jobs
const (
	MachineStatusActive      = "Active"
	MachineStatusMaintenance = "In Maintenance"
	MachineStatusRetired     = "Retired"
)

// MachineStatuses lists the accepted machine statuses
var MachineStatuses = []string{MachineStatusActive, MachineStatusMaintenance, MachineStatusRetired}

// Machine is a piece of workshop equipment
type Machine struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	Name         string               `gorm:"not null" json:"name"`
	Description  *string              `json:"description"`
	PurchaseDate *string              `gorm:"type:varchar(10)" json:"purchase_date"`
	Status       string               `gorm:"not null;default:'Active'" json:"status"`
	HourlyRate   decimal.Decimal      `gorm:"type:decimal(12,2);not null;default:0" json:"hourly_rate"`
	Images       []MachineImage       `gorm:"foreignKey:MachineID" json:"images"`
	Maintenance  []MachineMaintenance `gorm:"foreignKey:MachineID" json:"maintenance,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// TableName specifies the table name for the Machine model
func (Machine) TableName() string {
	return "machines"
}

// IsAssignable reports whether the machine may be booked on a job
func (m Machine) IsAssignable() bool {
	return m.Status == MachineStatusActive
}

// MachineImage is a stored photo of a machine
type MachineImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	MachineID uint   `gorm:"not null;index" json:"machine_id"`
	ImageKey  string `gorm:"not null" json:"image_key"`
	ImageURL  string `gorm:"-" json:"image_url,omitempty"`
}

// TableName specifies the table name for the MachineImage model
func (MachineImage) TableName() string {
	return "machine_images"
}

// MachineMaintenance records a service performed on a machine
type MachineMaintenance struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	MachineID   uint            `gorm:"not null;index" json:"machine_id"`
	Date        string          `gorm:"type:varchar(10);not null" json:"date"`
	Description string          `gorm:"not null" json:"description"`
	Cost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for the MachineMaintenance model
func (MachineMaintenance) TableName() string {
	return "machine_maintenance"
}
