package models

import (
	"time"

	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
)

// Employee is a workshop worker that can be assigned to jobs while active
type Employee struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Position  string          `gorm:"not null" json:"position"`
	Salary    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"salary"`
	Active    utils.Flag      `gorm:"not null" json:"active"`
	Email     *string         `json:"email"`
	Phone     *string         `json:"phone"`
	Address   *string         `json:"address"`
	Images    []EmployeeImage `gorm:"foreignKey:EmployeeID" json:"images"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// EmployeeImage is a stored photo of an employee
type EmployeeImage struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EmployeeID uint   `gorm:"not null;index" json:"employee_id"`
	ImageKey   string `gorm:"not null" json:"image_key"`
	ImageURL   string `gorm:"-" json:"image_url,omitempty"`
}

// TableName specifies the table name for the EmployeeImage model
func (EmployeeImage) TableName() string {
	return "employee_images"
}
