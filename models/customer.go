package models

import "time"

// Customer is a person who requests quotations through the public site
type Customer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	Password        string    `gorm:"not null" json:"-"` // bcrypt hash, never serialised
	Phone           *string   `json:"phone"`
	ProfileImageKey *string   `json:"-"`
	ProfileImageURL *string   `gorm:"-" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}
