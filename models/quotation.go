package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approval states shared by the admin and customer sides of a quotation
const (
	ApprovalPending  = "Pending"
	ApprovalApproved = "Approved"
	ApprovalRejected = "Rejected"
)

// ApprovalStatuses lists the accepted approval states
var ApprovalStatuses = []string{ApprovalPending, ApprovalApproved, ApprovalRejected}

// Quotation is a customer's job request, priced by an admin and approved by both sides
type Quotation struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	CustomerID     uint                `gorm:"not null;index" json:"customer_id"`
	Customer       *Customer           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerName   string              `json:"customer_name"`
	JobDescription string              `gorm:"type:text;not null" json:"job_description"`
	JobCategory    string              `gorm:"not null" json:"job_category"`
	Status         string              `gorm:"not null;default:'Pending';index" json:"status"`          // admin side
	CustomerStatus string              `gorm:"not null;default:'Pending';index" json:"customer_status"` // customer side
	Amount         decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Phone          string              `json:"phone"`
	Location       string              `json:"location"`
	RequiredBy     *string             `gorm:"type:varchar(10)" json:"required_by"`
	JobCode        string              `gorm:"index" json:"job_code"`
	Materials      []QuotationMaterial `gorm:"foreignKey:QuotationID" json:"materials,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TableName specifies the table name for the Quotation model
func (Quotation) TableName() string {
	return "quotations"
}

// QuotationMaterial is a priced material line captured when the quotation was priced.
// It does not follow later changes to the live Material row.
type QuotationMaterial struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	QuotationID uint            `gorm:"not null;index" json:"quotation_id"`
	MaterialID  *uint           `gorm:"index" json:"material_id"`
	Name        string          `gorm:"not null" json:"name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

// TableName specifies the table name for the QuotationMaterial model
func (QuotationMaterial) TableName() string {
	return "quotation_materials"
}

// LineTotal is quantity times unit price
func (m QuotationMaterial) LineTotal() decimal.Decimal {
	return m.UnitPrice.Mul(decimal.NewFromInt(int64(m.Quantity)))
}
