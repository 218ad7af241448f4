package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice payment states
const (
	PaymentPending   = "Pending"
	PaymentPartial   = "Partially Paid"
	PaymentCompleted = "Completed"
)

// Invoice is the billable record created from an approved quotation
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	QuotationID   uint            `gorm:"not null;uniqueIndex" json:"quotation_id"`
	Quotation     *Quotation      `gorm:"foreignKey:QuotationID" json:"quotation,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	PaymentStatus string          `gorm:"not null;default:'Pending'" json:"payment_status"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// Outstanding is the unpaid balance, never below zero
func (i Invoice) Outstanding() decimal.Decimal {
	rest := i.TotalAmount.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// DerivePaymentStatus computes the payment state from the paid and total amounts
func DerivePaymentStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentCompleted
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// InvoiceItem is an immutable line created together with its invoice
type InvoiceItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	InvoiceID    uint            `gorm:"not null;index" json:"invoice_id"`
	MaterialID   *uint           `json:"material_id"`
	MaterialName string          `gorm:"not null" json:"material_name"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

// TableName specifies the table name for the InvoiceItem model
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
