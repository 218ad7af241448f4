package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironworks/ironworks-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceService bills approved quotations and records payments against them
type InvoiceService struct {
	db *gorm.DB
}

// NewInvoiceService creates an invoice service on top of db
func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// Create bills a quotation once the customer has approved it.
// The invoice, its items and the stock decrements commit together or not at all.
// Without lines the quotation's saved material snapshot is billed; without an amount
// the quotation amount is used.
func (s *InvoiceService) Create(ctx context.Context, quotationID uint, amount *decimal.Decimal, lines []MaterialLine) (*models.Invoice, error) {
	if quotationID == 0 {
		return nil, validationError("MISSING_QUOTATION_ID", "Quotation ID is required")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotation, err := loadQuotation(tx.Preload("Materials"), quotationID)
		if err != nil {
			return err
		}
		if quotation.CustomerStatus != models.ApprovalApproved {
			return businessError("CUSTOMER_APPROVAL_PENDING", "Cannot create invoice - waiting for customer approval", nil)
		}

		var existing int64
		if err := tx.Model(&models.Invoice{}).Where("quotation_id = ?", quotation.ID).Count(&existing).Error; err != nil {
			return internalError("Failed to check existing invoices", err)
		}
		if existing > 0 {
			return conflictError("INVOICE_EXISTS", fmt.Sprintf("Quotation %d already has an invoice", quotation.ID))
		}

		items, err := invoiceItems(tx, quotation, lines)
		if err != nil {
			return err
		}

		total := quotation.Amount
		if amount != nil {
			total = *amount
		}
		if total.IsZero() {
			for _, item := range items {
				total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}
		}
		if !total.IsPositive() {
			return validationError("INVALID_AMOUNT", "Invoice amount must be greater than zero")
		}

		for _, item := range items {
			if item.MaterialID == nil {
				continue
			}
			if err := takeStock(tx, *item.MaterialID, item.MaterialName, item.Quantity); err != nil {
				return err
			}
		}

		invoice = models.Invoice{
			QuotationID:   quotation.ID,
			TotalAmount:   total.Round(2),
			PaidAmount:    decimal.Zero,
			PaymentStatus: models.PaymentPending,
			Items:         items,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflictError("INVOICE_EXISTS", fmt.Sprintf("Quotation %d already has an invoice", quotation.ID))
			}
			return internalError("Failed to create invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// AddPayment adds amount to the invoice's paid total and re-derives its payment status.
// Payments beyond the total are accepted; a Completed invoice never reverts.
func (s *InvoiceService) AddPayment(ctx context.Context, invoiceID uint, amount decimal.Decimal) (*models.Invoice, error) {
	if invoiceID == 0 {
		return nil, validationError("MISSING_INVOICE_ID", "Invoice ID is required")
	}
	if !amount.IsPositive() {
		return nil, validationError("INVALID_AMOUNT", "paymentAmount must be greater than zero")
	}

	var invoice *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if invoice, err = loadInvoice(tx.Clauses(clause.Locking{Strength: "UPDATE"}), invoiceID); err != nil {
			return err
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(amount).Round(2)
		if invoice.PaymentStatus != models.PaymentCompleted {
			invoice.PaymentStatus = models.DerivePaymentStatus(invoice.PaidAmount, invoice.TotalAmount)
		}
		if err := tx.Model(invoice).Select("paid_amount", "payment_status").Updates(invoice).Error; err != nil {
			return internalError("Failed to record payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Get returns an invoice with its items
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return loadInvoice(s.db.WithContext(ctx).Preload("Items"), id)
}

// GetByQuotation returns the invoice billed for a quotation
func (s *InvoiceService) GetByQuotation(ctx context.Context, quotationID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Preload("Items").Where("quotation_id = ?", quotationID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("INVOICE_NOT_FOUND", fmt.Sprintf("No invoice for quotation %d", quotationID))
		}
		return nil, internalError("Failed to load invoice", err)
	}
	return &invoice, nil
}

// List returns every invoice with its quotation, newest first
func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	if err := s.db.WithContext(ctx).Preload("Quotation").Order("created_at DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, internalError("Failed to load invoices", err)
	}
	return invoices, nil
}

func invoiceItems(tx *gorm.DB, quotation *models.Quotation, lines []MaterialLine) ([]models.InvoiceItem, error) {
	if len(lines) == 0 {
		items := make([]models.InvoiceItem, 0, len(quotation.Materials))
		for _, m := range quotation.Materials {
			items = append(items, models.InvoiceItem{
				MaterialID:   m.MaterialID,
				MaterialName: m.Name,
				Quantity:     m.Quantity,
				UnitPrice:    m.UnitPrice,
			})
		}
		return items, nil
	}

	snapshot, err := snapshotLines(tx, quotation.ID, lines)
	if err != nil {
		return nil, err
	}
	items := make([]models.InvoiceItem, 0, len(snapshot))
	for _, m := range snapshot {
		items = append(items, models.InvoiceItem{
			MaterialID:   m.MaterialID,
			MaterialName: m.Name,
			Quantity:     m.Quantity,
			UnitPrice:    m.UnitPrice,
		})
	}
	return items, nil
}

// takeStock decrements a material's quantity only when enough is on hand
func takeStock(tx *gorm.DB, materialID uint, name string, quantity int) error {
	res := tx.Model(&models.Material{}).
		Where("id = ? AND quantity >= ?", materialID, quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return internalError("Failed to update material stock", res.Error)
	}
	if res.RowsAffected == 0 {
		var material models.Material
		if err := tx.First(&material, materialID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("MATERIAL_NOT_FOUND", fmt.Sprintf("Material %d not found", materialID))
			}
			return internalError("Failed to load material", err)
		}
		return businessError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Not enough %s in stock: %d requested, %d available", name, quantity, material.Quantity),
			map[string]interface{}{"material_id": materialID, "requested": quantity, "available": material.Quantity})
	}
	return nil
}

func loadInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.First(&invoice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %d not found", id))
		}
		return nil, internalError("Failed to load invoice", err)
	}
	return &invoice, nil
}
