package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Surcharges applied on top of the material subtotal when pricing a quotation
var (
	LaborRate   = decimal.RequireFromString("0.10")
	MachineRate = decimal.RequireFromString("0.08")
)

// MaterialLine is a priced material as sent by the admin UI
type MaterialLine struct {
	MaterialID utils.LooseID   `json:"material_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Total is quantity times unit price
func (l MaterialLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Estimate is the price breakdown of a list of material lines
type Estimate struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Labor    decimal.Decimal `json:"labor"`
	Machine  decimal.Decimal `json:"machine"`
	Total    decimal.Decimal `json:"total"`
}

// NewQuotation holds the fields a customer submits when requesting a quotation
type NewQuotation struct {
	CustomerID     uint
	CustomerName   string
	JobDescription string
	JobCategory    string
	Phone          string
	Location       string
	RequiredBy     interface{}
	JobCode        string
}

// QuotationService drives a quotation through admin pricing and dual approval
type QuotationService struct {
	db *gorm.DB
}

// NewQuotationService creates a quotation service on top of db
func NewQuotationService(db *gorm.DB) *QuotationService {
	return &QuotationService{db: db}
}

// Create stores a new quotation with both approval sides pending
func (s *QuotationService) Create(ctx context.Context, in NewQuotation) (*models.Quotation, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"job_description", in.JobDescription},
		{"job_category", in.JobCategory},
		{"userName", in.CustomerName},
		{"phone", in.Phone},
		{"location", in.Location},
		{"jobID", in.JobCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if in.CustomerID == 0 {
		missing = append(missing, "userId")
	}
	if in.RequiredBy == nil {
		missing = append(missing, "immediate")
	}
	if len(missing) > 0 {
		return nil, &Error{Kind: KindValidation, Code: "MISSING_FIELDS", Message: "All fields are required", Details: missing}
	}

	requiredBy, ok := utils.NormalizeDate(in.RequiredBy)
	if !ok {
		return nil, validationError("INVALID_DATE", "immediate must be a valid date (YYYY-MM-DD)")
	}

	db := s.db.WithContext(ctx)
	var customer models.Customer
	if err := db.First(&customer, in.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("CUSTOMER_NOT_FOUND", fmt.Sprintf("Customer %d not found", in.CustomerID))
		}
		return nil, internalError("Failed to load customer", err)
	}

	quotation := models.Quotation{
		CustomerID:     customer.ID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		JobDescription: strings.TrimSpace(in.JobDescription),
		JobCategory:    strings.TrimSpace(in.JobCategory),
		Status:         models.ApprovalPending,
		CustomerStatus: models.ApprovalPending,
		Amount:         decimal.Zero,
		Phone:          strings.TrimSpace(in.Phone),
		Location:       strings.TrimSpace(in.Location),
		RequiredBy:     &requiredBy,
		JobCode:        strings.TrimSpace(in.JobCode),
	}
	if err := db.Create(&quotation).Error; err != nil {
		return nil, internalError("Failed to create quotation", err)
	}
	return &quotation, nil
}

// Get returns a quotation with its material snapshot
func (s *QuotationService) Get(ctx context.Context, id uint) (*models.Quotation, error) {
	return loadQuotation(s.db.WithContext(ctx).Preload("Materials"), id)
}

// List returns all quotations, newest first, optionally filtered by admin status
func (s *QuotationService) List(ctx context.Context, status string) ([]models.Quotation, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		if !contains(models.ApprovalStatuses, status) {
			return nil, validationError("INVALID_STATUS", "status must be one of "+strings.Join(models.ApprovalStatuses, ", "))
		}
		query = query.Where("status = ?", status)
	}

	quotations := []models.Quotation{}
	if err := query.Find(&quotations).Error; err != nil {
		return nil, internalError("Failed to load quotations", err)
	}
	return quotations, nil
}

// ListForCustomer returns the quotations a customer submitted
func (s *QuotationService) ListForCustomer(ctx context.Context, customerID uint) ([]models.Quotation, error) {
	quotations := []models.Quotation{}
	err := s.db.WithContext(ctx).Preload("Materials").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&quotations).Error
	if err != nil {
		return nil, internalError("Failed to load quotations", err)
	}
	return quotations, nil
}

// SetStatus records the admin decision, optionally rewording the job description
func (s *QuotationService) SetStatus(ctx context.Context, id uint, status string, jobDescription *string) (*models.Quotation, error) {
	if id == 0 {
		return nil, validationError("MISSING_QUOTATION_ID", "Quotation ID is required")
	}
	if !contains(models.ApprovalStatuses, status) {
		return nil, validationError("INVALID_STATUS", "status must be one of "+strings.Join(models.ApprovalStatuses, ", "))
	}

	db := s.db.WithContext(ctx)
	quotation, err := loadQuotation(db, id)
	if err != nil {
		return nil, err
	}

	quotation.Status = status
	if jobDescription != nil && strings.TrimSpace(*jobDescription) != "" {
		quotation.JobDescription = strings.TrimSpace(*jobDescription)
	}
	if err := db.Model(quotation).Select("status", "job_description").Updates(quotation).Error; err != nil {
		return nil, internalError("Failed to update quotation status", err)
	}
	return quotation, nil
}

// SetCustomerStatus records the customer decision.
// A non-zero customerID restricts the change to that customer's own quotations.
func (s *QuotationService) SetCustomerStatus(ctx context.Context, id uint, status string, customerID uint) (*models.Quotation, error) {
	if id == 0 {
		return nil, validationError("MISSING_QUOTATION_ID", "Quotation ID is required")
	}
	if !contains(models.ApprovalStatuses, status) {
		return nil, validationError("INVALID_STATUS", "customer_status must be one of "+strings.Join(models.ApprovalStatuses, ", "))
	}

	db := s.db.WithContext(ctx)
	quotation, err := loadQuotation(db, id)
	if err != nil {
		return nil, err
	}
	if customerID != 0 && quotation.CustomerID != customerID {
		return nil, notFoundError("QUOTATION_NOT_FOUND", fmt.Sprintf("Quotation %d not found", id))
	}

	if err := db.Model(quotation).Update("customer_status", status).Error; err != nil {
		return nil, internalError("Failed to update customer status", err)
	}
	quotation.CustomerStatus = status
	return quotation, nil
}

// SetAmount prices the quotation: it stores the amount, replaces the material snapshot
// and marks the admin side Approved, all in one transaction
func (s *QuotationService) SetAmount(ctx context.Context, id uint, amount decimal.Decimal, lines []MaterialLine) (*models.Quotation, error) {
	if id == 0 {
		return nil, validationError("MISSING_QUOTATION_ID", "Quotation ID is required")
	}
	if amount.IsNegative() {
		return nil, validationError("INVALID_AMOUNT", "amount must not be negative")
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var quotation *models.Quotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quotation, err = loadQuotation(tx, id)
		if err != nil {
			return err
		}

		snapshot, err := snapshotLines(tx, quotation.ID, lines)
		if err != nil {
			return err
		}

		if err := tx.Where("quotation_id = ?", quotation.ID).Delete(&models.QuotationMaterial{}).Error; err != nil {
			return internalError("Failed to clear quotation materials", err)
		}
		if len(snapshot) > 0 {
			if err := tx.Create(&snapshot).Error; err != nil {
				return internalError("Failed to save quotation materials", err)
			}
		}

		quotation.Amount = amount.Round(2)
		quotation.Status = models.ApprovalApproved
		if err := tx.Model(quotation).Select("amount", "status").Updates(quotation).Error; err != nil {
			return internalError("Failed to update quotation amount", err)
		}
		quotation.Materials = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quotation, nil
}

// EstimateLines prices material lines: subtotal plus the labor and machine surcharges
func EstimateLines(lines []MaterialLine) (*Estimate, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	labor := subtotal.Mul(LaborRate).Round(2)
	machine := subtotal.Mul(MachineRate).Round(2)

	return &Estimate{
		Subtotal: subtotal.Round(2),
		Labor:    labor,
		Machine:  machine,
		Total:    subtotal.Add(labor).Add(machine).Round(2),
	}, nil
}

func validateLines(lines []MaterialLine) error {
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" && !l.MaterialID.Valid {
			return validationError("INVALID_MATERIAL", fmt.Sprintf("materials[%d] needs a name or material_id", i))
		}
		if l.Quantity <= 0 {
			return validationError("INVALID_MATERIAL", fmt.Sprintf("materials[%d] quantity must be greater than zero", i))
		}
		if l.UnitPrice.IsNegative() {
			return validationError("INVALID_MATERIAL", fmt.Sprintf("materials[%d] unit_price must not be negative", i))
		}
	}
	return nil
}

// snapshotLines resolves referenced materials and builds the rows to persist
func snapshotLines(tx *gorm.DB, quotationID uint, lines []MaterialLine) ([]models.QuotationMaterial, error) {
	snapshot := make([]models.QuotationMaterial, 0, len(lines))
	for _, l := range lines {
		row := models.QuotationMaterial{
			QuotationID: quotationID,
			Name:        strings.TrimSpace(l.Name),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.Round(2),
		}
		if l.MaterialID.Valid {
			var material models.Material
			if err := tx.First(&material, l.MaterialID.Value).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, notFoundError("MATERIAL_NOT_FOUND", fmt.Sprintf("Material %d not found", l.MaterialID.Value))
				}
				return nil, internalError("Failed to load material", err)
			}
			id := material.ID
			row.MaterialID = &id
			if row.Name == "" {
				row.Name = material.Name
			}
		}
		snapshot = append(snapshot, row)
	}
	return snapshot, nil
}

func loadQuotation(tx *gorm.DB, id uint) (*models.Quotation, error) {
	var quotation models.Quotation
	if err := tx.First(&quotation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("QUOTATION_NOT_FOUND", fmt.Sprintf("Quotation %d not found", id))
		}
		return nil, internalError("Failed to load quotation", err)
	}
	return &quotation, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
