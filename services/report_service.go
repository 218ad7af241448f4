package services

import (
	"context"
	"fmt"
	"io"

	"github.com/ironworks/ironworks-api/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// LowStockThreshold is the quantity at or below which a material is reported as low
const LowStockThreshold = 5

// InvoiceTotals sums billing across all invoices
type InvoiceTotals struct {
	Count       int64           `json:"count"`
	Billed      decimal.Decimal `json:"billed"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Summary backs the admin dashboard
type Summary struct {
	JobsByStatus               map[string]int64  `json:"jobs_by_status"`
	QuotationsByStatus         map[string]int64  `json:"quotations_by_status"`
	QuotationsByCustomerStatus map[string]int64  `json:"quotations_by_customer_status"`
	Invoices                   InvoiceTotals     `json:"invoices"`
	LowStock                   []models.Material `json:"low_stock"`
}

// ReportService aggregates data for dashboards and exports
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a report service on top of db
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

type statusCount struct {
	Status string
	Total  int64
}

// Summary collects the dashboard figures
func (s *ReportService) Summary(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	summary := &Summary{}

	var err error
	if summary.JobsByStatus, err = countBy(db, &models.Job{}, "status", models.JobStatuses); err != nil {
		return nil, internalError("Failed to count jobs", err)
	}
	if summary.QuotationsByStatus, err = countBy(db, &models.Quotation{}, "status", models.ApprovalStatuses); err != nil {
		return nil, internalError("Failed to count quotations", err)
	}
	if summary.QuotationsByCustomerStatus, err = countBy(db, &models.Quotation{}, "customer_status", models.ApprovalStatuses); err != nil {
		return nil, internalError("Failed to count quotations", err)
	}

	var invoices []models.Invoice
	if err := db.Select("id", "total_amount", "paid_amount").Find(&invoices).Error; err != nil {
		return nil, internalError("Failed to load invoices", err)
	}
	totals := InvoiceTotals{Billed: decimal.Zero, Paid: decimal.Zero, Outstanding: decimal.Zero}
	for _, inv := range invoices {
		totals.Count++
		totals.Billed = totals.Billed.Add(inv.TotalAmount)
		totals.Paid = totals.Paid.Add(inv.PaidAmount)
		totals.Outstanding = totals.Outstanding.Add(inv.Outstanding())
	}
	summary.Invoices = totals

	summary.LowStock = []models.Material{}
	if err := db.Where("quantity <= ?", LowStockThreshold).Order("quantity, name").Find(&summary.LowStock).Error; err != nil {
		return nil, internalError("Failed to load materials", err)
	}

	return summary, nil
}

func countBy(db *gorm.DB, model interface{}, column string, known []string) (map[string]int64, error) {
	var rows []statusCount
	err := db.Model(model).
		Select(column + " AS status, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(known))
	for _, k := range known {
		counts[k] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

var invoiceHeaders = []string{"Invoice", "Quotation", "Customer", "Job Code", "Total", "Paid", "Outstanding", "Status", "Created"}

// WriteInvoicesXLSX renders every invoice into a single-sheet workbook
func (s *ReportService) WriteInvoicesXLSX(ctx context.Context, w io.Writer) error {
	invoices, err := NewInvoiceService(s.db).List(ctx)
	if err != nil {
		return err
	}

	const sheet = "Invoices"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(invoiceHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, inv := range invoices {
		customer, jobCode := "", ""
		if inv.Quotation != nil {
			customer = inv.Quotation.CustomerName
			jobCode = inv.Quotation.JobCode
		}
		row := []interface{}{
			inv.ID,
			inv.QuotationID,
			customer,
			jobCode,
			inv.TotalAmount.InexactFloat64(),
			inv.PaidAmount.InexactFloat64(),
			inv.Outstanding().InexactFloat64(),
			inv.PaymentStatus,
			inv.CreatedAt.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "I", 15); err != nil {
		return err
	}

	return f.Write(w)
}
