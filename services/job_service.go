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

// JobRequest carries the fields used to create or update a job from an invoiced quotation
type JobRequest struct {
	QuotationID     uint
	InvoiceID       *uint
	ExistingJobID   *uint
	Name            string
	Category        string
	ActualStartDate interface{}
	Status          string
	CustomerID      *uint
	Amount          *decimal.Decimal
	JobCode         string
}

// JobService schedules jobs and manages their lifecycle
type JobService struct {
	db *gorm.DB
}

// NewJobService creates a job service on top of db
func NewJobService(db *gorm.DB) *JobService {
	return &JobService{db: db}
}

// CreateOrUpdate upserts the job behind a quotation.
// The job is identified by ExistingJobID when given, otherwise by a job of the same quotation
// whose invoice is unset or equal to the requested one. The quotation's required-by date
// becomes the finish date. Moving the start date moves the job's bookings with it.
func (s *JobService) CreateOrUpdate(ctx context.Context, req JobRequest) (*models.Job, bool, error) {
	if req.QuotationID == 0 {
		return nil, false, validationError("MISSING_QUOTATION_ID", "Quotation ID is required")
	}

	var startDate *string
	if req.ActualStartDate != nil && req.ActualStartDate != "" {
		d, ok := utils.NormalizeDate(req.ActualStartDate)
		if !ok {
			return nil, false, validationError("INVALID_DATE", "actualStartDate must be a valid date (YYYY-MM-DD)")
		}
		startDate = &d
	}
	if req.Status != "" && !contains(models.JobStatuses, req.Status) {
		return nil, false, validationError("INVALID_STATUS", "status must be one of "+strings.Join(models.JobStatuses, ", "))
	}

	var job models.Job
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotation, err := loadQuotation(tx, req.QuotationID)
		if err != nil {
			return err
		}

		if req.InvoiceID != nil {
			invoice, err := loadInvoice(tx, *req.InvoiceID)
			if err != nil {
				return err
			}
			if invoice.QuotationID != quotation.ID {
				return validationError("INVOICE_MISMATCH",
					fmt.Sprintf("Invoice %d belongs to quotation %d, not %d", invoice.ID, invoice.QuotationID, quotation.ID))
			}
			var elsewhere int64
			err = tx.Model(&models.Job{}).
				Where("invoice_id = ? AND quotation_id <> ?", invoice.ID, quotation.ID).
				Count(&elsewhere).Error
			if err != nil {
				return internalError("Failed to check invoice links", err)
			}
			if elsewhere > 0 {
				return conflictError("INVOICE_LINKED_ELSEWHERE", fmt.Sprintf("Invoice %d is already linked to another quotation's job", invoice.ID))
			}
		}

		existing, err := findJob(tx, req)
		if err != nil {
			return err
		}

		if existing == nil {
			job = newJob(quotation, req, startDate)
			if err := tx.Create(&job).Error; err != nil {
				return internalError("Failed to create job", err)
			}
			created = true
			return nil
		}

		job = *existing
		previousStart := job.StartDate
		applyJobRequest(&job, quotation, req, startDate)

		if startDate != nil && (previousStart == nil || *previousStart != *startDate) {
			if err := moveBookings(tx, &job); err != nil {
				return err
			}
		}

		if err := tx.Save(&job).Error; err != nil {
			return internalError("Failed to update job", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &job, created, nil
}

// List returns jobs ordered by start date, optionally filtered by status
func (s *JobService) List(ctx context.Context, status string) ([]models.Job, error) {
	query := s.db.WithContext(ctx).Order("start_date IS NULL, start_date, id")
	if status != "" {
		if !contains(models.JobStatuses, status) {
			return nil, validationError("INVALID_STATUS", "status must be one of "+strings.Join(models.JobStatuses, ", "))
		}
		query = query.Where("status = ?", status)
	}

	jobs := []models.Job{}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, internalError("Failed to load jobs", err)
	}
	return jobs, nil
}

// Get returns a single job
func (s *JobService) Get(ctx context.Context, id uint) (*models.Job, error) {
	return loadJob(s.db.WithContext(ctx), id)
}

// SetStatus moves a job to one of the known statuses
func (s *JobService) SetStatus(ctx context.Context, id uint, status string) (*models.Job, error) {
	if !contains(models.JobStatuses, status) {
		return nil, validationError("INVALID_STATUS", "status must be one of "+strings.Join(models.JobStatuses, ", "))
	}

	db := s.db.WithContext(ctx)
	job, err := loadJob(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(job).Update("status", status).Error; err != nil {
		return nil, internalError("Failed to update job status", err)
	}
	job.Status = status
	return job, nil
}

func findJob(tx *gorm.DB, req JobRequest) (*models.Job, error) {
	var job models.Job

	if req.ExistingJobID != nil {
		existing, err := loadJob(tx, *req.ExistingJobID)
		if err != nil {
			return nil, err
		}
		if existing.QuotationID != req.QuotationID {
			return nil, conflictError("JOB_QUOTATION_MISMATCH",
				fmt.Sprintf("Job %d belongs to quotation %d, not %d", existing.ID, existing.QuotationID, req.QuotationID))
		}
		return existing, nil
	}

	query := tx.Where("quotation_id = ?", req.QuotationID)
	if req.InvoiceID != nil {
		query = query.Where("invoice_id IS NULL OR invoice_id = ?", *req.InvoiceID)
	}
	err := query.Order("id").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError("Failed to look up job", err)
	}
	return &job, nil
}

func newJob(quotation *models.Quotation, req JobRequest, startDate *string) models.Job {
	job := models.Job{
		QuotationID: quotation.ID,
		Name:        fmt.Sprintf("Quotation #%d", quotation.ID),
		Category:    quotation.JobCategory,
		Status:      models.JobNotStarted,
		CustomerID:  quotation.CustomerID,
		Amount:      quotation.Amount,
		JobCode:     quotation.JobCode,
	}
	applyJobRequest(&job, quotation, req, startDate)
	return job
}

func applyJobRequest(job *models.Job, quotation *models.Quotation, req JobRequest, startDate *string) {
	if req.InvoiceID != nil {
		id := *req.InvoiceID
		job.InvoiceID = &id
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		job.Name = name
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		job.Category = category
	}
	if startDate != nil {
		job.StartDate = startDate
	}
	job.FinishDate = quotation.RequiredBy
	if req.Status != "" {
		job.Status = req.Status
	}
	if req.CustomerID != nil && *req.CustomerID != 0 {
		job.CustomerID = *req.CustomerID
	}
	if req.Amount != nil {
		job.Amount = req.Amount.Round(2)
	}
	if code := strings.TrimSpace(req.JobCode); code != "" {
		job.JobCode = code
	}
}

// moveBookings re-dates the job's assignments to its new start date after checking
// that none of the booked resources is taken elsewhere on that day
func moveBookings(tx *gorm.DB, job *models.Job) error {
	employees, machines, err := assignedIDs(tx, job.ID)
	if err != nil {
		return err
	}
	if len(employees)+len(machines) == 0 {
		return nil
	}

	conflicts, err := findConflicts(tx, job, employees, machines)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		parts := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			parts = append(parts, c.String())
		}
		return businessError("SCHEDULING_CONFLICT", "Cannot move job: "+strings.Join(parts, "; "), conflicts)
	}

	if err := tx.Model(&models.JobEmployeeAssignment{}).Where("job_id = ?", job.ID).Update("work_date", *job.StartDate).Error; err != nil {
		return insertError("employee", err)
	}
	if err := tx.Model(&models.JobMachineAssignment{}).Where("job_id = ?", job.ID).Update("work_date", *job.StartDate).Error; err != nil {
		return insertError("machine", err)
	}
	return nil
}
