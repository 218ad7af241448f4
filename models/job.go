package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job statuses
const (
	JobNotStarted = "Not Started"
	JobPending    = "Pending"
	JobInProgress = "In Progress"
	JobCompleted  = "Completed"
	JobCancelled  = "Cancelled"
	JobDelivered  = "Delivered"
)

// JobStatuses lists the accepted job statuses
var JobStatuses = []string{JobNotStarted, JobPending, JobInProgress, JobCompleted, JobCancelled, JobDelivered}

// Job is the schedulable unit of work behind a quotation.
// StartDate is the day resources are booked for; FinishDate comes from the quotation's required-by date.
type Job struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	QuotationID uint            `gorm:"not null;index" json:"quotation_id"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id"`
	Name        string          `gorm:"not null" json:"name"`
	Category    string          `json:"category"`
	StartDate   *string         `gorm:"type:varchar(10);index" json:"start_date"`
	FinishDate  *string         `gorm:"type:varchar(10)" json:"finish_date"`
	Status      string          `gorm:"not null;default:'Not Started';index" json:"status"`
	CustomerID  uint            `gorm:"index" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	JobCode     string          `json:"job_code"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Job model
func (Job) TableName() string {
	return "jobs"
}

// IsCompleted reports whether the job is closed for new assignments
func (j Job) IsCompleted() bool {
	return j.Status == JobCompleted
}

// JobEmployeeAssignment books an employee on a job.
// WorkDate mirrors the job's start date so the database can refuse a second booking on the same day.
type JobEmployeeAssignment struct {
	JobID      uint      `gorm:"primaryKey" json:"job_id"`
	EmployeeID uint      `gorm:"primaryKey;uniqueIndex:idx_employee_work_date" json:"employee_id"`
	WorkDate   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_employee_work_date" json:"work_date"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	Employee   Employee  `gorm:"foreignKey:EmployeeID" json:"-"`
	Job        Job       `gorm:"foreignKey:JobID" json:"-"`
}

// TableName specifies the table name for the JobEmployeeAssignment model
func (JobEmployeeAssignment) TableName() string {
	return "job_employee_assignments"
}

// JobMachineAssignment books a machine on a job
type JobMachineAssignment struct {
	JobID      uint      `gorm:"primaryKey" json:"job_id"`
	MachineID  uint      `gorm:"primaryKey;uniqueIndex:idx_machine_work_date" json:"machine_id"`
	WorkDate   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_machine_work_date" json:"work_date"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	Machine    Machine   `gorm:"foreignKey:MachineID" json:"-"`
	Job        Job       `gorm:"foreignKey:JobID" json:"-"`
}

// TableName specifies the table name for the JobMachineAssignment model
func (JobMachineAssignment) TableName() string {
	return "job_machine_assignments"
}
