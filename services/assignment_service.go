package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ironworks/ironworks-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resource types named in conflict reports
const (
	ResourceEmployee = "employee"
	ResourceMachine  = "machine"
)

// Conflict describes a resource already booked on another job for the same day
type Conflict struct {
	ResourceType string `json:"resource_type"`
	ResourceID   uint   `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	JobID        uint   `json:"job_id"`
	JobName      string `json:"job_name"`
	Date         string `json:"date"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s (ID %d) is already assigned to job #%d (%s) on %s",
		c.ResourceType, c.ResourceName, c.ResourceID, c.JobID, c.JobName, c.Date)
}

// AssignResult is returned by Assign
type AssignResult struct {
	AssignedEmployees int `json:"assignedEmployees"`
	AssignedMachines  int `json:"assignedMachines"`
}

// UpdateResult is returned by Update
type UpdateResult struct {
	AddedEmployees int `json:"addedEmployees"`
	AddedMachines  int `json:"addedMachines"`
	TotalEmployees int `json:"totalEmployees"`
	TotalMachines  int `json:"totalMachines"`
}

// RemoveResult is returned by Remove
type RemoveResult struct {
	RemovedEmployees   int `json:"removedEmployees"`
	RemovedMachines    int `json:"removedMachines"`
	RemainingEmployees int `json:"remainingEmployees"`
	RemainingMachines  int `json:"remainingMachines"`
}

// AssignedEmployee is an employee booked on a job together with their booking history
type AssignedEmployee struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Position        string    `json:"position"`
	Active          bool      `json:"active"`
	Available       bool      `json:"available"`
	AssignedAt      time.Time `json:"assigned_at"`
	AssignmentCount int       `json:"assignment_count"`
	LastAssignedAt  time.Time `json:"last_assigned_at"`
}

// AssignedMachine is a machine booked on a job together with its booking history
type AssignedMachine struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Available       bool      `json:"available"`
	AssignedAt      time.Time `json:"assigned_at"`
	AssignmentCount int       `json:"assignment_count"`
	LastAssignedAt  time.Time `json:"last_assigned_at"`
}

// AssignedResources is the read-only view of a job's bookings
type AssignedResources struct {
	Employees []AssignedEmployee `json:"employees"`
	Machines  []AssignedMachine  `json:"machines"`
}

// AssignmentService books employees and machines on jobs.
// Every mutation runs in a single transaction so a failed request leaves no partial bookings.
type AssignmentService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAssignmentService creates an assignment service on top of db
func NewAssignmentService(db *gorm.DB) *AssignmentService {
	return &AssignmentService{db: db, now: time.Now}
}

// Assign replaces the job's full set of employees and machines
func (s *AssignmentService) Assign(ctx context.Context, jobID uint, employeeIDs, machineIDs []uint) (*AssignResult, error) {
	if err := validateRequest(jobID, employeeIDs, machineIDs); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := loadSchedulableJob(tx, jobID)
		if err != nil {
			return err
		}
		if err := checkResources(tx, job, employeeIDs, machineIDs); err != nil {
			return err
		}

		if err := tx.Where("job_id = ?", job.ID).Delete(&models.JobEmployeeAssignment{}).Error; err != nil {
			return internalError("Failed to clear employee assignments", err)
		}
		if err := tx.Where("job_id = ?", job.ID).Delete(&models.JobMachineAssignment{}).Error; err != nil {
			return internalError("Failed to clear machine assignments", err)
		}

		if err := s.insertAssignments(tx, job, employeeIDs, machineIDs); err != nil {
			return err
		}
		return promoteToInProgress(tx, job)
	})
	if err != nil {
		return nil, err
	}

	return &AssignResult{AssignedEmployees: len(employeeIDs), AssignedMachines: len(machineIDs)}, nil
}

// Update adds resources to a job without touching the ones already booked
func (s *AssignmentService) Update(ctx context.Context, jobID uint, employeeIDs, machineIDs []uint) (*UpdateResult, error) {
	if err := validateRequest(jobID, employeeIDs, machineIDs); err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := loadSchedulableJob(tx, jobID)
		if err != nil {
			return err
		}

		currentEmployees, currentMachines, err := assignedIDs(tx, job.ID)
		if err != nil {
			return err
		}
		newEmployees := difference(employeeIDs, currentEmployees)
		newMachines := difference(machineIDs, currentMachines)

		if err := checkResources(tx, job, newEmployees, newMachines); err != nil {
			return err
		}
		if err := s.insertAssignments(tx, job, newEmployees, newMachines); err != nil {
			return err
		}

		result.AddedEmployees = len(newEmployees)
		result.AddedMachines = len(newMachines)
		result.TotalEmployees = len(currentEmployees) + len(newEmployees)
		result.TotalMachines = len(currentMachines) + len(newMachines)

		if result.AddedEmployees+result.AddedMachines == 0 {
			return nil
		}
		return promoteToInProgress(tx, job)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Remove drops the requested bookings that exist; unknown ids are ignored.
// Completed jobs are accepted so that bookings can still be corrected afterwards.
func (s *AssignmentService) Remove(ctx context.Context, jobID uint, employeeIDs, machineIDs []uint) (*RemoveResult, error) {
	if err := validateRequest(jobID, employeeIDs, machineIDs); err != nil {
		return nil, err
	}

	result := &RemoveResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := loadJob(tx, jobID)
		if err != nil {
			return err
		}

		if len(employeeIDs) > 0 {
			res := tx.Where("job_id = ? AND employee_id IN ?", job.ID, employeeIDs).Delete(&models.JobEmployeeAssignment{})
			if res.Error != nil {
				return internalError("Failed to remove employee assignments", res.Error)
			}
			result.RemovedEmployees = int(res.RowsAffected)
		}
		if len(machineIDs) > 0 {
			res := tx.Where("job_id = ? AND machine_id IN ?", job.ID, machineIDs).Delete(&models.JobMachineAssignment{})
			if res.Error != nil {
				return internalError("Failed to remove machine assignments", res.Error)
			}
			result.RemovedMachines = int(res.RowsAffected)
		}

		remainingEmployees, remainingMachines, err := assignedIDs(tx, job.ID)
		if err != nil {
			return err
		}
		result.RemainingEmployees = len(remainingEmployees)
		result.RemainingMachines = len(remainingMachines)

		removed := result.RemovedEmployees + result.RemovedMachines
		remaining := result.RemainingEmployees + result.RemainingMachines
		if removed > 0 && remaining == 0 && !job.IsCompleted() {
			if err := tx.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobNotStarted).Error; err != nil {
				return internalError("Failed to update job status", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetAssignedResources lists the job's bookings with each resource's overall assignment count
// and most recent assignment time
func (s *AssignmentService) GetAssignedResources(ctx context.Context, jobID uint) (*AssignedResources, error) {
	if jobID == 0 {
		return nil, validationError("MISSING_JOB_ID", "Job ID is required")
	}
	db := s.db.WithContext(ctx)
	if _, err := loadJob(db, jobID); err != nil {
		return nil, err
	}

	result := &AssignedResources{Employees: []AssignedEmployee{}, Machines: []AssignedMachine{}}

	var employeeRows []models.JobEmployeeAssignment
	if err := db.Preload("Employee").Where("job_id = ?", jobID).Find(&employeeRows).Error; err != nil {
		return nil, internalError("Failed to load employee assignments", err)
	}
	employeeIDs := make([]uint, 0, len(employeeRows))
	for _, row := range employeeRows {
		employeeIDs = append(employeeIDs, row.EmployeeID)
	}
	var employeeHistory []models.JobEmployeeAssignment
	if len(employeeIDs) > 0 {
		if err := db.Where("employee_id IN ?", employeeIDs).Find(&employeeHistory).Error; err != nil {
			return nil, internalError("Failed to load employee history", err)
		}
	}
	for _, row := range employeeRows {
		count, last := 0, row.AssignedAt
		for _, h := range employeeHistory {
			if h.EmployeeID != row.EmployeeID {
				continue
			}
			count++
			if h.AssignedAt.After(last) {
				last = h.AssignedAt
			}
		}
		active := bool(row.Employee.Active)
		result.Employees = append(result.Employees, AssignedEmployee{
			ID:              row.EmployeeID,
			Name:            row.Employee.Name,
			Position:        row.Employee.Position,
			Active:          active,
			Available:       active,
			AssignedAt:      row.AssignedAt,
			AssignmentCount: count,
			LastAssignedAt:  last,
		})
	}

	var machineRows []models.JobMachineAssignment
	if err := db.Preload("Machine").Where("job_id = ?", jobID).Find(&machineRows).Error; err != nil {
		return nil, internalError("Failed to load machine assignments", err)
	}
	machineIDs := make([]uint, 0, len(machineRows))
	for _, row := range machineRows {
		machineIDs = append(machineIDs, row.MachineID)
	}
	var machineHistory []models.JobMachineAssignment
	if len(machineIDs) > 0 {
		if err := db.Where("machine_id IN ?", machineIDs).Find(&machineHistory).Error; err != nil {
			return nil, internalError("Failed to load machine history", err)
		}
	}
	for _, row := range machineRows {
		count, last := 0, row.AssignedAt
		for _, h := range machineHistory {
			if h.MachineID != row.MachineID {
				continue
			}
			count++
			if h.AssignedAt.After(last) {
				last = h.AssignedAt
			}
		}
		result.Machines = append(result.Machines, AssignedMachine{
			ID:              row.MachineID,
			Name:            row.Machine.Name,
			Status:          row.Machine.Status,
			Available:       row.Machine.IsAssignable(),
			AssignedAt:      row.AssignedAt,
			AssignmentCount: count,
			LastAssignedAt:  last,
		})
	}

	sort.Slice(result.Employees, func(i, j int) bool { return result.Employees[i].Name < result.Employees[j].Name })
	sort.Slice(result.Machines, func(i, j int) bool { return result.Machines[i].Name < result.Machines[j].Name })
	return result, nil
}

func (s *AssignmentService) insertAssignments(tx *gorm.DB, job *models.Job, employeeIDs, machineIDs []uint) error {
	now := s.now()

	if len(employeeIDs) > 0 {
		rows := make([]models.JobEmployeeAssignment, 0, len(employeeIDs))
		for _, id := range employeeIDs {
			rows = append(rows, models.JobEmployeeAssignment{JobID: job.ID, EmployeeID: id, WorkDate: *job.StartDate, AssignedAt: now})
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return insertError("employee", err)
		}
	}

	if len(machineIDs) > 0 {
		rows := make([]models.JobMachineAssignment, 0, len(machineIDs))
		for _, id := range machineIDs {
			rows = append(rows, models.JobMachineAssignment{JobID: job.ID, MachineID: id, WorkDate: *job.StartDate, AssignedAt: now})
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return insertError("machine", err)
		}
	}
	return nil
}

// insertError turns a unique-index violation into the same conflict a pre-check would report.
// It fires when a concurrent request booked the resource between the check and the insert.
func insertError(resource string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return businessError("SCHEDULING_CONFLICT",
			fmt.Sprintf("An %s was booked on another job for the same date while this request was running", resource), nil)
	}
	return internalError(fmt.Sprintf("Failed to insert %s assignments", resource), err)
}

func validateRequest(jobID uint, employeeIDs, machineIDs []uint) error {
	if jobID == 0 {
		return validationError("MISSING_JOB_ID", "Job ID is required")
	}
	if len(employeeIDs)+len(machineIDs) == 0 {
		return validationError("NO_RESOURCES", "At least one employee or machine must be provided")
	}
	return nil
}

func loadJob(tx *gorm.DB, jobID uint) (*models.Job, error) {
	var job models.Job
	if err := tx.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("JOB_NOT_FOUND", fmt.Sprintf("Job %d not found", jobID))
		}
		return nil, internalError("Failed to load job", err)
	}
	return &job, nil
}

func loadSchedulableJob(tx *gorm.DB, jobID uint) (*models.Job, error) {
	job, err := loadJob(tx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsCompleted() {
		return nil, businessError("JOB_COMPLETED", "Cannot assign resources to a completed job", nil)
	}
	if job.StartDate == nil || *job.StartDate == "" {
		return nil, businessError("JOB_NOT_SCHEDULED", "Job has no start date; schedule it before assigning resources", nil)
	}
	return job, nil
}

// checkResources runs, in order, the existence, active-status and same-day conflict checks
func checkResources(tx *gorm.DB, job *models.Job, employeeIDs, machineIDs []uint) error {
	var employees []models.Employee
	if len(employeeIDs) > 0 {
		if err := tx.Where("id IN ?", employeeIDs).Find(&employees).Error; err != nil {
			return internalError("Failed to load employees", err)
		}
	}
	if missing := missingIDs(employeeIDs, employees, func(e models.Employee) uint { return e.ID }); len(missing) > 0 {
		return notFoundError("EMPLOYEE_NOT_FOUND", "Employees not found: "+joinIDs(missing))
	}

	var machines []models.Machine
	if len(machineIDs) > 0 {
		if err := tx.Where("id IN ?", machineIDs).Find(&machines).Error; err != nil {
			return internalError("Failed to load machines", err)
		}
	}
	if missing := missingIDs(machineIDs, machines, func(m models.Machine) uint { return m.ID }); len(missing) > 0 {
		return notFoundError("MACHINE_NOT_FOUND", "Machines not found: "+joinIDs(missing))
	}

	var inactive []string
	for _, e := range employees {
		if !e.Active {
			inactive = append(inactive, fmt.Sprintf("%s (ID %d)", e.Name, e.ID))
		}
	}
	if len(inactive) > 0 {
		return businessError("INACTIVE_EMPLOYEES", "Cannot assign inactive employees: "+strings.Join(inactive, ", "), inactive)
	}

	var unavailable []string
	for _, m := range machines {
		if !m.IsAssignable() {
			unavailable = append(unavailable, fmt.Sprintf("%s (ID %d, %s)", m.Name, m.ID, m.Status))
		}
	}
	if len(unavailable) > 0 {
		return businessError("MACHINES_UNAVAILABLE", "Cannot assign machines that are not Active: "+strings.Join(unavailable, ", "), unavailable)
	}

	conflicts, err := findConflicts(tx, job, employeeIDs, machineIDs)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		parts := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			parts = append(parts, c.String())
		}
		return businessError("SCHEDULING_CONFLICT", "Scheduling conflict: "+strings.Join(parts, "; "), conflicts)
	}
	return nil
}

type conflictRow struct {
	ResourceID   uint
	ResourceName string
	JobID        uint
	JobName      string
	StartDate    string
}

// findConflicts looks for bookings of the given resources on other jobs that start the same day
func findConflicts(tx *gorm.DB, job *models.Job, employeeIDs, machineIDs []uint) ([]Conflict, error) {
	conflicts := []Conflict{}

	if len(employeeIDs) > 0 {
		var rows []conflictRow
		err := tx.Table("job_employee_assignments AS a").
			Select("a.employee_id AS resource_id, e.name AS resource_name, j.id AS job_id, j.name AS job_name, j.start_date AS start_date").
			Joins("JOIN jobs j ON j.id = a.job_id").
			Joins("JOIN employees e ON e.id = a.employee_id").
			Where("a.employee_id IN ? AND a.job_id <> ? AND j.start_date = ?", employeeIDs, job.ID, *job.StartDate).
			Order("a.employee_id, j.id").
			Scan(&rows).Error
		if err != nil {
			return nil, internalError("Failed to check employee conflicts", err)
		}
		for _, r := range rows {
			conflicts = append(conflicts, Conflict{ResourceEmployee, r.ResourceID, r.ResourceName, r.JobID, r.JobName, r.StartDate})
		}
	}

	if len(machineIDs) > 0 {
		var rows []conflictRow
		err := tx.Table("job_machine_assignments AS a").
			Select("a.machine_id AS resource_id, m.name AS resource_name, j.id AS job_id, j.name AS job_name, j.start_date AS start_date").
			Joins("JOIN jobs j ON j.id = a.job_id").
			Joins("JOIN machines m ON m.id = a.machine_id").
			Where("a.machine_id IN ? AND a.job_id <> ? AND j.start_date = ?", machineIDs, job.ID, *job.StartDate).
			Order("a.machine_id, j.id").
			Scan(&rows).Error
		if err != nil {
			return nil, internalError("Failed to check machine conflicts", err)
		}
		for _, r := range rows {
			conflicts = append(conflicts, Conflict{ResourceMachine, r.ResourceID, r.ResourceName, r.JobID, r.JobName, r.StartDate})
		}
	}

	return conflicts, nil
}

func assignedIDs(tx *gorm.DB, jobID uint) (employees []uint, machines []uint, err error) {
	if err := tx.Model(&models.JobEmployeeAssignment{}).Where("job_id = ?", jobID).Pluck("employee_id", &employees).Error; err != nil {
		return nil, nil, internalError("Failed to load employee assignments", err)
	}
	if err := tx.Model(&models.JobMachineAssignment{}).Where("job_id = ?", jobID).Pluck("machine_id", &machines).Error; err != nil {
		return nil, nil, internalError("Failed to load machine assignments", err)
	}
	return employees, machines, nil
}

func promoteToInProgress(tx *gorm.DB, job *models.Job) error {
	if job.IsCompleted() || job.Status == models.JobInProgress {
		return nil
	}
	if err := tx.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobInProgress).Error; err != nil {
		return internalError("Failed to update job status", err)
	}
	return nil
}

// difference returns the ids in want that are not in have, preserving order
func difference(want, have []uint) []uint {
	existing := make(map[uint]bool, len(have))
	for _, id := range have {
		existing[id] = true
	}
	var result []uint
	for _, id := range want {
		if !existing[id] {
			existing[id] = true
			result = append(result, id)
		}
	}
	return result
}

func missingIDs[T any](want []uint, found []T, id func(T) uint) []uint {
	present := make(map[uint]bool, len(found))
	for _, f := range found {
		present[id(f)] = true
	}
	var missing []uint
	for _, w := range want {
		if !present[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
