package services

import (
	"context"

	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/utils"
	"gorm.io/gorm"
)

// JobSlot is a job occupying a resource inside a queried date range
type JobSlot struct {
	JobID      uint    `json:"job_id"`
	JobName    string  `json:"job_name"`
	Status     string  `json:"status"`
	StartDate  string  `json:"start_date"`
	FinishDate *string `json:"finish_date"`
}

// EmployeeAvailability reports whether an employee is free in a date range
type EmployeeAvailability struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Active    bool      `json:"active"`
	Available bool      `json:"available"`
	Jobs      []JobSlot `json:"jobs"`
}

// MachineAvailability reports whether a machine is free in a date range
type MachineAvailability struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Available bool      `json:"available"`
	Jobs      []JobSlot `json:"jobs"`
}

// ScheduleService answers calendar queries over jobs and their bookings
type ScheduleService struct {
	db *gorm.DB
}

// NewScheduleService creates a schedule service on top of db
func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{db: db}
}

// overlapCondition matches jobs that start in the range, finish in it, or span it.
// A job without a finish date occupies only its start date.
const overlapCondition = "j.start_date IS NOT NULL AND (" +
	"(j.start_date >= @start AND j.start_date <= @end) OR " +
	"(COALESCE(j.finish_date, j.start_date) >= @start AND COALESCE(j.finish_date, j.start_date) <= @end) OR " +
	"(j.start_date <= @start AND COALESCE(j.finish_date, j.start_date) >= @end))"

// ParseRange normalizes a pair of date inputs and checks their order
func ParseRange(start, end interface{}) (string, string, error) {
	from, ok := utils.NormalizeDate(start)
	if !ok {
		return "", "", validationError("INVALID_DATE", "startDate must be a valid date (YYYY-MM-DD)")
	}
	to, ok := utils.NormalizeDate(end)
	if !ok {
		return "", "", validationError("INVALID_DATE", "endDate must be a valid date (YYYY-MM-DD)")
	}
	if from > to {
		return "", "", validationError("INVALID_RANGE", "startDate must not be after endDate")
	}
	return from, to, nil
}

// JobsOnDate returns the jobs scheduled to start on the given day
func (s *ScheduleService) JobsOnDate(ctx context.Context, date interface{}) ([]models.Job, error) {
	day, ok := utils.NormalizeDate(date)
	if !ok {
		return nil, validationError("INVALID_DATE", "date must be a valid date (YYYY-MM-DD)")
	}

	jobs := []models.Job{}
	if err := s.db.WithContext(ctx).Where("start_date = ?", day).Order("id").Find(&jobs).Error; err != nil {
		return nil, internalError("Failed to load jobs", err)
	}
	return jobs, nil
}

// JobsInRange returns the jobs that overlap the inclusive range
func (s *ScheduleService) JobsInRange(ctx context.Context, start, end interface{}) ([]models.Job, error) {
	from, to, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}

	jobs := []models.Job{}
	err = s.db.WithContext(ctx).Table("jobs AS j").
		Where(overlapCondition, map[string]interface{}{"start": from, "end": to}).
		Order("j.start_date, j.id").
		Find(&jobs).Error
	if err != nil {
		return nil, internalError("Failed to load jobs", err)
	}
	return jobs, nil
}

type bookingRow struct {
	ResourceID uint
	JobID      uint
	JobName    string
	Status     string
	StartDate  string
	FinishDate *string
}

// EmployeeAvailability lists every employee with the jobs that occupy them in the range.
// Jobs of any status count as occupying.
func (s *ScheduleService) EmployeeAvailability(ctx context.Context, start, end interface{}) ([]EmployeeAvailability, error) {
	from, to, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var employees []models.Employee
	if err := db.Order("name, id").Find(&employees).Error; err != nil {
		return nil, internalError("Failed to load employees", err)
	}

	var rows []bookingRow
	err = db.Table("job_employee_assignments AS a").
		Select("a.employee_id AS resource_id, j.id AS job_id, j.name AS job_name, j.status, j.start_date, j.finish_date").
		Joins("JOIN jobs j ON j.id = a.job_id").
		Where(overlapCondition, map[string]interface{}{"start": from, "end": to}).
		Order("j.start_date, j.id").
		Scan(&rows).Error
	if err != nil {
		return nil, internalError("Failed to load employee bookings", err)
	}
	booked := groupBookings(rows)

	result := make([]EmployeeAvailability, 0, len(employees))
	for _, e := range employees {
		jobs := booked[e.ID]
		if jobs == nil {
			jobs = []JobSlot{}
		}
		result = append(result, EmployeeAvailability{
			ID:        e.ID,
			Name:      e.Name,
			Position:  e.Position,
			Active:    bool(e.Active),
			Available: bool(e.Active) && len(jobs) == 0,
			Jobs:      jobs,
		})
	}
	return result, nil
}

// MachineAvailability lists every machine with the jobs that occupy it in the range
func (s *ScheduleService) MachineAvailability(ctx context.Context, start, end interface{}) ([]MachineAvailability, error) {
	from, to, err := ParseRange(start, end)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var machines []models.Machine
	if err := db.Order("name, id").Find(&machines).Error; err != nil {
		return nil, internalError("Failed to load machines", err)
	}

	var rows []bookingRow
	err = db.Table("job_machine_assignments AS a").
		Select("a.machine_id AS resource_id, j.id AS job_id, j.name AS job_name, j.status, j.start_date, j.finish_date").
		Joins("JOIN jobs j ON j.id = a.job_id").
		Where(overlapCondition, map[string]interface{}{"start": from, "end": to}).
		Order("j.start_date, j.id").
		Scan(&rows).Error
	if err != nil {
		return nil, internalError("Failed to load machine bookings", err)
	}
	booked := groupBookings(rows)

	result := make([]MachineAvailability, 0, len(machines))
	for _, m := range machines {
		jobs := booked[m.ID]
		if jobs == nil {
			jobs = []JobSlot{}
		}
		result = append(result, MachineAvailability{
			ID:        m.ID,
			Name:      m.Name,
			Status:    m.Status,
			Available: m.IsAssignable() && len(jobs) == 0,
			Jobs:      jobs,
		})
	}
	return result, nil
}

func groupBookings(rows []bookingRow) map[uint][]JobSlot {
	booked := make(map[uint][]JobSlot)
	for _, r := range rows {
		booked[r.ResourceID] = append(booked[r.ResourceID], JobSlot{
			JobID:      r.JobID,
			JobName:    r.JobName,
			Status:     r.Status,
			StartDate:  r.StartDate,
			FinishDate: r.FinishDate,
		})
	}
	return booked
}
