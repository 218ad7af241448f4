package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ironworks/ironworks-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countEmployeeRows(t *testing.T, db *gorm.DB, jobID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&models.JobEmployeeAssignment{}).Where("job_id = ?", jobID).Count(&n).Error)
	return n
}

func countMachineRows(t *testing.T, db *gorm.DB, jobID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&models.JobMachineAssignment{}).Where("job_id = ?", jobID).Count(&n).Error)
	return n
}

func jobStatus(t *testing.T, db *gorm.DB, jobID uint) string {
	var job models.Job
	require.NoError(t, db.First(&job, jobID).Error)
	return job.Status
}

func TestAssign_Success(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e1 := createEmployee(t, db, "Alice", true)
	e2 := createEmployee(t, db, "Bob", true)
	m1 := createMachine(t, db, "Plasma cutter", models.MachineStatusActive)

	result, err := svc.Assign(ctx, job.ID, []uint{e1.ID, e2.ID}, []uint{m1.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssignedEmployees)
	assert.Equal(t, 1, result.AssignedMachines)

	assert.Equal(t, int64(2), countEmployeeRows(t, db, job.ID))
	assert.Equal(t, int64(1), countMachineRows(t, db, job.ID))
	assert.Equal(t, models.JobInProgress, jobStatus(t, db, job.ID))

	var row models.JobEmployeeAssignment
	require.NoError(t, db.Where("job_id = ? AND employee_id = ?", job.ID, e1.ID).First(&row).Error)
	assert.Equal(t, "2025-07-01", row.WorkDate, "Bookings carry the job's start date")
}

func TestAssign_ConflictOnSameDate(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job10 := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	job11 := createJob(t, db, "Railing", "2025-07-01", models.JobNotStarted)
	e5 := createEmployee(t, db, "Eve", true)

	_, err := svc.Assign(ctx, job10.ID, []uint{e5.ID}, nil)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, job11.ID, []uint{e5.ID}, nil)
	svcErr := requireServiceError(t, err, KindBusinessRule, "SCHEDULING_CONFLICT")
	assert.Contains(t, svcErr.Message, "Eve")
	assert.Contains(t, svcErr.Message, fmt.Sprintf("job #%d", job10.ID))

	conflicts, ok := svcErr.Details.([]Conflict)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{
		ResourceType: ResourceEmployee,
		ResourceID:   e5.ID,
		ResourceName: "Eve",
		JobID:        job10.ID,
		JobName:      "Gate",
		Date:         "2025-07-01",
	}, conflicts[0])

	assert.Equal(t, int64(0), countEmployeeRows(t, db, job11.ID))
	assert.Equal(t, models.JobNotStarted, jobStatus(t, db, job11.ID), "A failed assignment leaves the job untouched")
}

func TestAssign_MachineConflictOnSameDate(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	first := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	second := createJob(t, db, "Stairs", "2025-07-01", models.JobNotStarted)
	m := createMachine(t, db, "Press brake", models.MachineStatusActive)

	_, err := svc.Assign(ctx, first.ID, nil, []uint{m.ID})
	require.NoError(t, err)

	_, err = svc.Assign(ctx, second.ID, nil, []uint{m.ID})
	svcErr := requireServiceError(t, err, KindBusinessRule, "SCHEDULING_CONFLICT")
	assert.Contains(t, svcErr.Message, "Press brake")
}

func TestAssign_DifferentDatesDoNotConflict(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	monday := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	tuesday := createJob(t, db, "Railing", "2025-07-02", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)

	_, err := svc.Assign(ctx, monday.ID, []uint{e.ID}, nil)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, tuesday.ID, []uint{e.ID}, nil)
	assert.NoError(t, err)
}

func TestAssign_RejectsInactiveEmployees(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	active := createEmployee(t, db, "Alice", true)
	inactive := createEmployee(t, db, "Greg", false)

	_, err := svc.Assign(context.Background(), job.ID, []uint{active.ID, inactive.ID}, nil)
	svcErr := requireServiceError(t, err, KindBusinessRule, "INACTIVE_EMPLOYEES")
	assert.Contains(t, svcErr.Message, "Greg")
	assert.NotContains(t, svcErr.Message, "Alice")
	assert.Equal(t, int64(0), countEmployeeRows(t, db, job.ID), "No rows are inserted when any employee is inactive")
}

func TestAssign_InactiveCheckedBeforeConflicts(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	first := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	second := createJob(t, db, "Railing", "2025-07-01", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)
	_, err := svc.Assign(ctx, first.ID, []uint{e.ID}, nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Employee{}).Where("id = ?", e.ID).Update("active", false).Error)

	_, err = svc.Assign(ctx, second.ID, []uint{e.ID}, nil)
	requireServiceError(t, err, KindBusinessRule, "INACTIVE_EMPLOYEES")
}

func TestAssign_RejectsMachinesThatAreNotActive(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{"in maintenance", models.MachineStatusMaintenance},
		{"retired", models.MachineStatusRetired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupServiceTestDB(t)
			job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
			m := createMachine(t, db, "Lathe", tt.status)

			_, err := NewAssignmentService(db).Assign(context.Background(), job.ID, nil, []uint{m.ID})
			svcErr := requireServiceError(t, err, KindBusinessRule, "MACHINES_UNAVAILABLE")
			assert.Contains(t, svcErr.Message, "Lathe")
			assert.Contains(t, svcErr.Message, tt.status)
		})
	}
}

func TestAssign_Preconditions(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)

	scheduled := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	completed := createJob(t, db, "Done", "2025-07-01", models.JobCompleted)
	unscheduled := createJob(t, db, "Later", "", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)

	tests := []struct {
		name      string
		jobID     uint
		employees []uint
		machines  []uint
		kind      ErrorKind
		code      string
	}{
		{"missing job id", 0, []uint{e.ID}, nil, KindValidation, "MISSING_JOB_ID"},
		{"no resources", scheduled.ID, nil, nil, KindValidation, "NO_RESOURCES"},
		{"unknown job", 9999, []uint{e.ID}, nil, KindNotFound, "JOB_NOT_FOUND"},
		{"completed job", completed.ID, []uint{e.ID}, nil, KindBusinessRule, "JOB_COMPLETED"},
		{"job without start date", unscheduled.ID, []uint{e.ID}, nil, KindBusinessRule, "JOB_NOT_SCHEDULED"},
		{"unknown employee", scheduled.ID, []uint{e.ID, 4242}, nil, KindNotFound, "EMPLOYEE_NOT_FOUND"},
		{"unknown machine", scheduled.ID, nil, []uint{4243}, KindNotFound, "MACHINE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Assign(context.Background(), tt.jobID, tt.employees, tt.machines)
			requireServiceError(t, err, tt.kind, tt.code)
		})
	}

	assert.Equal(t, int64(0), countEmployeeRows(t, db, scheduled.ID))
}

func TestAssign_IsIdempotentReplace(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)

	for i := 0; i < 2; i++ {
		_, err := svc.Assign(ctx, job.ID, []uint{e.ID}, []uint{m.ID})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), countEmployeeRows(t, db, job.ID))
	assert.Equal(t, int64(1), countMachineRows(t, db, job.ID))
}

func TestAssign_ReplacesPreviousSet(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e1 := createEmployee(t, db, "Alice", true)
	e2 := createEmployee(t, db, "Bob", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)

	_, err := svc.Assign(ctx, job.ID, []uint{e1.ID}, []uint{m.ID})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, job.ID, []uint{e2.ID}, nil)
	require.NoError(t, err)

	var ids []uint
	require.NoError(t, db.Model(&models.JobEmployeeAssignment{}).Where("job_id = ?", job.ID).Pluck("employee_id", &ids).Error)
	assert.Equal(t, []uint{e2.ID}, ids)
	assert.Equal(t, int64(0), countMachineRows(t, db, job.ID))
}

func TestAssign_UniqueIndexCatchesRacingBooking(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	other := createJob(t, db, "Railing", "2025-07-09", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)

	// a booking committed by a concurrent request for the same day
	require.NoError(t, db.Create(&models.JobEmployeeAssignment{
		JobID: other.ID, EmployeeID: e.ID, WorkDate: "2025-07-01", AssignedAt: time.Now(),
	}).Error)

	_, err := svc.Assign(context.Background(), job.ID, []uint{e.ID}, nil)
	requireServiceError(t, err, KindBusinessRule, "SCHEDULING_CONFLICT")
	assert.Equal(t, int64(0), countEmployeeRows(t, db, job.ID))
	assert.Equal(t, models.JobNotStarted, jobStatus(t, db, job.ID))
}

func TestUpdate_IsAdditive(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e1 := createEmployee(t, db, "Alice", true)
	e2 := createEmployee(t, db, "Bob", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)

	_, err := svc.Assign(ctx, job.ID, []uint{e1.ID}, nil)
	require.NoError(t, err)

	result, err := svc.Update(ctx, job.ID, []uint{e1.ID, e2.ID}, []uint{m.ID})
	require.NoError(t, err)
	assert.Equal(t, &UpdateResult{AddedEmployees: 1, AddedMachines: 1, TotalEmployees: 2, TotalMachines: 1}, result)

	var ids []uint
	require.NoError(t, db.Model(&models.JobEmployeeAssignment{}).Where("job_id = ?", job.ID).Order("employee_id").Pluck("employee_id", &ids).Error)
	assert.Equal(t, []uint{e1.ID, e2.ID}, ids, "Existing assignments are kept")
}

func TestUpdate_NothingNewLeavesStatus(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)
	_, err := svc.Assign(ctx, job.ID, []uint{e.ID}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobPending).Error)

	result, err := svc.Update(ctx, job.ID, []uint{e.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.AddedEmployees)
	assert.Equal(t, 1, result.TotalEmployees)
	assert.Equal(t, models.JobPending, jobStatus(t, db, job.ID))
}

func TestUpdate_ChecksOnlyNewResources(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	other := createJob(t, db, "Railing", "2025-07-01", models.JobNotStarted)
	e1 := createEmployee(t, db, "Alice", true)
	busy := createEmployee(t, db, "Bob", true)

	_, err := svc.Assign(ctx, job.ID, []uint{e1.ID}, nil)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, other.ID, []uint{busy.ID}, nil)
	require.NoError(t, err)

	// Alice turning inactive after booking does not block adding someone else
	require.NoError(t, db.Model(&models.Employee{}).Where("id = ?", e1.ID).Update("active", false).Error)

	_, err = svc.Update(ctx, job.ID, []uint{e1.ID, busy.ID}, nil)
	svcErr := requireServiceError(t, err, KindBusinessRule, "SCHEDULING_CONFLICT")
	assert.Contains(t, svcErr.Message, "Bob")
	assert.Equal(t, int64(1), countEmployeeRows(t, db, job.ID))
}

func TestUpdate_RejectsCompletedJob(t *testing.T) {
	db := setupServiceTestDB(t)
	job := createJob(t, db, "Gate", "2025-07-01", models.JobCompleted)
	e := createEmployee(t, db, "Alice", true)

	_, err := NewAssignmentService(db).Update(context.Background(), job.ID, []uint{e.ID}, nil)
	requireServiceError(t, err, KindBusinessRule, "JOB_COMPLETED")
}

func TestRemove_IgnoresUnassignedIDs(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e1 := createEmployee(t, db, "Alice", true)
	e2 := createEmployee(t, db, "Bob", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)
	_, err := svc.Assign(ctx, job.ID, []uint{e1.ID, e2.ID}, []uint{m.ID})
	require.NoError(t, err)

	result, err := svc.Remove(ctx, job.ID, []uint{e1.ID, 777}, nil)
	require.NoError(t, err)
	assert.Equal(t, &RemoveResult{RemovedEmployees: 1, RemovedMachines: 0, RemainingEmployees: 1, RemainingMachines: 1}, result)
	assert.Equal(t, models.JobInProgress, jobStatus(t, db, job.ID))
}

func TestRemove_EmptyingJobResetsStatus(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)
	_, err := svc.Assign(ctx, job.ID, []uint{e.ID}, []uint{m.ID})
	require.NoError(t, err)

	result, err := svc.Remove(ctx, job.ID, []uint{e.ID}, []uint{m.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RemainingEmployees+result.RemainingMachines)
	assert.Equal(t, models.JobNotStarted, jobStatus(t, db, job.ID))
}

func TestRemove_AllowedOnCompletedJob(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	e := createEmployee(t, db, "Alice", true)
	_, err := svc.Assign(ctx, job.ID, []uint{e.ID}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", models.JobCompleted).Error)

	result, err := svc.Remove(ctx, job.ID, []uint{e.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemovedEmployees)
	assert.Equal(t, models.JobCompleted, jobStatus(t, db, job.ID), "Completed jobs keep their status")
}

func TestRemove_Validation(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)

	_, err := svc.Remove(context.Background(), job.ID, nil, nil)
	requireServiceError(t, err, KindValidation, "NO_RESOURCES")

	_, err = svc.Remove(context.Background(), 9999, []uint{1}, nil)
	requireServiceError(t, err, KindNotFound, "JOB_NOT_FOUND")
}

func TestGetAssignedResources(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewAssignmentService(db)
	ctx := context.Background()

	earlier := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	later := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

	first := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)
	second := createJob(t, db, "Railing", "2025-07-02", models.JobNotStarted)
	alice := createEmployee(t, db, "Alice", true)
	bob := createEmployee(t, db, "Bob", true)
	m := createMachine(t, db, "Welder", models.MachineStatusActive)

	svc.now = func() time.Time { return earlier }
	_, err := svc.Assign(ctx, first.ID, []uint{bob.ID, alice.ID}, []uint{m.ID})
	require.NoError(t, err)
	svc.now = func() time.Time { return later }
	_, err = svc.Assign(ctx, second.ID, []uint{alice.ID}, nil)
	require.NoError(t, err)

	resources, err := svc.GetAssignedResources(ctx, first.ID)
	require.NoError(t, err)

	require.Len(t, resources.Employees, 2)
	assert.Equal(t, "Alice", resources.Employees[0].Name, "Employees are sorted by name")
	assert.Equal(t, 2, resources.Employees[0].AssignmentCount)
	assert.True(t, resources.Employees[0].LastAssignedAt.Equal(later))
	assert.True(t, resources.Employees[0].AssignedAt.Equal(earlier))
	assert.True(t, resources.Employees[0].Active)
	assert.Equal(t, 1, resources.Employees[1].AssignmentCount)

	require.Len(t, resources.Machines, 1)
	assert.Equal(t, "Welder", resources.Machines[0].Name)
	assert.True(t, resources.Machines[0].Available)

	_, err = svc.GetAssignedResources(ctx, 9999)
	requireServiceError(t, err, KindNotFound, "JOB_NOT_FOUND")
}

func TestGetAssignedResources_EmptyJob(t *testing.T) {
	db := setupServiceTestDB(t)
	job := createJob(t, db, "Gate", "2025-07-01", models.JobNotStarted)

	resources, err := NewAssignmentService(db).GetAssignedResources(context.Background(), job.ID)
	require.NoError(t, err)
	assert.NotNil(t, resources.Employees)
	assert.Empty(t, resources.Employees)
	assert.Empty(t, resources.Machines)
}
