package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
	"github.com/ironworks/ironworks-api/utils"
)

// AssignResourcesRequest is the body of POST /api/jobs/assign and /api/jobs/remove
type AssignResourcesRequest struct {
	JobID       utils.LooseID   `json:"jobId"`
	EmployeeIDs []utils.LooseID `json:"employeeIds"`
	MachineIDs  []utils.LooseID `json:"machineIds"`
}

// UpdateResourcesRequest is the body of POST /api/jobs/update
type UpdateResourcesRequest struct {
	JobID            utils.LooseID   `json:"jobId"`
	EmployeeIDsToAdd []utils.LooseID `json:"employeeIdsToAdd"`
	MachineIDsToAdd  []utils.LooseID `json:"machineIdsToAdd"`
}

// AssignResources handles POST /api/jobs/assign - replaces a job's employees and machines
func AssignResources(c *gin.Context) {
	var req AssignResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewAssignmentService(config.GetDB())
	result, err := svc.Assign(c.Request.Context(), req.JobID.Value, utils.NormalizeIDs(req.EmployeeIDs), utils.NormalizeIDs(req.MachineIDs))
	if err != nil {
		respondServiceError(c, "Assign resources", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Resources assigned successfully",
		"assignedEmployees": result.AssignedEmployees,
		"assignedMachines":  result.AssignedMachines,
	})
}

// UpdateResources handles POST /api/jobs/update - adds resources without touching existing ones
func UpdateResources(c *gin.Context) {
	var req UpdateResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewAssignmentService(config.GetDB())
	result, err := svc.Update(c.Request.Context(), req.JobID.Value, utils.NormalizeIDs(req.EmployeeIDsToAdd), utils.NormalizeIDs(req.MachineIDsToAdd))
	if err != nil {
		respondServiceError(c, "Update resources", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Resources updated successfully",
		"addedEmployees": result.AddedEmployees,
		"addedMachines":  result.AddedMachines,
		"totalEmployees": result.TotalEmployees,
		"totalMachines":  result.TotalMachines,
	})
}

// RemoveResources handles POST /api/jobs/remove
func RemoveResources(c *gin.Context) {
	var req AssignResourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewAssignmentService(config.GetDB())
	result, err := svc.Remove(c.Request.Context(), req.JobID.Value, utils.NormalizeIDs(req.EmployeeIDs), utils.NormalizeIDs(req.MachineIDs))
	if err != nil {
		respondServiceError(c, "Remove resources", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "Resources removed successfully",
		"removedEmployees":   result.RemovedEmployees,
		"removedMachines":    result.RemovedMachines,
		"remainingEmployees": result.RemainingEmployees,
		"remainingMachines":  result.RemainingMachines,
	})
}

// GetAssignedResources handles GET /api/jobs/assigned/:jobId
func GetAssignedResources(c *gin.Context) {
	jobID, ok := utils.NormalizeID(c.Param("jobId"))
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_JOB_ID", "A valid jobId is required", nil)
		return
	}

	svc := services.NewAssignmentService(config.GetDB())
	resources, err := svc.GetAssignedResources(c.Request.Context(), jobID)
	if err != nil {
		respondServiceError(c, "Get assigned resources", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"employees": resources.Employees,
		"machines":  resources.Machines,
	})
}
