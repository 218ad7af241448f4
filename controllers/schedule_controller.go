package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
)

// GetJobsByDate handles GET /api/jobs/by-date/:date
func GetJobsByDate(c *gin.Context) {
	svc := services.NewScheduleService(config.GetDB())
	jobs, err := svc.JobsOnDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondServiceError(c, "Get jobs by date", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    jobs,
	})
}

// GetJobsByDateRange handles GET /api/jobs/by-range?startDate=&endDate=
func GetJobsByDateRange(c *gin.Context) {
	svc := services.NewScheduleService(config.GetDB())
	jobs, err := svc.JobsInRange(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondServiceError(c, "Get jobs by date range", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    jobs,
	})
}

// GetEmployeeAvailability handles GET /api/employees/availability?startDate=&endDate=
func GetEmployeeAvailability(c *gin.Context) {
	svc := services.NewScheduleService(config.GetDB())
	employees, err := svc.EmployeeAvailability(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondServiceError(c, "Check employee availability", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"employees": employees,
	})
}

// GetMachineAvailability handles GET /api/machines/availability?startDate=&endDate=
func GetMachineAvailability(c *gin.Context) {
	svc := services.NewScheduleService(config.GetDB())
	machines, err := svc.MachineAvailability(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondServiceError(c, "Check machine availability", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"machines": machines,
	})
}
