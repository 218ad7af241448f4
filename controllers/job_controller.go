package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
)

// JobStatusRequest is the body of PUT /api/jobs/:id/status
type JobStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListJobs handles GET /api/jobs?status=
func ListJobs(c *gin.Context) {
	svc := services.NewJobService(config.GetDB())
	jobs, err := svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondServiceError(c, "List jobs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    jobs,
	})
}

// GetJob handles GET /api/jobs/:id
func GetJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	svc := services.NewJobService(config.GetDB())
	job, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "Get job", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job":     job,
	})
}

// UpdateJobStatus handles PUT /api/jobs/:id/status
func UpdateJobStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req JobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewJobService(config.GetDB())
	job, err := svc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, "Update job status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Job status updated",
		"job":     job,
	})
}
