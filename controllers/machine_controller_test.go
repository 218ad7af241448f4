package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func machineRouter() *gin.Engine {
	router := setupTestRouter()
	api := router.Group("/api/machines", mockAuthMiddleware("auth0|admin", "admin"))
	api.GET("", ListMachines)
	api.GET("/:id", GetMachine)
	api.POST("", CreateMachine)
	api.PUT("/:id", UpdateMachine)
	api.DELETE("/:id", DeleteMachine)
	api.GET("/:id/maintenance", ListMaintenance)
	api.POST("/:id/maintenance", AddMaintenance)
	return router
}

func TestMachineCRUD(t *testing.T) {
	setupTestDB(t)
	router := machineRouter()

	w := performJSON(t, router, http.MethodPost, "/api/machines", gin.H{
		"name":          "Plasma cutter",
		"purchase_date": "2024-03-05T00:00:00.000Z",
		"hourly_rate":   45,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	machine := decodeBody(t, w)["machine"].(map[string]interface{})
	assert.Equal(t, models.MachineStatusActive, machine["status"], "New machines start Active")
	assert.Equal(t, "2024-03-05", machine["purchase_date"])
	id := uint(machine["id"].(float64))

	w = performJSON(t, router, http.MethodPut, fmt.Sprintf("/api/machines/%d", id), gin.H{"status": models.MachineStatusMaintenance})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	machine = decodeBody(t, w)["machine"].(map[string]interface{})
	assert.Equal(t, models.MachineStatusMaintenance, machine["status"])
	assert.Equal(t, "2024-03-05", machine["purchase_date"], "Purchase date is kept when not sent")

	w = performJSON(t, router, http.MethodGet, "/api/machines?status=Active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["machines"])

	w = performJSON(t, router, http.MethodGet, "/api/machines?status=In%20Maintenance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["machines"], 1)
}

func TestMachineValidation(t *testing.T) {
	setupTestDB(t)
	router := machineRouter()

	tests := []struct {
		name     string
		body     gin.H
		wantCode string
	}{
		{"missing name", gin.H{"hourly_rate": 10}, "MISSING_NAME"},
		{"unknown status", gin.H{"name": "Press", "status": "Broken"}, "INVALID_STATUS"},
		{"negative rate", gin.H{"name": "Press", "hourly_rate": -5}, "INVALID_RATE"},
		{"bad purchase date", gin.H{"name": "Press", "purchase_date": "last spring"}, "INVALID_DATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(t, router, http.MethodPost, "/api/machines", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestMachineMaintenance(t *testing.T) {
	db := setupTestDB(t)
	press := seedMachine(t, db, "Press", models.MachineStatusActive)
	router := machineRouter()
	path := fmt.Sprintf("/api/machines/%d/maintenance", press.ID)

	w := performJSON(t, router, http.MethodPost, path, gin.H{"date": "2025-01-10", "description": "Oil change", "cost": "80"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = performJSON(t, router, http.MethodPost, path, gin.H{"date": "2025-03-02", "description": "New blade", "cost": 240.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performJSON(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeBody(t, w)["maintenance"].([]interface{})
	require.Len(t, records, 2)
	assert.Equal(t, "New blade", records[0].(map[string]interface{})["description"], "Newest first")
	assert.Equal(t, 240.5, records[0].(map[string]interface{})["cost"])

	tests := []struct {
		name     string
		body     gin.H
		wantCode string
	}{
		{"bad date", gin.H{"date": "soon", "description": "x"}, "INVALID_DATE"},
		{"no description", gin.H{"date": "2025-01-01"}, "MISSING_DESCRIPTION"},
		{"negative cost", gin.H{"date": "2025-01-01", "description": "x", "cost": -1}, "INVALID_COST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(t, router, http.MethodPost, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}

	w = performJSON(t, router, http.MethodPost, "/api/machines/999/maintenance", gin.H{"date": "2025-01-01", "description": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MACHINE_NOT_FOUND", errorCode(t, w))
}

func TestDeleteMachine_RemovesDependents(t *testing.T) {
	db := setupTestDB(t)
	images := useMockImages(t)
	router := machineRouter()

	w := performMultipart(t, router, http.MethodPost, "/api/machines",
		map[string]string{"name": "Lathe", "purchase_date": "2023-11-20"},
		map[string][]string{"images": {"lathe.png"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decodeBody(t, w)["machine"].(map[string]interface{})["id"].(float64))
	assert.Equal(t, 1, images.Count())

	job := seedJob(t, db, "Rail", "2025-07-01")
	require.NoError(t, db.Create(&models.JobMachineAssignment{JobID: job.ID, MachineID: id, WorkDate: "2025-07-01"}).Error)
	require.NoError(t, db.Create(&models.MachineMaintenance{MachineID: id, Date: "2025-01-01", Description: "Check"}).Error)

	w = performJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/machines/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, model := range []interface{}{&models.Machine{}, &models.MachineImage{}, &models.MachineMaintenance{}, &models.JobMachineAssignment{}} {
		var n int64
		db.Model(model).Count(&n)
		assert.Zero(t, n, "%T rows remain", model)
	}
	assert.Zero(t, images.Count())
}
