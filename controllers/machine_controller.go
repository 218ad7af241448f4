package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/services"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MachineRequest is the body of machine create and update requests (JSON or multipart)
type MachineRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	PurchaseDate interface{}      `json:"purchase_date"`
	Status       *string          `json:"status"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
}

// MaintenanceRequest is the body of POST /api/machines/:id/maintenance
type MaintenanceRequest struct {
	Date        interface{}     `json:"date"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
}

func bindMachineRequest(c *gin.Context) (MachineRequest, error) {
	var req MachineRequest
	if !isMultipart(c) {
		err := c.ShouldBindJSON(&req)
		return req, err
	}

	var err error
	req.Name = formString(c, "name")
	req.Description = formString(c, "description")
	if date := formString(c, "purchase_date"); date != nil {
		req.PurchaseDate = *date
	}
	req.Status = formString(c, "status")
	if req.HourlyRate, err = formDecimal(c, "hourly_rate"); err != nil {
		return req, err
	}
	return req, nil
}

// normalize validates the request and resolves its purchase date
func (r MachineRequest) normalize(creating bool) (purchaseDate *string, code string, msg string) {
	if creating && (r.Name == nil || strings.TrimSpace(*r.Name) == "") {
		return nil, "MISSING_NAME", "name is required"
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return nil, "MISSING_NAME", "name must not be empty"
	}
	if r.Status != nil && !containsString(models.MachineStatuses, *r.Status) {
		return nil, "INVALID_STATUS", "status must be one of " + strings.Join(models.MachineStatuses, ", ")
	}
	if r.HourlyRate != nil && r.HourlyRate.IsNegative() {
		return nil, "INVALID_RATE", "hourly_rate must not be negative"
	}
	if r.PurchaseDate != nil && r.PurchaseDate != "" {
		d, ok := utils.NormalizeDate(r.PurchaseDate)
		if !ok {
			return nil, "INVALID_DATE", "purchase_date must be a valid date (YYYY-MM-DD)"
		}
		purchaseDate = &d
	}
	return purchaseDate, "", ""
}

func (r MachineRequest) apply(m *models.Machine, purchaseDate *string) {
	if r.Name != nil {
		m.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		m.Description = optionalText(r.Description)
	}
	if r.PurchaseDate != nil {
		m.PurchaseDate = purchaseDate
	}
	if r.Status != nil {
		m.Status = *r.Status
	}
	if r.HourlyRate != nil {
		m.HourlyRate = r.HourlyRate.Round(2)
	}
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func withMachineImageURLs(ctx context.Context, m *models.Machine) {
	for i := range m.Images {
		m.Images[i].ImageURL = imageURL(ctx, m.Images[i].ImageKey)
	}
}

func findMachine(c *gin.Context, db *gorm.DB, id uint) (*models.Machine, bool) {
	var machine models.Machine
	if err := db.Preload("Images").First(&machine, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "MACHINE_NOT_FOUND", "Machine not found", nil)
		} else {
			respondDatabaseError(c, "Get machine", err)
		}
		return nil, false
	}
	return &machine, true
}

// ListMachines handles GET /api/machines?status=
func ListMachines(c *gin.Context) {
	query := config.GetDB().Preload("Images").Order("name, id")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	machines := []models.Machine{}
	if err := query.Find(&machines).Error; err != nil {
		respondDatabaseError(c, "List machines", err)
		return
	}
	for i := range machines {
		withMachineImageURLs(c.Request.Context(), &machines[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"machines": machines,
	})
}

// GetMachine handles GET /api/machines/:id
func GetMachine(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	machine, ok := findMachine(c, config.GetDB(), id)
	if !ok {
		return
	}
	withMachineImageURLs(c.Request.Context(), machine)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"machine": machine,
	})
}

// CreateMachine handles POST /api/machines
func CreateMachine(c *gin.Context) {
	req, err := bindMachineRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	purchaseDate, code, msg := req.normalize(true)
	if code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderMachines)
	if err != nil {
		respondImageError(c, err)
		return
	}

	machine := models.Machine{Status: models.MachineStatusActive, HourlyRate: decimal.Zero}
	req.apply(&machine, purchaseDate)
	for _, key := range keys {
		machine.Images = append(machine.Images, models.MachineImage{ImageKey: key})
	}

	if err := config.GetDB().Create(&machine).Error; err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Create machine", err)
		return
	}
	withMachineImageURLs(ctx, &machine)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Machine created successfully",
		"machine": machine,
	})
}

// UpdateMachine handles PUT /api/machines/:id - new images are appended
func UpdateMachine(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, err := bindMachineRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	purchaseDate, code, msg := req.normalize(false)
	if code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	db := config.GetDB()
	machine, ok := findMachine(c, db, id)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderMachines)
	if err != nil {
		respondImageError(c, err)
		return
	}

	req.apply(machine, purchaseDate)
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(machine).
			Select("name", "description", "purchase_date", "status", "hourly_rate").
			Updates(machine).Error
		if err != nil {
			return err
		}
		for _, key := range keys {
			image := models.MachineImage{MachineID: machine.ID, ImageKey: key}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			machine.Images = append(machine.Images, image)
		}
		return nil
	})
	if err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Update machine", err)
		return
	}
	withMachineImageURLs(ctx, machine)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Machine updated successfully",
		"machine": machine,
	})
}

// DeleteMachine handles DELETE /api/machines/:id - removes images, maintenance and bookings first
func DeleteMachine(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	machine, ok := findMachine(c, db, id)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.MachineImage{}, &models.MachineMaintenance{}, &models.JobMachineAssignment{}} {
			if err := tx.Where("machine_id = ?", machine.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Machine{}, machine.ID).Error
	})
	if err != nil {
		respondDatabaseError(c, "Delete machine", err)
		return
	}

	keys := make([]string, 0, len(machine.Images))
	for _, image := range machine.Images {
		keys = append(keys, image.ImageKey)
	}
	discardImages(c.Request.Context(), keys)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Machine deleted successfully",
	})
}

// ListMaintenance handles GET /api/machines/:id/maintenance
func ListMaintenance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	if _, ok := findMachine(c, db, id); !ok {
		return
	}

	records := []models.MachineMaintenance{}
	if err := db.Where("machine_id = ?", id).Order("date DESC, id DESC").Find(&records).Error; err != nil {
		respondDatabaseError(c, "List maintenance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"maintenance": records,
	})
}

// AddMaintenance handles POST /api/machines/:id/maintenance
func AddMaintenance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	date, valid := utils.NormalizeDate(req.Date)
	if !valid {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", "date must be a valid date (YYYY-MM-DD)", nil)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondError(c, http.StatusBadRequest, "MISSING_DESCRIPTION", "description is required", nil)
		return
	}
	if req.Cost.IsNegative() {
		respondError(c, http.StatusBadRequest, "INVALID_COST", "cost must not be negative", nil)
		return
	}

	db := config.GetDB()
	if _, ok := findMachine(c, db, id); !ok {
		return
	}

	record := models.MachineMaintenance{
		MachineID:   id,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Cost:        req.Cost.Round(2),
	}
	if err := db.Create(&record).Error; err != nil {
		respondDatabaseError(c, "Add maintenance", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Maintenance recorded",
		"maintenance": record,
	})
}
