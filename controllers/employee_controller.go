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

// EmployeeRequest is the body of employee create and update requests (JSON or multipart)
type EmployeeRequest struct {
	Name     *string          `json:"name"`
	Position *string          `json:"position"`
	Salary   *decimal.Decimal `json:"salary"`
	Active   *utils.Flag      `json:"active"`
	Email    *string          `json:"email"`
	Phone    *string          `json:"phone"`
	Address  *string          `json:"address"`
}

func bindEmployeeRequest(c *gin.Context) (EmployeeRequest, error) {
	var req EmployeeRequest
	if !isMultipart(c) {
		err := c.ShouldBindJSON(&req)
		return req, err
	}

	var err error
	req.Name = formString(c, "name")
	req.Position = formString(c, "position")
	if req.Salary, err = formDecimal(c, "salary"); err != nil {
		return req, err
	}
	req.Active = formFlag(c, "active")
	req.Email = formString(c, "email")
	req.Phone = formString(c, "phone")
	req.Address = formString(c, "address")
	return req, nil
}

func (r EmployeeRequest) validate(creating bool) (string, string) {
	blank := func(s *string) bool { return s != nil && strings.TrimSpace(*s) == "" }
	if creating && (r.Name == nil || r.Position == nil) {
		return "MISSING_FIELDS", "name and position are required"
	}
	if blank(r.Name) || blank(r.Position) {
		return "MISSING_FIELDS", "name and position must not be empty"
	}
	if r.Salary != nil && r.Salary.IsNegative() {
		return "INVALID_SALARY", "salary must not be negative"
	}
	return "", ""
}

// optionalText trims a value and stores empty input as NULL
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (r EmployeeRequest) apply(e *models.Employee) {
	if r.Name != nil {
		e.Name = strings.TrimSpace(*r.Name)
	}
	if r.Position != nil {
		e.Position = strings.TrimSpace(*r.Position)
	}
	if r.Salary != nil {
		e.Salary = r.Salary.Round(2)
	}
	if r.Active != nil {
		e.Active = *r.Active
	}
	if r.Email != nil {
		e.Email = optionalText(r.Email)
	}
	if r.Phone != nil {
		e.Phone = optionalText(r.Phone)
	}
	if r.Address != nil {
		e.Address = optionalText(r.Address)
	}
}

func withEmployeeImageURLs(ctx context.Context, e *models.Employee) {
	for i := range e.Images {
		e.Images[i].ImageURL = imageURL(ctx, e.Images[i].ImageKey)
	}
}

func findEmployee(c *gin.Context, db *gorm.DB, id uint) (*models.Employee, bool) {
	var employee models.Employee
	if err := db.Preload("Images").First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "Employee not found", nil)
		} else {
			respondDatabaseError(c, "Get employee", err)
		}
		return nil, false
	}
	return &employee, true
}

// ListEmployees handles GET /api/employees?active=
func ListEmployees(c *gin.Context) {
	query := config.GetDB().Preload("Images").Order("name, id")
	if active, ok := c.GetQuery("active"); ok {
		query = query.Where("active = ?", utils.Flag(utils.ParseBool(active)))
	}

	employees := []models.Employee{}
	if err := query.Find(&employees).Error; err != nil {
		respondDatabaseError(c, "List employees", err)
		return
	}
	for i := range employees {
		withEmployeeImageURLs(c.Request.Context(), &employees[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"employees": employees,
	})
}

// GetEmployee handles GET /api/employees/:id
func GetEmployee(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	employee, ok := findEmployee(c, config.GetDB(), id)
	if !ok {
		return
	}
	withEmployeeImageURLs(c.Request.Context(), employee)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"employee": employee,
	})
}

// CreateEmployee handles POST /api/employees - new employees are active unless stated otherwise
func CreateEmployee(c *gin.Context) {
	req, err := bindEmployeeRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	if code, msg := req.validate(true); code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderEmployees)
	if err != nil {
		respondImageError(c, err)
		return
	}

	employee := models.Employee{Salary: decimal.Zero, Active: true}
	req.apply(&employee)
	for _, key := range keys {
		employee.Images = append(employee.Images, models.EmployeeImage{ImageKey: key})
	}

	if err := config.GetDB().Create(&employee).Error; err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Create employee", err)
		return
	}
	withEmployeeImageURLs(ctx, &employee)

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Employee created successfully",
		"employee": employee,
	})
}

// UpdateEmployee handles PUT /api/employees/:id - new images are appended
func UpdateEmployee(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, err := bindEmployeeRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	if code, msg := req.validate(false); code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	db := config.GetDB()
	employee, ok := findEmployee(c, db, id)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderEmployees)
	if err != nil {
		respondImageError(c, err)
		return
	}

	req.apply(employee)
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(employee).
			Select("name", "position", "salary", "active", "email", "phone", "address").
			Updates(employee).Error
		if err != nil {
			return err
		}
		for _, key := range keys {
			image := models.EmployeeImage{EmployeeID: employee.ID, ImageKey: key}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			employee.Images = append(employee.Images, image)
		}
		return nil
	})
	if err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Update employee", err)
		return
	}
	withEmployeeImageURLs(ctx, employee)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Employee updated successfully",
		"employee": employee,
	})
}

// DeleteEmployee handles DELETE /api/employees/:id - removes images and job bookings first
func DeleteEmployee(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	employee, ok := findEmployee(c, db, id)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employee.ID).Delete(&models.EmployeeImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("employee_id = ?", employee.ID).Delete(&models.JobEmployeeAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Employee{}, employee.ID).Error
	})
	if err != nil {
		respondDatabaseError(c, "Delete employee", err)
		return
	}

	keys := make([]string, 0, len(employee.Images))
	for _, image := range employee.Images {
		keys = append(keys, image.ImageKey)
	}
	discardImages(c.Request.Context(), keys)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Employee deleted successfully",
	})
}
