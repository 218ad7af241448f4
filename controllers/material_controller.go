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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaterialRequest is the body of material create and update requests (JSON or multipart)
type MaterialRequest struct {
	Name      *string          `json:"name"`
	Quantity  *int             `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func bindMaterialRequest(c *gin.Context) (MaterialRequest, error) {
	var req MaterialRequest
	if !isMultipart(c) {
		err := c.ShouldBindJSON(&req)
		return req, err
	}

	var err error
	req.Name = formString(c, "name")
	if req.Quantity, err = formInt(c, "quantity"); err != nil {
		return req, err
	}
	if req.UnitPrice, err = formDecimal(c, "unit_price"); err != nil {
		return req, err
	}
	return req, nil
}

func (r MaterialRequest) validate(creating bool) (string, string) {
	if creating && (r.Name == nil || strings.TrimSpace(*r.Name) == "") {
		return "MISSING_NAME", "name is required"
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return "MISSING_NAME", "name must not be empty"
	}
	if r.Quantity != nil && *r.Quantity < 0 {
		return "INVALID_QUANTITY", "quantity must not be negative"
	}
	if r.UnitPrice != nil && r.UnitPrice.IsNegative() {
		return "INVALID_PRICE", "unit_price must not be negative"
	}
	return "", ""
}

func (r MaterialRequest) apply(m *models.Material) {
	if r.Name != nil {
		m.Name = strings.TrimSpace(*r.Name)
	}
	if r.Quantity != nil {
		m.Quantity = *r.Quantity
	}
	if r.UnitPrice != nil {
		m.UnitPrice = r.UnitPrice.Round(2)
	}
}

func withMaterialImageURLs(ctx context.Context, m *models.Material) {
	for i := range m.Images {
		m.Images[i].ImageURL = imageURL(ctx, m.Images[i].ImageKey)
	}
}

func findMaterial(c *gin.Context, db *gorm.DB, id uint) (*models.Material, bool) {
	var material models.Material
	if err := db.Preload("Images").First(&material, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "MATERIAL_NOT_FOUND", "Material not found", nil)
		} else {
			respondDatabaseError(c, "Get material", err)
		}
		return nil, false
	}
	return &material, true
}

// ListMaterials handles GET /api/materials
func ListMaterials(c *gin.Context) {
	db := config.GetDB()

	materials := []models.Material{}
	if err := db.Preload("Images").Order("name, id").Find(&materials).Error; err != nil {
		respondDatabaseError(c, "List materials", err)
		return
	}
	for i := range materials {
		withMaterialImageURLs(c.Request.Context(), &materials[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"materials": materials,
	})
}

// GetMaterial handles GET /api/materials/:id
func GetMaterial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	material, ok := findMaterial(c, config.GetDB(), id)
	if !ok {
		return
	}
	withMaterialImageURLs(c.Request.Context(), material)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"material": material,
	})
}

// CreateMaterial handles POST /api/materials - accepts JSON or multipart with images
func CreateMaterial(c *gin.Context) {
	req, err := bindMaterialRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	if code, msg := req.validate(true); code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderMaterials)
	if err != nil {
		respondImageError(c, err)
		return
	}

	material := models.Material{UnitPrice: decimal.Zero}
	req.apply(&material)
	for _, key := range keys {
		material.Images = append(material.Images, models.MaterialImage{ImageKey: key})
	}

	if err := config.GetDB().Create(&material).Error; err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Create material", err)
		return
	}
	withMaterialImageURLs(ctx, &material)

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Material created successfully",
		"material": material,
	})
}

// UpdateMaterial handles PUT /api/materials/:id - new images are appended
func UpdateMaterial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	req, err := bindMaterialRequest(c)
	if err != nil {
		respondBindingError(c, err)
		return
	}
	if code, msg := req.validate(false); code != "" {
		respondError(c, http.StatusBadRequest, code, msg, nil)
		return
	}

	db := config.GetDB()
	material, ok := findMaterial(c, db, id)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, formImages(c), services.FolderMaterials)
	if err != nil {
		respondImageError(c, err)
		return
	}

	req.apply(material)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(material).Select("name", "quantity", "unit_price").Updates(material).Error; err != nil {
			return err
		}
		for _, key := range keys {
			image := models.MaterialImage{MaterialID: material.ID, ImageKey: key}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
			material.Images = append(material.Images, image)
		}
		return nil
	})
	if err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Update material", err)
		return
	}
	withMaterialImageURLs(ctx, material)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Material updated successfully",
		"material": material,
	})
}

// DeleteMaterial handles DELETE /api/materials/:id - removes its images first
func DeleteMaterial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	material, ok := findMaterial(c, db, id)
	if !ok {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("material_id = ?", material.ID).Delete(&models.MaterialImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Material{}, material.ID).Error
	})
	if err != nil {
		respondDatabaseError(c, "Delete material", err)
		return
	}

	keys := make([]string, 0, len(material.Images))
	for _, image := range material.Images {
		keys = append(keys, image.ImageKey)
	}
	discardImages(c.Request.Context(), keys)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Material deleted successfully",
	})
}
