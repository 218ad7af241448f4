package controllers

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/services"
	"gorm.io/gorm"
)

// SignupRequest represents the request body for creating a customer account
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func newTokenService() *services.TokenService {
	cfg := config.GetConfig()
	if cfg == nil {
		return services.NewTokenService("", "", "", 0)
	}
	return services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
}

func withProfileImageURL(c *gin.Context, customer *models.Customer) {
	if customer.ProfileImageKey == nil {
		return
	}
	if url := imageURL(c.Request.Context(), *customer.ProfileImageKey); url != "" {
		customer.ProfileImageURL = &url
	}
}

// issueSession signs a token for the customer and writes the login response
func issueSession(c *gin.Context, status int, message string, customer *models.Customer) {
	token, err := newTokenService().Issue(customer.ID, customer.Name, customer.Email)
	if err != nil {
		log.Printf("Issue token failed: %v", err)
		respondError(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue session token", nil)
		return
	}
	withProfileImageURL(c, customer)

	c.JSON(status, gin.H{
		"success":    true,
		"message":    message,
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
		"customer":   customer,
	})
}

// Signup handles POST /api/auth/signup - creates a customer account and signs it in
func Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if len(req.Password) < services.MinPasswordLength {
		respondError(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters", nil)
		return
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		log.Printf("Hash password failed: %v", err)
		respondError(c, http.StatusInternalServerError, "PASSWORD_ERROR", "Failed to secure password", nil)
		return
	}

	customer := models.Customer{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Phone:    optionalText(&req.Phone),
	}

	if err := config.GetDB().Create(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusConflict, "CUSTOMER_EXISTS", "An account with this email already exists", nil)
			return
		}
		respondDatabaseError(c, "Create customer", err)
		return
	}

	issueSession(c, http.StatusCreated, "Account created successfully", &customer)
}

// Login handles POST /api/auth/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	var customer models.Customer
	err := config.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&customer).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondDatabaseError(c, "Login", err)
		return
	}
	if err != nil || !services.CheckPassword(customer.Password, req.Password) {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}

	issueSession(c, http.StatusOK, "Logged in successfully", &customer)
}

// Logout handles POST /api/auth/logout - the token stays revoked until it would have expired
func Logout(c *gin.Context) {
	claims, err := middleware.GetClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not retrieve token claims", nil)
		return
	}

	until := time.Unix(claims.RegisteredClaims.Expiry, 0)
	if err := services.GetTokenStore().Revoke(c.Request.Context(), claims.RegisteredClaims.ID, until); err != nil {
		log.Printf("Revoke token failed: %v", err)
		respondError(c, http.StatusInternalServerError, "TOKEN_STORE_ERROR", "Failed to log out", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetCurrentCustomer handles GET /api/auth/me
func GetCurrentCustomer(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract customer from token", nil)
		return
	}

	var customer models.Customer
	if err := config.GetDB().First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
			return
		}
		respondDatabaseError(c, "Get customer", err)
		return
	}
	withProfileImageURL(c, &customer)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"customer": customer,
	})
}

// UpdateProfileImage handles PUT /api/auth/me/image - replaces the customer's profile picture
func UpdateProfileImage(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract customer from token", nil)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "No image file provided", nil)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
			return
		}
		respondDatabaseError(c, "Get customer", err)
		return
	}

	ctx := c.Request.Context()
	keys, err := storeImages(ctx, []*multipart.FileHeader{fileHeader}, services.FolderCustomers)
	if err != nil {
		respondImageError(c, err)
		return
	}

	previous := customer.ProfileImageKey
	if err := db.Model(&customer).Update("profile_image_key", keys[0]).Error; err != nil {
		discardImages(ctx, keys)
		respondDatabaseError(c, "Update profile image", err)
		return
	}
	customer.ProfileImageKey = &keys[0]
	if previous != nil {
		discardImages(ctx, []string{*previous})
	}
	withProfileImageURL(c, &customer)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Profile image updated",
		"customer": customer,
	})
}

// ListCustomers handles GET /api/customers
func ListCustomers(c *gin.Context) {
	customers := []models.Customer{}
	if err := config.GetDB().Order("name, id").Find(&customers).Error; err != nil {
		respondDatabaseError(c, "List customers", err)
		return
	}
	for i := range customers {
		withProfileImageURL(c, &customers[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"customers": customers,
	})
}

// DeleteCustomer handles DELETE /api/customers/:id - refused while quotations reference the customer
func DeleteCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
			return
		}
		respondDatabaseError(c, "Get customer", err)
		return
	}

	var quotations int64
	if err := db.Model(&models.Quotation{}).Where("customer_id = ?", id).Count(&quotations).Error; err != nil {
		respondDatabaseError(c, "Count customer quotations", err)
		return
	}
	if quotations > 0 {
		respondError(c, http.StatusConflict, "CUSTOMER_HAS_QUOTATIONS", "Customer still has quotations", nil)
		return
	}

	if err := db.Delete(&models.Customer{}, id).Error; err != nil {
		respondDatabaseError(c, "Delete customer", err)
		return
	}
	if customer.ProfileImageKey != nil {
		discardImages(c.Request.Context(), []string{*customer.ProfileImageKey})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Customer deleted successfully",
	})
}
