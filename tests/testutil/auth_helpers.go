package testutil

import (
	"strings"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/services"
)

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string, scopes []string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Scope: strings.Join(scopes, " "),
		},
	}
}

// StaffAuth stands in for the Auth0 token check
func StaffAuth(subject string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Set("validated_claims", MockValidatedClaims(subject, "https://test.auth0.com/", scopes))
		c.Next()
	}
}

// CreateCustomer stores a customer with a hashed password
func CreateCustomer(t *testing.T, name, email, password string) models.Customer {
	t.Helper()

	hash, err := services.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	customer := models.Customer{Name: name, Email: email, Password: hash}
	if err := config.GetDB().Create(&customer).Error; err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customer
}

// CustomerToken issues a session token for the customer with the suite configuration
func CustomerToken(t *testing.T, customer models.Customer) string {
	t.Helper()

	cfg := config.GetConfig()
	issued, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL).
		Issue(customer.ID, customer.Name, customer.Email)
	if err != nil {
		t.Fatalf("Failed to issue customer token: %v", err)
	}
	return issued.Token
}
