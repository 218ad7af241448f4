package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/routes"
	"github.com/ironworks/ironworks-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}

// Config returns the configuration the suites run with
func Config() *config.Config {
	return &config.Config{
		GoEnv:         "test",
		Port:          "4000",
		Auth0Domain:   "test.auth0.com",
		Auth0Audience: "https://api.test.com",
		JWTSecret:     "suite-secret",
		JWTIssuer:     "ironworks-api",
		JWTAudience:   "ironworks-customers",
		TokenTTL:      time.Hour,
		RateLimit:     "1000-M",
	}
}

// NewTestDB opens a migrated in-memory database and installs it with the suite configuration
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(Config())
	return db
}

// CloseDB releases the database opened by NewTestDB
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	config.SetDB(nil)
}

// NewRouter mounts the application routes with real customer tokens and staff
// requests authenticated as the given scopes
func NewRouter(scopes ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.GetConfig()

	router := gin.New()
	router.Use(gin.Recovery())
	routes.Register(router, cfg, routes.Auth{
		Staff:    StaffAuth("auth0|staff", scopes...),
		Customer: middleware.EnsureCustomerToken(cfg, services.GetTokenStore()),
	})
	return router
}
