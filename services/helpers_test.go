package services

import (
	"testing"

	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// every pooled connection to :memory: would otherwise be a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate test database")
	return db
}

func requireServiceError(t *testing.T, err error, kind ErrorKind, code string) *Error {
	t.Helper()
	require.Error(t, err)
	svcErr := AsError(err)
	require.Equal(t, kind, svcErr.Kind, "unexpected kind for %v", err)
	require.Equal(t, code, svcErr.Code, "unexpected code for %v", err)
	return svcErr
}

func createEmployee(t *testing.T, db *gorm.DB, name string, active bool) models.Employee {
	e := models.Employee{Name: name, Position: "Welder", Salary: decimal.NewFromInt(3000), Active: utils.Flag(active)}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func createMachine(t *testing.T, db *gorm.DB, name, status string) models.Machine {
	m := models.Machine{Name: name, Status: status, HourlyRate: decimal.NewFromInt(40)}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func createJob(t *testing.T, db *gorm.DB, name, startDate, status string) models.Job {
	j := models.Job{Name: name, Status: status, Amount: decimal.Zero}
	if startDate != "" {
		j.StartDate = &startDate
	}
	require.NoError(t, db.Create(&j).Error)
	return j
}

func createCustomer(t *testing.T, db *gorm.DB, email string) models.Customer {
	c := models.Customer{Name: "Test Customer", Email: email, Password: "hash"}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func createQuotation(t *testing.T, db *gorm.DB, customerID uint, adminStatus, customerStatus string, amount string) models.Quotation {
	requiredBy := "2025-08-15"
	q := models.Quotation{
		CustomerID:     customerID,
		CustomerName:   "Test Customer",
		JobDescription: "Steel gate",
		JobCategory:    "Gates",
		Status:         adminStatus,
		CustomerStatus: customerStatus,
		Amount:         decimal.RequireFromString(amount),
		Phone:          "555-0100",
		Location:       "Yard 3",
		RequiredBy:     &requiredBy,
		JobCode:        "JOB-001",
	}
	require.NoError(t, db.Create(&q).Error)
	return q
}

func createMaterial(t *testing.T, db *gorm.DB, name string, quantity int, price string) models.Material {
	m := models.Material{Name: name, Quantity: quantity, UnitPrice: decimal.RequireFromString(price)}
	require.NoError(t, db.Create(&m).Error)
	return m
}
