package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/services"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(&config.Config{
		GoEnv:       "test",
		JWTSecret:   "controller-test-secret",
		JWTIssuer:   "ironworks-api",
		JWTAudience: "ironworks-customers",
		TokenTTL:    time.Hour,
	})
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// mockAuthMiddleware sets up the context the way EnsureValidToken does for a staff token
func mockAuthMiddleware(subject, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: subject},
			CustomClaims:     &middleware.CustomClaims{Scope: scope},
		})
		c.Next()
	}
}

// mockCustomerMiddleware sets up the context the way EnsureCustomerToken does
func mockCustomerMiddleware(customerID uint, tokenID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetCustomerID(c, customerID)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{
				ID:     tokenID,
				Expiry: time.Now().Add(time.Hour).Unix(),
			},
			CustomClaims: &middleware.CustomClaims{Scope: "customer"},
		})
		c.Next()
	}
}

func performJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// performMultipart sends form fields plus files, each file keyed as fieldname -> filename
func performMultipart(t *testing.T, router http.Handler, method, path string, fields map[string]string, files map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("image-bytes-" + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// useMockImages installs an in-memory image service for the duration of the test
func useMockImages(t *testing.T) *services.MockImageService {
	mock := services.NewMockImageService()
	mock.SetAsMockForTesting()
	t.Cleanup(func() { services.SetImageService(nil) })
	return mock
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decodeBody(t, w)
	errBody, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "missing error object in %s", w.Body.String())
	code, _ := errBody["code"].(string)
	return code
}

func seedEmployee(t *testing.T, db *gorm.DB, name string, active bool) models.Employee {
	e := models.Employee{Name: name, Position: "Welder", Active: utils.Flag(active)}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func seedMachine(t *testing.T, db *gorm.DB, name, status string) models.Machine {
	m := models.Machine{Name: name, Status: status}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func seedJob(t *testing.T, db *gorm.DB, name, startDate string) models.Job {
	job := models.Job{QuotationID: 1, Name: name, Status: models.JobNotStarted}
	if startDate != "" {
		job.StartDate = &startDate
	}
	require.NoError(t, db.Create(&job).Error)
	return job
}

func seedCustomer(t *testing.T, db *gorm.DB, email string) models.Customer {
	customer := models.Customer{Name: "Dana", Email: email, Password: "x"}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}
