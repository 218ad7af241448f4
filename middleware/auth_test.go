package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomClaims_HasScope(t *testing.T) {
	tests := []struct {
		name          string
		claims        CustomClaims
		expectedScope string
		want          bool
	}{
		{
			name:          "has exact scope",
			claims:        CustomClaims{Scope: "admin"},
			expectedScope: "admin",
			want:          true,
		},
		{
			name:          "has scope in multiple scopes",
			claims:        CustomClaims{Scope: "openid schedule admin"},
			expectedScope: "schedule",
			want:          true,
		},
		{
			name:          "granted through permissions",
			claims:        CustomClaims{Permissions: []string{"schedule"}},
			expectedScope: "schedule",
			want:          true,
		},
		{
			name:          "does not have scope",
			claims:        CustomClaims{Scope: "customer"},
			expectedScope: "admin",
			want:          false,
		},
		{
			name:          "empty scope",
			claims:        CustomClaims{},
			expectedScope: "admin",
			want:          false,
		},
		{
			name:          "partial match should not work",
			claims:        CustomClaims{Scope: "administrator"},
			expectedScope: "admin",
			want:          false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.HasScope(tt.expectedScope))
		})
	}
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantID    string
		wantErr   bool
	}{
		{
			name: "successfully extracts user ID",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", "auth0|123456")
			},
			wantID:  "auth0|123456",
			wantErr: false,
		},
		{
			name:      "user ID not found in context",
			setupFunc: func(c *gin.Context) {},
			wantID:    "",
			wantErr:   true,
		},
		{
			name: "user ID is not a string",
			setupFunc: func(c *gin.Context) {
				c.Set("user_id", 12345)
			},
			wantID:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupFunc(c)

			gotID, err := GetUserID(c)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, gotID)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantID, gotID)
			}
		})
	}
}

func TestGetCustomerID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantID    uint
		wantErr   bool
	}{
		{
			name:      "set through SetCustomerID",
			setupFunc: func(c *gin.Context) { SetCustomerID(c, 7) },
			wantID:    7,
		},
		{
			name:      "missing",
			setupFunc: func(c *gin.Context) {},
			wantErr:   true,
		},
		{
			name:      "wrong type",
			setupFunc: func(c *gin.Context) { c.Set("customer_id", "7") },
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupFunc(c)

			id, err := GetCustomerID(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)

			userID, err := GetUserID(c)
			require.NoError(t, err)
			assert.Equal(t, "7", userID)
		})
	}
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		setupFunc func(*gin.Context)
		wantErr   bool
	}{
		{
			name: "successfully extracts claims",
			setupFunc: func(c *gin.Context) {
				claims := &validator.ValidatedClaims{
					RegisteredClaims: validator.RegisteredClaims{
						Issuer:  "https://test.auth0.com/",
						Subject: "auth0|123456",
					},
					CustomClaims: &CustomClaims{Scope: "admin"},
				}
				c.Set("validated_claims", claims)
			},
			wantErr: false,
		},
		{
			name:      "claims not found in context",
			setupFunc: func(c *gin.Context) {},
			wantErr:   true,
		},
		{
			name: "claims are not the expected type",
			setupFunc: func(c *gin.Context) {
				c.Set("validated_claims", "invalid")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupFunc(c)

			claims, err := GetClaims(c)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, claims)
			}
		})
	}
}

func TestRequireScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	withScope := func(scope string) func(*gin.Context) {
		return func(c *gin.Context) {
			c.Set("validated_claims", &validator.ValidatedClaims{
				CustomClaims: &CustomClaims{Scope: scope},
			})
		}
	}

	tests := []struct {
		name           string
		requiredScopes []string
		setupFunc      func(*gin.Context)
		wantStatusCode int
		wantAborted    bool
	}{
		{
			name:           "has required scope",
			requiredScopes: []string{ScopeAdmin},
			setupFunc:      withScope("openid admin"),
			wantAborted:    false,
		},
		{
			name:           "any of several scopes is enough",
			requiredScopes: []string{ScopeAdmin, ScopeSchedule},
			setupFunc:      withScope("schedule"),
			wantAborted:    false,
		},
		{
			name:           "missing required scope",
			requiredScopes: []string{ScopeAdmin},
			setupFunc:      withScope("customer"),
			wantStatusCode: http.StatusForbidden,
			wantAborted:    true,
		},
		{
			name:           "claims not in context",
			requiredScopes: []string{ScopeAdmin},
			setupFunc:      func(c *gin.Context) {},
			wantStatusCode: http.StatusUnauthorized,
			wantAborted:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

			tt.setupFunc(c)

			handler := RequireScope(tt.requiredScopes...)
			handler(c)

			if tt.wantAborted {
				assert.True(t, c.IsAborted())
				assert.Equal(t, tt.wantStatusCode, w.Code)
			} else {
				assert.False(t, c.IsAborted())
			}
		})
	}
}

func customerTestConfig() *config.Config {
	return &config.Config{
		GoEnv:       "test",
		JWTSecret:   "test-secret",
		JWTIssuer:   "ironworks-api",
		JWTAudience: "ironworks-customers",
	}
}

func customerRouter(cfg *config.Config, store services.TokenStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", EnsureCustomerToken(cfg, store), func(c *gin.Context) {
		id, err := GetCustomerID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, strconv.FormatUint(uint64(id), 10))
	})
	return router
}

func TestEnsureCustomerToken(t *testing.T) {
	cfg := customerTestConfig()
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Hour)
	valid, err := tokens.Issue(42, "Dana", "dana@example.com")
	require.NoError(t, err)

	foreign, err := services.NewTokenService("other-secret", cfg.JWTIssuer, cfg.JWTAudience, time.Hour).Issue(42, "Dana", "dana@example.com")
	require.NoError(t, err)

	expired, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, -time.Hour).Issue(42, "Dana", "dana@example.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid.Token, http.StatusOK, "42"},
		{"missing token", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"malformed header", "Token abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"signed with another secret", "Bearer " + foreign.Token, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	router := customerRouter(cfg, services.NewMemoryTokenStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestEnsureCustomerToken_Revoked(t *testing.T) {
	cfg := customerTestConfig()
	store := services.NewMemoryTokenStore()
	issued, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Hour).Issue(42, "Dana", "dana@example.com")
	require.NoError(t, err)
	require.NoError(t, store.Revoke(context.Background(), issued.ID, issued.ExpiresAt))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	w := httptest.NewRecorder()
	customerRouter(cfg, store).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestAuthError(t *testing.T) {
	err := &AuthError{
		Code:    "TEST_ERROR",
		Message: "This is a test error",
	}

	assert.Equal(t, "This is a test error", err.Error())
}
