package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
)

// Staff scopes granted through Auth0
const (
	ScopeAdmin    = "admin"
	ScopeSchedule = "schedule"
)

// Context keys set by the authentication middleware
const (
	userIDKey     = "user_id"
	customerIDKey = "customer_id"
	claimsKey     = "validated_claims"
)

// CustomClaims contains the custom data we read from staff and customer tokens.
// Auth0 puts RBAC grants in permissions; customer tokens only carry scope.
type CustomClaims struct {
	Scope       string   `json:"scope"`
	Permissions []string `json:"permissions"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
}

// Validate does nothing, but we need it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasScope checks whether the claims grant a specific scope.
func (c CustomClaims) HasScope(expectedScope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == expectedScope {
			return true
		}
	}
	for _, p := range c.Permissions {
		if p == expectedScope {
			return true
		}
	}
	return false
}

func newCustomClaims() validator.CustomClaims {
	return &CustomClaims{}
}

func writeTokenError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := `{"success":false,"message":"` + message + `","error":{"code":"` + code + `"}}`
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

func tokenErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("Encountered error while validating JWT: %v", err)

	if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
		writeTokenError(w, "MISSING_TOKEN", "Authorization token is required.")
		return
	}
	writeTokenError(w, "INVALID_TOKEN", "Failed to validate JWT.")
}

// EnsureValidToken checks an Auth0 staff token (RS256, keys from the tenant JWKS).
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		log.Fatalf("Failed to parse the issuer url: %v", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(newCustomClaims),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(tokenErrorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Set(claimsKey, token)
			c.Request = r
			passed = true

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// EnsureCustomerToken checks a customer session token (HS256, issued by this API)
// and refuses tokens revoked at logout.
func EnsureCustomerToken(cfg *config.Config, store services.TokenStore) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(newCustomClaims),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		log.Fatalf("Failed to set up the customer token validator: %v", err)
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(tokenErrorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			claims, ok := token.CustomClaims.(*CustomClaims)
			if !ok || !claims.HasScope(services.CustomerScope) {
				writeTokenError(w, "INVALID_TOKEN", "Not a customer token.")
				return
			}

			customerID, err := strconv.ParseUint(token.RegisteredClaims.Subject, 10, 64)
			if err != nil || customerID == 0 {
				writeTokenError(w, "INVALID_TOKEN", "Token subject is not a customer.")
				return
			}

			revoked, err := store.IsRevoked(r.Context(), token.RegisteredClaims.ID)
			if err != nil {
				log.Printf("Token revocation lookup failed: %v", err)
			}
			if revoked {
				writeTokenError(w, "TOKEN_REVOKED", "Token has been revoked.")
				return
			}

			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Set(customerIDKey, uint(customerID))
			c.Set(claimsKey, token)
			c.Request = r
			passed = true

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// GetUserID extracts the token subject from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetCustomerID extracts the authenticated customer's id from the Gin context
func GetCustomerID(c *gin.Context) (uint, error) {
	value, exists := c.Get(customerIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_CUSTOMER_ID", Message: "Customer ID not found in context"}
	}

	id, ok := value.(uint)
	if !ok || id == 0 {
		return 0, &AuthError{Code: "INVALID_CUSTOMER_ID", Message: "Customer ID is not valid"}
	}

	return id, nil
}

// SetCustomerID stores the authenticated customer's id (used by tests and token refresh)
func SetCustomerID(c *gin.Context, id uint) {
	c.Set(userIDKey, strconv.FormatUint(uint64(id), 10))
	c.Set(customerIDKey, id)
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireScope lets the request through when the token grants any of the scopes
func RequireScope(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Could not retrieve token claims",
				"error":   gin.H{"code": "MISSING_CLAIMS"},
			})
			c.Abort()
			return
		}

		customClaims, ok := claims.CustomClaims.(*CustomClaims)
		if ok {
			for _, scope := range scopes {
				if customClaims.HasScope(scope) {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Insufficient permissions to access this resource",
			"error":   gin.H{"code": "INSUFFICIENT_SCOPE"},
		})
		c.Abort()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
