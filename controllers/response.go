package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/services"
)

// respondError writes the error envelope used by every endpoint
func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{"code": code}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   body,
	})
}

// respondServiceError maps a workflow error onto an HTTP status.
// Internal failures are logged and their raw message echoed to the client.
func respondServiceError(c *gin.Context, operation string, err error) {
	svcErr := services.AsError(err)

	switch svcErr.Kind {
	case services.KindValidation, services.KindBusinessRule:
		respondError(c, http.StatusBadRequest, svcErr.Code, svcErr.Message, svcErr.Details)
	case services.KindNotFound:
		respondError(c, http.StatusNotFound, svcErr.Code, svcErr.Message, svcErr.Details)
	case services.KindConflict:
		respondError(c, http.StatusConflict, svcErr.Code, svcErr.Message, svcErr.Details)
	default:
		log.Printf("%s failed: %v", operation, err)
		respondError(c, http.StatusInternalServerError, svcErr.Code, svcErr.Error(), nil)
	}
}

// respondBindingError reports a request body that could not be decoded
func respondBindingError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

// respondDatabaseError logs and reports a failed query issued directly by a controller
func respondDatabaseError(c *gin.Context, operation string, err error) {
	log.Printf("%s failed: %v", operation, err)
	respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", err.Error(), nil)
}

// parseIDParam reads a positive numeric path parameter, responding 400 when it is not one
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}
