package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetSummary handles GET /api/reports/summary
func GetSummary(c *gin.Context) {
	svc := services.NewReportService(config.GetDB())
	summary, err := svc.Summary(c.Request.Context())
	if err != nil {
		respondServiceError(c, "Build summary", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// ExportInvoices handles GET /api/reports/invoices.xlsx
func ExportInvoices(c *gin.Context) {
	var buf bytes.Buffer
	svc := services.NewReportService(config.GetDB())
	if err := svc.WriteInvoicesXLSX(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, "Export invoices", err)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
