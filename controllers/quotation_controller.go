package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/services"
	"github.com/ironworks/ironworks-api/utils"
	"github.com/shopspring/decimal"
)

// CreateQuotationRequest is the body a customer submits to request a quotation
type CreateQuotationRequest struct {
	JobDescription string        `json:"job_description"`
	JobCategory    string        `json:"job_category"`
	UserID         utils.LooseID `json:"userId"`
	UserName       string        `json:"userName"`
	Phone          string        `json:"phone"`
	Location       string        `json:"location"`
	Immediate      interface{}   `json:"immediate"`
	JobID          string        `json:"jobID"`
}

// QuotationStatusRequest is the body of PUT /api/quotation/status
type QuotationStatusRequest struct {
	QuotationID    utils.LooseID `json:"quotationId"`
	Status         string        `json:"status"`
	JobDescription *string       `json:"job_description"`
}

// CustomerStatusRequest is the body of PUT /api/quotation/customer_status
type CustomerStatusRequest struct {
	QuotationID    utils.LooseID `json:"quotationId"`
	CustomerStatus string        `json:"customer_status"`
}

// QuotationAmountRequest is the body of PUT /api/quotation/amount
type QuotationAmountRequest struct {
	QuotationID utils.LooseID           `json:"quotationId"`
	Amount      decimal.Decimal         `json:"amount"`
	Materials   []services.MaterialLine `json:"materials"`
}

// EstimateRequest is the body of POST /api/quotation/estimate
type EstimateRequest struct {
	Materials []services.MaterialLine `json:"materials"`
}

// CreateInvoiceRequest is the body of POST /api/quotation/invoice_create
type CreateInvoiceRequest struct {
	QuotationID   utils.LooseID           `json:"quotationId"`
	InvoiceAmount *decimal.Decimal        `json:"invoiceAmount"`
	Materials     []services.MaterialLine `json:"materials"`
}

// InvoicePaymentRequest is the body of POST /api/quotation/invoice_payment
type InvoicePaymentRequest struct {
	InvoiceID     utils.LooseID   `json:"invoiceId"`
	PaymentAmount decimal.Decimal `json:"paymentAmount"`
}

// CreateOrUpdateJobRequest is the body of POST /api/quotation/create_or_update_job
type CreateOrUpdateJobRequest struct {
	QuotationID     utils.LooseID    `json:"quotationId"`
	InvoiceID       utils.LooseID    `json:"invoiceId"`
	ExistingJobID   utils.LooseID    `json:"existingJobId"`
	JobName         string           `json:"jobName"`
	JobCategory     string           `json:"jobCategory"`
	ActualStartDate interface{}      `json:"actualStartDate"`
	Status          string           `json:"status"`
	CustomerID      utils.LooseID    `json:"customerId"`
	QuotationAmount *decimal.Decimal `json:"quotationAmount"`
	JobID           string           `json:"jobID"`
}

func optionalID(id utils.LooseID) *uint {
	if !id.Valid {
		return nil
	}
	v := id.Value
	return &v
}

// CreateQuotation handles POST /api/quotation/create - the customer is taken from the token
func CreateQuotation(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract customer from token", nil)
		return
	}

	var req CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if req.UserID.Valid && req.UserID.Value != customerID {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Quotations can only be requested for your own account", nil)
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	quotation, err := svc.Create(c.Request.Context(), services.NewQuotation{
		CustomerID:     customerID,
		CustomerName:   req.UserName,
		JobDescription: req.JobDescription,
		JobCategory:    req.JobCategory,
		Phone:          req.Phone,
		Location:       req.Location,
		RequiredBy:     req.Immediate,
		JobCode:        req.JobID,
	})
	if err != nil {
		respondServiceError(c, "Create quotation", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Quotation created successfully",
		"quotationId": quotation.ID,
		"jobID":       quotation.JobCode,
	})
}

// ListQuotations handles GET /api/quotation?status=
func ListQuotations(c *gin.Context) {
	svc := services.NewQuotationService(config.GetDB())
	quotations, err := svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondServiceError(c, "List quotations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"quotations": quotations,
	})
}

// GetQuotation handles GET /api/quotation/:id
func GetQuotation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	quotation, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "Get quotation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"quotation": quotation,
	})
}

// GetMyQuotations handles GET /api/quotation/mine for the authenticated customer
func GetMyQuotations(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract customer from token", nil)
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	quotations, err := svc.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, "List customer quotations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"quotations": quotations,
	})
}

// UpdateQuotationStatus handles PUT /api/quotation/status - the admin decision
func UpdateQuotationStatus(c *gin.Context) {
	var req QuotationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	if _, err := svc.SetStatus(c.Request.Context(), req.QuotationID.Value, req.Status, req.JobDescription); err != nil {
		respondServiceError(c, "Update quotation status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Quotation status updated",
	})
}

// UpdateCustomerStatus handles PUT /api/quotation/customer_status - the customer decision
func UpdateCustomerStatus(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract customer from token", nil)
		return
	}

	var req CustomerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	if _, err := svc.SetCustomerStatus(c.Request.Context(), req.QuotationID.Value, req.CustomerStatus, customerID); err != nil {
		respondServiceError(c, "Update customer status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Customer status updated",
	})
}

// UpdateQuotationAmount handles PUT /api/quotation/amount - prices and approves a quotation
func UpdateQuotationAmount(c *gin.Context) {
	var req QuotationAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewQuotationService(config.GetDB())
	quotation, err := svc.SetAmount(c.Request.Context(), req.QuotationID.Value, req.Amount, req.Materials)
	if err != nil {
		respondServiceError(c, "Update quotation amount", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Quotation amount saved",
		"quotation": quotation,
	})
}

// EstimateQuotation handles POST /api/quotation/estimate
func EstimateQuotation(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	estimate, err := services.EstimateLines(req.Materials)
	if err != nil {
		respondServiceError(c, "Estimate quotation", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"subtotal": estimate.Subtotal,
		"labor":    estimate.Labor,
		"machine":  estimate.Machine,
		"total":    estimate.Total,
	})
}

// CreateInvoice handles POST /api/quotation/invoice_create
func CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewInvoiceService(config.GetDB())
	invoice, err := svc.Create(c.Request.Context(), req.QuotationID.Value, req.InvoiceAmount, req.Materials)
	if err != nil {
		respondServiceError(c, "Create invoice", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Invoice created successfully",
		"invoiceId": invoice.ID,
		"invoice":   invoice,
	})
}

// AddInvoicePayment handles POST /api/quotation/invoice_payment
func AddInvoicePayment(c *gin.Context) {
	var req InvoicePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewInvoiceService(config.GetDB())
	invoice, err := svc.AddPayment(c.Request.Context(), req.InvoiceID.Value, req.PaymentAmount)
	if err != nil {
		respondServiceError(c, "Add invoice payment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Payment recorded",
		"newPaidAmount": invoice.PaidAmount,
		"paymentStatus": invoice.PaymentStatus,
	})
}

// GetInvoiceByQuotation handles GET /api/quotation/invoice/:quotationId
func GetInvoiceByQuotation(c *gin.Context) {
	quotationID, ok := parseIDParam(c, "quotationId")
	if !ok {
		return
	}

	svc := services.NewInvoiceService(config.GetDB())
	invoice, err := svc.GetByQuotation(c.Request.Context(), quotationID)
	if err != nil {
		respondServiceError(c, "Get invoice", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"invoice": invoice,
	})
}

// ListInvoices handles GET /api/invoices
func ListInvoices(c *gin.Context) {
	svc := services.NewInvoiceService(config.GetDB())
	invoices, err := svc.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, "List invoices", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"invoices": invoices,
	})
}

// GetInvoice handles GET /api/invoices/:id
func GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	svc := services.NewInvoiceService(config.GetDB())
	invoice, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, "Get invoice", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"invoice": invoice,
	})
}

// CreateOrUpdateJob handles POST /api/quotation/create_or_update_job
func CreateOrUpdateJob(c *gin.Context) {
	var req CreateOrUpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	svc := services.NewJobService(config.GetDB())
	job, created, err := svc.CreateOrUpdate(c.Request.Context(), services.JobRequest{
		QuotationID:     req.QuotationID.Value,
		InvoiceID:       optionalID(req.InvoiceID),
		ExistingJobID:   optionalID(req.ExistingJobID),
		Name:            req.JobName,
		Category:        req.JobCategory,
		ActualStartDate: req.ActualStartDate,
		Status:          req.Status,
		CustomerID:      optionalID(req.CustomerID),
		Amount:          req.QuotationAmount,
		JobCode:         req.JobID,
	})
	if err != nil {
		respondServiceError(c, "Create or update job", err)
		return
	}

	status := http.StatusOK
	message := "Job updated successfully"
	if created {
		status = http.StatusCreated
		message = "Job created successfully"
	}

	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"jobId":   job.ID,
		"created": created,
		"job":     job,
	})
}
