package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/controllers"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/services"
)

// Auth holds the token checks guarding the staff and customer routes
type Auth struct {
	Staff    gin.HandlerFunc
	Customer gin.HandlerFunc
}

// NewAuth builds the production token checks: Auth0 for staff, our own tokens for customers
func NewAuth(cfg *config.Config, store services.TokenStore) Auth {
	return Auth{
		Staff:    middleware.EnsureValidToken(cfg),
		Customer: middleware.EnsureCustomerToken(cfg, store),
	}
}

// Register mounts every /api route on router
func Register(router *gin.Engine, cfg *config.Config, auth Auth) {
	api := router.Group("/api")

	// Public
	api.GET("/uploads/:filename", controllers.GetUploadedImage)

	// Customer accounts
	authRoutes := api.Group("/auth")
	{
		limited := authRoutes.Group("", middleware.RateLimit(cfg.RateLimit))
		limited.POST("/signup", controllers.Signup)
		limited.POST("/login", controllers.Login)

		session := authRoutes.Group("", auth.Customer)
		session.POST("/logout", controllers.Logout)
		session.GET("/me", controllers.GetCurrentCustomer)
		session.PUT("/me/image", controllers.UpdateProfileImage)
	}

	// Quotations: customers file and approve, staff price and bill
	quotation := api.Group("/quotation")
	{
		customer := quotation.Group("", auth.Customer)
		customer.POST("/create", controllers.CreateQuotation)
		customer.PUT("/customer_status", controllers.UpdateCustomerStatus)
		customer.GET("/mine", controllers.GetMyQuotations)

		staff := quotation.Group("", auth.Staff, middleware.RequireScope(middleware.ScopeAdmin))
		staff.GET("", controllers.ListQuotations)
		staff.GET("/:id", controllers.GetQuotation)
		staff.PUT("/status", controllers.UpdateQuotationStatus)
		staff.PUT("/amount", controllers.UpdateQuotationAmount)
		staff.POST("/estimate", controllers.EstimateQuotation)
		staff.POST("/invoice_create", controllers.CreateInvoice)
		staff.POST("/invoice_payment", controllers.AddInvoicePayment)
		staff.POST("/create_or_update_job", controllers.CreateOrUpdateJob)
		staff.GET("/invoice/:quotationId", controllers.GetInvoiceByQuotation)
	}

	admin := api.Group("", auth.Staff, middleware.RequireScope(middleware.ScopeAdmin))
	{
		admin.GET("/invoices", controllers.ListInvoices)
		admin.GET("/invoices/:id", controllers.GetInvoice)

		admin.GET("/materials", controllers.ListMaterials)
		admin.GET("/materials/:id", controllers.GetMaterial)
		admin.POST("/materials", controllers.CreateMaterial)
		admin.PUT("/materials/:id", controllers.UpdateMaterial)
		admin.DELETE("/materials/:id", controllers.DeleteMaterial)

		admin.GET("/employees", controllers.ListEmployees)
		admin.GET("/employees/:id", controllers.GetEmployee)
		admin.POST("/employees", controllers.CreateEmployee)
		admin.PUT("/employees/:id", controllers.UpdateEmployee)
		admin.DELETE("/employees/:id", controllers.DeleteEmployee)

		admin.GET("/machines", controllers.ListMachines)
		admin.GET("/machines/:id", controllers.GetMachine)
		admin.POST("/machines", controllers.CreateMachine)
		admin.PUT("/machines/:id", controllers.UpdateMachine)
		admin.DELETE("/machines/:id", controllers.DeleteMachine)
		admin.GET("/machines/:id/maintenance", controllers.ListMaintenance)
		admin.POST("/machines/:id/maintenance", controllers.AddMaintenance)

		admin.GET("/customers", controllers.ListCustomers)
		admin.DELETE("/customers/:id", controllers.DeleteCustomer)

		admin.GET("/reports/summary", controllers.GetSummary)
		admin.GET("/reports/invoices.xlsx", controllers.ExportInvoices)
	}

	// Jobs and scheduling are open to schedulers as well as admins
	jobs := api.Group("/jobs", auth.Staff)
	{
		adminOnly := middleware.RequireScope(middleware.ScopeAdmin)
		jobs.GET("", adminOnly, controllers.ListJobs)
		jobs.PUT("/:id/status", adminOnly, controllers.UpdateJobStatus)

		scheduling := jobs.Group("", middleware.RequireScope(middleware.ScopeAdmin, middleware.ScopeSchedule))
		scheduling.POST("/assign", controllers.AssignResources)
		scheduling.POST("/update", controllers.UpdateResources)
		scheduling.POST("/remove", controllers.RemoveResources)
		scheduling.GET("/assigned/:jobId", controllers.GetAssignedResources)
		scheduling.GET("/by-date/:date", controllers.GetJobsByDate)
		scheduling.GET("/by-range", controllers.GetJobsByDateRange)
		scheduling.GET("/:id", controllers.GetJob)
	}

	availability := api.Group("", auth.Staff, middleware.RequireScope(middleware.ScopeAdmin, middleware.ScopeSchedule))
	availability.GET("/employees/availability", controllers.GetEmployeeAvailability)
	availability.GET("/machines/availability", controllers.GetMachineAvailability)
}
