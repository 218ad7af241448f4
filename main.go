package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironworks/ironworks-api/config"
	"github.com/ironworks/ironworks-api/middleware"
	"github.com/ironworks/ironworks-api/models"
	"github.com/ironworks/ironworks-api/routes"
	"github.com/ironworks/ironworks-api/services"
)

func main() {
	log.Println("Starting Ironworks API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.LogLevel == "debug" {
		config.SetDB(config.GetDB().Debug())
	}

	// Auto-migrate database models
	if err := config.GetDB().AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := initImageStorage(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	if err := initTokenStore(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize token store: %v", err)
	}

	router := setupRouter(cfg, routes.NewAuth(cfg, services.GetTokenStore()))

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the application router
func setupRouter(cfg *config.Config, auth routes.Auth) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.CORSOrigins))

	router.GET("/api/health", healthCheck)
	router.GET("/api/database/status", databaseStatus)
	routes.Register(router, cfg, auth)

	return router
}

// initImageStorage selects S3 when a bucket is configured, local disk otherwise
func initImageStorage(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesS3() {
		services.InitLocalImageService(cfg.UploadDir)
		log.Printf("Storing images on disk in %s", cfg.UploadDir)
		return nil
	}

	s3Service, err := services.InitS3Service(ctx)
	if err != nil {
		return err
	}
	services.InitImageService(s3Service)
	log.Printf("Storing images in S3 bucket %s", cfg.AWSS3Bucket)
	return nil
}

// initTokenStore keeps revoked customer tokens in Redis when REDIS_URL is set
func initTokenStore(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not set, revoked tokens are kept in memory")
		services.SetTokenStore(services.NewMemoryTokenStore())
		return nil
	}

	client, err := services.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	services.SetTokenStore(services.NewRedisTokenStore(client))
	return nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ironworks API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Database not configured",
			"error":   gin.H{"code": "DATABASE_ERROR"},
		})
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get database instance",
			"error":   gin.H{"code": "DATABASE_ERROR"},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Database connection failed",
			"error":   gin.H{"code": "DATABASE_CONNECTION_ERROR"},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to query tables",
			"error":   gin.H{"code": "DATABASE_QUERY_ERROR"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"dialect": db.Dialector.Name(),
		"tables":  tables,
	})
}
