package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/api/handlers"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/api/middleware"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/captcha"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/events"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient) *gin.Engine {
	// Services needed by API handlers.
	publisher := events.NewRedisPublisher(rdb)
	vendorService := services.NewVendorService(db, cfg)
	customerService := services.NewCustomerService(db)
	recordService := services.NewRecordService(db, customerService, publisher)
	ledgerService := services.NewLedgerService(db)
	paymentService := services.NewPaymentService(db, cfg, publisher)
	adminService := services.NewAdminService(db)

	statementStorage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Global middleware (order matters: captcha verdict feeds the limiter).
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CaptchaMiddleware(captchaVerifier))
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(vendorService, customerService)
	recordHandler := handlers.NewRecordHandler(recordService, ledgerService, paymentService)
	customerHandler := handlers.NewCustomerHandler(customerService, ledgerService, vendorService)
	adminHandler := handlers.NewAdminHandler(adminService, statementStorage, taskClient)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authenticated := v1.Group("/")
		authenticated.Use(middleware.AuthMiddleware(cfg.JwtSecret))

		handlers.RegisterAuthRoutes(v1, authenticated, authHandler)
		handlers.RegisterCustomerRoutes(v1, authenticated, customerHandler)
		handlers.RegisterRecordRoutes(authenticated, recordHandler)

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		handlers.RegisterAdminRoutes(admin, adminHandler)
	}

	return r
}
