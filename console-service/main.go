package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"railzway-console/console-service/handlers"
	"railzway-console/console-service/middleware"
	"railzway-console/console-service/services"
	"railzway-console/shared/clients"
	"railzway-console/shared/config"
	"railzway-console/shared/database"
	"railzway-console/shared/utils/cache"
	"railzway-console/shared/utils/id"

	_ "railzway-console/docs"
)

// @title Railzway Console API
// @version 1.0
// @description Customer console for the Railzway cloud platform

// @host localhost:8081
// @schemes http https

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// Initialize ID generator
	if err := id.Init(); err != nil {
		log.Fatalf("Failed to initialize ID generator: %v", err)
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Initialize cache
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("⚠️ Cache unavailable, continuing without it: %v", err)
	}

	// Remote clients
	provisioner := clients.NewProvisionerClient()
	billing := clients.NewBillingClient()

	// Background services
	hub := services.GetStreamHub()
	publisher := services.NewStatusPublisher(database.GetDB(), provisioner, hub)
	outbox := services.NewOutboxProcessor(database.GetDB(), provisioner, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publisher.Run(ctx)
	go outbox.Run(ctx)

	// Handlers
	authHandler := handlers.NewAuthHandler(database.GetDB())
	orgHandler := handlers.NewOrganizationHandler(database.GetDB())
	profileHandler := handlers.NewProfileHandler(database.GetDB())
	instanceHandler := handlers.NewInstanceHandler(database.GetDB(), orgHandler, provisioner, publisher, hub)
	pricingHandler := handlers.NewPricingHandler(billing)
	adminHandler := handlers.NewAdminHandler(database.GetDB())

	// Rate limiting
	rateLimiter := middleware.NewRateLimiter(30 * time.Minute)
	generalConfig := middleware.RateLimitConfig{
		MaxRequests:   cfg.GetRateLimitMaxRequests(),
		TimeWindow:    time.Duration(cfg.GetRateLimitTimeWindowSeconds()) * time.Second,
		BlockDuration: time.Duration(cfg.GetRateLimitBlockMinutes()) * time.Minute,
	}
	onboardingConfig := middleware.RateLimitConfig{
		MaxRequests:   10,
		TimeWindow:    time.Hour,
		BlockDuration: time.Hour,
	}
	actionConfig := middleware.RateLimitConfig{
		MaxRequests:   30,
		TimeWindow:    time.Minute,
		BlockDuration: 5 * time.Minute,
	}

	router := gin.Default()

	// CORS for the console frontend
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID", "X-Admin-Token")
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestID())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.AppName,
		})
	})

	// Auth endpoints
	auth := router.Group("/auth")
	{
		auth.GET("/login", authHandler.Login)
		auth.GET("/callback", authHandler.Callback)
		auth.GET("/session", authHandler.Session)
		auth.GET("/logout", authHandler.Logout)
	}

	// Pricing endpoints (public, used by onboarding before an org exists)
	api := router.Group("/api")
	api.Use(rateLimiter.RateLimitMiddleware(generalConfig))
	{
		api.GET("/prices", pricingHandler.ListPrices)
		api.GET("/price_amounts", pricingHandler.ListPriceAmounts)
	}

	// User endpoints (session protected)
	user := router.Group("/user")
	user.Use(middleware.SessionMiddleware())
	{
		user.GET("/organizations", orgHandler.GetUserOrganizations)
		user.GET("/profile", profileHandler.GetUserProfile)
		user.PUT("/profile", profileHandler.UpdateUserProfile)
		user.GET("/instance", instanceHandler.GetInstanceStatus)
		user.GET("/instance/stream", instanceHandler.StreamInstanceStatus)
		user.GET("/instance/ws", instanceHandler.StreamInstanceStatusWS)
		actions := user.Group("/instance")
		actions.Use(rateLimiter.ActionRateLimitMiddleware(actionConfig))
		{
			actions.POST("/deploy", instanceHandler.DeployInstance)
			actions.POST("/start", instanceHandler.StartInstance)
			actions.POST("/pause", instanceHandler.PauseInstance)
			actions.POST("/stop", instanceHandler.StopInstance)
			actions.POST("/upgrade", instanceHandler.UpgradeInstance)
			actions.POST("/downgrade", instanceHandler.DowngradeInstance)
		}

		onboarding := user.Group("/onboarding")
		{
			onboarding.GET("/check-org-name", orgHandler.CheckOrgName)
			onboarding.POST("/initialize", rateLimiter.OnboardingRateLimitMiddleware(onboardingConfig), orgHandler.InitializeOrganization)
		}
	}

	// Admin endpoints (token protected)
	admin := router.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.POST("/rollout", adminHandler.RolloutVersion)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// SPA fallback: static assets first, index.html for everything else
	router.NoRoute(func(c *gin.Context) {
		if staticFileExists(cfg.StaticDir, c.Request.URL.Path) {
			c.File(filepath.Join(cfg.StaticDir, c.Request.URL.Path))
			return
		}
		c.File(filepath.Join(cfg.StaticDir, "index.html"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Console Service starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
	}
	log.Println("✅ Server stopped")
}

func staticFileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	info, err := os.Stat(filepath.Join(publicDir, clean))
	if err != nil {
		return false
	}

	return !info.IsDir()
}
