package main

import (
	"log"
	"net/http"

	_ "foodshare/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"foodshare/internal/auth"
	"foodshare/internal/cache"
	"foodshare/internal/config"
	"foodshare/internal/db"
	"foodshare/internal/handler"
	"foodshare/internal/model"
	"foodshare/internal/repository"
	"foodshare/internal/router"
	"foodshare/internal/service"
	"foodshare/internal/storage"
)

// @title FoodShare API
// @version 1.0
// @description Food-donation marketplace API: donors post surplus food listings, receivers claim pickup slots, admins moderate.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.FoodListing{},
		&model.Claim{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	blobStore, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("blob store init: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	listingRepo := repository.NewListingRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	listingService := service.NewListingService(listingRepo, blobStore, cfg.PublicBaseURL)
	adminService := service.NewAdminService(userRepo, listingRepo, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	listingHandler := handler.NewListingHandler(listingService, blobStore)
	adminHandler := handler.NewAdminHandler(adminService)

	// Register routes
	router.Register(
		e,
		cfg,
		userRepo,
		authHandler,
		listingHandler,
		adminHandler,
	)

	log.Printf("Swagger documentation available at: %s/swagger/index.html", cfg.PublicBaseURL)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
