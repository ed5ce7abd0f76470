package main

import (
	"context"
	"log"

	"foodshare/internal/auth"
	"foodshare/internal/config"
	"foodshare/internal/db"
	"foodshare/internal/model"
	"foodshare/internal/repository"
	"foodshare/internal/service"
)

// Provisioning entrypoint: creates the admin account if it does not exist.
// Safe to run on every deployment; a second run is a no-op.
func main() {
	log.Println("Starting provisioning...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, jwtService, auth.NewTokenStore(nil))

	created, err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
	if err != nil {
		log.Fatalf("Failed to provision admin: %v", err)
	}

	if created {
		log.Printf("Admin account created: %s", cfg.AdminEmail)
	} else {
		log.Printf("Admin account already present: %s", cfg.AdminEmail)
	}
}
