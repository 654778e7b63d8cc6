package main

import (
	"context"
	"log"

	_ "taskprogress/docs"
	"taskprogress/internal/config"
	"taskprogress/internal/logger"
	"taskprogress/internal/server"

	"github.com/gin-gonic/gin"
)

// @title           Task Progress API
// @version         1.0
// @description     Role-based task tracking: data entry users record tasks, supervisors follow progress, administrators manage users and categories.

// @contact.name   Task Progress maintainers

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.EnvFileLoaded {
		logr.Info("no .env file found, using environment variables")
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logr.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	s, err := server.Init(context.Background(), cfg, logr)
	if err != nil {
		logr.Fatalf("❌ Server initialization failed: %v", err)
	}

	if err := s.Run(); err != nil {
		logr.Fatalf("%v", err)
	}
}
