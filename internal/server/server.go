package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/config"
	"taskprogress/internal/handler"
	"taskprogress/internal/logger"
	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/repository"
	"taskprogress/internal/seed"
	"taskprogress/internal/service"
	"taskprogress/internal/session"
	"taskprogress/internal/validation"
	"taskprogress/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.SugaredLogger

	redis *redis.Client
}

// Init connects the stores, prepares the schema and seed data and builds
// the engine.
func Init(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Server, error) {
	db, err := repository.Open(cfg, logger.Gorm(log))
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Infow("✅ Connected to database", "driver", cfg.DBDriver)

	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("❌ migration failed: %w", err)
	}
	if err := seed.Run(ctx, db, seed.OptionsFromConfig(cfg), log); err != nil {
		return nil, fmt.Errorf("❌ seeding failed: %w", err)
	}
	backfilled, err := repository.BackfillLegacyCategories(db)
	if err != nil {
		return nil, fmt.Errorf("❌ category backfill failed: %w", err)
	}
	if backfilled > 0 {
		log.Infow("legacy task categories migrated", "tasks", backfilled)
	}

	s := &Server{DB: db, Config: cfg, Log: log}

	var revoker session.Revoker = session.NopRevoker{}
	if cfg.RedisAddr != "" {
		client, err := session.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("❌ failed to connect to Redis: %w", err)
		}
		log.Infow("✅ Connected to Redis", "addr", cfg.RedisAddr)
		s.redis = client
		revoker = session.NewRedisRevoker(client)
	} else {
		log.Warn("REDIS_ADDR not set, logged out tokens stay valid until they expire")
	}

	s.Engine, err = NewEngine(db, cfg, revoker, log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewEngine wires services, handlers and routes onto a fresh engine.
func NewEngine(db *gorm.DB, cfg *config.Config, revoker session.Revoker, log *zap.SugaredLogger) (*gin.Engine, error) {
	if err := validation.Register(); err != nil {
		return nil, err
	}
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery(), middleware.CORS(cfg.CORSOrigins))
	r.SetHTMLTemplate(tmpl)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(db, tokens, revoker, log)
	taskService := service.NewTaskService(db, log)
	categoryService := service.NewCategoryService(db, log)
	userService := service.NewUserService(db, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.CookieSecure, log)
	taskHandler := handler.NewTaskHandler(taskService, log)
	categoryHandler := handler.NewCategoryHandler(categoryService, log)
	userHandler := handler.NewUserHandler(userService, log)
	pages := web.New(web.Services{
		Auth:       authService,
		Tasks:      taskService,
		Categories: categoryService,
		Users:      userService,
	}, cfg.CookieSecure, log)

	authenticate := middleware.Authenticate(authService, log)
	optionalAuth := middleware.OptionalAuthenticate(authService, log)
	taskRoles := middleware.RequireRoles(model.RoleDataEntry, model.RoleSupervisor)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Login is reachable whatever credentials the client still sends.
	r.POST("/api/login", authHandler.Login)
	r.GET("/login", optionalAuth, pages.LoginPage)
	r.POST("/login", optionalAuth, pages.Login)

	// JSON API
	api := r.Group("/api")
	api.Use(authenticate)
	{
		authorized := api.Group("")
		authorized.Use(middleware.RequireActor())
		authorized.POST("/logout", authHandler.Logout)

		tasks := authorized.Group("")
		tasks.Use(taskRoles)
		{
			tasks.GET("/tasks", taskHandler.List)
			tasks.GET("/tasks/:id", taskHandler.GetByID)
			tasks.POST("/tasks", taskHandler.Create)
			tasks.PUT("/tasks/:id", taskHandler.Update)
			tasks.DELETE("/tasks/:id", taskHandler.Delete)
			tasks.PUT("/tasks/:id/progress", taskHandler.UpdateProgress)
			tasks.GET("/stats", taskHandler.Stats)
		}
		authorized.GET("/categories", categoryHandler.ListActive)

		admin := authorized.Group("/admin")
		admin.Use(adminOnly)
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.GET("/users/:id", userHandler.GetByID)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.PUT("/users/:id/password", userHandler.ResetPassword)

			admin.GET("/categories", categoryHandler.List)
			admin.POST("/categories", categoryHandler.Create)
			admin.GET("/categories/:id", categoryHandler.GetByID)
			admin.PUT("/categories/:id", categoryHandler.Update)
			admin.DELETE("/categories/:id", categoryHandler.Delete)
		}
	}

	// HTML pages
	site := r.Group("/")
	site.Use(authenticate)
	{
		member := site.Group("")
		member.Use(middleware.RequireActor())
		member.GET("/logout", pages.Logout)
		member.GET("/", pages.Dashboard)

		tasks := member.Group("")
		tasks.Use(taskRoles)
		{
			tasks.GET("/tasks", pages.Tasks)
			tasks.GET("/add_task", pages.AddTaskPage)
			tasks.POST("/add_task", pages.AddTask)
			tasks.GET("/edit_task/:id", pages.EditTaskPage)
			tasks.POST("/edit_task/:id", pages.EditTask)
		}

		admin := member.Group("/admin")
		admin.Use(adminOnly)
		{
			admin.GET("/users", pages.Users)
			admin.GET("/users/add", pages.AddUserPage)
			admin.POST("/users/add", pages.AddUser)
			admin.GET("/users/:id/edit", pages.EditUserPage)
			admin.POST("/users/:id/edit", pages.EditUser)
			admin.GET("/users/:id/reset_password", pages.ResetPasswordPage)
			admin.POST("/users/:id/reset_password", pages.ResetPassword)
			admin.POST("/users/:id/delete", pages.DeleteUser)

			admin.GET("/categories", pages.Categories)
			admin.GET("/categories/add", pages.AddCategoryPage)
			admin.POST("/categories/add", pages.AddCategory)
			admin.GET("/categories/:id/edit", pages.EditCategoryPage)
			admin.POST("/categories/:id/edit", pages.EditCategory)
			admin.POST("/categories/:id/delete", pages.DeleteCategory)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if middleware.IsAPI(c) {
			c.JSON(http.StatusNotFound, handler.ErrorResponse{Error: "Resource not found"})
			return
		}
		pages.NotFound(c)
	})

	return r, nil
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Infof("🚀 Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("❌ failed to listen: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	s.Log.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("❌ server forced to shutdown: %w", err)
	}
	s.Close()

	s.Log.Info("✅ Server exited properly")
	return nil
}

// Close releases the database and Redis connections.
func (s *Server) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Log.Warnw("closing redis", "error", err)
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.Log.Warnw("closing database", "error", err)
		}
	}
}
