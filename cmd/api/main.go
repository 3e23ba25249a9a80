package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduvance/trading-academy-api/api/swagger"
	"github.com/eduvance/trading-academy-api/internal/handler"
	"github.com/eduvance/trading-academy-api/internal/middleware"
	"github.com/eduvance/trading-academy-api/internal/repository"
	"github.com/eduvance/trading-academy-api/internal/service"
	"github.com/eduvance/trading-academy-api/pkg/cache"
	"github.com/eduvance/trading-academy-api/pkg/config"
	"github.com/eduvance/trading-academy-api/pkg/database"
	"github.com/eduvance/trading-academy-api/pkg/export"
	"github.com/eduvance/trading-academy-api/pkg/logger"
	corsmiddleware "github.com/eduvance/trading-academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduvance/trading-academy-api/pkg/middleware/requestid"
	"github.com/eduvance/trading-academy-api/pkg/storage"
)

// @title Trading Academy API
// @version 1.0.0
// @description Role-based e-learning platform for trading education.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API serves without a cache; reads just hit the database.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	classRepo := repository.NewClassRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr, metricsSvc)
	userSvc := service.NewUserService(userRepo, logr, metricsSvc)
	courseSvc := service.NewCourseService(courseRepo, cacheRepo, cfg.Catalog, logr, metricsSvc)
	taskSvc := service.NewTaskService(taskRepo, courseRepo, logr, metricsSvc)
	communitySvc := service.NewCommunityService(communityRepo, cacheRepo, cfg.Community, logr, metricsSvc)
	classSvc := service.NewClassService(classRepo, logr, metricsSvc)
	reminderSvc := service.NewReminderService(reminderRepo, cfg.Reminders, logr, metricsSvc)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Users:     handler.NewUserHandler(userSvc),
		Courses:   handler.NewCourseHandler(courseSvc),
		Tasks:     handler.NewTaskHandler(taskSvc),
		Community: handler.NewCommunityHandler(communitySvc, authSvc),
		Classes:   handler.NewClassHandler(classSvc),
		Reminders: handler.NewReminderHandler(reminderSvc),
		Health:    handler.NewHealthHandler(db, redisClient),

		TokenValidator:   authSvc,
		AuditRepo:        userRepo,
		Metrics:          metricsSvc,
		CommunityEnabled: cfg.Community.Enabled,
		CertsEnabled:     cfg.Certificates.Enabled,
	}

	if cfg.Certificates.Enabled {
		files, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("certificate storage init failed", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
		certSvc := service.NewCertificateService(
			certRepo, userRepo, courseRepo,
			export.NewCertificateRenderer(), files, signer,
			cfg.Certificates, logr, metricsSvc,
		)
		handlers.Certificates = handler.NewCertificateHandler(certSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.Register(r, cfg.APIPrefix, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminderSvc.Start(ctx)
	defer reminderSvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}
