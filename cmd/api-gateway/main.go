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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edutrack-api/api/swagger"
	"github.com/noah-isme/edutrack-api/internal/handler"
	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/repository"
	"github.com/noah-isme/edutrack-api/internal/service"
	"github.com/noah-isme/edutrack-api/pkg/cache"
	"github.com/noah-isme/edutrack-api/pkg/config"
	"github.com/noah-isme/edutrack-api/pkg/database"
	"github.com/noah-isme/edutrack-api/pkg/jobs"
	"github.com/noah-isme/edutrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edutrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edutrack-api/pkg/middleware/requestid"
	"github.com/noah-isme/edutrack-api/pkg/youtube"
)

// @title EduTrack API
// @version 1.0.0
// @description Course catalog, enrollment, watch progress and daily attendance
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cacheRepo.Enabled())
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, metricsSvc, logr, service.AttendanceConfig{
		MinimumSeconds: cfg.Attendance.MinimumSeconds,
		Location:       cfg.Attendance.Location(),
	})
	repairQueue := jobs.NewQueue("attendance-repair", attendanceSvc.HandleRepairJob, jobs.QueueConfig{
		Workers:    cfg.Attendance.RepairWorkers,
		MaxRetries: cfg.Attendance.RepairRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	attendanceSvc.SetRepairQueue(repairQueue)
	repairQueue.Start(ctx)
	defer repairQueue.Stop()

	progressSvc := service.NewProgressService(progressRepo, courseRepo, attendanceSvc, metricsSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, metricsSvc, logr, service.EnrollmentConfig{
		StudentCourseLimit: cfg.Enrollment.StudentCourseLimit,
	})
	courseSvc := service.NewCourseService(courseRepo, youtube.New(cfg.Playlist, logr), attendanceSvc, cacheSvc, metricsSvc, validate, logr, service.CourseConfig{
		CacheTTL:     cfg.Catalog.CacheTTL,
		FetchTimeout: cfg.Playlist.Timeout,
	})

	scheduler := service.NewSchedulerService(cfg.Attendance.SweepSchedule, attendanceSvc, cfg.Attendance.Location(), logr)
	if err := scheduler.Start(); err != nil {
		logr.Fatal("failed to start scheduler", zap.Error(err))
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if cacheRepo.Enabled() {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Courses:    handler.NewCourseHandler(courseSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Progress:   handler.NewProgressHandler(progressSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc, checks),
	}, authSvc, logr)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
}
