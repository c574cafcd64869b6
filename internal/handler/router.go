package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/models"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth       *AuthHandler
	Courses    *CourseHandler
	Enrollment *EnrollmentHandler
	Progress   *ProgressHandler
	Attendance *AttendanceHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the public probes on root and the API on api.
func RegisterRoutes(root *gin.Engine, api *gin.RouterGroup, h Handlers, auth middleware.Authenticator, logger *zap.Logger) {
	root.GET("/health", h.Metrics.Health)
	root.GET("/ready", h.Metrics.Ready)
	root.GET("/metrics", h.Metrics.Prometheus)

	admin := middleware.RequireRoles(models.RoleAdmin)
	authed := middleware.JWT(auth)

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.Auth.Signup)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/users/me", authed, h.Auth.Me)
	authGroup.GET("/users/students", authed, admin, h.Auth.Students)
	authGroup.GET("/users", authed, admin, h.Auth.Users)

	secured := api.Group("", authed)
	secured.GET("/metrics/summary", admin, h.Metrics.Snapshot)

	courses := secured.Group("/courses")
	courses.GET("", middleware.ResponseMeta(), h.Courses.List)
	courses.POST("", admin, middleware.Audit(logger, "create", "course"), h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.DELETE("/:id", admin, middleware.Audit(logger, "delete", "course"), h.Courses.Delete)
	courses.GET("/:id/videos", h.Courses.Videos)
	courses.POST("/:id/videos", admin, middleware.Audit(logger, "create", "video"), h.Courses.AddVideo)
	courses.GET("/:id/registration", h.Enrollment.Status)
	courses.POST("/:id/register", h.Enrollment.Register)
	courses.DELETE("/:id/registration", h.Enrollment.Unenroll)

	secured.POST("/videos/youtube-playlist", admin, middleware.Audit(logger, "ingest", "playlist"), h.Courses.IngestPlaylist)
	secured.GET("/enrollments/me", h.Enrollment.Mine)

	secured.POST("/progress", h.Progress.Record)
	secured.GET("/progress/video/:id", h.Progress.ByVideo)

	attendance := secured.Group("/attendance")
	attendance.GET("/me", h.Attendance.Mine)
	attendance.GET("/today", h.Attendance.Today)
	attendance.GET("/user/:id", middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf), h.Attendance.ForUser)
	attendance.GET("/date/:date", admin, h.Attendance.ForDate)
	attendance.GET("/date/:date/export", admin, h.Attendance.Export)
	attendance.POST("/update-status", admin, middleware.Audit(logger, "sweep", "attendance"), h.Attendance.UpdateStatus)
}
