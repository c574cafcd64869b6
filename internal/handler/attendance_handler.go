package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edutrack-api/internal/dto"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/export"
	"github.com/noah-isme/edutrack-api/pkg/response"
)

type attendanceService interface {
	ListForUser(ctx context.Context, userID int64) ([]dto.AttendanceResponse, error)
	ListForDate(ctx context.Context, date time.Time) ([]dto.AttendanceResponse, error)
	Today(ctx context.Context, userID int64) (dto.AttendanceResponse, error)
	SweepToday(ctx context.Context) (int64, error)
	Export(ctx context.Context, date time.Time, format export.Format) ([]byte, string, error)
}

// AttendanceHandler exposes derived daily attendance.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Mine godoc
// @Summary My attendance
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/me [get]
func (h *AttendanceHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Today godoc
// @Summary Today's attendance
// @Description Returns a placeholder with null total and status when nothing was recorded yet.
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.Today(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ForUser godoc
// @Summary Attendance of a user
// @Tags Attendance
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/user/{id} [get]
func (h *AttendanceHandler) ForUser(c *gin.Context) {
	userID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ForDate godoc
// @Summary Attendance of a date
// @Tags Attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/date/{date} [get]
func (h *AttendanceHandler) ForDate(c *gin.Context) {
	date, err := dateParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.ListForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// UpdateStatus godoc
// @Summary Promote qualified attendance
// @Description Marks today's records present when their total already meets the threshold.
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/update-status [post]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	changed, err := h.service.SweepToday(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": changed}, nil)
}

// Export godoc
// @Summary Export attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /attendance/date/{date}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	date, err := dateParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Validation(err, "format must be csv or pdf"))
		return
	}
	body, filename, err := h.service.Export(c.Request.Context(), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, format.ContentType(), body)
}
