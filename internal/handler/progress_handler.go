package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/service"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/response"
)

type progressService interface {
	RecordProgress(ctx context.Context, userID int64, req dto.ProgressRequest) (*service.ProgressResult, error)
	ListByVideo(ctx context.Context, userID, videoID int64) ([]dto.ProgressResponse, error)
}

// ProgressHandler accepts watch-time reports.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Record godoc
// @Summary Report watch progress
// @Description Adds watchtime_seconds to today's progress for the video. The progress row is returned as data and the refreshed attendance record, or null when it could not be recomputed, as meta.attendance.
// @Tags Progress
// @Accept json
// @Produce json
// @Param payload body dto.ProgressRequest true "Progress payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress [post]
func (h *ProgressHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid progress payload"))
		return
	}
	result, err := h.service.RecordProgress(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result.Progress, nil, map[string]interface{}{"attendance": result.Attendance})
}

// ByVideo godoc
// @Summary Progress for a video
// @Tags Progress
// @Produce json
// @Param id path int true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/video/{id} [get]
func (h *ProgressHandler) ByVideo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	videoID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.ListByVideo(c.Request.Context(), claims.UserID, videoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
