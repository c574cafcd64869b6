package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
)

type progressRepository interface {
	Record(ctx context.Context, w repository.ProgressWrite) (*models.Progress, error)
	ListByVideo(ctx context.Context, userID, videoID int64) ([]models.Progress, error)
}

type videoFinder interface {
	FindVideo(ctx context.Context, id int64) (*models.Video, error)
}

// ProgressResult pairs the updated ledger row with the refreshed attendance.
// Attendance is nil when the recompute was deferred.
type ProgressResult struct {
	Progress   dto.ProgressResponse    `json:"progress"`
	Attendance *dto.AttendanceResponse `json:"attendance,omitempty"`
}

// ProgressService records watch-time reports.
type ProgressService struct {
	repo       progressRepository
	videos     videoFinder
	attendance *AttendanceService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProgressService constructs the service.
func NewProgressService(repo progressRepository, videos videoFinder, attendance *AttendanceService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgressService{repo: repo, videos: videos, attendance: attendance, metrics: metrics, validator: validate, logger: logger}
}

// RecordProgress merges a report into today's ledger row for the video and
// refreshes the user's attendance for the day.
func (s *ProgressService) RecordProgress(ctx context.Context, userID int64, req dto.ProgressRequest) (*ProgressResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid progress payload")
	}
	start, err := parseOptionalTime(req.StartTime, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalTime(req.EndTime, "end_time")
	if err != nil {
		return nil, err
	}

	if _, err := s.videos.FindVideo(ctx, req.VideoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
		}
		return nil, appErrors.Internal(err, "failed to load video")
	}

	var delta int64
	if req.WatchSeconds != nil && *req.WatchSeconds > 0 {
		delta = *req.WatchSeconds
	}

	date := s.attendance.CurrentDate()
	progress, err := s.repo.Record(ctx, repository.ProgressWrite{
		UserID:           userID,
		VideoID:          req.VideoID,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		DeltaSeconds:     delta,
		EnsureAttendance: start != nil,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to record progress")
	}
	s.metrics.RecordProgress(delta)

	result := &ProgressResult{Progress: dto.NewProgressResponse(*progress)}
	if record := s.attendance.Refresh(ctx, userID, date); record != nil {
		resp := dto.NewAttendanceResponse(*record)
		result.Attendance = &resp
	}
	return result, nil
}

// ListByVideo returns the caller's ledger rows for a video, newest first.
func (s *ProgressService) ListByVideo(ctx context.Context, userID, videoID int64) ([]dto.ProgressResponse, error) {
	if _, err := s.videos.FindVideo(ctx, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
		}
		return nil, appErrors.Internal(err, "failed to load video")
	}
	rows, err := s.repo.ListByVideo(ctx, userID, videoID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list progress")
	}
	out := make([]dto.ProgressResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.NewProgressResponse(row))
	}
	return out, nil
}

func parseOptionalTime(raw, field string) (*models.TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := models.ParseTimeOfDay(raw)
	if err != nil {
		return nil, appErrors.Validation(err, field+" must be formatted as HH:MM:SS")
	}
	return &t, nil
}
