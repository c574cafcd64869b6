package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/export"
	"github.com/noah-isme/edutrack-api/pkg/jobs"
)

// JobTypeAttendanceRepair identifies deferred recompute jobs.
const JobTypeAttendanceRepair = "attendance.recompute"

type attendanceRepository interface {
	Recompute(ctx context.Context, userID int64, date time.Time, transition repository.AttendanceTransition) (*models.Attendance, error)
	PromoteQualified(ctx context.Context, date time.Time, thresholdSeconds int64) (int64, error)
	FindByUserDate(ctx context.Context, userID int64, date time.Time) (*models.Attendance, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Attendance, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Attendance, error)
	ListReport(ctx context.Context, date time.Time) ([]models.AttendanceReportRow, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AttendanceConfig tunes attendance derivation.
type AttendanceConfig struct {
	MinimumSeconds int64
	Location       *time.Location
}

// RepairPayload identifies the aggregate a repair job recomputes.
type RepairPayload struct {
	UserID int64
	Date   time.Time
}

// AttendanceService derives daily attendance from the progress ledger.
type AttendanceService struct {
	repo     attendanceRepository
	queue    jobEnqueuer
	renderer *export.Renderer
	metrics  *MetricsService
	logger   *zap.Logger
	config   AttendanceConfig
	now      func() time.Time
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, metrics *MetricsService, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MinimumSeconds <= 0 {
		config.MinimumSeconds = 10800
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &AttendanceService{
		repo:     repo,
		renderer: export.NewRenderer(),
		metrics:  metrics,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// SetRepairQueue attaches the queue used for deferred recomputes.
func (s *AttendanceService) SetRepairQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Threshold returns the configured minimum seconds for presence.
func (s *AttendanceService) Threshold() int64 {
	return s.config.MinimumSeconds
}

// CurrentDate returns today's date in the attendance timezone.
func (s *AttendanceService) CurrentDate() time.Time {
	return models.DateOf(s.now(), s.config.Location)
}

// Recompute re-sums the user's progress for the date and applies the
// status transition. Running it twice yields the same record.
func (s *AttendanceService) Recompute(ctx context.Context, userID int64, date time.Time) (*models.Attendance, error) {
	threshold := s.config.MinimumSeconds
	var promoted bool
	record, err := s.repo.Recompute(ctx, userID, date, func(a *models.Attendance, total int64) bool {
		before := a.Status
		changed := a.Recompute(total, threshold)
		promoted = before != models.AttendancePresent && a.Status == models.AttendancePresent
		return changed
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to recompute attendance")
	}
	if promoted {
		s.metrics.RecordPromotions("recompute", 1)
		s.logger.Info("attendance promoted",
			zap.Int64("user_id", userID),
			zap.String("date", models.FormatDate(date)),
			zap.Int64("total_seconds", record.TotalSeconds))
	}
	return record, nil
}

// Refresh recomputes like Recompute but never fails the caller: on error it
// logs and schedules a deferred repair, returning nil.
func (s *AttendanceService) Refresh(ctx context.Context, userID int64, date time.Time) *models.Attendance {
	record, err := s.Recompute(ctx, userID, date)
	if err == nil {
		return record
	}
	s.logger.Warn("attendance recompute failed, scheduling repair",
		zap.Int64("user_id", userID),
		zap.String("date", models.FormatDate(date)),
		zap.Error(err))
	s.scheduleRepair(userID, date)
	return nil
}

func (s *AttendanceService) scheduleRepair(userID int64, date time.Time) {
	if s.queue == nil {
		s.metrics.RecordRepair("dropped")
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Key:     fmt.Sprintf("attendance:%d:%s", userID, models.FormatDate(date)),
		Type:    JobTypeAttendanceRepair,
		Payload: RepairPayload{UserID: userID, Date: date},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordRepair("dropped")
		s.logger.Error("failed to enqueue attendance repair", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.metrics.RecordRepair("scheduled")
}

// HandleRepairJob is the queue handler for deferred recomputes.
func (s *AttendanceService) HandleRepairJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(RepairPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if _, err := s.Recompute(ctx, payload.UserID, payload.Date); err != nil {
		s.metrics.RecordRepair("failed")
		return err
	}
	s.metrics.RecordRepair("repaired")
	return nil
}

// SweepStatuses promotes every record of date whose stored total already
// meets the threshold and returns how many changed.
func (s *AttendanceService) SweepStatuses(ctx context.Context, date time.Time) (int64, error) {
	changed, err := s.repo.PromoteQualified(ctx, date, s.config.MinimumSeconds)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to update attendance statuses")
	}
	s.metrics.RecordPromotions("sweep", changed)
	if changed > 0 {
		s.logger.Info("attendance sweep promoted records", zap.String("date", models.FormatDate(date)), zap.Int64("changed", changed))
	}
	return changed, nil
}

// SweepToday runs SweepStatuses for the current date.
func (s *AttendanceService) SweepToday(ctx context.Context) (int64, error) {
	return s.SweepStatuses(ctx, s.CurrentDate())
}

// ListForUser returns a user's attendance, newest first.
func (s *AttendanceService) ListForUser(ctx context.Context, userID int64) ([]dto.AttendanceResponse, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attendance")
	}
	return toAttendanceResponses(records), nil
}

// ListForDate returns all attendance of a date ordered by user.
func (s *AttendanceService) ListForDate(ctx context.Context, date time.Time) ([]dto.AttendanceResponse, error) {
	records, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attendance")
	}
	return toAttendanceResponses(records), nil
}

// Today returns the caller's record for the current date, or a placeholder
// when none exists yet.
func (s *AttendanceService) Today(ctx context.Context, userID int64) (dto.AttendanceResponse, error) {
	today := s.CurrentDate()
	record, err := s.repo.FindByUserDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dto.AttendancePlaceholder(userID, today), nil
		}
		return dto.AttendanceResponse{}, appErrors.Internal(err, "failed to load attendance")
	}
	return dto.NewAttendanceResponse(*record), nil
}

// Export renders the attendance report of a date.
func (s *AttendanceService) Export(ctx context.Context, date time.Time, format export.Format) ([]byte, string, error) {
	rows, err := s.repo.ListReport(ctx, date)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to load attendance report")
	}

	dataset := export.Dataset{
		Title:   "Attendance " + models.FormatDate(date),
		Headers: []string{"user_id", "name", "username", "date", "total_time", "status"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"user_id":    strconv.FormatInt(row.UserID, 10),
			"name":       row.Name,
			"username":   row.Username,
			"date":       models.FormatDate(row.Date),
			"total_time": models.FormatDuration(row.TotalSeconds),
			"status":     string(row.Status),
		})
	}

	body, err := s.renderer.Render(format, dataset)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render attendance report")
	}
	filename := fmt.Sprintf("attendance_%s.%s", models.FormatDate(date), format)
	return body, filename, nil
}

func toAttendanceResponses(records []models.Attendance) []dto.AttendanceResponse {
	out := make([]dto.AttendanceResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.NewAttendanceResponse(r))
	}
	return out
}
