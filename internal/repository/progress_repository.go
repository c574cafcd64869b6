package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/pkg/database"
)

const progressColumns = `id, user_id, video_id, date, start_time, end_time, watch_seconds`

// ProgressWrite is one watch-time report to merge into the ledger.
type ProgressWrite struct {
	UserID       int64
	VideoID      int64
	Date         time.Time
	StartTime    *models.TimeOfDay
	EndTime      *models.TimeOfDay
	DeltaSeconds int64
	// EnsureAttendance creates the day's attendance row in the same
	// transaction when it does not exist yet.
	EnsureAttendance bool
}

// ProgressRepository persists the per-video daily ledger.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Record merges a report into the (user, video, date) row. The first start
// time of the day is kept, the end time is last-write-wins and watch
// seconds are added atomically.
func (r *ProgressRepository) Record(ctx context.Context, w ProgressWrite) (*models.Progress, error) {
	var progress models.Progress
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if w.EnsureAttendance {
			const ensure = `INSERT INTO attendance (user_id, date, total_seconds, status)
VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id, date) DO NOTHING`
			if _, err := tx.ExecContext(ctx, ensure, w.UserID, w.Date, models.AttendanceInProgress); err != nil {
				return fmt.Errorf("ensure attendance: %w", err)
			}
		}

		upsert := `INSERT INTO progress (user_id, video_id, date, start_time, end_time, watch_seconds)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, video_id, date) DO UPDATE SET
    start_time = COALESCE(progress.start_time, EXCLUDED.start_time),
    end_time = COALESCE(EXCLUDED.end_time, progress.end_time),
    watch_seconds = progress.watch_seconds + EXCLUDED.watch_seconds
RETURNING ` + progressColumns
		if err := tx.GetContext(ctx, &progress, upsert, w.UserID, w.VideoID, w.Date, w.StartTime, w.EndTime, w.DeltaSeconds); err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// sumDaySeconds totals a user's watch seconds for a date.
func sumDaySeconds(ctx context.Context, q sqlx.QueryerContext, userID int64, date time.Time) (int64, error) {
	const query = `SELECT COALESCE(SUM(watch_seconds), 0) FROM progress WHERE user_id = $1 AND date = $2`
	var total int64
	if err := sqlx.GetContext(ctx, q, &total, query, userID, date); err != nil {
		return 0, fmt.Errorf("sum progress: %w", err)
	}
	return total, nil
}

// ListByVideo returns a user's progress rows for a video, newest first.
func (r *ProgressRepository) ListByVideo(ctx context.Context, userID, videoID int64) ([]models.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM progress WHERE user_id = $1 AND video_id = $2 ORDER BY date DESC`
	rows := make([]models.Progress, 0)
	if err := r.db.SelectContext(ctx, &rows, query, userID, videoID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}
