package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/pkg/database"
)

const attendanceColumns = `id, user_id, date, total_seconds, status, updated_at`

// AttendanceTransition applies the recomputed total to a locked row and
// reports whether it changed.
type AttendanceTransition func(record *models.Attendance, totalSeconds int64) bool

// AttendanceRepository persists derived daily attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Recompute re-sums the user's progress for the day and applies transition
// to the row, creating it when missing. The row stays locked between the
// summation and the update.
func (r *AttendanceRepository) Recompute(ctx context.Context, userID int64, date time.Time, transition AttendanceTransition) (*models.Attendance, error) {
	var record models.Attendance
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const ensure = `INSERT INTO attendance (user_id, date, total_seconds, status)
VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id, date) DO NOTHING`
		if _, err := tx.ExecContext(ctx, ensure, userID, date, models.AttendanceInProgress); err != nil {
			return fmt.Errorf("ensure attendance: %w", err)
		}

		lock := `SELECT ` + attendanceColumns + ` FROM attendance WHERE user_id = $1 AND date = $2 FOR UPDATE`
		if err := tx.GetContext(ctx, &record, lock, userID, date); err != nil {
			return fmt.Errorf("lock attendance: %w", err)
		}
		if !record.Status.Valid() {
			return fmt.Errorf("attendance %d has unknown status %q", record.ID, record.Status)
		}

		total, err := sumDaySeconds(ctx, tx, userID, date)
		if err != nil {
			return err
		}

		if !transition(&record, total) {
			return nil
		}

		const update = `UPDATE attendance SET total_seconds = $2, status = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
		if err := tx.GetContext(ctx, &record.UpdatedAt, update, record.ID, record.TotalSeconds, record.Status); err != nil {
			return fmt.Errorf("update attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PromoteQualified marks every record of the date whose stored total meets
// the threshold as present and returns the number of rows changed.
func (r *AttendanceRepository) PromoteQualified(ctx context.Context, date time.Time, thresholdSeconds int64) (int64, error) {
	const query = `UPDATE attendance SET status = $3, updated_at = NOW()
WHERE date = $1 AND status <> $3 AND total_seconds >= $2`
	res, err := r.db.ExecContext(ctx, query, date, thresholdSeconds, models.AttendancePresent)
	if err != nil {
		return 0, fmt.Errorf("promote attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("promote attendance rows affected: %w", err)
	}
	return affected, nil
}

// FindByUserDate returns the record of a user for a date.
func (r *AttendanceRepository) FindByUserDate(ctx context.Context, userID int64, date time.Time) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE user_id = $1 AND date = $2`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, userID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// ListByUser returns a user's records, newest first.
func (r *AttendanceRepository) ListByUser(ctx context.Context, userID int64) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE user_id = $1 ORDER BY date DESC`
	records := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list attendance by user: %w", err)
	}
	return records, nil
}

// ListByDate returns all records of a date ordered by user.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE date = $1 ORDER BY user_id`
	records := make([]models.Attendance, 0)
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}

// ListReport returns the records of a date joined with user identity.
func (r *AttendanceRepository) ListReport(ctx context.Context, date time.Time) ([]models.AttendanceReportRow, error) {
	const query = `SELECT a.id, a.user_id, a.date, a.total_seconds, a.status, a.updated_at, u.name, u.username
FROM attendance a
JOIN users u ON u.id = a.user_id
WHERE a.date = $1
ORDER BY a.user_id`
	rows := make([]models.AttendanceReportRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list attendance report: %w", err)
	}
	return rows, nil
}
