package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/pkg/database"
)

const enrollmentColumns = `id, user_id, course_id, enrolled, created_at, updated_at`

// RegistrationPolicy inspects the locked enrollment state of a user and
// returns an error to abort the registration. existing is nil when the user
// never registered for the course.
type RegistrationPolicy func(existing *models.Enrollment, activeCount int) error

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Register enrolls a user in a course. The user row is locked for the
// duration of the transaction so concurrent registrations for the same user
// are serialised before policy is evaluated.
func (r *EnrollmentRepository) Register(ctx context.Context, userID, courseID int64, policy RegistrationPolicy) (*models.Enrollment, error) {
	var result models.Enrollment
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked int64
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("lock user: %w", err)
		}

		var existing *models.Enrollment
		var current models.Enrollment
		findQuery := fmt.Sprintf(`SELECT %s FROM enrollments WHERE user_id = $1 AND course_id = $2`, enrollmentColumns)
		switch err := tx.GetContext(ctx, &current, findQuery, userID, courseID); {
		case err == nil:
			existing = &current
		case err != sql.ErrNoRows:
			return fmt.Errorf("find enrollment: %w", err)
		}

		var active int
		if err := tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND enrolled = TRUE`, userID); err != nil {
			return fmt.Errorf("count enrollments: %w", err)
		}

		if err := policy(existing, active); err != nil {
			return err
		}

		if existing != nil {
			query := fmt.Sprintf(`UPDATE enrollments SET enrolled = TRUE, updated_at = NOW() WHERE id = $1 RETURNING %s`, enrollmentColumns)
			if err := tx.GetContext(ctx, &result, query, existing.ID); err != nil {
				return fmt.Errorf("reactivate enrollment: %w", err)
			}
			return nil
		}

		query := fmt.Sprintf(`INSERT INTO enrollments (user_id, course_id, enrolled) VALUES ($1, $2, TRUE) RETURNING %s`, enrollmentColumns)
		if err := tx.GetContext(ctx, &result, query, userID, courseID); err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Find returns the enrollment row for a user and course.
func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID int64) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE user_id = $1 AND course_id = $2`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Unenroll flips an active enrollment to inactive. It returns sql.ErrNoRows
// when no active enrollment exists.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, userID, courseID int64) error {
	const query = `UPDATE enrollments SET enrolled = FALSE, updated_at = NOW() WHERE user_id = $1 AND course_id = $2 AND enrolled = TRUE`
	res, err := r.db.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unenroll rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListCourses returns the courses a user is actively enrolled in.
func (r *EnrollmentRepository) ListCourses(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	const query = `SELECT c.id, c.title, c.link, c.created_at, e.updated_at AS enrolled_at
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id = $1 AND e.enrolled = TRUE
ORDER BY e.updated_at DESC, c.id`
	courses := make([]models.EnrolledCourse, 0)
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled courses: %w", err)
	}
	return courses, nil
}
