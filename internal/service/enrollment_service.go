package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
)

type enrollmentRepository interface {
	Register(ctx context.Context, userID, courseID int64, policy repository.RegistrationPolicy) (*models.Enrollment, error)
	Find(ctx context.Context, userID, courseID int64) (*models.Enrollment, error)
	Unenroll(ctx context.Context, userID, courseID int64) error
	ListCourses(ctx context.Context, userID int64) ([]models.EnrolledCourse, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollmentConfig configures registration limits.
type EnrollmentConfig struct {
	StudentCourseLimit int
}

// EnrollmentService manages course registrations.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses courseFinder
	metrics *MetricsService
	logger  *zap.Logger
	config  EnrollmentConfig
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentRepository, courses courseFinder, metrics *MetricsService, logger *zap.Logger, config EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.StudentCourseLimit <= 0 {
		config.StudentCourseLimit = 3
	}
	return &EnrollmentService{repo: repo, courses: courses, metrics: metrics, logger: logger, config: config}
}

// Register enrolls the user in a course. Students are capped at the
// configured number of active enrollments; admins are not.
func (s *EnrollmentService) Register(ctx context.Context, userID int64, role models.UserRole, courseID int64) (*models.Enrollment, error) {
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return nil, err
	}

	limit := s.config.StudentCourseLimit
	policy := func(existing *models.Enrollment, active int) error {
		if existing != nil && existing.Enrolled {
			return appErrors.ErrAlreadyEnrolled
		}
		if role != models.RoleAdmin && active >= limit {
			return appErrors.Clone(appErrors.ErrLimitExceeded, fmt.Sprintf("students may register for a maximum of %d courses", limit))
		}
		return nil
	}

	enrollment, err := s.repo.Register(ctx, userID, courseID, policy)
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrAlreadyEnrolled):
			s.metrics.RecordEnrollment("duplicate")
			return nil, err
		case errors.Is(err, appErrors.ErrLimitExceeded):
			s.metrics.RecordEnrollment("limited")
			return nil, err
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case repository.IsUniqueViolation(err):
			s.metrics.RecordEnrollment("duplicate")
			return nil, appErrors.ErrAlreadyEnrolled
		}
		return nil, appErrors.Internal(err, "failed to register for course")
	}

	s.metrics.RecordEnrollment("registered")
	s.logger.Info("course registration",
		zap.Int64("user_id", userID),
		zap.Int64("course_id", courseID),
		zap.Int64("enrollment_id", enrollment.ID))
	return enrollment, nil
}

// Status reports whether the user is actively enrolled in a course.
func (s *EnrollmentService) Status(ctx context.Context, userID, courseID int64) (dto.RegistrationStatus, error) {
	status := dto.RegistrationStatus{CourseID: courseID}
	if err := s.ensureCourse(ctx, courseID); err != nil {
		return status, err
	}
	enrollment, err := s.repo.Find(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status, nil
		}
		return status, appErrors.Internal(err, "failed to load registration")
	}
	status.Enrolled = enrollment.Enrolled
	return status, nil
}

// Unenroll deactivates the user's enrollment, keeping the row for
// re-registration.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID int64) error {
	if err := s.repo.Unenroll(ctx, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "not registered for this course")
		}
		return appErrors.Internal(err, "failed to unenroll")
	}
	s.metrics.RecordEnrollment("unenrolled")
	return nil
}

// ListMine returns the courses the user is actively enrolled in.
func (s *EnrollmentService) ListMine(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	courses, err := s.repo.ListCourses(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return courses, nil
}

func (s *EnrollmentService) ensureCourse(ctx context.Context, courseID int64) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err, "failed to load course")
	}
	return nil
}
