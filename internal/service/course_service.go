package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/youtube"
)

const (
	courseListCacheKey = "courses:list"
	courseCachePattern = "courses:*"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course, videos []models.Video) error
	Delete(ctx context.Context, id int64) ([]repository.UserDay, error)
	ListVideos(ctx context.Context, courseID int64) ([]models.Video, error)
	AddVideo(ctx context.Context, video *models.Video) error
}

type playlistExtractor interface {
	Extract(ctx context.Context, rawURL string) (*youtube.Result, error)
}

type attendanceRefresher interface {
	Refresh(ctx context.Context, userID int64, date time.Time) *models.Attendance
}

// CourseConfig configures catalog behaviour.
type CourseConfig struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// CourseService manages the course catalog.
type CourseService struct {
	repo       courseRepository
	extractor  playlistExtractor
	attendance attendanceRefresher
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     CourseConfig
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, extractor playlistExtractor, attendance attendanceRefresher, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config CourseConfig) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 2 * time.Minute
	}
	return &CourseService{
		repo:       repo,
		extractor:  extractor,
		attendance: attendance,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// List returns all courses and reports whether they were served from cache.
func (s *CourseService) List(ctx context.Context) ([]models.Course, bool, error) {
	var cached []models.Course
	if s.cache.Get(ctx, courseListCacheKey, &cached) {
		return cached, true, nil
	}
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list courses")
	}
	s.cache.Set(ctx, courseListCacheKey, courses, s.config.CacheTTL)
	return courses, false, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

// Create adds a course without videos.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Link = strings.TrimSpace(req.Link)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	course := &models.Course{Title: req.Title, Link: req.Link}
	if err := s.repo.Create(ctx, course, nil); err != nil {
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.cache.Invalidate(ctx, courseCachePattern)
	return course, nil
}

// Delete removes a course with its videos, progress and enrollments, then
// recomputes attendance for every (user, date) that lost progress.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Internal(err, "failed to delete course")
	}
	s.cache.Invalidate(ctx, courseCachePattern)
	for _, day := range affected {
		s.attendance.Refresh(ctx, day.UserID, day.Date)
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id), zap.Int("attendance_recomputed", len(affected)))
	return nil
}

// ListVideos returns the videos of a course in playlist order.
func (s *CourseService) ListVideos(ctx context.Context, courseID int64) ([]models.Video, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	videos, err := s.repo.ListVideos(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list videos")
	}
	return videos, nil
}

// AddVideo appends a video to a course.
func (s *CourseService) AddVideo(ctx context.Context, courseID int64, req dto.CreateVideoRequest) (*models.Video, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Link = strings.TrimSpace(req.Link)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid video payload")
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	video := &models.Video{CourseID: courseID, Title: req.Title, Link: req.Link}
	if err := s.repo.AddVideo(ctx, video); err != nil {
		return nil, appErrors.Internal(err, "failed to add video")
	}
	return video, nil
}

// IngestPlaylist creates a course with one video per playlist entry.
func (s *CourseService) IngestPlaylist(ctx context.Context, req dto.PlaylistRequest) (*dto.CourseDetail, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid YouTube playlist URL")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.extractor.Extract(fetchCtx, req.URL)
	elapsed := time.Since(started)
	if err != nil {
		switch {
		case errors.Is(err, youtube.ErrInvalidURL):
			s.metrics.RecordPlaylistIngestion("invalid", elapsed)
			return nil, appErrors.Validation(err, "invalid YouTube playlist URL")
		case errors.Is(err, youtube.ErrNoEntries):
			s.metrics.RecordPlaylistIngestion("invalid", elapsed)
			return nil, appErrors.Validation(err, "no videos found in playlist")
		}
		s.metrics.RecordPlaylistIngestion("failed", elapsed)
		return nil, appErrors.Wrap(err, appErrors.ErrIngestion.Code, appErrors.ErrIngestion.Status, appErrors.ErrIngestion.Message)
	}

	course := &models.Course{Title: result.Title, Link: req.URL}
	videos := make([]models.Video, 0, len(result.Videos))
	for _, v := range result.Videos {
		videos = append(videos, models.Video{Title: v.Title, Link: v.Link})
	}
	if err := s.repo.Create(ctx, course, videos); err != nil {
		s.metrics.RecordPlaylistIngestion("failed", elapsed)
		return nil, appErrors.Internal(err, "failed to save playlist")
	}
	s.metrics.RecordPlaylistIngestion("success", elapsed)
	s.cache.Invalidate(ctx, courseCachePattern)

	s.logger.Info("playlist ingested",
		zap.Int64("course_id", course.ID),
		zap.String("playlist_id", result.PlaylistID),
		zap.Int("videos", len(videos)))
	return &dto.CourseDetail{Course: *course, Videos: videos}, nil
}
