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

// UserDay identifies one attendance aggregate.
type UserDay struct {
	UserID int64     `db:"user_id"`
	Date   time.Time `db:"date"`
}

// CourseRepository manages courses and their videos.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course ordered by id.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, title, link, created_at FROM courses ORDER BY id`
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, title, link, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// Create inserts a course together with its videos in one transaction.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course, videos []models.Video) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertCourse = `INSERT INTO courses (title, link) VALUES ($1, $2) RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, insertCourse, course.Title, course.Link).Scan(&course.ID, &course.CreatedAt); err != nil {
			return fmt.Errorf("insert course: %w", err)
		}
		for i := range videos {
			videos[i].CourseID = course.ID
			videos[i].Position = i + 1
			if err := insertVideo(ctx, tx, &videos[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a course; videos, progress and enrollments cascade. It
// returns the (user, day) pairs whose progress was removed.
func (r *CourseRepository) Delete(ctx context.Context, id int64) ([]UserDay, error) {
	var affected []UserDay
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const lock = `SELECT id FROM courses WHERE id = $1 FOR UPDATE`
		var found int64
		if err := tx.GetContext(ctx, &found, lock, id); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("lock course: %w", err)
		}

		const collect = `SELECT DISTINCT p.user_id, p.date
FROM progress p
JOIN course_videos v ON v.id = p.video_id
WHERE v.course_id = $1
ORDER BY p.user_id, p.date`
		if err := tx.SelectContext(ctx, &affected, collect, id); err != nil {
			return fmt.Errorf("collect affected attendance: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

// ListVideos returns the videos of a course in playlist order.
func (r *CourseRepository) ListVideos(ctx context.Context, courseID int64) ([]models.Video, error) {
	const query = `SELECT id, course_id, title, video_link, position FROM course_videos WHERE course_id = $1 ORDER BY position, id`
	videos := make([]models.Video, 0)
	if err := r.db.SelectContext(ctx, &videos, query, courseID); err != nil {
		return nil, fmt.Errorf("list course videos: %w", err)
	}
	return videos, nil
}

// FindVideo returns a video by id.
func (r *CourseRepository) FindVideo(ctx context.Context, id int64) (*models.Video, error) {
	const query = `SELECT id, course_id, title, video_link, position FROM course_videos WHERE id = $1`
	var video models.Video
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find video: %w", err)
	}
	return &video, nil
}

// AddVideo appends a video at the end of the course playlist.
func (r *CourseRepository) AddVideo(ctx context.Context, video *models.Video) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const next = `SELECT COALESCE(MAX(position), 0) + 1 FROM course_videos WHERE course_id = $1`
		if err := tx.GetContext(ctx, &video.Position, next, video.CourseID); err != nil {
			return fmt.Errorf("next video position: %w", err)
		}
		return insertVideo(ctx, tx, video)
	})
}

func insertVideo(ctx context.Context, tx *sqlx.Tx, video *models.Video) error {
	const query = `INSERT INTO course_videos (course_id, title, video_link, position) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRowxContext(ctx, query, video.CourseID, video.Title, video.Link, video.Position).Scan(&video.ID); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}
