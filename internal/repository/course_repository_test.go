package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/models"
)

func TestCourseCreateWithVideos(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses (title, link) VALUES ($1, $2) RETURNING id, created_at")).
		WithArgs("Go Basics", "https://youtube.com/playlist?list=PL1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, now))
	mock.ExpectQuery("INSERT INTO course_videos").
		WithArgs(int64(3), "One", "https://www.youtube.com/watch?v=a", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("INSERT INTO course_videos").
		WithArgs(int64(3), "Two", "https://www.youtube.com/watch?v=b", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	course := &models.Course{Title: "Go Basics", Link: "https://youtube.com/playlist?list=PL1"}
	videos := []models.Video{
		{Title: "One", Link: "https://www.youtube.com/watch?v=a"},
		{Title: "Two", Link: "https://www.youtube.com/watch?v=b"},
	}
	require.NoError(t, repo.Create(context.Background(), course, videos))
	assert.Equal(t, int64(3), course.ID)
	assert.Equal(t, int64(11), videos[1].ID)
	assert.Equal(t, int64(3), videos[1].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateRollsBackOnVideoFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO courses").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, time.Now()))
	mock.ExpectQuery("INSERT INTO course_videos").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Course{Title: "x"}, []models.Video{{Title: "a", Link: "b"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteCollectsAffectedDays(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("SELECT DISTINCT p.user_id, p.date").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "date"}).AddRow(1, day).AddRow(2, day))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := repo.Delete(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, affected, 2)
	assert.Equal(t, int64(2), affected[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM courses").WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 8)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAddVideoAppends(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(position), 0) + 1 FROM course_videos WHERE course_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(5))
	mock.ExpectQuery("INSERT INTO course_videos").
		WithArgs(int64(3), "Extra", "https://youtu.be/x", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectCommit()

	video := &models.Video{CourseID: 3, Title: "Extra", Link: "https://youtu.be/x"}
	require.NoError(t, repo.AddVideo(context.Background(), video))
	assert.Equal(t, int64(40), video.ID)
	assert.Equal(t, 5, video.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVideos(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("FROM course_videos WHERE course_id = \\$1 ORDER BY position, id").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title", "video_link", "position"}).
			AddRow(1, 3, "One", "https://www.youtube.com/watch?v=a", 1))

	videos, err := repo.ListVideos(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "One", videos[0].Title)
}
