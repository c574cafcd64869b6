package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/models"
)

var progressRowColumns = []string{"id", "user_id", "video_id", "date", "start_time", "end_time", "watch_seconds"}

func TestRecordProgressEnsuresAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start, err := models.ParseTimeOfDay("09:00:00")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(int64(1), day, models.AttendanceInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO progress").
		WithArgs(int64(1), int64(2), day, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(20)).
		WillReturnRows(sqlmock.NewRows(progressRowColumns).AddRow(5, 1, 2, day, []byte("09:00:00"), nil, 20))
	mock.ExpectCommit()

	progress, err := repo.Record(context.Background(), ProgressWrite{
		UserID: 1, VideoID: 2, Date: day, StartTime: &start, DeltaSeconds: 20, EnsureAttendance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), progress.WatchSeconds)
	require.NotNil(t, progress.StartTime)
	assert.Equal(t, "09:00:00", progress.StartTime.String())
	assert.Nil(t, progress.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordProgressWithoutStartSkipsAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("watch_seconds = progress.watch_seconds + EXCLUDED.watch_seconds")).
		WillReturnRows(sqlmock.NewRows(progressRowColumns).AddRow(5, 1, 2, day, nil, []byte("10:00:00"), 35))
	mock.ExpectCommit()

	progress, err := repo.Record(context.Background(), ProgressWrite{UserID: 1, VideoID: 2, Date: day, DeltaSeconds: 15})
	require.NoError(t, err)
	assert.Equal(t, int64(35), progress.WatchSeconds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProgressByVideo(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM progress WHERE user_id = \\$1 AND video_id = \\$2 ORDER BY date DESC").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(progressRowColumns).
			AddRow(6, 1, 2, d1, nil, nil, 10).
			AddRow(5, 1, 2, d0, nil, nil, 20))

	rows, err := repo.ListByVideo(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, d1, rows[0].Date)
}
