package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/middleware"
	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/service"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/export"
)

func newContext(method, target string, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var studentClaims = &models.JWTClaims{UserID: 5, Role: models.RoleStudent}

type progressServiceMock struct {
	lastUser int64
	lastReq  dto.ProgressRequest
	result   *service.ProgressResult
	err      error
}

func (m *progressServiceMock) RecordProgress(ctx context.Context, userID int64, req dto.ProgressRequest) (*service.ProgressResult, error) {
	m.lastUser = userID
	m.lastReq = req
	return m.result, m.err
}

func (m *progressServiceMock) ListByVideo(ctx context.Context, userID, videoID int64) ([]dto.ProgressResponse, error) {
	return []dto.ProgressResponse{{VideoID: videoID, UserID: userID}}, m.err
}

func TestProgressRecordBindsPayload(t *testing.T) {
	watch := "00:00:20"
	status := models.AttendanceInProgress
	svc := &progressServiceMock{result: &service.ProgressResult{
		Progress:   dto.ProgressResponse{ID: 1, WatchTime: &watch},
		Attendance: &dto.AttendanceResponse{ID: 3, TotalTime: &watch, Status: &status},
	}}
	h := NewProgressHandler(svc)

	c, w := newContext(http.MethodPost, "/progress", `{"video_id":5,"start_time":"08:00:00","watchtime_seconds":20}`, studentClaims)
	h.Record(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(5), svc.lastUser)
	assert.Equal(t, int64(5), svc.lastReq.VideoID)
	require.NotNil(t, svc.lastReq.WatchSeconds)
	assert.Equal(t, int64(20), *svc.lastReq.WatchSeconds)

	var body struct {
		Data map[string]interface{} `json:"data"`
		Meta struct {
			Attendance map[string]interface{} `json:"attendance"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "00:00:20", body.Data["watch_time"])
	assert.NotContains(t, body.Data, "progress")
	assert.Equal(t, "in progress", body.Meta.Attendance["status"])
}

func TestProgressRecordRejectsMalformedJSON(t *testing.T) {
	h := NewProgressHandler(&progressServiceMock{})
	c, w := newContext(http.MethodPost, "/progress", `{"video_id":`, studentClaims)
	h.Record(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressRecordRequiresClaims(t *testing.T) {
	h := NewProgressHandler(&progressServiceMock{})
	c, w := newContext(http.MethodPost, "/progress", `{"video_id":1}`, nil)
	h.Record(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProgressByVideoRejectsBadID(t *testing.T) {
	h := NewProgressHandler(&progressServiceMock{})
	c, w := newContext(http.MethodGet, "/progress/video/abc", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.ByVideo(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type enrollmentServiceMock struct {
	registerErr error
	lastRole    models.UserRole
}

func (m *enrollmentServiceMock) Register(ctx context.Context, userID int64, role models.UserRole, courseID int64) (*models.Enrollment, error) {
	m.lastRole = role
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.Enrollment{ID: 1, UserID: userID, CourseID: courseID, Enrolled: true}, nil
}

func (m *enrollmentServiceMock) Status(ctx context.Context, userID, courseID int64) (dto.RegistrationStatus, error) {
	return dto.RegistrationStatus{CourseID: courseID, Enrolled: true}, nil
}

func (m *enrollmentServiceMock) Unenroll(ctx context.Context, userID, courseID int64) error {
	return nil
}

func (m *enrollmentServiceMock) ListMine(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	return nil, nil
}

func TestEnrollmentRegisterLimitExceeded(t *testing.T) {
	svc := &enrollmentServiceMock{registerErr: appErrors.Clone(appErrors.ErrLimitExceeded, "students may register for a maximum of 3 courses")}
	h := NewEnrollmentHandler(svc)

	c, w := newContext(http.MethodPost, "/courses/4/register", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	h.Register(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.RoleStudent, svc.lastRole)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "LIMIT_EXCEEDED", env["error"].(map[string]interface{})["code"])
}

func TestEnrollmentStatusAndUnenroll(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	c, w := newContext(http.MethodGet, "/courses/2/registration", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	h.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enrolled":true`)

	c, w = newContext(http.MethodDelete, "/courses/2/registration", "", studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	h.Unenroll(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
}

type attendanceServiceMock struct {
	exportFormat export.Format
	lastDate     time.Time
}

func (m *attendanceServiceMock) ListForUser(ctx context.Context, userID int64) ([]dto.AttendanceResponse, error) {
	return []dto.AttendanceResponse{{UserID: userID}}, nil
}

func (m *attendanceServiceMock) ListForDate(ctx context.Context, date time.Time) ([]dto.AttendanceResponse, error) {
	m.lastDate = date
	return nil, nil
}

func (m *attendanceServiceMock) Today(ctx context.Context, userID int64) (dto.AttendanceResponse, error) {
	return dto.AttendancePlaceholder(userID, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)), nil
}

func (m *attendanceServiceMock) SweepToday(ctx context.Context) (int64, error) {
	return 3, nil
}

func (m *attendanceServiceMock) Export(ctx context.Context, date time.Time, format export.Format) ([]byte, string, error) {
	m.exportFormat = format
	return []byte("user_id\n"), "attendance_2024-03-11." + string(format), nil
}

func TestAttendanceTodayPlaceholder(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newContext(http.MethodGet, "/attendance/today", "", studentClaims)
	h.Today(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["id"])
	assert.Nil(t, data["total_time"])
	assert.Nil(t, data["status"])
}

func TestAttendanceForDateValidatesDate(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	c, w := newContext(http.MethodGet, "/attendance/date/11-03-2024", "", studentClaims)
	c.Params = gin.Params{{Key: "date", Value: "11-03-2024"}}
	h.ForDate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodGet, "/attendance/date/2024-03-11", "", studentClaims)
	c.Params = gin.Params{{Key: "date", Value: "2024-03-11"}}
	h.ForDate(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-11", models.FormatDate(svc.lastDate))
}

func TestAttendanceExport(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	c, w := newContext(http.MethodGet, "/attendance/date/2024-03-11/export?format=csv", "", studentClaims)
	c.Params = gin.Params{{Key: "date", Value: "2024-03-11"}}
	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, svc.exportFormat)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_2024-03-11.csv")

	c, w = newContext(http.MethodGet, "/attendance/date/2024-03-11/export?format=xlsx", "", studentClaims)
	c.Params = gin.Params{{Key: "date", Value: "2024-03-11"}}
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceUpdateStatus(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newContext(http.MethodPost, "/attendance/update-status", "", studentClaims)
	h.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":3`)
}

func TestMetricsReady(t *testing.T) {
	healthy := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newContext(http.MethodGet, "/ready", "", nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	failing := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newContext(http.MethodGet, "/ready", "", nil)
	failing.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
