package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/service"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
)

type tokenAuthenticator map[string]*models.JWTClaims

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (*models.JWTClaims, error) {
	claims, ok := a[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "could not validate credentials")
	}
	return claims, nil
}

type courseServiceMock struct {
	created   *dto.CreateCourseRequest
	cacheHit  bool
	deletedID int64
}

func (m *courseServiceMock) List(ctx context.Context) ([]models.Course, bool, error) {
	return []models.Course{{ID: 1, Title: "Go"}}, m.cacheHit, nil
}

func (m *courseServiceMock) Get(ctx context.Context, id int64) (*models.Course, error) {
	if id != 1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &models.Course{ID: 1, Title: "Go"}, nil
}

func (m *courseServiceMock) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	m.created = &req
	return &models.Course{ID: 2, Title: req.Title}, nil
}

func (m *courseServiceMock) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return nil
}

func (m *courseServiceMock) ListVideos(ctx context.Context, courseID int64) ([]models.Video, error) {
	return []models.Video{{ID: 5, CourseID: courseID}}, nil
}

func (m *courseServiceMock) AddVideo(ctx context.Context, courseID int64, req dto.CreateVideoRequest) (*models.Video, error) {
	return &models.Video{ID: 6, CourseID: courseID, Title: req.Title}, nil
}

func (m *courseServiceMock) IngestPlaylist(ctx context.Context, req dto.PlaylistRequest) (*dto.CourseDetail, error) {
	return &dto.CourseDetail{Course: models.Course{ID: 3, Title: "Playlist"}}, nil
}

type authServiceMock struct{}

func (authServiceMock) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	return &models.User{ID: 1, Username: req.Username, Role: models.RoleStudent}, nil
}

func (authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "t", TokenType: "bearer"}, nil
}

func (authServiceMock) Me(ctx context.Context, userID int64) (*models.User, error) {
	return &models.User{ID: userID}, nil
}

func (authServiceMock) ListUsers(ctx context.Context, role *models.UserRole) ([]models.User, error) {
	return []models.User{}, nil
}

func newTestEngine(courses *courseServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := Handlers{
		Auth:       NewAuthHandler(authServiceMock{}),
		Courses:    NewCourseHandler(courses),
		Enrollment: NewEnrollmentHandler(&enrollmentServiceMock{}),
		Progress:   NewProgressHandler(&progressServiceMock{result: &service.ProgressResult{}}),
		Attendance: NewAttendanceHandler(&attendanceServiceMock{}),
		Metrics:    NewMetricsHandler(service.NewMetricsService(), nil),
	}
	auth := tokenAuthenticator{
		"student": {UserID: 5, Role: models.RoleStudent},
		"admin":   {UserID: 1, Role: models.RoleAdmin},
	}
	RegisterRoutes(r, r.Group(""), handlers, auth, zap.NewNop())
	return r
}

func serve(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuthentication(t *testing.T) {
	r := newTestEngine(&courseServiceMock{})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/courses", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/courses", "forged", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/courses", "student", "").Code)
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/auth/signup", "", `{"user_name":"ana"}`).Code)
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	courses := &courseServiceMock{}
	r := newTestEngine(courses)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/courses", "student", `{"course_title":"Go"}`).Code)
	assert.Nil(t, courses.created)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/courses/1", "student", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/attendance/date/2024-03-11", "student", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/videos/youtube-playlist", "student", `{}`).Code)

	w := serve(r, http.MethodPost, "/courses", "admin", `{"course_title":"Go"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, courses.created)
	assert.Equal(t, "Go", courses.created.Title)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/courses/1", "admin", "").Code)
	assert.Equal(t, int64(1), courses.deletedID)
}

func TestAttendanceUserRouteAllowsSelf(t *testing.T) {
	r := newTestEngine(&courseServiceMock{})
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/attendance/user/5", "student", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/attendance/user/6", "student", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/attendance/user/6", "admin", "").Code)
}

func TestCourseListReportsCacheHit(t *testing.T) {
	r := newTestEngine(&courseServiceMock{cacheHit: true})
	w := serve(r, http.MethodGet, "/courses", "student", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"course_title":"Go"`)
}

func TestCourseGetNotFound(t *testing.T) {
	r := newTestEngine(&courseServiceMock{})
	w := serve(r, http.MethodGet, "/courses/9", "student", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/courses/x", "student", "").Code)
}
