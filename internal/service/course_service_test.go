package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
	"github.com/noah-isme/edutrack-api/internal/repository"
	appErrors "github.com/noah-isme/edutrack-api/pkg/errors"
	"github.com/noah-isme/edutrack-api/pkg/youtube"
)

type mockCourseRepo struct {
	courses   map[int64]*models.Course
	videos    map[int64][]models.Video
	affected  []repository.UserDay
	listCalls int
	createErr error
	nextID    int64
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[int64]*models.Course{}, videos: map[int64][]models.Video{}}
}

func (m *mockCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	m.listCalls++
	out := make([]models.Course, 0, len(m.courses))
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.courses[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := *c
	return &found, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course, videos []models.Video) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	course.ID = m.nextID
	stored := *course
	m.courses[course.ID] = &stored
	for i := range videos {
		videos[i].CourseID = course.ID
		videos[i].Position = i + 1
	}
	m.videos[course.ID] = append([]models.Video(nil), videos...)
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id int64) ([]repository.UserDay, error) {
	if _, ok := m.courses[id]; !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.courses, id)
	delete(m.videos, id)
	return m.affected, nil
}

func (m *mockCourseRepo) ListVideos(ctx context.Context, courseID int64) ([]models.Video, error) {
	return m.videos[courseID], nil
}

func (m *mockCourseRepo) AddVideo(ctx context.Context, video *models.Video) error {
	video.Position = len(m.videos[video.CourseID]) + 1
	m.videos[video.CourseID] = append(m.videos[video.CourseID], *video)
	return nil
}

type stubExtractor struct {
	result *youtube.Result
	err    error
	calls  int
}

func (s *stubExtractor) Extract(ctx context.Context, rawURL string) (*youtube.Result, error) {
	s.calls++
	return s.result, s.err
}

type recordingRefresher struct {
	days []repository.UserDay
}

func (r *recordingRefresher) Refresh(ctx context.Context, userID int64, date time.Time) *models.Attendance {
	r.days = append(r.days, repository.UserDay{UserID: userID, Date: date})
	return nil
}

type memoryCacheRepo struct {
	values map[string]string
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.values[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	courses, ok := dest.(*[]models.Course)
	if !ok {
		return fmt.Errorf("unexpected dest %T", dest)
	}
	*courses = []models.Course{{ID: 1, Title: "cached"}}
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

type courseFixture struct {
	svc       *CourseService
	repo      *mockCourseRepo
	extractor *stubExtractor
	refresher *recordingRefresher
	cache     *memoryCacheRepo
}

func newCourseFixture() courseFixture {
	repo := newMockCourseRepo()
	extractor := &stubExtractor{}
	refresher := &recordingRefresher{}
	cacheRepo := &memoryCacheRepo{values: map[string]string{}}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewCourseService(repo, extractor, refresher, cache, nil, nil, nil, CourseConfig{CacheTTL: time.Minute})
	return courseFixture{svc: svc, repo: repo, extractor: extractor, refresher: refresher, cache: cacheRepo}
}

func TestCourseListUsesCacheUntilWrite(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, dto.CreateCourseRequest{Title: "Go Basics"})
	require.NoError(t, err)

	courses, hit, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Go Basics", courses[0].Title)
	assert.Equal(t, 1, f.repo.listCalls)

	courses, hit, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", courses[0].Title)
	assert.Equal(t, 1, f.repo.listCalls)

	_, err = f.svc.Create(ctx, dto.CreateCourseRequest{Title: "Concurrency"})
	require.NoError(t, err)
	assert.Empty(t, f.cache.values)

	courses, _, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Equal(t, 2, f.repo.listCalls)
}

func TestCourseGetNotFound(t *testing.T) {
	f := newCourseFixture()
	_, err := f.svc.Get(context.Background(), 3)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseCreateValidation(t *testing.T) {
	f := newCourseFixture()
	_, err := f.svc.Create(context.Background(), dto.CreateCourseRequest{Title: "  "})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseDeleteRecomputesAffectedAttendance(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course, err := f.svc.Create(ctx, dto.CreateCourseRequest{Title: "Go"})
	require.NoError(t, err)

	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	f.repo.affected = []repository.UserDay{{UserID: 1, Date: day}, {UserID: 2, Date: day}}

	require.NoError(t, f.svc.Delete(ctx, course.ID))
	assert.Equal(t, f.repo.affected, f.refresher.days)

	err = f.svc.Delete(ctx, course.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCourseVideos(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course, err := f.svc.Create(ctx, dto.CreateCourseRequest{Title: "Go"})
	require.NoError(t, err)

	video, err := f.svc.AddVideo(ctx, course.ID, dto.CreateVideoRequest{Title: "Intro", Link: "https://www.youtube.com/watch?v=abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, video.Position)

	_, err = f.svc.AddVideo(ctx, course.ID, dto.CreateVideoRequest{Title: "Broken", Link: "not a url"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.AddVideo(ctx, 77, dto.CreateVideoRequest{Title: "Orphan", Link: "https://youtu.be/x"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	videos, err := f.svc.ListVideos(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	_, err = f.svc.ListVideos(ctx, 77)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestIngestPlaylistCreatesCourseWithVideos(t *testing.T) {
	f := newCourseFixture()
	f.extractor.result = &youtube.Result{
		PlaylistID: "PL123",
		Title:      "Go Course",
		Videos: []youtube.Video{
			{Title: "One", Link: "https://www.youtube.com/watch?v=a"},
			{Title: "Two", Link: "https://www.youtube.com/watch?v=b"},
		},
	}
	url := "https://www.youtube.com/playlist?list=PL123"

	detail, err := f.svc.IngestPlaylist(context.Background(), dto.PlaylistRequest{URL: url})
	require.NoError(t, err)
	assert.Equal(t, "Go Course", detail.Title)
	assert.Equal(t, url, detail.Link)
	require.Len(t, detail.Videos, 2)
	assert.Equal(t, 2, detail.Videos[1].Position)
	assert.Equal(t, detail.ID, detail.Videos[0].CourseID)
}

func TestIngestPlaylistErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *appErrors.Error
		msg  string
	}{
		{name: "invalid url", err: youtube.ErrInvalidURL, want: appErrors.ErrValidation, msg: "invalid YouTube playlist URL"},
		{name: "empty playlist", err: youtube.ErrNoEntries, want: appErrors.ErrValidation, msg: "no videos found in playlist"},
		{name: "upstream failure", err: fmt.Errorf("%w: 503", youtube.ErrUnavailable), want: appErrors.ErrIngestion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCourseFixture()
			f.extractor.err = tc.err

			_, err := f.svc.IngestPlaylist(context.Background(), dto.PlaylistRequest{URL: "https://www.youtube.com/playlist?list=PLx"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			if tc.msg != "" {
				assert.Equal(t, tc.msg, appErrors.FromError(err).Message)
			}
			assert.Empty(t, f.repo.courses)
		})
	}
}

func TestIngestPlaylistRejectsMalformedURLBeforeFetching(t *testing.T) {
	f := newCourseFixture()
	_, err := f.svc.IngestPlaylist(context.Background(), dto.PlaylistRequest{URL: "playlist"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.extractor.calls)
}
