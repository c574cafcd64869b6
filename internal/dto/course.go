package dto

import "github.com/noah-isme/edutrack-api/internal/models"

// CreateCourseRequest captures POST /courses payload.
type CreateCourseRequest struct {
	Title string `json:"course_title" validate:"required,max=255"`
	Link  string `json:"link" validate:"omitempty,url"`
}

// CreateVideoRequest captures POST /courses/:id/videos payload.
type CreateVideoRequest struct {
	Title string `json:"title" validate:"required,max=255"`
	Link  string `json:"video_link" validate:"required,url"`
}

// PlaylistRequest captures POST /videos/youtube-playlist payload.
type PlaylistRequest struct {
	URL string `json:"playlist_url" validate:"required,url"`
}

// CourseDetail is a course with its videos.
type CourseDetail struct {
	models.Course
	Videos []models.Video `json:"videos"`
}
