package dto

import "github.com/noah-isme/edutrack-api/internal/models"

// ProgressRequest captures POST /progress payload.
type ProgressRequest struct {
	VideoID      int64  `json:"video_id" validate:"required,gt=0"`
	StartTime    string `json:"start_time" validate:"omitempty"`
	EndTime      string `json:"end_time" validate:"omitempty"`
	WatchSeconds *int64 `json:"watchtime_seconds"`
}

// ProgressResponse is the client representation of a progress row.
type ProgressResponse struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	VideoID   int64   `json:"video_id"`
	Date      string  `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	WatchTime *string `json:"watch_time"`
}

// NewProgressResponse renders a progress row.
func NewProgressResponse(p models.Progress) ProgressResponse {
	return ProgressResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		VideoID:   p.VideoID,
		Date:      models.FormatDate(p.Date),
		StartTime: p.StartTime.StringPtr(),
		EndTime:   p.EndTime.StringPtr(),
		WatchTime: models.FormatDurationPtr(p.WatchSeconds),
	}
}
