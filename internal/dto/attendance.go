package dto

import (
	"time"

	"github.com/noah-isme/edutrack-api/internal/models"
)

// AttendanceResponse is the client representation of an attendance row.
type AttendanceResponse struct {
	ID        int64                    `json:"id"`
	UserID    int64                    `json:"user_id"`
	Date      string                   `json:"date"`
	TotalTime *string                  `json:"total_time"`
	Status    *models.AttendanceStatus `json:"status"`
}

// NewAttendanceResponse renders an attendance row.
func NewAttendanceResponse(a models.Attendance) AttendanceResponse {
	status := a.Status
	return AttendanceResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Date:      models.FormatDate(a.Date),
		TotalTime: models.FormatDurationPtr(a.TotalSeconds),
		Status:    &status,
	}
}

// AttendancePlaceholder is returned when no record exists for the day yet.
func AttendancePlaceholder(userID int64, date time.Time) AttendanceResponse {
	return AttendanceResponse{UserID: userID, Date: models.FormatDate(date)}
}
