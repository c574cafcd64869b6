package models

import "time"

// Progress accumulates one user's watch time on a video for a calendar day.
type Progress struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	VideoID      int64      `db:"video_id"`
	Date         time.Time  `db:"date"`
	StartTime    *TimeOfDay `db:"start_time"`
	EndTime      *TimeOfDay `db:"end_time"`
	WatchSeconds int64      `db:"watch_seconds"`
}
