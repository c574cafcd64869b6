package models

import "time"

// AttendanceStatus is the derived daily status. The only transition is
// InProgress to Present; Present is terminal.
type AttendanceStatus string

const (
	AttendanceInProgress AttendanceStatus = "in progress"
	AttendancePresent    AttendanceStatus = "present"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceInProgress || s == AttendancePresent
}

// Evaluate returns the status after observing total against threshold.
func (s AttendanceStatus) Evaluate(totalSeconds, thresholdSeconds int64) AttendanceStatus {
	if s == AttendancePresent || totalSeconds >= thresholdSeconds {
		return AttendancePresent
	}
	return AttendanceInProgress
}

// Attendance is the per-user daily aggregate of progress.
type Attendance struct {
	ID           int64            `db:"id"`
	UserID       int64            `db:"user_id"`
	Date         time.Time        `db:"date"`
	TotalSeconds int64            `db:"total_seconds"`
	Status       AttendanceStatus `db:"status"`
	UpdatedAt    time.Time        `db:"updated_at"`
}

// Recompute sets the total and applies the status transition.
func (a *Attendance) Recompute(totalSeconds, thresholdSeconds int64) bool {
	next := a.Status.Evaluate(totalSeconds, thresholdSeconds)
	changed := next != a.Status || a.TotalSeconds != totalSeconds
	a.TotalSeconds = totalSeconds
	a.Status = next
	return changed
}

// AttendanceReportRow joins attendance with user identity for exports.
type AttendanceReportRow struct {
	Attendance
	Name     string `db:"name"`
	Username string `db:"username"`
}
