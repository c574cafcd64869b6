package models

import "time"

// Enrollment captures a user's registration to a course. Unenrolling keeps
// the row with Enrolled=false so re-registration reuses it.
type Enrollment struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Enrolled  bool      `db:"enrolled" json:"enrolled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrolledCourse joins an active enrollment with its course.
type EnrolledCourse struct {
	Course
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
