package dto

// RegistrationStatus reports whether the caller is enrolled in a course.
type RegistrationStatus struct {
	CourseID int64 `json:"course_id"`
	Enrolled bool  `json:"enrolled"`
}
