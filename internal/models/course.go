package models

import "time"

// Course is a catalog entry, usually seeded from a playlist.
type Course struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"course_title"`
	Link      string    `db:"link" json:"link"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Video belongs to a course and is the unit of progress tracking.
type Video struct {
	ID       int64  `db:"id" json:"id"`
	CourseID int64  `db:"course_id" json:"course_id"`
	Title    string `db:"title" json:"title"`
	Link     string `db:"video_link" json:"video_link"`
	Position int    `db:"position" json:"position"`
}
