package models

import "time"

// Course is a published learning track owned by the instructor who created it.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Level       string    `db:"level" json:"level"`
	Published   bool      `db:"published" json:"published"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for the catalog listing.
type CourseFilter struct {
	Level     string
	Published *bool
	Search    string
	Page      int
	PageSize  int
}

// Lesson is an ordered unit of content within a course.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	VideoURL  *string   `db:"video_url" json:"video_url,omitempty"`
	Position  int       `db:"position" json:"position"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LessonProgress records a student's completion of a lesson.
type LessonProgress struct {
	ID          string    `db:"id" json:"id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
