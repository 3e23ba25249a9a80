package models

import "time"

// Task is an assignment attached to a course. Once marked completed the
// task is closed: its definition no longer changes and no new submissions
// are accepted.
type Task struct {
	ID          string     `db:"id" json:"id"`
	CourseID    string     `db:"course_id" json:"course_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	DueAt       *time.Time `db:"due_at" json:"due_at,omitempty"`
	Completed   bool       `db:"completed" json:"completed"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Submission is a student's answer to a task. Setting ReviewedAt (alongside
// Grade) freezes the submission permanently.
type Submission struct {
	ID         string     `db:"id" json:"id"`
	TaskID     string     `db:"task_id" json:"task_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Content    string     `db:"content" json:"content"`
	Grade      *float64   `db:"grade" json:"grade,omitempty"`
	Feedback   *string    `db:"feedback" json:"feedback,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Reviewed reports whether the submission has been graded and is therefore
// immutable.
func (s *Submission) Reviewed() bool {
	return s != nil && (s.ReviewedAt != nil || s.Grade != nil)
}
