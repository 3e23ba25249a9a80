package models

import "time"

// ClassEvent is a scheduled live session visible to all authenticated users.
type ClassEvent struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	CourseID    *string   `db:"course_id" json:"course_id,omitempty"`
	MeetingURL  *string   `db:"meeting_url" json:"meeting_url,omitempty"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ClassEventFilter selects events within a window.
type ClassEventFilter struct {
	From     *time.Time
	To       *time.Time
	CourseID string
}
