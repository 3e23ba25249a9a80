package models

import "time"

// Reminder is a user-owned study reminder dispatched by the background queue.
type Reminder struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Note      string     `db:"note" json:"note"`
	RemindAt  time.Time  `db:"remind_at" json:"remind_at"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
