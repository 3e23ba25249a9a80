package models

import "time"

// Certificate records a completion certificate issued to a student.
type Certificate struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	FilePath     string    `db:"file_path" json:"-"`
	IssuedBy     string    `db:"issued_by" json:"issued_by"`
	IssuedAt     time.Time `db:"issued_at" json:"issued_at"`
}
