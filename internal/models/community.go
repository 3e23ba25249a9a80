package models

import "time"

// Room is a community chat room. Level carries the canonical learning-level
// label gating student access; an empty level means the room is open to all.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is a chat message posted into a room.
type Message struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageFilter pages through a room's history.
type MessageFilter struct {
	RoomID   string
	Before   *time.Time
	Page     int
	PageSize int
}
