package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduvance/trading-academy-api/internal/models"
)

// CommunityRepository provides database access for chat rooms and messages.
type CommunityRepository struct {
	db *sqlx.DB
}

// NewCommunityRepository creates a new instance of CommunityRepository.
func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

const roomColumns = `id, name, level, created_by, created_at`

// FindRoomByID returns a room by identifier.
func (r *CommunityRepository) FindRoomByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE id = $1 LIMIT 1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find room by id: %w", err)
	}
	return &room, nil
}

// ListRooms returns every room, oldest first.
func (r *CommunityRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms ORDER BY created_at ASC`, roomColumns)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// CreateRoom inserts a new chat room.
func (r *CommunityRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO rooms (id, name, level, created_by, created_at) VALUES (:id, :name, :level, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

const messageColumns = `id, room_id, user_id, body, created_at`

// FindMessageByID returns a message by identifier.
func (r *CommunityRepository) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id = $1 LIMIT 1`, messageColumns)
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message by id: %w", err)
	}
	return &msg, nil
}

// ListMessages pages through a room's history, newest first.
func (r *CommunityRepository) ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var messages []models.Message
	if filter.Before != nil {
		query := fmt.Sprintf(`SELECT %s FROM messages WHERE room_id = $1 AND created_at < $2 ORDER BY created_at DESC LIMIT %d OFFSET %d`, messageColumns, pageSize, offset)
		if err := r.db.SelectContext(ctx, &messages, query, filter.RoomID, *filter.Before); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		return messages, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM messages WHERE room_id = $1 ORDER BY created_at DESC LIMIT %d OFFSET %d`, messageColumns, pageSize, offset)
	if err := r.db.SelectContext(ctx, &messages, query, filter.RoomID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CreateMessage inserts a chat message.
func (r *CommunityRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, room_id, user_id, body, created_at) VALUES (:id, :room_id, :user_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (r *CommunityRepository) DeleteMessage(ctx context.Context, id string) error {
	const query = `DELETE FROM messages WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
