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

// ReminderRepository provides database access for study reminders.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository creates a new instance of ReminderRepository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

const reminderColumns = `id, user_id, title, note, remind_at, sent_at, created_at, updated_at`

// FindByID returns a reminder by identifier.
func (r *ReminderRepository) FindByID(ctx context.Context, id string) (*models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE id = $1 LIMIT 1`, reminderColumns)
	var reminder models.Reminder
	if err := r.db.GetContext(ctx, &reminder, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reminder by id: %w", err)
	}
	return &reminder, nil
}

// ListByUser returns a user's reminders, soonest first.
func (r *ReminderRepository) ListByUser(ctx context.Context, userID string) ([]models.Reminder, error) {
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE user_id = $1 ORDER BY remind_at ASC`, reminderColumns)
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, userID); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// ListDue returns unsent reminders whose remind_at has passed.
func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM reminders WHERE sent_at IS NULL AND remind_at <= $1 ORDER BY remind_at ASC LIMIT %d`, reminderColumns, limit)
	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, now); err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return reminders, nil
}

// Create inserts a new reminder.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reminder.CreatedAt = now
	reminder.UpdatedAt = now

	const query = `INSERT INTO reminders (id, user_id, title, note, remind_at, created_at, updated_at) VALUES (:id, :user_id, :title, :note, :remind_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// Update rewrites a reminder's mutable columns.
func (r *ReminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	reminder.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reminders SET title = :title, note = :note, remind_at = :remind_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	return nil
}

// MarkSent stamps a reminder as dispatched.
func (r *ReminderRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE reminders SET sent_at = $2, updated_at = $2 WHERE id = $1 AND sent_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// Delete removes a reminder.
func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reminders WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}
