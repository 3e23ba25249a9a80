package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduvance/trading-academy-api/internal/models"
)

// ClassRepository provides database access for scheduled class events.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, title, description, course_id, meeting_url, starts_at, ends_at, created_by, created_at, updated_at`

// FindByID returns a class event by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_events WHERE id = $1 LIMIT 1`, classColumns)
	var event models.ClassEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class event by id: %w", err)
	}
	return &event, nil
}

// List returns class events within the filter window, soonest first.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error) {
	baseQuery := `FROM class_events WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY starts_at ASC", classColumns, baseQuery)
	var events []models.ClassEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list class events: %w", err)
	}
	return events, nil
}

// Create inserts a new class event.
func (r *ClassRepository) Create(ctx context.Context, event *models.ClassEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	const query = `INSERT INTO class_events (id, title, description, course_id, meeting_url, starts_at, ends_at, created_by, created_at, updated_at) VALUES (:id, :title, :description, :course_id, :meeting_url, :starts_at, :ends_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create class event: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a class event.
func (r *ClassRepository) Update(ctx context.Context, event *models.ClassEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_events SET title = :title, description = :description, course_id = :course_id, meeting_url = :meeting_url, starts_at = :starts_at, ends_at = :ends_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update class event: %w", err)
	}
	return nil
}

// Delete removes a class event.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM class_events WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class event: %w", err)
	}
	return nil
}
