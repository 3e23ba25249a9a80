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

// TaskRepository provides database access for tasks and submissions.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, course_id, title, description, due_at, completed, created_by, created_at, updated_at`

// FindByID returns a task by identifier.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 LIMIT 1`, taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// ListByCourse returns a course's tasks, newest first.
func (r *TaskRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE course_id = $1 ORDER BY created_at DESC`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, courseID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, course_id, title, description, due_at, completed, created_by, created_at, updated_at) VALUES (:id, :course_id, :title, :description, :due_at, :completed, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a task.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description, due_at = :due_at, completed = :completed, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// MarkCompleted closes the task.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id string) error {
	const query = `UPDATE tasks SET completed = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return nil
}

// Delete removes a task and its submissions.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

const submissionColumns = `id, task_id, user_id, content, grade, feedback, reviewed_at, reviewed_by, created_at, updated_at`

// FindSubmissionByID returns a submission by identifier.
func (r *TaskRepository) FindSubmissionByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1 LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &submission, nil
}

// FindSubmission returns the student's submission for a task, if any.
func (r *TaskRepository) FindSubmission(ctx context.Context, taskID, userID string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE task_id = $1 AND user_id = $2 LIMIT 1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, taskID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &submission, nil
}

// ListSubmissions returns all submissions for a task, oldest first.
func (r *TaskRepository) ListSubmissions(ctx context.Context, taskID string) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE task_id = $1 ORDER BY created_at ASC`, submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, taskID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// CreateSubmission inserts a student's submission.
func (r *TaskRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	const query = `INSERT INTO submissions (id, task_id, user_id, content, created_at, updated_at) VALUES (:id, :task_id, :user_id, :content, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateSubmissionContent replaces the submission body. Callers must check
// review state first; the repository does not re-verify it.
func (r *TaskRepository) UpdateSubmissionContent(ctx context.Context, id, content string) error {
	const query = `UPDATE submissions SET content = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, content, time.Now().UTC()); err != nil {
		return fmt.Errorf("update submission content: %w", err)
	}
	return nil
}

// GradeSubmission records a grade and freezes the submission.
func (r *TaskRepository) GradeSubmission(ctx context.Context, id string, grade float64, feedback *string, reviewerID string) error {
	const query = `UPDATE submissions SET grade = $2, feedback = $3, reviewed_at = $4, reviewed_by = $5, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, feedback, time.Now().UTC(), reviewerID); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// DeleteSubmission removes a submission.
func (r *TaskRepository) DeleteSubmission(ctx context.Context, id string) error {
	const query = `DELETE FROM submissions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}
