package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvance/trading-academy-api/internal/models"
)

func submissionRows(s models.Submission) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "task_id", "user_id", "content", "grade", "feedback",
		"reviewed_at", "reviewed_by", "created_at", "updated_at",
	}).AddRow(
		s.ID, s.TaskID, s.UserID, s.Content, s.Grade, s.Feedback,
		s.ReviewedAt, s.ReviewedBy, s.CreatedAt, s.UpdatedAt,
	)
}

func TestTaskRepositoryFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "course_id", "title", "description", "due_at", "completed",
		"created_by", "created_at", "updated_at",
	}).AddRow("t1", "c1", "Chart analysis", "Annotate the weekly chart", nil, false, "i1", now, now)

	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1`).
		WithArgs("t1").
		WillReturnRows(rows)

	task, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "c1", task.CourseID)
	assert.False(t, task.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec(`INSERT INTO submissions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.Submission{TaskID: "t1", UserID: "s1", Content: "My analysis"}
	require.NoError(t, repo.CreateSubmission(context.Background(), submission))
	assert.NotEmpty(t, submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGradeSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	feedback := "Solid work"
	mock.ExpectExec(`UPDATE submissions SET grade = \$2`).
		WithArgs("sub1", 92.5, &feedback, sqlmock.AnyArg(), "i1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.GradeSubmission(context.Background(), "sub1", 92.5, &feedback, "i1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryFindSubmissionNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE task_id = \$1 AND user_id = \$2`).
		WithArgs("t1", "s1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindSubmission(context.Background(), "t1", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTaskRepositoryFindSubmissionByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	now := time.Now().UTC()
	grade := 88.0
	reviewed := now.Add(-time.Hour)
	reviewer := "i1"
	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE id = \$1`).
		WithArgs("sub1").
		WillReturnRows(submissionRows(models.Submission{
			ID: "sub1", TaskID: "t1", UserID: "s1", Content: "done",
			Grade: &grade, ReviewedAt: &reviewed, ReviewedBy: &reviewer,
			CreatedAt: now, UpdatedAt: now,
		}))

	sub, err := repo.FindSubmissionByID(context.Background(), "sub1")
	require.NoError(t, err)
	assert.True(t, sub.Reviewed())
	assert.NoError(t, mock.ExpectationsWereMet())
}
