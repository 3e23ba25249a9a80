package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// taskStore covers the task repository surface used by the service.
type taskStore interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	MarkCompleted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	FindSubmissionByID(ctx context.Context, id string) (*models.Submission, error)
	FindSubmission(ctx context.Context, taskID, userID string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, taskID string) ([]models.Submission, error)
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	UpdateSubmissionContent(ctx context.Context, id, content string) error
	GradeSubmission(ctx context.Context, id string, grade float64, feedback *string, reviewerID string) error
	DeleteSubmission(ctx context.Context, id string) error
}

// taskCourseStore resolves the owning course for ownership decisions.
type taskCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// TaskService implements assignments and submissions. Every decision loads a
// fresh snapshot of the target so a grade recorded between two requests is
// never missed: once a submission is reviewed it is frozen for everyone.
type TaskService struct {
	tasks   taskStore
	courses taskCourseStore
	logger  *zap.Logger
	metrics *MetricsService
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(tasks taskStore, courses taskCourseStore, logger *zap.Logger, metrics *MetricsService) *TaskService {
	return &TaskService{tasks: tasks, courses: courses, logger: logger, metrics: metrics}
}

// Create adds a task to a course.
func (s *TaskService) Create(ctx context.Context, actor authz.Principal, task *models.Task) (*models.Task, error) {
	if err := s.authorize(actor, authz.TaskCreate, authz.Resource{}); err != nil {
		return nil, err
	}

	if _, err := s.courses.FindByID(ctx, task.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}

	task.Completed = false
	task.CreatedBy = actor.ID
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.FromError(err)
	}
	return task, nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.findTask(ctx, id)
}

// ListByCourse returns a course's tasks.
func (s *TaskService) ListByCourse(ctx context.Context, courseID string) ([]models.Task, error) {
	tasks, err := s.tasks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return tasks, nil
}

// Update rewrites a task's definition. A completed task is closed and rejects
// every modification, including by its owner.
func (s *TaskService) Update(ctx context.Context, actor authz.Principal, id string, update *models.Task) (*models.Task, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	res := authz.Resource{ID: task.ID, OwnerID: task.CreatedBy, Completed: task.Completed}
	if err := s.authorize(actor, authz.TaskUpdate, res); err != nil {
		return nil, err
	}

	if update.Title != "" {
		task.Title = update.Title
	}
	if update.Description != "" {
		task.Description = update.Description
	}
	if update.DueAt != nil {
		task.DueAt = update.DueAt
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, appErrors.FromError(err)
	}
	return task, nil
}

// Close marks the task completed. Closing is terminal: the definition freezes
// and submissions stop being accepted.
func (s *TaskService) Close(ctx context.Context, actor authz.Principal, id string) (*models.Task, error) {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.TaskClose, authz.Resource{ID: task.ID, OwnerID: task.CreatedBy}); err != nil {
		return nil, err
	}

	if err := s.tasks.MarkCompleted(ctx, id); err != nil {
		return nil, appErrors.FromError(err)
	}
	task.Completed = true
	return task, nil
}

// Submit records or replaces a student's answer. An open task accepts
// resubmission until the existing answer has been reviewed.
func (s *TaskService) Submit(ctx context.Context, actor authz.Principal, taskID, content string) (*models.Submission, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.TaskSubmit, authz.Resource{ID: task.ID, Completed: task.Completed}); err != nil {
		return nil, err
	}

	existing, err := s.tasks.FindSubmission(ctx, taskID, actor.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	if existing != nil {
		if existing.Reviewed() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "Submission has already been reviewed.")
		}
		if err := s.tasks.UpdateSubmissionContent(ctx, existing.ID, content); err != nil {
			return nil, appErrors.FromError(err)
		}
		existing.Content = content
		return existing, nil
	}

	submission := &models.Submission{TaskID: taskID, UserID: actor.ID, Content: content}
	if err := s.tasks.CreateSubmission(ctx, submission); err != nil {
		return nil, appErrors.FromError(err)
	}
	return submission, nil
}

// ListSubmissions returns a task's submissions for reviewers, or just the
// student's own.
func (s *TaskService) ListSubmissions(ctx context.Context, actor authz.Principal, taskID string) ([]models.Submission, error) {
	if _, err := s.findTask(ctx, taskID); err != nil {
		return nil, err
	}

	if actor.Role == models.RoleStudent {
		own, err := s.tasks.FindSubmission(ctx, taskID, actor.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []models.Submission{}, nil
			}
			return nil, appErrors.FromError(err)
		}
		return []models.Submission{*own}, nil
	}

	if err := s.authorize(actor, authz.SubmissionView, authz.Resource{}); err != nil {
		return nil, err
	}
	submissions, err := s.tasks.ListSubmissions(ctx, taskID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return submissions, nil
}

// Grade records a grade and freezes the submission. Re-grading is rejected
// with the same message the student sees on a frozen resubmit.
func (s *TaskService) Grade(ctx context.Context, actor authz.Principal, submissionID string, grade float64, feedback *string) (*models.Submission, error) {
	if grade < 0 || grade > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be between 0 and 100")
	}

	submission, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	res := authz.Resource{
		ID:         submission.ID,
		OwnerID:    submission.UserID,
		ReviewedAt: submission.ReviewedAt,
		Graded:     submission.Grade != nil,
	}
	if err := s.authorize(actor, authz.SubmissionGrade, res); err != nil {
		return nil, err
	}

	if err := s.tasks.GradeSubmission(ctx, submissionID, grade, feedback, actor.ID); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("submission graded",
		zap.String("submission_id", submissionID),
		zap.String("graded_by", actor.ID),
		zap.Float64("grade", grade))

	return s.findSubmission(ctx, submissionID)
}

// DeleteSubmission removes a student's answer. Reviewed submissions are part
// of the academic record and cannot be deleted by anyone.
func (s *TaskService) DeleteSubmission(ctx context.Context, actor authz.Principal, submissionID string) error {
	submission, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return err
	}

	res := authz.Resource{
		ID:         submission.ID,
		OwnerID:    submission.UserID,
		ReviewedAt: submission.ReviewedAt,
		Graded:     submission.Grade != nil,
	}
	if err := s.authorize(actor, authz.SubmissionDelete, res); err != nil {
		return err
	}

	if err := s.tasks.DeleteSubmission(ctx, submissionID); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

// Delete removes a task and its submissions. Uses the same ownership rule as
// closing.
func (s *TaskService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	task, err := s.findTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(actor, authz.TaskClose, authz.Resource{ID: task.ID, OwnerID: task.CreatedBy}); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

func (s *TaskService) findTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return task, nil
}

func (s *TaskService) findSubmission(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.tasks.FindSubmissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return submission, nil
}

func (s *TaskService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}
