package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
)

type fakeTaskStore struct {
	tasks       map[string]*models.Task
	submissions map[string]*models.Submission
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:       map[string]*models.Task{},
		submissions: map[string]*models.Submission{},
	}
}

func (f *fakeTaskStore) FindByID(_ context.Context, id string) (*models.Task, error) {
	if task, ok := f.tasks[id]; ok {
		copy := *task
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTaskStore) ListByCourse(_ context.Context, courseID string) ([]models.Task, error) {
	var out []models.Task
	for _, task := range f.tasks {
		if task.CourseID == courseID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Create(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "task-" + task.Title
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) Update(_ context.Context, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) MarkCompleted(_ context.Context, id string) error {
	if task, ok := f.tasks[id]; ok {
		task.Completed = true
	}
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id string) error {
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) FindSubmissionByID(_ context.Context, id string) (*models.Submission, error) {
	if sub, ok := f.submissions[id]; ok {
		copy := *sub
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTaskStore) FindSubmission(_ context.Context, taskID, userID string) (*models.Submission, error) {
	for _, sub := range f.submissions {
		if sub.TaskID == taskID && sub.UserID == userID {
			copy := *sub
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTaskStore) ListSubmissions(_ context.Context, taskID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range f.submissions {
		if sub.TaskID == taskID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) CreateSubmission(_ context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = "sub-" + sub.TaskID + "-" + sub.UserID
	}
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeTaskStore) UpdateSubmissionContent(_ context.Context, id, content string) error {
	if sub, ok := f.submissions[id]; ok {
		sub.Content = content
	}
	return nil
}

func (f *fakeTaskStore) GradeSubmission(_ context.Context, id string, grade float64, feedback *string, reviewerID string) error {
	if sub, ok := f.submissions[id]; ok {
		now := time.Now().UTC()
		sub.Grade = &grade
		sub.Feedback = feedback
		sub.ReviewedAt = &now
		sub.ReviewedBy = &reviewerID
	}
	return nil
}

func (f *fakeTaskStore) DeleteSubmission(_ context.Context, id string) error {
	delete(f.submissions, id)
	return nil
}

type fakeCourseLookup struct {
	courses map[string]*models.Course
}

func (f *fakeCourseLookup) FindByID(_ context.Context, id string) (*models.Course, error) {
	if course, ok := f.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func newTaskService(store *fakeTaskStore) *TaskService {
	courses := &fakeCourseLookup{courses: map[string]*models.Course{
		"c1": {ID: "c1", Title: "Technical Analysis", CreatedBy: "i1"},
	}}
	return NewTaskService(store, courses, zap.NewNop(), nil)
}

func studentPrincipal(id string) authz.Principal {
	return authz.Principal{ID: id, Role: models.RoleStudent, Level: authz.LevelBeginner}
}

func instructorPrincipal(id string) authz.Principal {
	return authz.Principal{ID: id, Role: models.RoleInstructor}
}

func TestSubmitThenGradeThenDeleteIsBlocked(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{
		CourseID: "c1", Title: "Week 1", Description: "Annotate the chart",
	})
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, studentPrincipal("s1"), task.ID, "my analysis")
	require.NoError(t, err)

	// Before review the student may still delete their own submission.
	// After grading, the same request is denied with the immutability reason.
	graded, err := svc.Grade(ctx, instructorPrincipal("i1"), sub.ID, 85, nil)
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 85.0, *graded.Grade)

	err = svc.DeleteSubmission(ctx, studentPrincipal("s1"), sub.ID)
	require.Error(t, err)
	assert.Equal(t, "Cannot delete a submission that has been reviewed.", err.Error())

	// Immutability also binds admins.
	err = svc.DeleteSubmission(ctx, authz.Principal{ID: "a1", Role: models.RoleAdmin}, sub.ID)
	require.Error(t, err)
	assert.Equal(t, "Cannot delete a submission that has been reviewed.", err.Error())
}

func TestResubmitAfterReviewBlocked(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{CourseID: "c1", Title: "Week 2"})
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, studentPrincipal("s1"), task.ID, "v1")
	require.NoError(t, err)

	// Resubmission before review replaces the content.
	updated, err := svc.Submit(ctx, studentPrincipal("s1"), task.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, updated.ID)
	assert.Equal(t, "v2", updated.Content)

	_, err = svc.Grade(ctx, instructorPrincipal("i1"), sub.ID, 70, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, studentPrincipal("s1"), task.ID, "v3")
	require.Error(t, err)
	assert.Equal(t, "Submission has already been reviewed.", err.Error())
}

func TestRegradeBlocked(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{CourseID: "c1", Title: "Week 3"})
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, studentPrincipal("s1"), task.ID, "answer")
	require.NoError(t, err)

	_, err = svc.Grade(ctx, instructorPrincipal("i1"), sub.ID, 60, nil)
	require.NoError(t, err)

	_, err = svc.Grade(ctx, instructorPrincipal("i1"), sub.ID, 90, nil)
	require.Error(t, err)
	assert.Equal(t, "Submission has already been reviewed.", err.Error())
}

func TestClosedTaskRejectsSubmissionsAndEdits(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{CourseID: "c1", Title: "Week 4"})
	require.NoError(t, err)

	_, err = svc.Close(ctx, instructorPrincipal("i1"), task.ID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, studentPrincipal("s1"), task.ID, "late")
	require.Error(t, err)
	assert.Equal(t, "Task is closed and no longer accepts submissions.", err.Error())

	// The owner cannot edit a closed task either.
	_, err = svc.Update(ctx, instructorPrincipal("i1"), task.ID, &models.Task{Title: "renamed"})
	require.Error(t, err)
	assert.Equal(t, "Cannot modify a task that has been completed.", err.Error())
}

func TestStudentCannotGrade(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{CourseID: "c1", Title: "Week 5"})
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, studentPrincipal("s1"), task.ID, "answer")
	require.NoError(t, err)

	_, err = svc.Grade(ctx, studentPrincipal("s1"), sub.ID, 100, nil)
	require.Error(t, err)
}

func TestStudentSeesOnlyOwnSubmission(t *testing.T) {
	store := newFakeTaskStore()
	svc := newTaskService(store)
	ctx := context.Background()

	task, err := svc.Create(ctx, instructorPrincipal("i1"), &models.Task{CourseID: "c1", Title: "Week 6"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, studentPrincipal("s1"), task.ID, "mine")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, studentPrincipal("s2"), task.ID, "theirs")
	require.NoError(t, err)

	own, err := svc.ListSubmissions(ctx, studentPrincipal("s1"), task.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "s1", own[0].UserID)

	all, err := svc.ListSubmissions(ctx, instructorPrincipal("i1"), task.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
