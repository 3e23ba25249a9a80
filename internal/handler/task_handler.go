package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/internal/service"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

// TaskHandler exposes task and submission endpoints.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new instance of TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type taskRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

type submitRequest struct {
	Content string `json:"content" validate:"required"`
}

type gradeRequest struct {
	Grade    float64 `json:"grade" validate:"min=0,max=100"`
	Feedback *string `json:"feedback"`
}

// ListByCourse godoc
// @Summary      List a course's tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Success      200 {object} response.Envelope{data=[]models.Task}
// @Router       /courses/{id}/tasks [get]
func (h *TaskHandler) ListByCourse(c *gin.Context) {
	tasks, err := h.tasks.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// Create godoc
// @Summary      Create a task on a course
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Param        request body taskRequest true "task payload"
// @Success      201 {object} response.Envelope{data=models.Task}
// @Router       /courses/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), actor, &models.Task{
		CourseID:    c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Get godoc
// @Summary      Fetch one task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Success      200 {object} response.Envelope{data=models.Task}
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Update godoc
// @Summary      Update an open task
// @Description  Completed tasks are closed and reject every edit.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Param        request body taskRequest true "task payload"
// @Success      200 {object} response.Envelope{data=models.Task}
// @Failure      403 {object} response.Envelope
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), actor, c.Param("id"), &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Close godoc
// @Summary      Close a task
// @Description  Closing is terminal: the definition freezes and submissions stop.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Success      200 {object} response.Envelope{data=models.Task}
// @Router       /tasks/{id}/close [post]
func (h *TaskHandler) Close(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	task, err := h.tasks.Close(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Success      204 "no content"
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary      Submit an answer to a task
// @Description  Resubmission replaces the answer until it has been reviewed.
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Param        request body submitRequest true "submission payload"
// @Success      201 {object} response.Envelope{data=models.Submission}
// @Failure      403 {object} response.Envelope
// @Router       /tasks/{id}/submissions [post]
func (h *TaskHandler) Submit(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	submission, err := h.tasks.Submit(c.Request.Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// ListSubmissions godoc
// @Summary      List a task's submissions
// @Description  Students see only their own submission; reviewers see all.
// @Tags         submissions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "task id"
// @Success      200 {object} response.Envelope{data=[]models.Submission}
// @Router       /tasks/{id}/submissions [get]
func (h *TaskHandler) ListSubmissions(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	submissions, err := h.tasks.ListSubmissions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Grade godoc
// @Summary      Grade a submission
// @Description  Grading freezes the submission permanently.
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "submission id"
// @Param        request body gradeRequest true "grade payload"
// @Success      200 {object} response.Envelope{data=models.Submission}
// @Failure      403 {object} response.Envelope
// @Router       /submissions/{id}/grade [post]
func (h *TaskHandler) Grade(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	submission, err := h.tasks.Grade(c.Request.Context(), actor, c.Param("id"), req.Grade, req.Feedback)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// DeleteSubmission godoc
// @Summary      Delete a submission
// @Description  Reviewed submissions are immutable and cannot be deleted.
// @Tags         submissions
// @Security     BearerAuth
// @Param        id path string true "submission id"
// @Success      204 "no content"
// @Failure      403 {object} response.Envelope
// @Router       /submissions/{id} [delete]
func (h *TaskHandler) DeleteSubmission(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.tasks.DeleteSubmission(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
