package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/internal/service"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

// CourseHandler exposes the course catalog and lesson endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler creates a new instance of CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

type courseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Level       string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Published   bool   `json:"published"`
}

type lessonRequest struct {
	Title    string  `json:"title" validate:"required"`
	Content  string  `json:"content"`
	VideoURL *string `json:"video_url"`
	Position int     `json:"position"`
}

// List godoc
// @Summary      Browse the course catalog
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Param        level query string false "filter by level"
// @Param        search query string false "title search"
// @Param        page query int false "page"
// @Success      200 {object} response.Envelope{data=[]models.Course}
// @Router       /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Level:  c.Query("level"),
		Search: c.Query("search"),
	}
	if raw := c.Query("published"); raw != "" {
		published := raw == "true"
		filter.Published = &published
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Courses, &result.Pagination)
}

// Get godoc
// @Summary      Fetch one course
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Success      200 {object} response.Envelope{data=models.Course}
// @Router       /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary      Create a course
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body courseRequest true "course payload"
// @Success      201 {object} response.Envelope{data=models.Course}
// @Failure      403 {object} response.Envelope
// @Router       /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), actor, &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Level:       req.Level,
		Published:   req.Published,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary      Update a course
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Param        request body courseRequest true "course payload"
// @Success      200 {object} response.Envelope{data=models.Course}
// @Router       /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	course, err := h.courses.Update(c.Request.Context(), actor, c.Param("id"), &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Level:       req.Level,
		Published:   req.Published,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary      Delete a course
// @Tags         courses
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Success      204 "no content"
// @Router       /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.courses.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLessons godoc
// @Summary      List a course's lessons
// @Tags         lessons
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Success      200 {object} response.Envelope{data=[]models.Lesson}
// @Router       /courses/{id}/lessons [get]
func (h *CourseHandler) ListLessons(c *gin.Context) {
	lessons, err := h.courses.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// CreateLesson godoc
// @Summary      Add a lesson to a course
// @Tags         lessons
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Param        request body lessonRequest true "lesson payload"
// @Success      201 {object} response.Envelope{data=models.Lesson}
// @Router       /courses/{id}/lessons [post]
func (h *CourseHandler) CreateLesson(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	lesson, err := h.courses.CreateLesson(c.Request.Context(), actor, &models.Lesson{
		CourseID: c.Param("id"),
		Title:    req.Title,
		Content:  req.Content,
		VideoURL: req.VideoURL,
		Position: req.Position,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary      Update a lesson
// @Tags         lessons
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "lesson id"
// @Param        request body lessonRequest true "lesson payload"
// @Success      200 {object} response.Envelope{data=models.Lesson}
// @Router       /lessons/{id} [put]
func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	lesson, err := h.courses.UpdateLesson(c.Request.Context(), actor, c.Param("id"), &models.Lesson{
		Title:    req.Title,
		Content:  req.Content,
		VideoURL: req.VideoURL,
		Position: req.Position,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary      Delete a lesson
// @Tags         lessons
// @Security     BearerAuth
// @Param        id path string true "lesson id"
// @Success      204 "no content"
// @Router       /lessons/{id} [delete]
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.courses.DeleteLesson(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CompleteLesson godoc
// @Summary      Mark a lesson complete
// @Tags         lessons
// @Security     BearerAuth
// @Param        id path string true "lesson id"
// @Success      204 "no content"
// @Router       /lessons/{id}/complete [post]
func (h *CourseHandler) CompleteLesson(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.courses.CompleteLesson(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Progress godoc
// @Summary      Course progress for the current student
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "course id"
// @Success      200 {object} response.Envelope
// @Router       /courses/{id}/progress [get]
func (h *CourseHandler) Progress(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	completed, total, err := h.courses.Progress(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"completed": completed,
		"total":     total,
	}, nil)
}
