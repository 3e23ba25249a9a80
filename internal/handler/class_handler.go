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

// ClassHandler exposes the live-class schedule.
type ClassHandler struct {
	classes *service.ClassService
}

// NewClassHandler creates a new instance of ClassHandler.
func NewClassHandler(classes *service.ClassService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

type classRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	CourseID    *string   `json:"course_id"`
	MeetingURL  *string   `json:"meeting_url" validate:"omitempty,url"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
}

// List godoc
// @Summary      List scheduled classes
// @Tags         classes
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "RFC3339 window start"
// @Param        to query string false "RFC3339 window end"
// @Param        course_id query string false "filter by course"
// @Success      200 {object} response.Envelope{data=[]models.ClassEvent}
// @Router       /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	filter := models.ClassEventFilter{CourseID: c.Query("course_id")}
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &to
		}
	}

	events, err := h.classes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Get godoc
// @Summary      Fetch one class event
// @Tags         classes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "event id"
// @Success      200 {object} response.Envelope{data=models.ClassEvent}
// @Router       /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	event, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create godoc
// @Summary      Schedule a class
// @Tags         classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body classRequest true "class payload"
// @Success      201 {object} response.Envelope{data=models.ClassEvent}
// @Failure      403 {object} response.Envelope
// @Router       /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	event, err := h.classes.Create(c.Request.Context(), actor, &models.ClassEvent{
		Title:       req.Title,
		Description: req.Description,
		CourseID:    req.CourseID,
		MeetingURL:  req.MeetingURL,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary      Reschedule or edit a class
// @Tags         classes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "event id"
// @Param        request body classRequest true "class payload"
// @Success      200 {object} response.Envelope{data=models.ClassEvent}
// @Router       /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	event, err := h.classes.Update(c.Request.Context(), actor, c.Param("id"), &models.ClassEvent{
		Title:       req.Title,
		Description: req.Description,
		CourseID:    req.CourseID,
		MeetingURL:  req.MeetingURL,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary      Cancel a class
// @Tags         classes
// @Security     BearerAuth
// @Param        id path string true "event id"
// @Success      204 "no content"
// @Router       /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.classes.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
