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

// ReminderHandler exposes the user's private study reminders.
type ReminderHandler struct {
	reminders *service.ReminderService
}

// NewReminderHandler creates a new instance of ReminderHandler.
func NewReminderHandler(reminders *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

type reminderRequest struct {
	Title    string    `json:"title" validate:"required"`
	Note     string    `json:"note"`
	RemindAt time.Time `json:"remind_at" validate:"required"`
}

// List godoc
// @Summary      List my reminders
// @Tags         reminders
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Envelope{data=[]models.Reminder}
// @Router       /reminders [get]
func (h *ReminderHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	reminders, err := h.reminders.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reminders, nil)
}

// Create godoc
// @Summary      Create a reminder
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body reminderRequest true "reminder payload"
// @Success      201 {object} response.Envelope{data=models.Reminder}
// @Router       /reminders [post]
func (h *ReminderHandler) Create(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	reminder, err := h.reminders.Create(c.Request.Context(), actor, &models.Reminder{
		Title:    req.Title,
		Note:     req.Note,
		RemindAt: req.RemindAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reminder)
}

// Update godoc
// @Summary      Update an unsent reminder
// @Tags         reminders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "reminder id"
// @Param        request body reminderRequest true "reminder payload"
// @Success      200 {object} response.Envelope{data=models.Reminder}
// @Router       /reminders/{id} [put]
func (h *ReminderHandler) Update(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	reminder, err := h.reminders.Update(c.Request.Context(), actor, c.Param("id"), &models.Reminder{
		Title:    req.Title,
		Note:     req.Note,
		RemindAt: req.RemindAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reminder, nil)
}

// Delete godoc
// @Summary      Delete a reminder
// @Tags         reminders
// @Security     BearerAuth
// @Param        id path string true "reminder id"
// @Success      204 "no content"
// @Router       /reminders/{id} [delete]
func (h *ReminderHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.reminders.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
