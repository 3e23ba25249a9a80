package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/internal/service"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

// CommunityHandler exposes the level-gated chat rooms. Each request resolves
// the student's current level from their profile, not the token, so a level
// reassignment is effective immediately.
type CommunityHandler struct {
	community *service.CommunityService
	users     userLoader
}

// NewCommunityHandler creates a new instance of CommunityHandler.
func NewCommunityHandler(community *service.CommunityService, users userLoader) *CommunityHandler {
	return &CommunityHandler{community: community, users: users}
}

type roomRequest struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

type messageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// ListRooms godoc
// @Summary      List visible chat rooms
// @Tags         community
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Envelope{data=[]models.Room}
// @Router       /community/rooms [get]
func (h *CommunityHandler) ListRooms(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	rooms, err := h.community.ListRooms(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateRoom godoc
// @Summary      Create a chat room
// @Tags         community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body roomRequest true "room payload"
// @Success      201 {object} response.Envelope{data=models.Room}
// @Failure      403 {object} response.Envelope
// @Router       /community/rooms [post]
func (h *CommunityHandler) CreateRoom(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	room, err := h.community.CreateRoom(c.Request.Context(), actor, &models.Room{
		Name:  req.Name,
		Level: req.Level,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// GetRoom godoc
// @Summary      Enter a chat room
// @Tags         community
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "room id"
// @Success      200 {object} response.Envelope{data=models.Room}
// @Failure      403 {object} response.Envelope
// @Router       /community/rooms/{id} [get]
func (h *CommunityHandler) GetRoom(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	room, err := h.community.GetRoom(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// ListMessages godoc
// @Summary      Page through a room's messages
// @Tags         community
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "room id"
// @Param        before query string false "RFC3339 cutoff"
// @Param        page query int false "page"
// @Success      200 {object} response.Envelope{data=[]models.Message}
// @Router       /community/rooms/{id}/messages [get]
func (h *CommunityHandler) ListMessages(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := models.MessageFilter{RoomID: c.Param("id")}
	if raw := c.Query("before"); raw != "" {
		if cutoff, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Before = &cutoff
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	messages, err := h.community.ListMessages(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// PostMessage godoc
// @Summary      Post a message
// @Tags         community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "room id"
// @Param        request body messageRequest true "message payload"
// @Success      201 {object} response.Envelope{data=models.Message}
// @Failure      403 {object} response.Envelope
// @Router       /community/rooms/{id}/messages [post]
func (h *CommunityHandler) PostMessage(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	msg, err := h.community.PostMessage(c.Request.Context(), actor, c.Param("id"), req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// DeleteMessage godoc
// @Summary      Delete a message
// @Description  Authors delete their own messages; moderators any.
// @Tags         community
// @Security     BearerAuth
// @Param        id path string true "message id"
// @Success      204 "no content"
// @Router       /community/messages/{id} [delete]
func (h *CommunityHandler) DeleteMessage(c *gin.Context) {
	actor, err := resolvePrincipal(c, h.users)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.community.DeleteMessage(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
