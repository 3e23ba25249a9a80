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

// UserHandler exposes account administration endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type promoteRequest struct {
	Role string `json:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`
}

type assignLevelRequest struct {
	Level string `json:"level" validate:"required"`
}

// List godoc
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role    query string false "filter by role"
// @Param        status  query string false "filter by status"
// @Param        search  query string false "search email or name"
// @Param        page    query int    false "page"
// @Param        page_size query int  false "page size"
// @Success      200 {object} response.Envelope{data=[]models.User}
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	filter := models.UserFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		filter.Role = &role
	}
	if raw := c.Query("status"); raw != "" {
		status := models.UserStatus(raw)
		filter.Status = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, total, err := h.users.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary      Fetch one account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Success      200 {object} response.Envelope{data=models.User}
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	user, err := h.users.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Approve godoc
// @Summary      Approve a pending account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Success      200 {object} response.Envelope{data=models.User}
// @Router       /users/{id}/approve [post]
func (h *UserHandler) Approve(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	user, err := h.users.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary      Reject a pending account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Success      200 {object} response.Envelope{data=models.User}
// @Router       /users/{id}/reject [post]
func (h *UserHandler) Reject(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	user, err := h.users.Reject(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Promote godoc
// @Summary      Change an account's role
// @Description  Superadmin only. Outstanding tokens keep the old role until expiry.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Param        request body promoteRequest true "new role"
// @Success      200 {object} response.Envelope{data=models.User}
// @Router       /users/{id}/role [put]
func (h *UserHandler) Promote(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	user, err := h.users.Promote(c.Request.Context(), actor, c.Param("id"), models.UserRole(req.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// AssignLevel godoc
// @Summary      Set a student's learning level
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Param        request body assignLevelRequest true "level"
// @Success      200 {object} response.Envelope{data=models.User}
// @Router       /users/{id}/level [put]
func (h *UserHandler) AssignLevel(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req assignLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	user, err := h.users.AssignLevel(c.Request.Context(), actor, c.Param("id"), req.Level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary      Delete an account
// @Description  Self-deletion is blocked; deleting an admin requires superadmin.
// @Tags         users
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Success      204 "no content"
// @Failure      403 {object} response.Envelope
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
