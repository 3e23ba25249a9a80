package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/internal/service"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

var errMissingSession = appErrors.ErrUnauthorized

// AuthHandler exposes signup, login, and profile endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new instance of AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Signup godoc
// @Summary      Register a new account
// @Description  Students are approved immediately and receive a token; instructors await review.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.SignupRequest true "signup payload"
// @Success      201 {object} response.Envelope{data=models.AuthResponse}
// @Failure      400 {object} response.Envelope
// @Failure      409 {object} response.Envelope
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Login godoc
// @Summary      Authenticate and receive a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.LoginRequest true "credentials"
// @Success      200 {object} response.Envelope{data=models.AuthResponse}
// @Failure      401 {object} response.Envelope
// @Failure      403 {object} response.Envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Me godoc
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Envelope{data=models.User}
// @Failure      401 {object} response.Envelope
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	user, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// ChangePassword godoc
// @Summary      Change the current user's password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.ChangePasswordRequest true "password payload"
// @Success      204 "no content"
// @Failure      401 {object} response.Envelope
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
