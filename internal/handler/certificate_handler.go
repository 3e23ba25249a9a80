package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduvance/trading-academy-api/internal/service"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/response"
)

// CertificateHandler exposes certificate issuance and signed downloads.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler creates a new instance of CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

type issueCertificateRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
}

// Issue godoc
// @Summary      Issue a completion certificate
// @Description  Requires the student to have completed every lesson of the course.
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body issueCertificateRequest true "issue payload"
// @Success      201 {object} response.Envelope{data=models.Certificate}
// @Failure      409 {object} response.Envelope
// @Router       /certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	var req issueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	cert, err := h.certificates.Issue(c.Request.Context(), actor, req.UserID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// ListMine godoc
// @Summary      List my certificates
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Envelope{data=[]models.Certificate}
// @Router       /certificates [get]
func (h *CertificateHandler) ListMine(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	certs, err := h.certificates.ListByUser(c.Request.Context(), actor, actor.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, nil)
}

// ListByUser godoc
// @Summary      List a student's certificates
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "user id"
// @Success      200 {object} response.Envelope{data=[]models.Certificate}
// @Router       /users/{id}/certificates [get]
func (h *CertificateHandler) ListByUser(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}
	certs, err := h.certificates.ListByUser(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, nil)
}

// DownloadURL godoc
// @Summary      Get a short-lived download token
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "certificate id"
// @Success      200 {object} response.Envelope
// @Router       /certificates/{id}/download-url [get]
func (h *CertificateHandler) DownloadURL(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		response.Error(c, errMissingSession)
		return
	}

	token, expiresAt, err := h.certificates.DownloadURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary      Download a certificate PDF
// @Description  Requires a valid signed token; no session needed.
// @Tags         certificates
// @Produce      application/pdf
// @Param        token query string true "signed download token"
// @Success      200 {file} file
// @Failure      401 {object} response.Envelope
// @Router       /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, cert, err := h.certificates.OpenSigned(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.SerialNumber+".pdf"))
	c.DataFromReader(http.StatusOK, stat.Size(), "application/pdf", file, nil)
}
