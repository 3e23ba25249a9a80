package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvance/trading-academy-api/internal/models"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	called bool
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
	}

	for _, tc := range cases {
		token, ok := extractBearer(tc.header)
		assert.Equal(t, tc.ok, ok, "header %q", tc.header)
		assert.Equal(t, tc.token, token, "header %q", tc.header)
	}
}

func TestJWTMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/courses", nil)

	JWT(validator)(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	// The absence path never reaches the validator.
	assert.False(t, validator.called)
}

func TestJWTInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{err: errors.New("invalid token")}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/courses", nil)
	c.Request.Header.Set("Authorization", "Bearer expired-token")

	JWT(validator)(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, validator.called)
}

func TestJWTValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/courses", nil)
	c.Request.Header.Set("Authorization", "Bearer good-token")

	JWT(validator)(c)
	require.False(t, c.IsAborted())

	value, exists := c.Get(ContextUserKey)
	require.True(t, exists)
	assert.Equal(t, "u1", value.(*models.JWTClaims).UserID)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/users/u2", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	RequireAdmin()(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
