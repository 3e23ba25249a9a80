package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// userStore is the slice of the user repository the auth service needs.
type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthService implements signup, login, and session credential handling.
// Credentials are stateless: once issued they remain valid until expiry, so
// role or status changes take effect only on the next login.
type AuthService struct {
	users   userStore
	jwtCfg  config.JWTConfig
	logger  *zap.Logger
	metrics *MetricsService
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users userStore, jwtCfg config.JWTConfig, logger *zap.Logger, metrics *MetricsService) *AuthService {
	return &AuthService{users: users, jwtCfg: jwtCfg, logger: logger, metrics: metrics}
}

// Signup registers a new account. Students are approved immediately and
// receive a session credential; instructor accounts start pending and must
// wait for administrative review before they can log in.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be STUDENT or INSTRUCTOR")
	}

	status := models.StatusApproved
	if role == models.RoleInstructor {
		status = models.StatusPending
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Status:       status,
	}
	if req.TradingLevel != nil {
		// Level labels are stored canonical lowercase; room gating compares
		// them byte for byte.
		level := strings.ToLower(strings.TrimSpace(*req.TradingLevel))
		if !authz.ValidLevel(level) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "trading_level must be beginner, intermediate, or advanced")
		}
		user.TradingLevel = &level
		user.Onboarded = true
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.FromError(err)
	}

	s.audit(ctx, user.ID, models.AuditActionSignup, "auth", req.IP, req.UserAgent)
	s.logger.Info("account created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)))

	resp := &models.AuthResponse{User: userInfo(user)}
	if user.Status != models.StatusApproved {
		// Pending accounts get no credential; the caller reports the
		// review requirement.
		return resp, nil
	}

	token, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	resp.AccessToken = token
	resp.ExpiresIn = int64(s.jwtCfg.Expiration.Seconds())
	resp.IssuedAt = issuedAt
	return resp, nil
}

// Login authenticates credentials and issues a session token. Unknown email
// and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.FromError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	switch user.Status {
	case models.StatusApproved:
	case models.StatusPending:
		return nil, appErrors.ErrPendingApproval
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account has been rejected")
	}

	token, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, "auth", req.IP, req.UserAgent)
	if s.metrics != nil {
		s.metrics.IncLogin(string(user.Role))
	}

	return &models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtCfg.Expiration.Seconds()),
		User:        userInfo(user),
		IssuedAt:    issuedAt,
	}, nil
}

// ChangePassword verifies the current password and replaces the stored hash.
// Outstanding session credentials stay valid until they expire.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.FromError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.FromError(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.FromError(err)
	}

	s.audit(ctx, user.ID, models.AuditActionPasswordChange, "auth", "", "")
	return nil
}

// Me returns the authenticated user's current profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return user, nil
}

// generateAccessToken signs an HS256 credential carrying the user's identity
// and role. An unset signing secret is a deployment fault surfaced at
// issuance rather than papered over with a default.
func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	if s.jwtCfg.Secret == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrConfiguration, "session credential signing secret is not configured")
	}

	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.FromError(err)
	}
	if s.metrics != nil {
		s.metrics.IncTokenIssued()
	}
	return signed, now, nil
}

// ValidateToken parses and verifies a session credential. Expired, malformed,
// tampered, and wrongly-signed tokens all fail with the same message so the
// response leaks nothing about which check tripped.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid || s.jwtCfg.Secret == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action, resource, ip, userAgent string) {
	entry := &models.AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  resource,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		Status:   user.Status,
	}
}
