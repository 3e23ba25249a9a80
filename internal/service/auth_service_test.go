package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	audits  []*models.AuditLog
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: map[string]*models.User{},
		byID:    map[string]*models.User{},
	}
}

func (f *fakeUserStore) add(user *models.User) {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "generated-" + user.Email
	}
	f.add(user)
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if user, ok := f.byID[id]; ok {
		user.LastLogin = &ts
	}
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	if user, ok := f.byID[id]; ok {
		user.PasswordHash = hash
	}
	return nil
}

func (f *fakeUserStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, log)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "test-secret",
		Expiration: 7 * 24 * time.Hour,
		Issuer:     "trading-academy-api",
	}
}

func seedUser(t *testing.T, store *fakeUserStore, email, password string, role models.UserRole, status models.UserStatus) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Status:       status,
	}
	store.add(user)
	return user
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "student@example.com", "secret123", models.RoleStudent, models.StatusApproved)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(7*24*3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-student@example.com", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "student@example.com", "secret123", models.RoleStudent, models.StatusApproved)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	_, errWrong := svc.Login(context.Background(), models.LoginRequest{
		Email: "student@example.com", Password: "nope",
	})
	_, errUnknown := svc.Login(context.Background(), models.LoginRequest{
		Email: "ghost@example.com", Password: "nope",
	})

	require.Error(t, errWrong)
	require.Error(t, errUnknown)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.ErrorIs(t, errWrong, appErrors.ErrInvalidCredentials)
}

func TestLoginPendingInstructorRejected(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "coach@example.com", "secret123", models.RoleInstructor, models.StatusPending)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "coach@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, appErrors.ErrPendingApproval)
}

func TestLoginMissingSecretIsConfigurationError(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "student@example.com", "secret123", models.RoleStudent, models.StatusApproved)

	cfg := testJWTConfig()
	cfg.Secret = ""
	svc := NewAuthService(store, cfg, zap.NewNop(), nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "student@example.com", Password: "secret123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "CONFIGURATION_ERROR", appErr.Code)
}

func TestValidateTokenUniformFailure(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "student@example.com", "secret123", models.RoleStudent, models.StatusApproved)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "student@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Secret = "another-secret"
	otherSvc := NewAuthService(store, otherCfg, zap.NewNop(), nil)

	_, errGarbage := svc.ValidateToken("not-a-token")
	_, errTampered := svc.ValidateToken(resp.AccessToken + "x")
	_, errWrongKey := otherSvc.ValidateToken(resp.AccessToken)

	for _, err := range []error{errGarbage, errTampered, errWrongKey} {
		require.Error(t, err)
		assert.Equal(t, "invalid token", err.Error())
	}
}

func TestValidateTokenExpired(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "student@example.com", "secret123", models.RoleStudent, models.StatusApproved)

	cfg := testJWTConfig()
	cfg.Expiration = -time.Minute
	svc := NewAuthService(store, cfg, zap.NewNop(), nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "student@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "invalid token", err.Error())
}

func TestSignupStudentAutoApproved(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	level := "Intermediate"
	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:        "New.Student@Example.com",
		Password:     "secret123",
		FullName:     "New Student",
		TradingLevel: &level,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.StatusApproved, resp.User.Status)

	stored := store.byEmail["new.student@example.com"]
	require.NotNil(t, stored)
	require.NotNil(t, stored.TradingLevel)
	// Labels are canonicalized before storage.
	assert.Equal(t, "intermediate", *stored.TradingLevel)
}

func TestSignupInstructorPendingGetsNoToken(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	resp, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "coach@example.com",
		Password: "secret123",
		FullName: "Coach",
		Role:     "INSTRUCTOR",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.AccessToken)
	assert.Equal(t, models.StatusPending, resp.User.Status)
}

func TestSignupDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "taken@example.com", "secret123", models.RoleStudent, models.StatusApproved)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Email:    "taken@example.com",
		Password: "secret123",
		FullName: "Dup",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	store := newFakeUserStore()
	user := seedUser(t, store, "student@example.com", "oldpass1", models.RoleStudent, models.StatusApproved)
	svc := NewAuthService(store, testJWTConfig(), zap.NewNop(), nil)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "newpass1",
	})
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "oldpass1", NewPassword: "newpass1",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email: "student@example.com", Password: "newpass1",
	})
	assert.NoError(t, err)
}
