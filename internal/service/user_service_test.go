package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

type fakeUserAdminStore struct {
	users  map[string]*models.User
	audits []*models.AuditLog
}

func newFakeUserAdminStore(users ...*models.User) *fakeUserAdminStore {
	store := &fakeUserAdminStore{users: map[string]*models.User{}}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (f *fakeUserAdminStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserAdminStore) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (f *fakeUserAdminStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	if user, ok := f.users[id]; ok {
		user.Status = status
	}
	return nil
}

func (f *fakeUserAdminStore) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	if user, ok := f.users[id]; ok {
		user.Role = role
	}
	return nil
}

func (f *fakeUserAdminStore) UpdateLearningLevel(_ context.Context, id, level string) error {
	if user, ok := f.users[id]; ok {
		user.LearningLevel = &level
	}
	return nil
}

func (f *fakeUserAdminStore) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserAdminStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.audits = append(f.audits, log)
	return nil
}

func adminOf(id string, role models.UserRole) authz.Principal {
	return authz.Principal{ID: id, Role: role}
}

func TestApproveTransitionsPendingAccount(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "i1", Role: models.RoleInstructor, Status: models.StatusPending},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	user, err := svc.Approve(context.Background(), adminOf("a1", models.RoleAdmin), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, user.Status)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.AuditActionApproval, store.audits[0].Action)
}

func TestApproveNonPendingConflicts(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "s1", Role: models.RoleStudent, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	_, err := svc.Approve(context.Background(), adminOf("a1", models.RoleAdmin), "s1")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestPromoteRequiresSuperadmin(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "i1", Role: models.RoleInstructor, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	_, err := svc.Promote(context.Background(), adminOf("a1", models.RoleAdmin), "i1", models.RoleAdmin)
	require.Error(t, err)

	user, err := svc.Promote(context.Background(), adminOf("sa1", models.RoleSuperAdmin), "i1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestDeleteSelfIsAlwaysBlocked(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "sa1", Role: models.RoleSuperAdmin, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	// Even a superadmin cannot delete their own account.
	err := svc.Delete(context.Background(), adminOf("sa1", models.RoleSuperAdmin), "sa1")
	require.Error(t, err)
	assert.Equal(t, "Cannot delete your own account.", err.Error())
}

func TestDeleteAdminRequiresSuperadmin(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "a2", Role: models.RoleAdmin, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	err := svc.Delete(context.Background(), adminOf("a1", models.RoleAdmin), "a2")
	require.Error(t, err)
	assert.Equal(t, "Only a superadmin may delete an administrator account.", err.Error())

	require.NoError(t, svc.Delete(context.Background(), adminOf("sa1", models.RoleSuperAdmin), "a2"))
	_, err = store.FindByID(context.Background(), "a2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteStudentByAdmin(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "s1", Role: models.RoleStudent, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)

	require.NoError(t, svc.Delete(context.Background(), adminOf("a1", models.RoleAdmin), "s1"))
}

func TestAssignLevelCanonicalizesAndValidates(t *testing.T) {
	store := newFakeUserAdminStore(
		&models.User{ID: "s1", Role: models.RoleStudent, Status: models.StatusApproved},
	)
	svc := NewUserService(store, zap.NewNop(), nil)
	actor := adminOf("a1", models.RoleAdmin)

	user, err := svc.AssignLevel(context.Background(), actor, "s1", "  Advanced ")
	require.NoError(t, err)
	require.NotNil(t, user.LearningLevel)
	assert.Equal(t, "advanced", *user.LearningLevel)

	_, err = svc.AssignLevel(context.Background(), actor, "s1", "expert")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestStudentCannotListAccounts(t *testing.T) {
	store := newFakeUserAdminStore()
	svc := NewUserService(store, zap.NewNop(), nil)

	_, _, err := svc.List(context.Background(), authz.Principal{ID: "s1", Role: models.RoleStudent}, models.UserFilter{})
	require.Error(t, err)
}
