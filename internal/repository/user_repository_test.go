package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduvance/trading-academy-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func userRows(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "role", "status",
		"learning_level", "trading_level", "onboarded", "last_login",
		"created_at", "updated_at",
	}).AddRow(
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.Status,
		u.LearningLevel, u.TradingLevel, u.Onboarded, u.LastLogin,
		u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	want := models.User{
		ID:           "u1",
		Email:        "trader@example.com",
		PasswordHash: "hash",
		FullName:     "Ada Trader",
		Role:         models.RoleStudent,
		Status:       models.StatusApproved,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs(want.Email).
		WillReturnRows(userRows(want))

	got, err := repo.FindByEmail(context.Background(), want.Email)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, models.RoleStudent, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Email:        "new@example.com",
		PasswordHash: "hash",
		FullName:     "New Student",
		Role:         models.RoleStudent,
		Status:       models.StatusApproved,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET status = \$2`).
		WithArgs("u1", models.StatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "u1", models.StatusApproved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFiltersByRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	role := models.RoleInstructor
	now := time.Now().UTC()
	rows := userRows(models.User{
		ID: "i1", Email: "coach@example.com", FullName: "Coach",
		Role: role, Status: models.StatusApproved, CreatedAt: now, UpdatedAt: now,
	})

	mock.ExpectQuery(`SELECT .+ FROM users WHERE 1=1 AND role = \$1 ORDER BY created_at DESC`).
		WithArgs(role).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1 AND role = \$1`).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListRejectsUnknownSortColumn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	// An unrecognized sort column falls back to created_at.
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnRows(userRows(models.User{ID: "u1", Role: models.RoleStudent, Status: models.StatusApproved}))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.UserFilter{SortBy: "password_hash; DROP TABLE users"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAuditLog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	log := &models.AuditLog{
		UserID:   &userID,
		Action:   models.AuditActionLogin,
		Resource: "auth",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
