package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// userAdminStore covers the user repository surface needed for account
// administration.
type userAdminStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	UpdateLearningLevel(ctx context.Context, id, level string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService implements account administration: listing, review, promotion,
// level assignment, and deletion. Every mutation re-checks the authorization
// policy against a fresh snapshot of the target.
type UserService struct {
	users   userAdminStore
	logger  *zap.Logger
	metrics *MetricsService
}

// NewUserService creates a new instance of UserService.
func NewUserService(users userAdminStore, logger *zap.Logger, metrics *MetricsService) *UserService {
	return &UserService{users: users, logger: logger, metrics: metrics}
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, actor authz.Principal, filter models.UserFilter) ([]models.User, int, error) {
	if err := s.authorize(actor, authz.UserApprove, authz.Resource{}); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, filter)
}

// Get returns a single account.
func (s *UserService) Get(ctx context.Context, actor authz.Principal, id string) (*models.User, error) {
	if actor.ID != id {
		if err := s.authorize(actor, authz.UserApprove, authz.Resource{}); err != nil {
			return nil, err
		}
	}
	return s.findUser(ctx, id)
}

// Approve transitions a pending account to approved.
func (s *UserService) Approve(ctx context.Context, actor authz.Principal, id string) (*models.User, error) {
	return s.review(ctx, actor, id, models.StatusApproved)
}

// Reject transitions a pending account to rejected.
func (s *UserService) Reject(ctx context.Context, actor authz.Principal, id string) (*models.User, error) {
	return s.review(ctx, actor, id, models.StatusRejected)
}

func (s *UserService) review(ctx context.Context, actor authz.Principal, id string, status models.UserStatus) (*models.User, error) {
	if err := s.authorize(actor, authz.UserApprove, authz.Resource{}); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account is not pending review")
	}

	if err := s.users.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.FromError(err)
	}
	user.Status = status

	s.auditChange(ctx, actor.ID, models.AuditActionApproval, id)
	s.logger.Info("account reviewed",
		zap.String("user_id", id),
		zap.String("status", string(status)),
		zap.String("reviewed_by", actor.ID))
	return user, nil
}

// Promote changes an account's role. Outstanding session credentials keep
// their issued role until expiry; the new role applies from the next login.
func (s *UserService) Promote(ctx context.Context, actor authz.Principal, id string, role models.UserRole) (*models.User, error) {
	switch role {
	case models.RoleStudent, models.RoleInstructor, models.RoleAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be STUDENT, INSTRUCTOR, or ADMIN")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.UserPromote, authz.Resource{ID: user.ID, TargetRole: user.Role}); err != nil {
		return nil, err
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, appErrors.FromError(err)
	}
	user.Role = role

	s.auditChange(ctx, actor.ID, models.AuditActionPromotion, id)
	s.logger.Info("account role changed",
		zap.String("user_id", id),
		zap.String("role", string(role)),
		zap.String("changed_by", actor.ID))
	return user, nil
}

// AssignLevel sets a student's explicit learning level. Labels are stored
// canonical lowercase.
func (s *UserService) AssignLevel(ctx context.Context, actor authz.Principal, id, level string) (*models.User, error) {
	if err := s.authorize(actor, authz.UserApprove, authz.Resource{}); err != nil {
		return nil, err
	}

	level = strings.ToLower(strings.TrimSpace(level))
	if !authz.ValidLevel(level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be beginner, intermediate, or advanced")
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "learning levels apply to students only")
	}

	if err := s.users.UpdateLearningLevel(ctx, id, level); err != nil {
		return nil, appErrors.FromError(err)
	}
	user.LearningLevel = &level
	return user, nil
}

// Delete removes an account permanently. The policy blocks self-deletion for
// everyone and reserves administrator deletion to superadmins.
func (s *UserService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(actor, authz.UserDelete, authz.Resource{ID: user.ID, TargetRole: user.Role}); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.FromError(err)
	}

	s.auditChange(ctx, actor.ID, models.AuditActionDeletion, id)
	s.logger.Info("account deleted",
		zap.String("user_id", id),
		zap.String("deleted_by", actor.ID))
	return nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return user, nil
}

func (s *UserService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}

func (s *UserService) auditChange(ctx context.Context, actorID, action, targetID string) {
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &targetID,
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
