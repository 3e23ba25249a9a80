package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// classStore covers the class repository surface used by the service.
type classStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassEvent, error)
	List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error)
	Create(ctx context.Context, event *models.ClassEvent) error
	Update(ctx context.Context, event *models.ClassEvent) error
	Delete(ctx context.Context, id string) error
}

// ClassService implements the live-class schedule. The schedule is readable
// by every authenticated user; management follows ownership.
type ClassService struct {
	classes classStore
	logger  *zap.Logger
	metrics *MetricsService
}

// NewClassService creates a new instance of ClassService.
func NewClassService(classes classStore, logger *zap.Logger, metrics *MetricsService) *ClassService {
	return &ClassService{classes: classes, logger: logger, metrics: metrics}
}

// List returns scheduled events within the window.
func (s *ClassService) List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error) {
	events, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return events, nil
}

// Get returns a single event.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassEvent, error) {
	return s.findEvent(ctx, id)
}

// Create schedules a new event.
func (s *ClassService) Create(ctx context.Context, actor authz.Principal, event *models.ClassEvent) (*models.ClassEvent, error) {
	if err := s.authorize(actor, authz.ClassCreate, authz.Resource{}); err != nil {
		return nil, err
	}
	if !event.EndsAt.After(event.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must be after starts_at")
	}

	event.CreatedBy = actor.ID
	if err := s.classes.Create(ctx, event); err != nil {
		return nil, appErrors.FromError(err)
	}
	return event, nil
}

// Update rewrites an event's schedule.
func (s *ClassService) Update(ctx context.Context, actor authz.Principal, id string, update *models.ClassEvent) (*models.ClassEvent, error) {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.ClassManage, authz.Resource{ID: event.ID, OwnerID: event.CreatedBy}); err != nil {
		return nil, err
	}

	if update.Title != "" {
		event.Title = update.Title
	}
	if update.Description != "" {
		event.Description = update.Description
	}
	if update.CourseID != nil {
		event.CourseID = update.CourseID
	}
	if update.MeetingURL != nil {
		event.MeetingURL = update.MeetingURL
	}
	if !update.StartsAt.IsZero() {
		event.StartsAt = update.StartsAt
	}
	if !update.EndsAt.IsZero() {
		event.EndsAt = update.EndsAt
	}
	if !event.EndsAt.After(event.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must be after starts_at")
	}

	if err := s.classes.Update(ctx, event); err != nil {
		return nil, appErrors.FromError(err)
	}
	return event, nil
}

// Delete removes an event from the schedule.
func (s *ClassService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(actor, authz.ClassManage, authz.Resource{ID: event.ID, OwnerID: event.CreatedBy}); err != nil {
		return err
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

func (s *ClassService) findEvent(ctx context.Context, id string) (*models.ClassEvent, error) {
	event, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return event, nil
}

func (s *ClassService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}
