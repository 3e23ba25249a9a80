package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// communityStore covers the community repository surface used by the service.
type communityStore interface {
	FindRoomByID(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	FindMessageByID(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	DeleteMessage(ctx context.Context, id string) error
}

const roomsCacheKey = "community:rooms"

// CommunityService implements level-gated chat rooms. Students see only the
// rooms matching their resolved learning level; staff see everything.
type CommunityService struct {
	rooms   communityStore
	cache   cacheStore
	cfg     config.CommunityConfig
	logger  *zap.Logger
	metrics *MetricsService
}

// NewCommunityService creates a new instance of CommunityService.
func NewCommunityService(rooms communityStore, cache cacheStore, cfg config.CommunityConfig, logger *zap.Logger, metrics *MetricsService) *CommunityService {
	return &CommunityService{rooms: rooms, cache: cache, cfg: cfg, logger: logger, metrics: metrics}
}

// CreateRoom adds a chat room. The level label is canonicalized to lowercase
// before storage; an empty label leaves the room open to everyone.
func (s *CommunityService) CreateRoom(ctx context.Context, actor authz.Principal, room *models.Room) (*models.Room, error) {
	if err := s.authorize(actor, authz.RoomCreate, authz.Resource{}); err != nil {
		return nil, err
	}

	room.Level = strings.ToLower(strings.TrimSpace(room.Level))
	if room.Level != "" && !authz.ValidLevel(room.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be beginner, intermediate, or advanced")
	}
	room.CreatedBy = actor.ID

	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return nil, appErrors.FromError(err)
	}
	if err := s.cache.Delete(ctx, roomsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate rooms cache", zap.Error(err))
	}
	return room, nil
}

// ListRooms returns the rooms visible to the actor. The full list is cached;
// visibility filtering happens per request against the actor's level.
func (s *CommunityService) ListRooms(ctx context.Context, actor authz.Principal) ([]models.Room, error) {
	var all []models.Room
	if err := s.cache.Get(ctx, roomsCacheKey, &all); err != nil {
		var dbErr error
		all, dbErr = s.rooms.ListRooms(ctx)
		if dbErr != nil {
			return nil, appErrors.FromError(dbErr)
		}
		if err := s.cache.Set(ctx, roomsCacheKey, all, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache rooms", zap.Error(err))
		}
	}

	visible := make([]models.Room, 0, len(all))
	for _, room := range all {
		if authz.CanAccessRoom(actor.Role, actor.Level, room.Level) {
			visible = append(visible, room)
		}
	}
	return visible, nil
}

// GetRoom returns a room the actor may enter.
func (s *CommunityService) GetRoom(ctx context.Context, actor authz.Principal, id string) (*models.Room, error) {
	room, err := s.findRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, authz.RoomView, authz.Resource{ID: room.ID, RoomLevel: room.Level}); err != nil {
		return nil, err
	}
	return room, nil
}

// ListMessages pages through a room's history, gated on room access.
func (s *CommunityService) ListMessages(ctx context.Context, actor authz.Principal, filter models.MessageFilter) ([]models.Message, error) {
	room, err := s.findRoom(ctx, filter.RoomID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, authz.RoomView, authz.Resource{ID: room.ID, RoomLevel: room.Level}); err != nil {
		return nil, err
	}

	messages, err := s.rooms.ListMessages(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return messages, nil
}

// PostMessage appends a message to a room the actor may enter.
func (s *CommunityService) PostMessage(ctx context.Context, actor authz.Principal, roomID, body string) (*models.Message, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, authz.MessagePost, authz.Resource{ID: room.ID, RoomLevel: room.Level}); err != nil {
		return nil, err
	}

	msg := &models.Message{RoomID: roomID, UserID: actor.ID, Body: body}
	if err := s.rooms.CreateMessage(ctx, msg); err != nil {
		return nil, appErrors.FromError(err)
	}
	return msg, nil
}

// DeleteMessage removes a message: authors delete their own, moderators any.
func (s *CommunityService) DeleteMessage(ctx context.Context, actor authz.Principal, id string) error {
	msg, err := s.rooms.FindMessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.FromError(err)
	}

	if err := s.authorize(actor, authz.MessageDelete, authz.Resource{ID: msg.ID, OwnerID: msg.UserID}); err != nil {
		return err
	}

	if err := s.rooms.DeleteMessage(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

func (s *CommunityService) findRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindRoomByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return room, nil
}

func (s *CommunityService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}
