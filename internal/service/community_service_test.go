package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// fakeCache is an in-memory stand-in for the Redis-backed cache.
type fakeCache struct {
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(_ context.Context, _ string) error {
	f.entries = map[string][]byte{}
	return nil
}

type fakeCommunityStore struct {
	rooms    map[string]*models.Room
	messages map[string]*models.Message
}

func newFakeCommunityStore() *fakeCommunityStore {
	return &fakeCommunityStore{
		rooms:    map[string]*models.Room{},
		messages: map[string]*models.Message{},
	}
}

func (f *fakeCommunityStore) FindRoomByID(_ context.Context, id string) (*models.Room, error) {
	if room, ok := f.rooms[id]; ok {
		return room, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCommunityStore) ListRooms(_ context.Context) ([]models.Room, error) {
	var out []models.Room
	for _, room := range f.rooms {
		out = append(out, *room)
	}
	return out, nil
}

func (f *fakeCommunityStore) CreateRoom(_ context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = "room-" + room.Name
	}
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeCommunityStore) FindMessageByID(_ context.Context, id string) (*models.Message, error) {
	if msg, ok := f.messages[id]; ok {
		return msg, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCommunityStore) ListMessages(_ context.Context, filter models.MessageFilter) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range f.messages {
		if msg.RoomID == filter.RoomID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeCommunityStore) CreateMessage(_ context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = "msg-" + msg.Body
	}
	f.messages[msg.ID] = msg
	return nil
}

func (f *fakeCommunityStore) DeleteMessage(_ context.Context, id string) error {
	delete(f.messages, id)
	return nil
}

func newCommunityService(store *fakeCommunityStore) *CommunityService {
	cfg := config.CommunityConfig{Enabled: true, CacheTTL: time.Minute}
	return NewCommunityService(store, newFakeCache(), cfg, zap.NewNop(), nil)
}

func admin() authz.Principal {
	return authz.Principal{ID: "a1", Role: models.RoleAdmin}
}

func studentAt(level string) authz.Principal {
	return authz.Principal{ID: "s-" + level, Role: models.RoleStudent, Level: level}
}

func TestRoomAccessMatchesLevelExactly(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, admin(), &models.Room{Name: "Intermediate Floor", Level: "Intermediate"})
	require.NoError(t, err)
	// The label is canonicalized at the write boundary.
	assert.Equal(t, "intermediate", room.Level)

	_, err = svc.GetRoom(ctx, studentAt("intermediate"), room.ID)
	assert.NoError(t, err)

	// No hierarchy: the advanced student is not "above" the room, they are
	// simply not a member of it.
	_, err = svc.GetRoom(ctx, studentAt("advanced"), room.ID)
	require.Error(t, err)

	_, err = svc.GetRoom(ctx, studentAt("beginner"), room.ID)
	require.Error(t, err)

	// Staff bypass the gate entirely.
	_, err = svc.GetRoom(ctx, admin(), room.ID)
	assert.NoError(t, err)
}

func TestOpenRoomAdmitsEveryone(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, admin(), &models.Room{Name: "Lounge"})
	require.NoError(t, err)

	for _, level := range []string{"beginner", "intermediate", "advanced"} {
		_, err := svc.GetRoom(ctx, studentAt(level), room.ID)
		assert.NoError(t, err, "level %s", level)
	}
}

func TestListRoomsFiltersByLevel(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, admin(), &models.Room{Name: "Beginners", Level: "beginner"})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, admin(), &models.Room{Name: "Advanced", Level: "advanced"})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, admin(), &models.Room{Name: "Lounge"})
	require.NoError(t, err)

	visible, err := svc.ListRooms(ctx, studentAt("beginner"))
	require.NoError(t, err)
	names := make([]string, 0, len(visible))
	for _, room := range visible {
		names = append(names, room.Name)
	}
	assert.ElementsMatch(t, []string{"Beginners", "Lounge"}, names)

	all, err := svc.ListRooms(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostMessageGatedByRoomLevel(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, admin(), &models.Room{Name: "Advanced", Level: "advanced"})
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, studentAt("beginner"), room.ID, "hello?")
	require.Error(t, err)

	msg, err := svc.PostMessage(ctx, studentAt("advanced"), room.ID, "breakout confirmed")
	require.NoError(t, err)
	assert.Equal(t, room.ID, msg.RoomID)
}

func TestDeleteMessageOwnerOrModerator(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, admin(), &models.Room{Name: "Lounge"})
	require.NoError(t, err)

	msg, err := svc.PostMessage(ctx, studentAt("beginner"), room.ID, "gm")
	require.NoError(t, err)

	// Another student cannot delete it.
	other := authz.Principal{ID: "s2", Role: models.RoleStudent, Level: "beginner"}
	require.Error(t, svc.DeleteMessage(ctx, other, msg.ID))

	// The author can.
	require.NoError(t, svc.DeleteMessage(ctx, studentAt("beginner"), msg.ID))

	msg2, err := svc.PostMessage(ctx, studentAt("beginner"), room.ID, "gm again")
	require.NoError(t, err)
	// So can an admin.
	require.NoError(t, svc.DeleteMessage(ctx, admin(), msg2.ID))
}

func TestStudentCannotCreateRoom(t *testing.T) {
	store := newFakeCommunityStore()
	svc := newCommunityService(store)

	_, err := svc.CreateRoom(context.Background(), studentAt("beginner"), &models.Room{Name: "Rogue"})
	require.Error(t, err)
}
