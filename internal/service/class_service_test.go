package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/models"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

type fakeClassStore struct {
	events map[string]*models.ClassEvent
}

func newFakeClassStore() *fakeClassStore {
	return &fakeClassStore{events: map[string]*models.ClassEvent{}}
}

func (f *fakeClassStore) FindByID(_ context.Context, id string) (*models.ClassEvent, error) {
	if e, ok := f.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClassStore) List(_ context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error) {
	var out []models.ClassEvent
	for _, e := range f.events {
		if filter.From != nil && e.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.StartsAt.After(*filter.To) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeClassStore) Create(_ context.Context, event *models.ClassEvent) error {
	if event.ID == "" {
		event.ID = "cls-" + event.Title
	}
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeClassStore) Update(_ context.Context, event *models.ClassEvent) error {
	copied := *event
	f.events[event.ID] = &copied
	return nil
}

func (f *fakeClassStore) Delete(_ context.Context, id string) error {
	delete(f.events, id)
	return nil
}

func newClassService(store *fakeClassStore) *ClassService {
	return NewClassService(store, zap.NewNop(), nil)
}

func TestScheduleClassValidatesWindow(t *testing.T) {
	svc := newClassService(newFakeClassStore())
	now := time.Now().UTC()

	_, err := svc.Create(context.Background(), instructorPrincipal("i1"), &models.ClassEvent{
		Title:    "Live market review",
		StartsAt: now.Add(2 * time.Hour),
		EndsAt:   now.Add(time.Hour),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestStudentCannotScheduleClass(t *testing.T) {
	svc := newClassService(newFakeClassStore())
	now := time.Now().UTC()

	_, err := svc.Create(context.Background(), studentPrincipal("s1"), &models.ClassEvent{
		Title:    "Rogue session",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestClassManagementFollowsOwnership(t *testing.T) {
	store := newFakeClassStore()
	svc := newClassService(store)
	now := time.Now().UTC()

	created, err := svc.Create(context.Background(), instructorPrincipal("i1"), &models.ClassEvent{
		Title:    "Risk management workshop",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "i1", created.CreatedBy)

	// Another instructor cannot reschedule it; an admin can.
	_, err = svc.Update(context.Background(), instructorPrincipal("i2"), created.ID, &models.ClassEvent{Title: "Taken over"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	updated, err := svc.Update(context.Background(), adminOf("a1", models.RoleAdmin), created.ID, &models.ClassEvent{Title: "Rescheduled workshop"})
	require.NoError(t, err)
	assert.Equal(t, "Rescheduled workshop", updated.Title)

	require.NoError(t, svc.Delete(context.Background(), instructorPrincipal("i1"), created.ID))
}

func TestClassListWindowFilter(t *testing.T) {
	store := newFakeClassStore()
	svc := newClassService(store)
	now := time.Now().UTC()

	store.events["past"] = &models.ClassEvent{ID: "past", StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-47 * time.Hour)}
	store.events["soon"] = &models.ClassEvent{ID: "soon", StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)}

	from := now
	events, err := svc.List(context.Background(), models.ClassEventFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "soon", events[0].ID)
}
