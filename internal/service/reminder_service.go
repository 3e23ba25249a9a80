package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/jobs"
)

// reminderStore covers the reminder repository surface used by the service.
type reminderStore interface {
	FindByID(ctx context.Context, id string) (*models.Reminder, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	Create(ctx context.Context, reminder *models.Reminder) error
	Update(ctx context.Context, reminder *models.Reminder) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	Delete(ctx context.Context, id string) error
}

const jobTypeReminder = "reminder.dispatch"

// ReminderService implements user-owned study reminders and the background
// dispatcher that fires them. Reminders are strictly private: only the owner
// can read or modify them, regardless of role.
type ReminderService struct {
	reminders reminderStore
	cfg       config.RemindersConfig
	logger    *zap.Logger
	metrics   *MetricsService

	queue  *jobs.Queue
	ticker *time.Ticker
	done   chan struct{}
}

// NewReminderService creates a new instance of ReminderService.
func NewReminderService(reminders reminderStore, cfg config.RemindersConfig, logger *zap.Logger, metrics *MetricsService) *ReminderService {
	s := &ReminderService{
		reminders: reminders,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
	s.queue = jobs.NewQueue("reminders", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Create adds a reminder for the actor.
func (s *ReminderService) Create(ctx context.Context, actor authz.Principal, reminder *models.Reminder) (*models.Reminder, error) {
	if reminder.RemindAt.Before(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remind_at must be in the future")
	}
	reminder.UserID = actor.ID
	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, appErrors.FromError(err)
	}
	return reminder, nil
}

// List returns the actor's reminders.
func (s *ReminderService) List(ctx context.Context, actor authz.Principal) ([]models.Reminder, error) {
	reminders, err := s.reminders.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return reminders, nil
}

// Update rewrites an unsent reminder owned by the actor.
func (s *ReminderService) Update(ctx context.Context, actor authz.Principal, id string, update *models.Reminder) (*models.Reminder, error) {
	reminder, err := s.findReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, authz.ReminderManage, authz.Resource{ID: reminder.ID, OwnerID: reminder.UserID}); err != nil {
		return nil, err
	}
	if reminder.SentAt != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reminder has already been sent")
	}

	if update.Title != "" {
		reminder.Title = update.Title
	}
	if update.Note != "" {
		reminder.Note = update.Note
	}
	if !update.RemindAt.IsZero() {
		reminder.RemindAt = update.RemindAt
	}

	if err := s.reminders.Update(ctx, reminder); err != nil {
		return nil, appErrors.FromError(err)
	}
	return reminder, nil
}

// Delete removes a reminder owned by the actor.
func (s *ReminderService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	reminder, err := s.findReminder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, authz.ReminderManage, authz.Resource{ID: reminder.ID, OwnerID: reminder.UserID}); err != nil {
		return err
	}
	if err := s.reminders.Delete(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

// Start launches the worker queue and the poll loop that feeds it.
func (s *ReminderService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
	s.ticker = time.NewTicker(s.cfg.PollInterval)
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-s.ticker.C:
				s.enqueueDue(ctx)
			}
		}
	}()
	s.logger.Info("reminder dispatcher started",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Int("workers", s.cfg.WorkerConcurrency))
}

// Stop halts polling and drains the workers.
func (s *ReminderService) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.queue.Stop()
}

func (s *ReminderService) enqueueDue(ctx context.Context) {
	due, err := s.reminders.ListDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		s.logger.Error("failed to poll due reminders", zap.Error(err))
		return
	}
	for _, reminder := range due {
		job := jobs.Job{ID: reminder.ID, Type: jobTypeReminder, Payload: reminder}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue reminder", zap.String("reminder_id", reminder.ID), zap.Error(err))
		}
	}
}

// dispatch marks a due reminder as sent. Delivery is a log line today; the
// MarkSent guard keeps redelivery idempotent if a job is retried.
func (s *ReminderService) dispatch(ctx context.Context, job jobs.Job) error {
	reminder, ok := job.Payload.(models.Reminder)
	if !ok {
		s.logger.Error("unexpected reminder payload", zap.String("job_id", job.ID))
		return nil
	}

	if err := s.reminders.MarkSent(ctx, reminder.ID, time.Now().UTC()); err != nil {
		return err
	}

	s.logger.Info("reminder dispatched",
		zap.String("reminder_id", reminder.ID),
		zap.String("user_id", reminder.UserID),
		zap.String("title", reminder.Title))
	if s.metrics != nil {
		s.metrics.IncReminderDispatched()
	}
	return nil
}

func (s *ReminderService) findReminder(ctx context.Context, id string) (*models.Reminder, error) {
	reminder, err := s.reminders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return reminder, nil
}

func (s *ReminderService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}
