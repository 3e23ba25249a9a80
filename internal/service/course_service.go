package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
)

// courseStore covers the course repository surface used by the service.
type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	UpdateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, id string) error
	MarkLessonComplete(ctx context.Context, progress *models.LessonProgress) error
	CountCompletedLessons(ctx context.Context, courseID, userID string) (completed, total int, err error)
}

// cacheStore is the JSON cache surface shared by read-heavy services.
type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCachePrefix = "catalog:courses"

// CourseListResult bundles a catalog page with its pagination metadata.
type CourseListResult struct {
	Courses    []models.Course   `json:"courses"`
	Pagination models.Pagination `json:"pagination"`
}

// CourseService implements the course catalog and lesson management.
type CourseService struct {
	courses courseStore
	cache   cacheStore
	cfg     config.CatalogConfig
	logger  *zap.Logger
	metrics *MetricsService
}

// NewCourseService creates a new instance of CourseService.
func NewCourseService(courses courseStore, cache cacheStore, cfg config.CatalogConfig, logger *zap.Logger, metrics *MetricsService) *CourseService {
	return &CourseService{courses: courses, cache: cache, cfg: cfg, logger: logger, metrics: metrics}
}

// Create adds a course owned by the creating instructor.
func (s *CourseService) Create(ctx context.Context, actor authz.Principal, course *models.Course) (*models.Course, error) {
	if err := s.authorize(actor, authz.CourseCreate, authz.Resource{}); err != nil {
		return nil, err
	}

	course.Level = strings.ToLower(strings.TrimSpace(course.Level))
	if course.Level != "" && !authz.ValidLevel(course.Level) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be beginner, intermediate, or advanced")
	}
	course.CreatedBy = actor.ID

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return s.findCourse(ctx, id)
}

// List returns the catalog page, served from cache when possible. Cache keys
// include every filter dimension so pages never bleed into each other.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) (*CourseListResult, error) {
	key := catalogCacheKey(filter)

	var cached CourseListResult
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	result := &CourseListResult{
		Courses: courses,
		Pagination: models.Pagination{
			Page:       max(filter.Page, 1),
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}
	if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache catalog page", zap.Error(err))
	}
	return result, nil
}

// Update rewrites a course. Ownership is checked against a fresh snapshot.
func (s *CourseService) Update(ctx context.Context, actor authz.Principal, id string, update *models.Course) (*models.Course, error) {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.CourseUpdate, authz.Resource{ID: course.ID, OwnerID: course.CreatedBy}); err != nil {
		return nil, err
	}

	if update.Title != "" {
		course.Title = update.Title
	}
	if update.Description != "" {
		course.Description = update.Description
	}
	if update.Level != "" {
		level := strings.ToLower(strings.TrimSpace(update.Level))
		if !authz.ValidLevel(level) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "level must be beginner, intermediate, or advanced")
		}
		course.Level = level
	}
	course.Published = update.Published

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.FromError(err)
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Delete removes a course with its lessons and tasks.
func (s *CourseService) Delete(ctx context.Context, actor authz.Principal, id string) error {
	course, err := s.findCourse(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(actor, authz.CourseDelete, authz.Resource{ID: course.ID, OwnerID: course.CreatedBy}); err != nil {
		return err
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	s.invalidateCatalog(ctx)
	return nil
}

// ListLessons returns a course's lessons in order.
func (s *CourseService) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.courses.ListLessons(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return lessons, nil
}

// CreateLesson appends a lesson to a course. Lesson management follows the
// course's ownership.
func (s *CourseService) CreateLesson(ctx context.Context, actor authz.Principal, lesson *models.Lesson) (*models.Lesson, error) {
	course, err := s.findCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.LessonManage, authz.Resource{ID: course.ID, OwnerID: course.CreatedBy}); err != nil {
		return nil, err
	}

	lesson.CreatedBy = actor.ID
	if err := s.courses.CreateLesson(ctx, lesson); err != nil {
		return nil, appErrors.FromError(err)
	}
	return lesson, nil
}

// UpdateLesson rewrites a lesson.
func (s *CourseService) UpdateLesson(ctx context.Context, actor authz.Principal, id string, update *models.Lesson) (*models.Lesson, error) {
	lesson, err := s.findLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	course, err := s.findCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(actor, authz.LessonManage, authz.Resource{ID: course.ID, OwnerID: course.CreatedBy}); err != nil {
		return nil, err
	}

	if update.Title != "" {
		lesson.Title = update.Title
	}
	if update.Content != "" {
		lesson.Content = update.Content
	}
	if update.VideoURL != nil {
		lesson.VideoURL = update.VideoURL
	}
	if update.Position > 0 {
		lesson.Position = update.Position
	}

	if err := s.courses.UpdateLesson(ctx, lesson); err != nil {
		return nil, appErrors.FromError(err)
	}
	return lesson, nil
}

// DeleteLesson removes a lesson.
func (s *CourseService) DeleteLesson(ctx context.Context, actor authz.Principal, id string) error {
	lesson, err := s.findLesson(ctx, id)
	if err != nil {
		return err
	}
	course, err := s.findCourse(ctx, lesson.CourseID)
	if err != nil {
		return err
	}

	if err := s.authorize(actor, authz.LessonManage, authz.Resource{ID: course.ID, OwnerID: course.CreatedBy}); err != nil {
		return err
	}
	if err := s.courses.DeleteLesson(ctx, id); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

// CompleteLesson records the student's completion. Idempotent.
func (s *CourseService) CompleteLesson(ctx context.Context, actor authz.Principal, lessonID string) error {
	if err := s.authorize(actor, authz.LessonComplete, authz.Resource{}); err != nil {
		return err
	}
	if _, err := s.findLesson(ctx, lessonID); err != nil {
		return err
	}
	progress := &models.LessonProgress{LessonID: lessonID, UserID: actor.ID}
	if err := s.courses.MarkLessonComplete(ctx, progress); err != nil {
		return appErrors.FromError(err)
	}
	return nil
}

// Progress reports how far a student has advanced through a course.
func (s *CourseService) Progress(ctx context.Context, courseID, userID string) (completed, total int, err error) {
	if _, err := s.findCourse(ctx, courseID); err != nil {
		return 0, 0, err
	}
	completed, total, err = s.courses.CountCompletedLessons(ctx, courseID, userID)
	if err != nil {
		return 0, 0, appErrors.FromError(err)
	}
	return completed, total, nil
}

func (s *CourseService) findCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return course, nil
}

func (s *CourseService) findLesson(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.courses.FindLessonByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return lesson, nil
}

func (s *CourseService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, catalogCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

func catalogCacheKey(filter models.CourseFilter) string {
	published := "any"
	if filter.Published != nil {
		published = fmt.Sprintf("%t", *filter.Published)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d:%d",
		catalogCachePrefix, filter.Level, published, filter.Search, filter.Page, filter.PageSize)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
