package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/authz"
	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/export"
	"github.com/eduvance/trading-academy-api/pkg/storage"
)

// certificateStore covers the certificate repository surface used here.
type certificateStore interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]models.Certificate, error)
	Create(ctx context.Context, cert *models.Certificate) error
}

// certUserStore resolves the student and instructor names printed on the
// certificate.
type certUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// certCourseStore resolves the course and completion progress.
type certCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	CountCompletedLessons(ctx context.Context, courseID, userID string) (completed, total int, err error)
}

// CertificateService issues completion certificates: it verifies the student
// finished every lesson, renders the PDF, stores it, and hands out signed
// download URLs.
type CertificateService struct {
	certs    certificateStore
	users    certUserStore
	courses  certCourseStore
	renderer *export.CertificateRenderer
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	cfg      config.CertificatesConfig
	logger   *zap.Logger
	metrics  *MetricsService
}

// NewCertificateService creates a new instance of CertificateService.
func NewCertificateService(
	certs certificateStore,
	users certUserStore,
	courses certCourseStore,
	renderer *export.CertificateRenderer,
	files *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.CertificatesConfig,
	logger *zap.Logger,
	metrics *MetricsService,
) *CertificateService {
	return &CertificateService{
		certs:    certs,
		users:    users,
		courses:  courses,
		renderer: renderer,
		files:    files,
		signer:   signer,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Issue creates a certificate for a student who completed every lesson of a
// course. Issuance is idempotent per student and course.
func (s *CertificateService) Issue(ctx context.Context, actor authz.Principal, userID, courseID string) (*models.Certificate, error) {
	if err := s.authorize(actor, authz.CertificateIssue, authz.Resource{}); err != nil {
		return nil, err
	}

	student, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificates are issued to students only")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}

	if existing, err := s.certs.FindByUserAndCourse(ctx, userID, courseID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}

	completed, total, err := s.courses.CountCompletedLessons(ctx, courseID, userID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if total == 0 || completed < total {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("course not completed: %d of %d lessons done", completed, total))
	}

	issuer, err := s.users.FindByID(ctx, actor.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.FromError(err)
	}
	instructorName := ""
	if issuer != nil {
		instructorName = issuer.FullName
	}

	issuedAt := time.Now().UTC()
	serial := certificateSerial(issuedAt)

	pdf, err := s.renderer.Render(export.CertificateData{
		StudentName:    student.FullName,
		CourseTitle:    course.Title,
		Level:          course.Level,
		InstructorName: instructorName,
		IssuedAt:       issuedAt,
		SerialNumber:   serial,
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	relPath := fmt.Sprintf("%s/%s.pdf", issuedAt.Format("2006/01"), serial)
	if _, err := s.files.Save(relPath, pdf); err != nil {
		return nil, appErrors.FromError(err)
	}

	cert := &models.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: serial,
		FilePath:     relPath,
		IssuedBy:     actor.ID,
		IssuedAt:     issuedAt,
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		// Keep storage consistent with the database on insert failure.
		_ = s.files.Delete(relPath)
		return nil, appErrors.FromError(err)
	}

	s.logger.Info("certificate issued",
		zap.String("certificate_id", cert.ID),
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("serial", serial))
	if s.metrics != nil {
		s.metrics.IncCertificateIssued()
	}
	return cert, nil
}

// ListByUser returns the certificates visible to the actor: students see
// their own, staff can inspect any student's.
func (s *CertificateService) ListByUser(ctx context.Context, actor authz.Principal, userID string) ([]models.Certificate, error) {
	if err := s.authorize(actor, authz.CertificateView, authz.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	certs, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return certs, nil
}

// DownloadURL returns a short-lived signed token for fetching the PDF.
func (s *CertificateService) DownloadURL(ctx context.Context, actor authz.Principal, certID string) (token string, expiresAt time.Time, err error) {
	cert, err := s.findCertificate(ctx, certID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.authorize(actor, authz.CertificateView, authz.Resource{ID: cert.ID, OwnerID: cert.UserID}); err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err = s.signer.Generate(cert.ID, cert.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrConfiguration, "certificate download signing is not configured")
	}
	return token, expiresAt, nil
}

// OpenSigned validates a signed token and opens the underlying PDF. No
// session is required; possession of an unexpired token grants the download.
func (s *CertificateService) OpenSigned(ctx context.Context, token string) (*os.File, *models.Certificate, error) {
	certID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	cert, err := s.findCertificate(ctx, certID)
	if err != nil {
		return nil, nil, err
	}
	if cert.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	file, err := s.files.Open(cert.FilePath)
	if err != nil {
		return nil, nil, appErrors.ErrNotFound
	}
	return file, cert, nil
}

func (s *CertificateService) findCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.certs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return cert, nil
}

func (s *CertificateService) authorize(actor authz.Principal, action authz.Action, res authz.Resource) error {
	if err := authz.Authorize(actor, action, res); err != nil {
		if s.metrics != nil {
			s.metrics.IncAuthzDenial(string(action))
		}
		return err
	}
	return nil
}

func certificateSerial(issuedAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("TA-%s-%s", issuedAt.Format("20060102"), suffix)
}
