package service

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduvance/trading-academy-api/internal/models"
	"github.com/eduvance/trading-academy-api/pkg/config"
	appErrors "github.com/eduvance/trading-academy-api/pkg/errors"
	"github.com/eduvance/trading-academy-api/pkg/export"
	"github.com/eduvance/trading-academy-api/pkg/storage"
)

type fakeCertStore struct {
	byID map[string]*models.Certificate
}

func newFakeCertStore() *fakeCertStore {
	return &fakeCertStore{byID: map[string]*models.Certificate{}}
}

func (f *fakeCertStore) FindByID(_ context.Context, id string) (*models.Certificate, error) {
	if cert, ok := f.byID[id]; ok {
		return cert, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCertStore) FindByUserAndCourse(_ context.Context, userID, courseID string) (*models.Certificate, error) {
	for _, cert := range f.byID {
		if cert.UserID == userID && cert.CourseID == courseID {
			return cert, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCertStore) ListByUser(_ context.Context, userID string) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, cert := range f.byID {
		if cert.UserID == userID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

func (f *fakeCertStore) Create(_ context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = "cert-" + cert.SerialNumber
	}
	f.byID[cert.ID] = cert
	return nil
}

func newCertificateService(t *testing.T, certs *fakeCertStore, courses *fakeCourseStore, users *fakeUserAdminStore) *CertificateService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("cert-secret", time.Hour)
	cfg := config.CertificatesConfig{Enabled: true}
	return NewCertificateService(certs, users, courses, export.NewCertificateRenderer(), files, signer, cfg, zap.NewNop(), nil)
}

func seedCompletedCourse(t *testing.T, courses *fakeCourseStore, studentID string) *models.Course {
	t.Helper()
	course := &models.Course{ID: "c1", Title: "Swing Trading", Level: "intermediate", CreatedBy: "i1"}
	courses.courses[course.ID] = course
	for _, title := range []string{"Setup", "Entries", "Exits"} {
		lesson := &models.Lesson{ID: "l-" + title, CourseID: course.ID, Title: title}
		courses.lessons[lesson.ID] = lesson
		courses.progress[lesson.ID+"|"+studentID] = true
	}
	return course
}

func TestIssueCertificateForCompletedCourse(t *testing.T) {
	certs := newFakeCertStore()
	courses := newFakeCourseStore()
	users := newFakeUserAdminStore(
		&models.User{ID: "s1", FullName: "Ada Trader", Role: models.RoleStudent, Status: models.StatusApproved},
		&models.User{ID: "i1", FullName: "Coach Kim", Role: models.RoleInstructor, Status: models.StatusApproved},
	)
	course := seedCompletedCourse(t, courses, "s1")
	svc := newCertificateService(t, certs, courses, users)

	cert, err := svc.Issue(context.Background(), instructorPrincipal("i1"), "s1", course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.SerialNumber)
	assert.Equal(t, "s1", cert.UserID)

	// Issuance is idempotent.
	again, err := svc.Issue(context.Background(), instructorPrincipal("i1"), "s1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, again.ID)
}

func TestIssueCertificateIncompleteCourse(t *testing.T) {
	certs := newFakeCertStore()
	courses := newFakeCourseStore()
	users := newFakeUserAdminStore(
		&models.User{ID: "s1", FullName: "Ada Trader", Role: models.RoleStudent, Status: models.StatusApproved},
	)
	course := seedCompletedCourse(t, courses, "s1")
	// Undo one lesson.
	courses.progress["l-Exits|s1"] = false
	svc := newCertificateService(t, certs, courses, users)

	_, err := svc.Issue(context.Background(), instructorPrincipal("i1"), "s1", course.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestStudentCannotIssueCertificates(t *testing.T) {
	svc := newCertificateService(t, newFakeCertStore(), newFakeCourseStore(), newFakeUserAdminStore())

	_, err := svc.Issue(context.Background(), studentPrincipal("s1"), "s1", "c1")
	require.Error(t, err)
}

func TestSignedDownloadRoundTrip(t *testing.T) {
	certs := newFakeCertStore()
	courses := newFakeCourseStore()
	users := newFakeUserAdminStore(
		&models.User{ID: "s1", FullName: "Ada Trader", Role: models.RoleStudent, Status: models.StatusApproved},
		&models.User{ID: "i1", FullName: "Coach Kim", Role: models.RoleInstructor, Status: models.StatusApproved},
	)
	course := seedCompletedCourse(t, courses, "s1")
	svc := newCertificateService(t, certs, courses, users)

	cert, err := svc.Issue(context.Background(), instructorPrincipal("i1"), "s1", course.ID)
	require.NoError(t, err)

	// The owner gets a download token.
	token, expiresAt, err := svc.DownloadURL(context.Background(), studentPrincipal("s1"), cert.ID)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	// Another student does not.
	_, _, err = svc.DownloadURL(context.Background(), studentPrincipal("s2"), cert.ID)
	require.Error(t, err)

	file, got, err := svc.OpenSigned(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, cert.ID, got.ID)

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))

	_, _, err = svc.OpenSigned(context.Background(), token+"tampered")
	require.Error(t, err)
}
