package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduvance/trading-academy-api/internal/models"
)

// CertificateRepository provides database access for issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new instance of CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, user_id, course_id, serial_number, file_path, issued_by, issued_at`

// FindByID returns a certificate by identifier.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE id = $1 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by id: %w", err)
	}
	return &cert, nil
}

// FindByUserAndCourse returns the certificate a student holds for a course.
func (r *CertificateRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE user_id = $1 AND course_id = $2 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &cert, nil
}

// ListByUser returns a student's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`, certificateColumns)
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, userID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// Create inserts an issued certificate record.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, user_id, course_id, serial_number, file_path, issued_by, issued_at) VALUES (:id, :user_id, :course_id, :serial_number, :file_path, :issued_by, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}
