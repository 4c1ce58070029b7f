package db

import (
	"context"
	"errors"
	"time"

	"ecoguardian/backend/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Ledger is the append-only record of accepted reports and their rewards.
type Ledger interface {
	// Accept stores the report and its reward grant atomically and sets r.ID.
	Accept(ctx context.Context, r *models.Report, points int) (*models.RewardGrant, error)
	// History returns the user's reports with timestamp after since, newest first.
	History(ctx context.Context, userID string, since time.Time) ([]models.Report, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	UserSummary(ctx context.Context, userID string) (*models.UserSummary, error)
}

// CertificateStore persists certificates. InsertCertificate returns ErrDuplicate
// when the certificate id or the report id is already taken.
type CertificateStore interface {
	CertificateByReport(ctx context.Context, reportID int64) (*models.Certificate, error)
	CertificateByID(ctx context.Context, id string) (*models.Certificate, error)
	InsertCertificate(ctx context.Context, c *models.Certificate) error
}

type Store interface {
	Ledger
	CertificateStore
	Close() error
}
