package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecoguardian/backend/db"
	"ecoguardian/backend/keylock"
	"ecoguardian/backend/metrics"
	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
	"github.com/google/uuid"
)

const (
	DateLayout = "January 02, 2006"

	ReasonReportNotFound = "Report not found"
	ReasonFake           = "This certificate does not exist in our database."

	idPrefix    = "CERT-"
	idLen       = len(idPrefix) + 8
	maxAttempts = 5
)

// Verification holds the facts disclosed to anyone presenting a certificate id.
type Verification struct {
	CertificateID string
	User          string
	Action        string
	Date          string
	IssuedAt      time.Time
}

type Service struct {
	ledger db.Ledger
	certs  db.CertificateStore
	locks  *keylock.Locker
	loc    *time.Location

	now   func() time.Time
	newID func() string
}

// NewService creates the service. Certificate dates are printed in loc, the
// zone whose calendar days the daily cap counts; a nil loc means server-local time.
func NewService(ledger db.Ledger, certs db.CertificateStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		ledger: ledger,
		certs:  certs,
		locks:  keylock.New(),
		loc:    loc,
		now:    time.Now,
		newID:  NewID,
	}
}

// NewID returns "CERT-" followed by 8 upper-case hex characters of a random UUID.
func NewID() string {
	return idPrefix + strings.ToUpper(uuid.NewString()[:8])
}

// NormalizeID canonicalizes a user-supplied certificate id for lookup.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IssueOrFetch returns the report's certificate, issuing it on first call.
// Repeated calls return the same certificate.
func (s *Service) IssueOrFetch(ctx context.Context, reportID int64) (*models.Certificate, error) {
	unlock := s.locks.Lock(fmt.Sprint(reportID))
	defer unlock()

	report, err := s.ledger.GetReport(ctx, reportID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, verdict.Wrap(verdict.NotFound, ReasonReportNotFound, err)
	}
	if err != nil {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", fmt.Errorf("get report %d: %w", reportID, err))
	}

	cert, err := s.certs.CertificateByReport(ctx, reportID)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", fmt.Errorf("certificate for report %d: %w", reportID, err))
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cert = &models.Certificate{
			ID:              s.newID(),
			ReportID:        report.ID,
			UserID:          report.UserID,
			Category:        report.Category,
			ActionTimestamp: report.Timestamp.UTC(),
			IssuedAt:        s.now().UTC(),
		}
		err = s.certs.InsertCertificate(ctx, cert)
		if err == nil {
			metrics.CertificatesIssuedTotal.Inc()
			log.WithFields(log.Fields{"report_id": reportID, "certificate_id": cert.ID}).Info("Issued certificate")
			return cert, nil
		}
		if !errors.Is(err, db.ErrDuplicate) {
			return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
		}

		// Either another instance issued for this report, or the id collided.
		winner, lookupErr := s.certs.CertificateByReport(ctx, reportID)
		if lookupErr == nil {
			return winner, nil
		}
		if !errors.Is(lookupErr, db.ErrNotFound) {
			return nil, verdict.Wrap(verdict.InternalError, "Internal error", lookupErr)
		}
		log.Warnf("Certificate id %s collided, regenerating", cert.ID)
	}
	return nil, verdict.Wrap(verdict.InternalError, "Internal error",
		fmt.Errorf("no free certificate id for report %d after %d attempts", reportID, maxAttempts))
}

// Verify looks a certificate up by id. Ids are matched case-insensitively.
func (s *Service) Verify(ctx context.Context, certID string) (*Verification, error) {
	id := NormalizeID(certID)
	if !strings.HasPrefix(id, idPrefix) || len(id) != idLen {
		metrics.CertificateVerificationsTotal.WithLabelValues("fake").Inc()
		return nil, verdict.New(verdict.NotFound, ReasonFake)
	}

	cert, err := s.certs.CertificateByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		metrics.CertificateVerificationsTotal.WithLabelValues("fake").Inc()
		return nil, verdict.Wrap(verdict.NotFound, ReasonFake, err)
	}
	if err != nil {
		metrics.CertificateVerificationsTotal.WithLabelValues("error").Inc()
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
	}

	metrics.CertificateVerificationsTotal.WithLabelValues("valid").Inc()
	return &Verification{
		CertificateID: cert.ID,
		User:          cert.UserID,
		Action:        cert.Category,
		Date:          FormatDate(cert.ActionTimestamp, s.loc),
		IssuedAt:      cert.IssuedAt,
	}, nil
}

// Render draws the certificate with its date in the service's zone.
func (s *Service) Render(c *models.Certificate, verifyURL string) ([]byte, error) {
	return Render(c, s.loc, verifyURL)
}

// FormatDate prints the action date as it falls in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
