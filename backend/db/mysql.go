package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecoguardian/backend/models"
	"ecoguardian/common"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

const reportColumns = `id, user_id, category, title, description, severity, location_text,
	latitude, longitude, location_cell, image_hash, status, ts`

const certificateColumns = `cert_id, report_id, user_id, category, action_ts, issued_at`

// MySQL is the ledger and certificate store backed by a MySQL database.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

func (s *MySQL) Close() error {
	return s.db.Close()
}

func (s *MySQL) Accept(ctx context.Context, r *models.Report, points int) (*models.RewardGrant, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		log.Errorf("Error creating transaction: %v", err)
		return nil, err
	}
	defer tx.Rollback()

	ts := r.Timestamp.UTC()
	result, err := tx.ExecContext(ctx, `INSERT
	  INTO reports (user_id, category, title, description, severity, location_text, latitude, longitude, location_cell, image_hash, status, ts)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Category, r.Title, r.Description, r.Severity, r.LocationText,
		nullFloat(r.Latitude), nullFloat(r.Longitude), r.LocationCell, r.Fingerprint, r.Status, ts)
	common.LogResult("acceptReport", result, err, true)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	reportID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("report id: %w", err)
	}

	result, err = tx.ExecContext(ctx, `INSERT
	  INTO reward_grants (user_id, report_id, points, ts)
	  VALUES (?, ?, ?, ?)`,
		r.UserID, reportID, points, ts)
	common.LogResult("acceptReward", result, err, true)
	if err != nil {
		return nil, fmt.Errorf("insert reward grant: %w", err)
	}
	grantID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reward grant id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Errorf("Error committing the transaction: %v", err)
		return nil, err
	}

	r.ID = reportID
	return &models.RewardGrant{
		ID:        grantID,
		UserID:    r.UserID,
		ReportID:  reportID,
		Points:    points,
		Timestamp: ts,
	}, nil
}

func (s *MySQL) History(ctx context.Context, userID string, since time.Time) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+`
	  FROM reports WHERE user_id = ? AND ts > ? ORDER BY ts DESC`,
		userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return reports, nil
}

func (s *MySQL) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *MySQL) UserSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	summary := &models.UserSummary{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(points), 0)
	  FROM reward_grants WHERE user_id = ?`, userID).Scan(&summary.Reports, &summary.Points)
	if err != nil {
		return nil, fmt.Errorf("query user summary: %w", err)
	}
	return summary, nil
}

func (s *MySQL) CertificateByReport(ctx context.Context, reportID int64) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE report_id = ?`, reportID)
	return scanCertificate(row)
}

func (s *MySQL) CertificateByID(ctx context.Context, id string) (*models.Certificate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE cert_id = ?`, id)
	return scanCertificate(row)
}

func (s *MySQL) InsertCertificate(ctx context.Context, c *models.Certificate) error {
	result, err := s.db.ExecContext(ctx, `INSERT
	  INTO certificates (cert_id, report_id, user_id, category, action_ts, issued_at)
	  VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ReportID, c.UserID, c.Category, c.ActionTimestamp.UTC(), c.IssuedAt.UTC())
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("insert certificate %s: %w", c.ID, ErrDuplicate)
	}
	common.LogResult("insertCertificate", result, err, true)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*models.Report, error) {
	var (
		r           models.Report
		description sql.NullString
		lat, lon    sql.NullFloat64
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Category, &r.Title, &description, &r.Severity, &r.LocationText,
		&lat, &lon, &r.LocationCell, &r.Fingerprint, &r.Status, &r.Timestamp)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	if lat.Valid {
		r.Latitude = &lat.Float64
	}
	if lon.Valid {
		r.Longitude = &lon.Float64
	}
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}

func scanCertificate(row scanner) (*models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(&c.ID, &c.ReportID, &c.UserID, &c.Category, &c.ActionTimestamp, &c.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	c.ActionTimestamp = c.ActionTimestamp.UTC()
	c.IssuedAt = c.IssuedAt.UTC()
	return &c, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
