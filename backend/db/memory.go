package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"ecoguardian/backend/models"
)

// Memory is a process-local store for development and tests.
type Memory struct {
	mu           sync.RWMutex
	reports      []models.Report
	grants       []models.RewardGrant
	certificates map[string]models.Certificate
	certByReport map[int64]string
}

func NewMemory() *Memory {
	return &Memory{
		certificates: make(map[string]models.Certificate),
		certByReport: make(map[int64]string),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Accept(ctx context.Context, r *models.Report, points int) (*models.RewardGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *r
	stored.ID = int64(len(m.reports) + 1)
	stored.Timestamp = r.Timestamp.UTC()
	grant := models.RewardGrant{
		ID:        int64(len(m.grants) + 1),
		UserID:    r.UserID,
		ReportID:  stored.ID,
		Points:    points,
		Timestamp: stored.Timestamp,
	}
	m.reports = append(m.reports, stored)
	m.grants = append(m.grants, grant)

	r.ID = stored.ID
	return &grant, nil
}

func (m *Memory) History(ctx context.Context, userID string, since time.Time) ([]models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Report
	for _, r := range m.reports {
		if r.UserID == userID && r.Timestamp.After(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id <= 0 || id > int64(len(m.reports)) {
		return nil, ErrNotFound
	}
	r := m.reports[id-1]
	return &r, nil
}

func (m *Memory) UserSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := &models.UserSummary{UserID: userID}
	for _, g := range m.grants {
		if g.UserID == userID {
			summary.Reports++
			summary.Points += g.Points
		}
	}
	return summary, nil
}

func (m *Memory) CertificateByReport(ctx context.Context, reportID int64) (*models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.certByReport[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	c := m.certificates[id]
	return &c, nil
}

func (m *Memory) CertificateByID(ctx context.Context, id string) (*models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.certificates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) InsertCertificate(ctx context.Context, c *models.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.certificates[c.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := m.certByReport[c.ReportID]; ok {
		return ErrDuplicate
	}
	m.certificates[c.ID] = *c
	m.certByReport[c.ReportID] = c.ID
	return nil
}
