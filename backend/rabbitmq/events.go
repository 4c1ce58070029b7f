package rabbitmq

import (
	"context"
	"time"

	"ecoguardian/backend/metrics"
	"ecoguardian/backend/models"
)

// ReportAccepted is published after a report and its reward are committed.
type ReportAccepted struct {
	ReportID     int64     `json:"report_id"`
	UserID       string    `json:"user_id"`
	Category     string    `json:"category"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	LocationCell string    `json:"location_cell,omitempty"`
	Labels       []string  `json:"labels"`
	RewardPoints int       `json:"reward_points"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewReportAccepted(r *models.Report, grant *models.RewardGrant, labels []models.Label) *ReportAccepted {
	return &ReportAccepted{
		ReportID:     r.ID,
		UserID:       r.UserID,
		Category:     r.Category,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		LocationCell: r.LocationCell,
		Labels:       models.LabelNames(labels),
		RewardPoints: grant.Points,
		Timestamp:    r.Timestamp,
	}
}

// PublishReportAccepted sends the event with the default routing key.
func (p *Publisher) PublishReportAccepted(ctx context.Context, e *ReportAccepted) error {
	if err := p.Publish(ctx, e); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}
