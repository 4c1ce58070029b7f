package models

import "time"

const StatusVerified = "verified"

// Report is an accepted eco-action submission.
type Report struct {
	ID           int64     `json:"report_id"`
	UserID       string    `json:"user_id"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Severity     string    `json:"severity,omitempty"`
	LocationText string    `json:"location,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	LocationCell string    `json:"location_cell,omitempty"`
	Fingerprint  string    `json:"image_hash"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// RewardGrant is the reward written together with its Report.
type RewardGrant struct {
	ID        int64     `json:"reward_id"`
	UserID    string    `json:"user_id"`
	ReportID  int64     `json:"report_id"`
	Points    int       `json:"reward_points"`
	Timestamp time.Time `json:"timestamp"`
}

// Certificate is issued at most once per Report.
type Certificate struct {
	ID              string    `json:"certificate_id"`
	ReportID        int64     `json:"report_id"`
	UserID          string    `json:"user_id"`
	Category        string    `json:"category"`
	ActionTimestamp time.Time `json:"action_timestamp"`
	IssuedAt        time.Time `json:"issued_at"`
}

// UserSummary aggregates a user's accepted reports.
type UserSummary struct {
	UserID  string `json:"user_id"`
	Reports int    `json:"reports"`
	Points  int    `json:"points"`
}

// Label is one classifier prediction.
type Label struct {
	Name       string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// LabelNames returns the label texts in classifier order.
func LabelNames(labels []Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}
