package api

import "time"

const (
	StatusVerified = "verified"
	StatusValid    = "VALID"
	StatusFake     = "FAKE"
)

type SubmitReportResponse struct {
	Status       string   `json:"status"`
	ReportID     int64    `json:"report_id"`
	Labels       []string `json:"labels"`
	RewardPoints int      `json:"reward_points"`
}

type VerifyActionResponse struct {
	Status         string   `json:"status"`
	LabelsDetected []string `json:"labels_detected"`
	Confidence     float64  `json:"confidence"`
}

// ErrorResponse is returned for every rejected or failed request.
// Status is "rejected" for policy outcomes and "error" otherwise.
type ErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Kind   string `json:"kind,omitempty"`
}

type VerifyCertResponse struct {
	Status        string    `json:"status"`
	User          string    `json:"user"`
	Action        string    `json:"action"`
	Date          string    `json:"date"`
	CertificateID string    `json:"certificate_id"`
	IssuedAt      time.Time `json:"issued_at"`
}

type FakeCertResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type UserSummaryResponse struct {
	UserID  string `json:"user_id"`
	Reports int    `json:"reports"`
	Points  int    `json:"points"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Storage string `json:"storage"`
}
