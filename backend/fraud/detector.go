package fraud

import (
	"time"

	"ecoguardian/backend/image"
	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
)

const (
	DefaultWindow           = 24 * time.Hour
	DefaultThresholdPercent = 10

	ReasonDuplicate = "Fraud Alert: Same physical object detected."
)

// Detector flags photos that are perceptually near-identical to one the same
// user submitted within the window.
type Detector struct {
	window           time.Duration
	thresholdPercent int
}

func NewDetector(window time.Duration, thresholdPercent int) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	return &Detector{window: window, thresholdPercent: thresholdPercent}
}

// Window returns the oldest timestamp the detector looks at.
func (d *Detector) Window(now time.Time) time.Time {
	return now.Add(-d.window)
}

// IsDuplicate reports whether distance is below the threshold for a digest of the given length.
func (d *Detector) IsDuplicate(distance, bits int) bool {
	return distance*100 < bits*d.thresholdPercent
}

// Check compares fp against the fingerprints in history. Malformed stored
// fingerprints are skipped and never count as a match.
func (d *Detector) Check(fp *image.Fingerprint, history []models.Report, now time.Time) error {
	since := d.Window(now)
	for _, r := range history {
		if !r.Timestamp.After(since) {
			continue
		}
		prior, err := image.ParseFingerprint(r.Fingerprint)
		if err != nil {
			log.WithFields(log.Fields{"report_id": r.ID, "user_id": r.UserID}).
				Warnf("Skipping unreadable fingerprint: %v", err)
			continue
		}
		distance, err := fp.Distance(prior)
		if err != nil {
			log.Warnf("Skipping fingerprint of report %d: %v", r.ID, err)
			continue
		}
		if d.IsDuplicate(distance, fp.Bits()) {
			log.WithFields(log.Fields{"report_id": r.ID, "user_id": r.UserID, "distance": distance}).
				Info("Duplicate photo detected")
			return verdict.New(verdict.DuplicateDetected, ReasonDuplicate)
		}
	}
	return nil
}
