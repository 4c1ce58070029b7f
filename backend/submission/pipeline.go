package submission

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"
	"time"

	"ecoguardian/backend/authenticity"
	"ecoguardian/backend/classifier"
	"ecoguardian/backend/db"
	"ecoguardian/backend/fraud"
	imgpkg "ecoguardian/backend/image"
	"ecoguardian/backend/keylock"
	"ecoguardian/backend/metrics"
	"ecoguardian/backend/models"
	"ecoguardian/backend/rabbitmq"
	"ecoguardian/backend/ratelimit"
	"ecoguardian/backend/rules"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
	"github.com/golang/geo/s2"
)

const (
	QuickTopK = 5

	ReasonNoEnvironmentalElements = "No environmental elements detected."
	ReasonImageTooLarge           = "Image too large."

	locationCellLevel = 13
	publishTimeout    = 5 * time.Second
)

// Column widths of the reports table.
const (
	maxUserIDLen   = 255
	maxCategoryLen = 255
	maxTitleLen    = 255
	maxSeverityLen = 32
	maxLocationLen = 255
)

// Publisher announces accepted reports. Failures never undo an acceptance.
type Publisher interface {
	PublishReportAccepted(ctx context.Context, e *rabbitmq.ReportAccepted) error
}

// Submission is one eco-action report as received from a client.
type Submission struct {
	UserID          string
	Category        string
	Title           string
	Description     string
	Severity        string
	Location        string
	Latitude        *float64
	Longitude       *float64
	DeviceTimestamp string
	Image           []byte
}

type Result struct {
	Report *models.Report
	Grant  *models.RewardGrant
	Labels []models.Label
}

type QuickResult struct {
	Labels     []models.Label
	Confidence float64
}

// Options wires the pipeline's collaborators. Publisher and Now may be nil.
// MaxImagePixels <= 0 means imgpkg.DefaultMaxPixels.
type Options struct {
	Verifier       *authenticity.Verifier
	Limiter        *ratelimit.Limiter
	Detector       *fraud.Detector
	Classifier     *classifier.Pool
	Engine         *rules.Engine
	Ledger         db.Ledger
	Publisher      Publisher
	TopK           int
	RewardPoints   int
	MaxImagePixels int
	Now            func() time.Time
}

type Pipeline struct {
	verifier   *authenticity.Verifier
	limiter    *ratelimit.Limiter
	detector   *fraud.Detector
	classifier *classifier.Pool
	engine     *rules.Engine
	ledger     db.Ledger
	publisher  Publisher
	locks      *keylock.Locker
	topK       int
	points     int
	maxPixels  int
	now        func() time.Time
}

func New(o Options) *Pipeline {
	p := &Pipeline{
		verifier:   o.Verifier,
		limiter:    o.Limiter,
		detector:   o.Detector,
		classifier: o.Classifier,
		engine:     o.Engine,
		ledger:     o.Ledger,
		publisher:  o.Publisher,
		locks:      keylock.New(),
		topK:       o.TopK,
		points:     o.RewardPoints,
		maxPixels:  o.MaxImagePixels,
		now:        o.Now,
	}
	if p.topK <= 0 {
		p.topK = 10
	}
	if p.points <= 0 {
		p.points = 50
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Submit runs every check in order and records the report when all pass.
// The returned error is always a *verdict.Error.
func (p *Pipeline) Submit(ctx context.Context, s *Submission) (*Result, error) {
	res, err := p.submit(ctx, s)
	if err != nil {
		v := verdict.From(err)
		metrics.SubmissionsTotal.WithLabelValues(string(v.Kind)).Inc()
		return nil, v
	}
	metrics.SubmissionsTotal.WithLabelValues("verified").Inc()
	return res, nil
}

func (p *Pipeline) submit(ctx context.Context, s *Submission) (*Result, error) {
	if err := validate(s); err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{"user_id": s.UserID, "category": s.Category})

	if err := p.verifier.Verify(s.Image, s.DeviceTimestamp); err != nil {
		logger.Infof("Authenticity rejected: %v", err)
		return nil, err
	}

	img, err := p.decode(s.Image)
	if err != nil {
		return nil, err
	}
	fp, err := imgpkg.FingerprintOf(img)
	if err != nil {
		return nil, verdict.Wrap(verdict.InvalidInput, "Unreadable image.", err)
	}
	normalized, err := imgpkg.Normalize(img, imgpkg.ClassifierInputSize)
	if err != nil {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
	}

	// Held from the history read until Accept returns.
	unlock := p.locks.Lock(s.UserID)
	defer unlock()

	now := p.now()
	since := p.limiter.Window(now)
	if w := p.detector.Window(now); w.Before(since) {
		since = w
	}
	history, err := p.ledger.History(ctx, s.UserID, since)
	if err != nil {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
	}

	if err := p.limiter.CheckDailyCap(history, now); err != nil {
		logger.Info("Daily limit reached")
		return nil, err
	}
	if err := p.detector.Check(fp, history, now); err != nil {
		return nil, err
	}
	if err := p.limiter.CheckCooldown(history, now); err != nil {
		logger.Info("Cooldown active")
		return nil, err
	}

	labels, err := p.classifier.Classify(ctx, normalized, p.topK)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Evaluate(s.Category, models.LabelNames(labels)); err != nil {
		logger.WithField("labels", models.LabelNames(labels)).Info("Classification rule failed")
		return nil, err
	}

	report := &models.Report{
		UserID:       s.UserID,
		Category:     s.Category,
		Title:        s.Title,
		Description:  s.Description,
		Severity:     s.Severity,
		LocationText: s.Location,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		LocationCell: LocationCell(s.Latitude, s.Longitude),
		Fingerprint:  fp.String(),
		Status:       models.StatusVerified,
		Timestamp:    p.now().UTC(),
	}
	grant, err := p.ledger.Accept(ctx, report, p.points)
	if err != nil {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
	}
	logger.WithField("report_id", report.ID).Info("Report accepted")

	p.publish(ctx, report, grant, labels)
	return &Result{Report: report, Grant: grant, Labels: labels}, nil
}

func (p *Pipeline) publish(ctx context.Context, r *models.Report, grant *models.RewardGrant, labels []models.Label) {
	if p.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.publisher.PublishReportAccepted(ctx, rabbitmq.NewReportAccepted(r, grant, labels)); err != nil {
		log.Errorf("Failed to publish acceptance of report %d: %v", r.ID, err)
	}
}

// QuickVerify checks authenticity and that the photo shows anything
// environmental. Nothing is recorded.
func (p *Pipeline) QuickVerify(ctx context.Context, photo []byte, deviceTimestamp string) (*QuickResult, error) {
	res, err := p.quickVerify(ctx, photo, deviceTimestamp)
	if err != nil {
		v := verdict.From(err)
		metrics.QuickChecksTotal.WithLabelValues(string(v.Kind)).Inc()
		return nil, v
	}
	metrics.QuickChecksTotal.WithLabelValues("verified").Inc()
	return res, nil
}

func (p *Pipeline) quickVerify(ctx context.Context, photo []byte, deviceTimestamp string) (*QuickResult, error) {
	if len(photo) == 0 {
		return nil, verdict.New(verdict.InvalidInput, "Missing image file.")
	}
	if err := p.verifier.Verify(photo, deviceTimestamp); err != nil {
		return nil, err
	}
	img, err := p.decode(photo)
	if err != nil {
		return nil, err
	}
	normalized, err := imgpkg.Normalize(img, imgpkg.ClassifierInputSize)
	if err != nil {
		return nil, verdict.Wrap(verdict.InternalError, "Internal error", err)
	}
	labels, err := p.classifier.Classify(ctx, normalized, QuickTopK)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 || !rules.Matches(models.LabelNames(labels), rules.EnvironmentalKeywords) {
		return nil, verdict.New(verdict.ValidationFailed, ReasonNoEnvironmentalElements)
	}
	return &QuickResult{Labels: labels, Confidence: labels[0].Confidence}, nil
}

// decode decodes the upload once for both fingerprinting and classification.
func (p *Pipeline) decode(photo []byte) (image.Image, error) {
	img, err := imgpkg.Decode(photo, p.maxPixels)
	if errors.Is(err, imgpkg.ErrTooLarge) {
		return nil, verdict.Wrap(verdict.InvalidInput, ReasonImageTooLarge, err)
	}
	if err != nil {
		return nil, verdict.Wrap(verdict.InvalidInput, "Unreadable image.", err)
	}
	return img, nil
}

// LocationCell returns the S2 cell token containing the point, or "" when
// either coordinate is missing.
func LocationCell(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(*lat, *lon)).Parent(locationCellLevel).ToToken()
}

func validate(s *Submission) error {
	switch {
	case len(s.Image) == 0:
		return verdict.New(verdict.InvalidInput, "Missing image file.")
	case strings.TrimSpace(s.UserID) == "":
		return verdict.New(verdict.InvalidInput, "Missing user_id.")
	case strings.TrimSpace(s.Category) == "":
		return verdict.New(verdict.InvalidInput, "Missing category.")
	case (s.Latitude == nil) != (s.Longitude == nil):
		return verdict.New(verdict.InvalidInput, "Latitude and longitude must be given together.")
	case s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90):
		return verdict.New(verdict.InvalidInput, "Latitude out of range.")
	case s.Longitude != nil && (*s.Longitude < -180 || *s.Longitude > 180):
		return verdict.New(verdict.InvalidInput, "Longitude out of range.")
	}

	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"user_id", s.UserID, maxUserIDLen},
		{"category", s.Category, maxCategoryLen},
		{"title", s.Title, maxTitleLen},
		{"severity", s.Severity, maxSeverityLen},
		{"location", s.Location, maxLocationLen},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			return verdict.New(verdict.InvalidInput, fmt.Sprintf("%s is longer than %d characters.", f.name, f.max))
		}
	}
	return nil
}
