package submission

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ecoguardian/backend/authenticity"
	"ecoguardian/backend/classifier"
	"ecoguardian/backend/db"
	"ecoguardian/backend/fraud"
	"ecoguardian/backend/image/imagetest"
	"ecoguardian/backend/models"
	"ecoguardian/backend/rabbitmq"
	"ecoguardian/backend/ratelimit"
	"ecoguardian/backend/rules"
	"ecoguardian/backend/verdict"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimed = "2026-10-15T10:00:00Z"

var (
	captured = "2026:10:15 09:30:00"
	start    = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	plasticLabels = []models.Label{{Name: "water_bottle", Confidence: 0.62}, {Name: "ashcan", Confidence: 0.21}}
)

// photos returns JPEGs with EXIF whose fingerprints are pairwise far apart.
func photos() [][]byte {
	return [][]byte{
		imagetest.WithExif(imagetest.Split(false), captured),
		imagetest.WithExif(imagetest.Split(true), captured),
		imagetest.WithExif(imagetest.Checker(), captured),
		imagetest.WithExif(imagetest.Invert(imagetest.Split(false)), captured),
		imagetest.WithExif(imagetest.Invert(imagetest.Split(true)), captured),
		imagetest.WithExif(imagetest.Invert(imagetest.Checker()), captured),
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*rabbitmq.ReportAccepted
	err    error
}

func (p *recordingPublisher) PublishReportAccepted(ctx context.Context, e *rabbitmq.ReportAccepted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

// faultyLedger fails History or Accept on demand.
type faultyLedger struct {
	*db.Memory
	historyErr error
	acceptErr  error
}

func (l *faultyLedger) History(ctx context.Context, userID string, since time.Time) ([]models.Report, error) {
	if l.historyErr != nil {
		return nil, l.historyErr
	}
	return l.Memory.History(ctx, userID, since)
}

func (l *faultyLedger) Accept(ctx context.Context, r *models.Report, points int) (*models.RewardGrant, error) {
	if l.acceptErr != nil {
		return nil, l.acceptErr
	}
	return l.Memory.Accept(ctx, r, points)
}

type fixture struct {
	pipeline  *Pipeline
	store     *db.Memory
	ledger    *faultyLedger
	clock     *clock
	stub      *classifier.Stub
	publisher *recordingPublisher
}

func newFixture() *fixture {
	f := &fixture{
		store:     db.NewMemory(),
		clock:     &clock{t: start},
		stub:      classifier.NewStub(plasticLabels...),
		publisher: &recordingPublisher{},
	}
	f.ledger = &faultyLedger{Memory: f.store}
	f.pipeline = New(Options{
		Verifier:     authenticity.NewVerifier(24 * time.Hour),
		Limiter:      ratelimit.NewLimiter(3, 3*time.Minute, time.UTC),
		Detector:     fraud.NewDetector(24*time.Hour, 10),
		Classifier:   classifier.NewPool(f.stub, 2, time.Second),
		Engine:       rules.NewEngine(rules.Default()),
		Ledger:       f.ledger,
		Publisher:    f.publisher,
		RewardPoints: 50,
		Now:          f.clock.Now,
	})
	return f
}

func submission(image []byte) *Submission {
	return &Submission{
		UserID:          "alice",
		Category:        "Plastic & Dry Waste",
		Title:           "Beach cleanup",
		Description:     "Bottles into the bin",
		Image:           image,
		DeviceTimestamp: claimed,
	}
}

func (f *fixture) summary(t *testing.T) *models.UserSummary {
	s, err := f.store.UserSummary(context.Background(), "alice")
	require.NoError(t, err)
	return s
}

func TestSubmitAccepted(t *testing.T) {
	f := newFixture()
	lat, lon := 19.0988, 72.8265
	s := submission(photos()[0])
	s.Latitude, s.Longitude = &lat, &lon
	s.Severity = "high"

	res, err := f.pipeline.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Report.ID)
	assert.Equal(t, models.StatusVerified, res.Report.Status)
	assert.Equal(t, start, res.Report.Timestamp)
	assert.True(t, strings.HasPrefix(res.Report.Fingerprint, "a:"), res.Report.Fingerprint)
	assert.NotEmpty(t, res.Report.LocationCell)
	assert.Equal(t, 50, res.Grant.Points)
	assert.Equal(t, res.Report.ID, res.Grant.ReportID)
	assert.Equal(t, []string{"water_bottle", "ashcan"}, models.LabelNames(res.Labels))

	stored, err := f.store.GetReport(context.Background(), res.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", stored.Severity)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, res.Report.ID, f.publisher.events[0].ReportID)
	assert.Equal(t, &models.UserSummary{UserID: "alice", Reports: 1, Points: 50}, f.summary(t))
}

func TestSubmitImmediateResubmissionIsDuplicate(t *testing.T) {
	f := newFixture()
	img := photos()[0]

	_, err := f.pipeline.Submit(context.Background(), submission(img))
	require.NoError(t, err)

	_, err = f.pipeline.Submit(context.Background(), submission(img))
	require.Error(t, err)
	assert.Equal(t, verdict.DuplicateDetected, verdict.KindOf(err))
	assert.Equal(t, fraud.ReasonDuplicate, verdict.From(err).Reason)

	f.clock.Advance(5 * time.Hour)
	_, err = f.pipeline.Submit(context.Background(), submission(img))
	assert.Equal(t, verdict.DuplicateDetected, verdict.KindOf(err), "within the 24h window")
	assert.Equal(t, 1, f.summary(t).Reports)
}

func TestSubmitCooldown(t *testing.T) {
	f := newFixture()
	imgs := photos()

	_, err := f.pipeline.Submit(context.Background(), submission(imgs[0]))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.pipeline.Submit(context.Background(), submission(imgs[1]))
	require.Error(t, err)
	assert.Equal(t, verdict.CooldownActive, verdict.KindOf(err))
	assert.Equal(t, ratelimit.ReasonCooldown, verdict.From(err).Reason)

	f.clock.Advance(2 * time.Minute)
	_, err = f.pipeline.Submit(context.Background(), submission(imgs[1]))
	assert.NoError(t, err)
}

func TestSubmitDailyCap(t *testing.T) {
	f := newFixture()
	imgs := photos()

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.Submit(context.Background(), submission(imgs[i]))
		require.NoError(t, err, "report %d", i)
		f.clock.Advance(4 * time.Minute)
	}

	_, err := f.pipeline.Submit(context.Background(), submission(imgs[3]))
	require.Error(t, err)
	assert.Equal(t, verdict.RateLimited, verdict.KindOf(err))
	assert.Equal(t, ratelimit.ReasonDailyLimit, verdict.From(err).Reason)

	// The cap is checked before duplicates.
	_, err = f.pipeline.Submit(context.Background(), submission(imgs[0]))
	assert.Equal(t, verdict.RateLimited, verdict.KindOf(err))

	f.clock.Advance(24 * time.Hour)
	_, err = f.pipeline.Submit(context.Background(), submission(imgs[3]))
	assert.NoError(t, err)
	assert.Equal(t, &models.UserSummary{UserID: "alice", Reports: 4, Points: 200}, f.summary(t))
}

func TestSubmitRejections(t *testing.T) {
	lat := 10.0
	testCases := []struct {
		name       string
		mutate     func(s *Submission, f *fixture)
		wantKind   verdict.Kind
		wantReason string
	}{
		{
			name:       "No camera metadata",
			mutate:     func(s *Submission, f *fixture) { s.Image = imagetest.JPEG(imagetest.Split(false)) },
			wantKind:   verdict.AuthenticityRejected,
			wantReason: authenticity.ReasonNoMetadata,
		},
		{
			name:       "Stale photo",
			mutate:     func(s *Submission, f *fixture) { s.DeviceTimestamp = "2026-10-20T10:00:00Z" },
			wantKind:   verdict.AuthenticityRejected,
			wantReason: authenticity.ReasonTooOld,
		},
		{
			name:       "Labels do not fit the category",
			mutate:     func(s *Submission, f *fixture) { s.Category = "E-Waste Drive" },
			wantKind:   verdict.ValidationFailed,
			wantReason: "Verification Failed for E-Waste Drive.",
		},
		{
			name: "Segregation without a container",
			mutate: func(s *Submission, f *fixture) {
				s.Category = "Waste Segregation"
				f.stub.Fixed = []models.Label{{Name: "banana", Confidence: 0.9}, {Name: "carton", Confidence: 0.1}}
			},
			wantKind:   verdict.ValidationFailed,
			wantReason: "Segregation Failed for Waste Segregation.",
		},
		{
			name:       "Classifier failure",
			mutate:     func(s *Submission, f *fixture) { f.stub.Err = errors.New("model not loaded") },
			wantKind:   verdict.ClassifierUnavailable,
			wantReason: "Classifier unavailable.",
		},
		{
			name:       "Ledger write fails",
			mutate:     func(s *Submission, f *fixture) { f.ledger.acceptErr = errors.New("deadlock found") },
			wantKind:   verdict.InternalError,
			wantReason: "Internal error",
		},
		{
			name:       "History read fails",
			mutate:     func(s *Submission, f *fixture) { f.ledger.historyErr = errors.New("connection refused") },
			wantKind:   verdict.InternalError,
			wantReason: "Internal error",
		},
		{
			name: "Declared canvas too large",
			mutate: func(s *Submission, f *fixture) {
				s.Image = imagetest.WithDimensions(s.Image, 9000, 9000)
			},
			wantKind:   verdict.InvalidInput,
			wantReason: ReasonImageTooLarge,
		},
		{
			name:       "Severity longer than its column",
			mutate:     func(s *Submission, f *fixture) { s.Severity = strings.Repeat("x", 33) },
			wantKind:   verdict.InvalidInput,
			wantReason: "severity is longer than 32 characters.",
		},
		{
			name:     "Title longer than its column",
			mutate:   func(s *Submission, f *fixture) { s.Title = strings.Repeat("é", 256) },
			wantKind: verdict.InvalidInput,
		},
		{
			name:     "Missing user",
			mutate:   func(s *Submission, f *fixture) { s.UserID = " " },
			wantKind: verdict.InvalidInput,
		},
		{
			name:     "Missing image",
			mutate:   func(s *Submission, f *fixture) { s.Image = nil },
			wantKind: verdict.InvalidInput,
		},
		{
			name:     "Latitude without longitude",
			mutate:   func(s *Submission, f *fixture) { s.Latitude = &lat },
			wantKind: verdict.InvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			s := submission(photos()[0])
			tc.mutate(s, f)

			res, err := f.pipeline.Submit(context.Background(), s)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, verdict.KindOf(err))
			if tc.wantReason != "" {
				assert.Equal(t, tc.wantReason, verdict.From(err).Reason)
			}
			assert.Equal(t, 0, f.summary(t).Reports)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestSubmitUnknownCategoryUsesDefaultRule(t *testing.T) {
	f := newFixture()
	s := submission(photos()[0])
	s.Category = "Mangrove Planting"

	res, err := f.pipeline.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Mangrove Planting", res.Report.Category)
}

func TestSubmitPublishFailureKeepsReport(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	res, err := f.pipeline.Submit(context.Background(), submission(photos()[0]))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Report.ID)
	assert.Equal(t, 1, f.summary(t).Reports)
}

func TestSubmitConcurrentSameUser(t *testing.T) {
	f := newFixture()
	imgs := photos()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		kinds    []verdict.Kind
	)
	for _, img := range imgs {
		wg.Add(1)
		go func(img []byte) {
			defer wg.Done()
			_, err := f.pipeline.Submit(context.Background(), submission(img))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			kinds = append(kinds, verdict.KindOf(err))
		}(img)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	for _, k := range kinds {
		assert.Equal(t, verdict.CooldownActive, k)
	}
	assert.Equal(t, 1, f.summary(t).Reports)
}

func TestQuickVerify(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline.QuickVerify(context.Background(), photos()[0], claimed)
	require.NoError(t, err)
	assert.InDelta(t, 0.62, res.Confidence, 1e-9)
	assert.Equal(t, []string{"water_bottle", "ashcan"}, models.LabelNames(res.Labels))
	assert.Equal(t, 0, f.summary(t).Reports)

	f.stub.Fixed = []models.Label{{Name: "tabby", Confidence: 0.8}, {Name: "golden_retriever", Confidence: 0.1}}
	_, err = f.pipeline.QuickVerify(context.Background(), photos()[0], claimed)
	require.Error(t, err)
	assert.Equal(t, verdict.ValidationFailed, verdict.KindOf(err))
	assert.Equal(t, ReasonNoEnvironmentalElements, verdict.From(err).Reason)

	_, err = f.pipeline.QuickVerify(context.Background(), imagetest.PNG(imagetest.Checker()), "")
	assert.Equal(t, verdict.AuthenticityRejected, verdict.KindOf(err))

	_, err = f.pipeline.QuickVerify(context.Background(), imagetest.WithDimensions(photos()[0], 8000, 8000), claimed)
	assert.Equal(t, verdict.InvalidInput, verdict.KindOf(err))
	assert.Equal(t, ReasonImageTooLarge, verdict.From(err).Reason)
}

func TestSubmitImagePixelLimit(t *testing.T) {
	f := newFixture()
	f.pipeline.maxPixels = 64*64 - 1

	_, err := f.pipeline.Submit(context.Background(), submission(photos()[0]))
	assert.Equal(t, verdict.InvalidInput, verdict.KindOf(err))

	f.pipeline.maxPixels = 64 * 64
	_, err = f.pipeline.Submit(context.Background(), submission(photos()[0]))
	assert.NoError(t, err)
}

func TestLocationCell(t *testing.T) {
	lat, lon := 48.8584, 2.2945
	cell := LocationCell(&lat, &lon)
	assert.Equal(t, 13, s2.CellIDFromToken(cell).Level())
	assert.Equal(t, cell, LocationCell(&lat, &lon))

	far := lon + 1
	assert.NotEqual(t, cell, LocationCell(&lat, &far))
	assert.Empty(t, LocationCell(nil, &lon))
}
