package fraud

import (
	"testing"
	"time"

	"ecoguardian/backend/image"
	"ecoguardian/backend/image/imagetest"
	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprint(t *testing.T, data []byte) *image.Fingerprint {
	fp, err := image.NewFingerprint(data)
	require.NoError(t, err)
	return fp
}

func TestIsDuplicateThreshold(t *testing.T) {
	d := NewDetector(0, 0)
	// 10% of 64 bits is 6.4: distances up to 6 are duplicates.
	for distance := 0; distance <= 6; distance++ {
		assert.True(t, d.IsDuplicate(distance, 64), "distance %d", distance)
	}
	for distance := 7; distance <= 64; distance++ {
		assert.False(t, d.IsDuplicate(distance, 64), "distance %d", distance)
	}
}

func TestCheck(t *testing.T) {
	d := NewDetector(24*time.Hour, 10)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	photo := imagetest.Split(false)
	fp := fingerprint(t, imagetest.JPEG(photo))
	same := fingerprint(t, imagetest.WithExif(photo, "2026:10:15 11:00:00"))
	other := fingerprint(t, imagetest.JPEG(imagetest.Split(true)))

	testCases := []struct {
		name    string
		history []models.Report
		want    verdict.Kind
	}{
		{"No history", nil, ""},
		{"Same photo an hour ago", []models.Report{
			{ID: 1, Fingerprint: same.String(), Timestamp: now.Add(-time.Hour)},
		}, verdict.DuplicateDetected},
		{"Same photo two days ago", []models.Report{
			{ID: 1, Fingerprint: same.String(), Timestamp: now.Add(-48 * time.Hour)},
		}, ""},
		{"Different scene", []models.Report{
			{ID: 1, Fingerprint: other.String(), Timestamp: now.Add(-time.Hour)},
		}, ""},
		{"Malformed stored fingerprint is skipped", []models.Report{
			{ID: 1, Fingerprint: "garbage", Timestamp: now.Add(-time.Hour)},
			{ID: 2, Fingerprint: "", Timestamp: now.Add(-time.Hour)},
		}, ""},
		{"Match after malformed entry", []models.Report{
			{ID: 1, Fingerprint: "garbage", Timestamp: now.Add(-time.Hour)},
			{ID: 2, Fingerprint: other.String(), Timestamp: now.Add(-time.Hour)},
			{ID: 3, Fingerprint: same.String(), Timestamp: now.Add(-2 * time.Hour)},
		}, verdict.DuplicateDetected},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := d.Check(fp, tc.history, now)
			assert.Equal(t, tc.want, verdict.KindOf(err))
		})
	}
}

func TestCheckBoundaryDistance(t *testing.T) {
	d := NewDetector(24*time.Hour, 10)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	base, err := image.ParseFingerprint("a:0000000000000000")
	require.NoError(t, err)
	sixBits := []models.Report{{Fingerprint: "a:000000000000003f", Timestamp: now.Add(-time.Minute)}}
	sevenBits := []models.Report{{Fingerprint: "a:000000000000007f", Timestamp: now.Add(-time.Minute)}}

	assert.Equal(t, verdict.DuplicateDetected, verdict.KindOf(d.Check(base, sixBits, now)))
	assert.NoError(t, d.Check(base, sevenBits, now))
}
