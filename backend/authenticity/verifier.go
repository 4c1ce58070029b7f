package authenticity

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	imgpkg "ecoguardian/backend/image"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	ReasonNoMetadata = "Security Alert: No Camera Metadata"
	ReasonTooOld     = "Security Alert: Photo is too old"
	ReasonVerified   = "Authenticity Verified"

	DefaultTolerance = 24 * time.Hour

	exifTimeLayout = "2006:01:02 15:04:05"
)

var claimedLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Verifier is a forensic heuristic over photo metadata. It raises the cost of
// submitting screenshots and stale photos; it is not a security boundary.
type Verifier struct {
	tolerance time.Duration
}

func NewVerifier(tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{tolerance: tolerance}
}

// Verify returns nil when the photo passes, or an AuthenticityRejected error.
// claimed is the client capture time (ISO-8601) and may be empty.
func (v *Verifier) Verify(image []byte, claimed string) error {
	block, ok := imgpkg.ExifBlock(image)
	if !ok {
		return verdict.New(verdict.AuthenticityRejected, ReasonNoMetadata)
	}

	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			return metadataError(err)
		}
		log.Warnf("Non-critical EXIF decode error: %v", err)
	}

	claimed = strings.TrimSpace(claimed)
	if claimed == "" {
		return nil
	}
	raw, ok := captureTimeTag(x)
	if !ok {
		return nil
	}

	captured, err := time.Parse(exifTimeLayout, raw)
	if err != nil {
		return metadataError(err)
	}
	claimedAt, err := ParseClaimedTime(claimed)
	if err != nil {
		return metadataError(err)
	}

	delta := claimedAt.Sub(captured)
	if delta < 0 {
		delta = -delta
	}
	if delta > v.tolerance {
		return verdict.New(verdict.AuthenticityRejected, ReasonTooOld)
	}
	return nil
}

// ParseClaimedTime parses an ISO-8601 client timestamp. Zoned values are
// converted to UTC; zone-less values are read as UTC wall clock, the same way
// EXIF capture times are read.
func ParseClaimedTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range claimedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid capture timestamp %q", s)
}

func captureTimeTag(x *exif.Exif) (string, bool) {
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
		if s != "" {
			return s, true
		}
	}
	return "", false
}

func metadataError(err error) error {
	return verdict.Wrap(verdict.AuthenticityRejected, "Metadata Error: "+err.Error(), err)
}
