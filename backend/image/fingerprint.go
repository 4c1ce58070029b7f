package image

import (
	"fmt"
	"image"
	"strings"

	"github.com/corona10/goimagehash"
)

// Fingerprint is a 64-bit average hash of a photo.
type Fingerprint struct {
	hash *goimagehash.ImageHash
}

// NewFingerprint computes the average hash of an encoded photo.
func NewFingerprint(data []byte) (*Fingerprint, error) {
	img, err := Decode(data, DefaultMaxPixels)
	if err != nil {
		return nil, err
	}
	return FingerprintOf(img)
}

func FingerprintOf(img image.Image) (*Fingerprint, error) {
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}
	return &Fingerprint{hash: h}, nil
}

// ParseFingerprint parses the canonical "a:<16 hex>" encoding. A bare hex
// digest, as written by older clients, is read as an average hash.
func ParseFingerprint(s string) (*Fingerprint, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		s = "a:" + s
	}
	h, err := goimagehash.ImageHashFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if h.GetKind() != goimagehash.AHash {
		return nil, fmt.Errorf("invalid fingerprint %q: not an average hash", s)
	}
	return &Fingerprint{hash: h}, nil
}

// String returns the canonical encoding stored in the ledger.
func (f *Fingerprint) String() string {
	return f.hash.ToString()
}

// Bits returns the digest length in bits.
func (f *Fingerprint) Bits() int {
	return f.hash.Bits()
}

// Distance returns the Hamming distance between two fingerprints.
func (f *Fingerprint) Distance(other *Fingerprint) (int, error) {
	return f.hash.Distance(other.hash)
}
