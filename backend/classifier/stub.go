package classifier

import (
	"context"
	"crypto/sha256"

	"ecoguardian/backend/models"
)

// Stub is a deterministic, no-network classifier for local runs and tests.
// It returns Fixed when set; otherwise it picks labels from the image digest.
type Stub struct {
	Fixed []models.Label
	Err   error
}

var stubVocabulary = []string{
	"water_bottle", "trash_can", "carton", "ashcan", "banana", "plastic_bag",
	"laptop", "recycle_bin", "pot", "paper_towel", "bucket", "leaf_beetle",
}

func NewStub(fixed ...models.Label) *Stub {
	return &Stub{Fixed: fixed}
}

func (s *Stub) SourceName() string { return "stub" }

func (s *Stub) Classify(ctx context.Context, image []byte, topK int) ([]models.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Fixed) > 0 {
		out := append([]models.Label(nil), s.Fixed...)
		if topK > 0 && len(out) > topK {
			out = out[:topK]
		}
		return out, nil
	}

	sum := sha256.Sum256(image)
	if topK <= 0 || topK > len(stubVocabulary) {
		topK = len(stubVocabulary)
	}
	out := make([]models.Label, 0, topK)
	used := make(map[int]bool, topK)
	confidence := 0.9
	for i := 0; len(out) < topK; i++ {
		idx := int(sum[i%len(sum)]) % len(stubVocabulary)
		for used[idx] {
			idx = (idx + 1) % len(stubVocabulary)
		}
		used[idx] = true
		out = append(out, models.Label{Name: stubVocabulary[idx], Confidence: confidence})
		confidence /= 2
	}
	return out, nil
}
