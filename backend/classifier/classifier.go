package classifier

import (
	"context"

	"ecoguardian/backend/models"
)

// Classifier labels a normalized photo. Implementations must be safe for
// concurrent use; results are ordered by descending confidence.
type Classifier interface {
	Classify(ctx context.Context, image []byte, topK int) ([]models.Label, error)
	// SourceName is a short label for logs and metrics.
	SourceName() string
}
