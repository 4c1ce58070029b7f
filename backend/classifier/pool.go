package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecoguardian/backend/metrics"
	"ecoguardian/backend/models"
	"ecoguardian/backend/verdict"

	"github.com/apex/log"
	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent classifier calls and applies a per-call timeout.
// Waiting for a slot counts against the same timeout.
type Pool struct {
	classifier Classifier
	sem        *semaphore.Weighted
	timeout    time.Duration
}

func NewPool(c Classifier, size int, timeout time.Duration) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		classifier: c,
		sem:        semaphore.NewWeighted(int64(size)),
		timeout:    timeout,
	}
}

// Classify runs the classifier, returning a ClassifierUnavailable error on
// timeout or failure. Calls are never retried.
func (p *Pool) Classify(ctx context.Context, image []byte, topK int) ([]models.Label, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		metrics.ClassifierCallsTotal.WithLabelValues("queue_timeout").Inc()
		return nil, unavailable(err)
	}

	start := time.Now()
	type result struct {
		labels []models.Label
		err    error
	}
	done := make(chan result, 1)
	metrics.ClassifierInFlight.Inc()
	go func() {
		// The slot is held until the classifier returns, even if the caller gave up.
		defer p.sem.Release(1)
		defer metrics.ClassifierInFlight.Dec()
		labels, err := p.classifier.Classify(ctx, image, topK)
		done <- result{labels, err}
	}()

	select {
	case <-ctx.Done():
		metrics.ClassifierCallsTotal.WithLabelValues("timeout").Inc()
		log.Warnf("Classifier %s timed out after %v", p.classifier.SourceName(), time.Since(start))
		return nil, unavailable(ctx.Err())
	case r := <-done:
		metrics.ClassifierDurationSeconds.Observe(time.Since(start).Seconds())
		if r.err != nil {
			metrics.ClassifierCallsTotal.WithLabelValues("error").Inc()
			log.Errorf("Classifier %s failed: %v", p.classifier.SourceName(), r.err)
			return nil, unavailable(r.err)
		}
		metrics.ClassifierCallsTotal.WithLabelValues("ok").Inc()
		return r.labels, nil
	}
}

func unavailable(err error) error {
	reason := "Classifier unavailable."
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "Classifier timed out."
	}
	return verdict.Wrap(verdict.ClassifierUnavailable, reason, fmt.Errorf("classify: %w", err))
}
