package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SubmissionsTotal counts /submit-report outcomes: "verified" or a failure kind.
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "submissions",
		Name:      "total",
		Help:      "Total number of report submissions, labeled by outcome.",
	}, []string{"outcome"})

	// QuickChecksTotal counts /verify-action outcomes.
	QuickChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "submissions",
		Name:      "quick_checks_total",
		Help:      "Total number of quick verification checks, labeled by outcome.",
	}, []string{"outcome"})

	ClassifierInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecoguardian",
		Subsystem: "classifier",
		Name:      "in_flight",
		Help:      "Current number of classifier calls holding a pool slot.",
	})

	ClassifierCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "classifier",
		Name:      "calls_total",
		Help:      "Total number of classifier calls, labeled by result.",
	}, []string{"result"})

	ClassifierDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ecoguardian",
		Subsystem: "classifier",
		Name:      "duration_seconds",
		Help:      "Time spent in the classifier for completed calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	})

	CertificatesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "certificates",
		Name:      "issued_total",
		Help:      "Total number of newly issued certificates.",
	})

	CertificateVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "certificates",
		Name:      "verifications_total",
		Help:      "Total number of public certificate lookups, labeled by result.",
	}, []string{"result"})

	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecoguardian",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Total number of report events handed to RabbitMQ, labeled by result.",
	}, []string{"result"})
)

// Register registers the service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			QuickChecksTotal,
			ClassifierInFlight,
			ClassifierCallsTotal,
			ClassifierDurationSeconds,
			CertificatesIssuedTotal,
			CertificateVerificationsTotal,
			EventsPublishedTotal,
		)
	})
}
