package server

import (
	"net/http"
	"time"

	"ecoguardian/backend/certificate"
	"ecoguardian/backend/db"
	"ecoguardian/backend/server/api"
	"ecoguardian/backend/submission"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHelp         = "/help"
	EndPointHealth       = "/health"
	EndPointMetrics      = "/metrics"
	EndPointSubmitReport = "/submit-report"
	EndPointVerifyAction = "/verify-action"
	EndPointCertificate  = "/certificate/:report_id"
	EndPointVerifyCert   = "/verify-cert/:cert_id"
	EndPointUserSummary  = "/users/:user_id/summary"

	certificatePathPrefix = "/certificate/"
)

// Handlers serves the HTTP API on top of the submission pipeline and the
// certificate service.
type Handlers struct {
	pipeline       *submission.Pipeline
	certificates   *certificate.Service
	ledger         db.Ledger
	storage        string
	publicBaseURL  string
	maxUploadBytes int64
}

type Options struct {
	Pipeline       *submission.Pipeline
	Certificates   *certificate.Service
	Ledger         db.Ledger
	Storage        string
	PublicBaseURL  string
	MaxUploadBytes int64

	// Per client IP throttle of certificate verification.
	VerifyCertRate  float64
	VerifyCertBurst int
}

func NewHandlers(o Options) *Handlers {
	maxUpload := o.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		pipeline:       o.Pipeline,
		certificates:   o.Certificates,
		ledger:         o.Ledger,
		storage:        o.Storage,
		publicBaseURL:  o.PublicBaseURL,
		maxUploadBytes: maxUpload,
	}
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(o Options) *gin.Engine {
	h := NewHandlers(o)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	// Certificates are already-compressed PNGs.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{certificatePathPrefix})))

	router.GET(EndPointHelp, Help)
	router.GET(EndPointHealth, h.Health)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	router.POST(EndPointSubmitReport, h.SubmitReport)
	router.POST(EndPointVerifyAction, h.VerifyAction)
	router.GET(EndPointCertificate, h.GetCertificate)
	router.GET(EndPointVerifyCert, RateLimit(NewIPRateLimiter(o.VerifyCertRate, o.VerifyCertBurst)), h.VerifyCertificate)
	router.GET(EndPointUserSummary, h.GetUserSummary)

	return router
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:  "healthy",
		Service: "ecoguardian",
		Storage: h.storage,
	})
}
