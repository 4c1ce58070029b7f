package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoguardian/backend/authenticity"
	"ecoguardian/backend/certificate"
	"ecoguardian/backend/classifier"
	"ecoguardian/backend/config"
	"ecoguardian/backend/db"
	"ecoguardian/backend/fraud"
	"ecoguardian/backend/metrics"
	"ecoguardian/backend/rabbitmq"
	"ecoguardian/backend/ratelimit"
	"ecoguardian/backend/rules"
	"ecoguardian/backend/server"
	"ecoguardian/backend/submission"
	"ecoguardian/common"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using system environment variables")
	}
	cfg := config.Load()

	log.SetLevelFromString(cfg.LogLevel)
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer store.Close()

	table := rules.Default()
	if cfg.RulesFile != "" {
		if table, err = rules.Load(cfg.RulesFile); err != nil {
			log.Fatalf("Failed to load rules: %v", err)
		}
	}
	log.Infof("Loaded rules for categories %v", table.Categories())

	var publisher submission.Publisher
	if cfg.AMQPURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.RabbitExchange, cfg.RabbitReportRoutingKey)
		if err != nil {
			log.Fatalf("Failed to create RabbitMQ publisher: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Infof("Publishing accepted reports to %s/%s", p.Exchange(), p.RoutingKey())
	} else {
		log.Warn("AMQP_URL is not set, accepted reports will not be published")
	}

	pipeline := submission.New(submission.Options{
		Verifier:       authenticity.NewVerifier(cfg.AuthenticityTolerance),
		Limiter:        ratelimit.NewLimiter(cfg.DailyReportLimit, cfg.SubmissionCooldown, time.Local),
		Detector:       fraud.NewDetector(cfg.DuplicateWindow, cfg.DuplicateThresholdPercent),
		Classifier:     classifier.NewPool(newClassifier(cfg), cfg.ClassifierConcurrency, cfg.ClassifierTimeout),
		Engine:         rules.NewEngine(table),
		Ledger:         store,
		Publisher:      publisher,
		TopK:           cfg.ClassifierTopK,
		RewardPoints:   cfg.RewardPoints,
		MaxImagePixels: cfg.MaxImagePixels,
	})

	router := server.NewRouter(server.Options{
		Pipeline:        pipeline,
		Certificates:    certificate.NewService(store, store, time.Local),
		Ledger:          store,
		Storage:         cfg.StorageDriver,
		PublicBaseURL:   cfg.PublicBaseURL,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		VerifyCertRate:  cfg.VerifyCertRate,
		VerifyCertBurst: cfg.VerifyCertBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	log.Info("Server exited")
}

func openStore(cfg *config.Config) (db.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		return db.NewMemory(), nil
	case config.StorageMySQL:
		conn, err := common.DBConnect(common.DBOptions{
			Host:            cfg.DBHost,
			Port:            cfg.DBPort,
			User:            cfg.DBUser,
			Password:        cfg.DBPassword,
			Name:            cfg.DBName,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(conn); err != nil {
			conn.Close()
			return nil, err
		}
		return db.NewMySQL(conn), nil
	}
	return nil, errors.New("unknown STORAGE_DRIVER " + cfg.StorageDriver)
}

func newClassifier(cfg *config.Config) classifier.Classifier {
	if cfg.ClassifierURL == "" {
		log.Warn("CLASSIFIER_URL is not set, using the deterministic stub classifier")
		return classifier.NewStub()
	}
	log.Infof("Using classifier at %s", cfg.ClassifierURL)
	return classifier.NewHTTPClient(cfg.ClassifierURL)
}
