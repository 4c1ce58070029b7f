package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all configuration for the eco-guardian backend.
type Config struct {
	// Server configuration
	Port           string
	PublicBaseURL  string
	MaxUploadBytes int64
	MaxImagePixels int

	// Logging
	LogLevel string

	// Storage configuration
	StorageDriver     string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Classifier configuration
	ClassifierURL         string
	ClassifierTopK        int
	ClassifierConcurrency int
	ClassifierTimeout     time.Duration

	// Verification policy
	RulesFile                 string
	AuthenticityTolerance     time.Duration
	DailyReportLimit          int
	SubmissionCooldown        time.Duration
	DuplicateWindow           time.Duration
	DuplicateThresholdPercent int
	RewardPoints              int

	// RabbitMQ configuration
	AMQPURL                string
	RabbitExchange         string
	RabbitReportRoutingKey string

	// Public certificate verification throttle, per client IP
	VerifyCertRate  float64
	VerifyCertBurst int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		MaxUploadBytes: int64(getIntEnv("MAX_UPLOAD_BYTES", 10<<20)),
		MaxImagePixels: getIntEnv("MAX_IMAGE_PIXELS", 40_000_000),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDriver:     getEnv("STORAGE_DRIVER", StorageMySQL),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "server"),
		DBPassword:        getEnv("DB_PASSWORD", "secret"),
		DBName:            getEnv("DB_NAME", "ecoguardian"),
		DBMaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		ClassifierURL:         getEnv("CLASSIFIER_URL", ""),
		ClassifierTopK:        getIntEnv("CLASSIFIER_TOP_K", 10),
		ClassifierConcurrency: getIntEnv("CLASSIFIER_CONCURRENCY", runtime.NumCPU()),
		ClassifierTimeout:     getDurationEnv("CLASSIFIER_TIMEOUT", 15*time.Second),

		RulesFile:                 getEnv("RULES_FILE", ""),
		AuthenticityTolerance:     getDurationEnv("AUTHENTICITY_TOLERANCE", 24*time.Hour),
		DailyReportLimit:          getIntEnv("DAILY_REPORT_LIMIT", 3),
		SubmissionCooldown:        getDurationEnv("SUBMISSION_COOLDOWN", 3*time.Minute),
		DuplicateWindow:           getDurationEnv("DUPLICATE_WINDOW", 24*time.Hour),
		DuplicateThresholdPercent: getIntEnv("DUPLICATE_THRESHOLD_PERCENT", 10),
		RewardPoints:              getIntEnv("REWARD_POINTS", 50),

		AMQPURL:                getEnv("AMQP_URL", ""),
		RabbitExchange:         getEnv("RABBITMQ_EXCHANGE", "ecoguardian"),
		RabbitReportRoutingKey: getEnv("RABBITMQ_REPORT_ROUTING_KEY", "report.accepted"),

		VerifyCertRate:  getFloatEnv("VERIFY_CERT_RATE", 2),
		VerifyCertBurst: getIntEnv("VERIFY_CERT_BURST", 10),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
