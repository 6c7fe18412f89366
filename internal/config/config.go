package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	// CST API access shared by both pipelines.
	CSTAPIKey    string
	CSTBaseURL   string
	CSTTimeout   time.Duration
	CSTRateLimit float64 // requests per second, 0 means unlimited

	LookupCacheSize int

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	MetricsAddr     string
	MetricsTextfile string

	// Optional sinks.
	KafkaBrokers     []string
	KafkaEventsTopic string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is applied first when present; variables
// already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("CST_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid CST_TIMEOUT")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("CST_RATE_LIMIT", "0"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid CST_RATE_LIMIT")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("LOOKUP_CACHE_SIZE", "0"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid LOOKUP_CACHE_SIZE")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		CSTAPIKey:    os.Getenv("CST_API_KEY"),
		CSTBaseURL:   os.Getenv("CST_BASE_URL"),
		CSTTimeout:   timeout,
		CSTRateLimit: rateLimit,

		LookupCacheSize: cacheSize,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,

		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		KafkaBrokers:     brokers,
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "snowtistics-events"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3UseSSL:    os.Getenv("S3_USE_SSL") == "true",
	}

	if cfg.CSTAPIKey == "" {
		return nil, errors.New("CST_API_KEY is required")
	}
	if cfg.CSTBaseURL == "" {
		return nil, errors.New("CST_BASE_URL is required")
	}
	if cfg.S3Endpoint != "" && cfg.S3Bucket == "" {
		return nil, errors.New("S3_ENDPOINT is set but S3_BUCKET is not")
	}

	return cfg, nil
}

// KafkaEnabled reports whether event rows should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// UploadEnabled reports whether output files should be uploaded to object storage.
func (c *Config) UploadEnabled() bool {
	return c.S3Endpoint != ""
}
