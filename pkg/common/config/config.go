package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultStoreURL = "mongodb://localhost:27017"

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Prediction log / patient registry store
	StoreURL              string
	StoreDatabase         string
	PredictionsCollection string

	// Pre-fitted artifacts
	ArtifactDir string
	ScalerPath  string
	ModelPath   string

	// Redis history cache
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	HistoryCacheTTL time.Duration

	// Kafka
	KafkaBrokers         []string
	KafkaPredictionTopic string

	// Prediction log writer
	WriterQueueSize     int
	WriterAppendTimeout time.Duration

	RateLimitRPS   int
	RateLimitBurst int
}

// LoadDotEnv reads a .env file into the process environment when present.
// Variables that are already set are left untouched.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func Load() *Config {
	artifactDir := getEnv("ARTIFACT_DIR", "artifacts")

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "5001"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		StoreURL:              getEnv("STORE_URL", getEnv("MONGODB_URI", defaultStoreURL)),
		StoreDatabase:         getEnv("STORE_DATABASE", "cardioguard"),
		PredictionsCollection: getEnv("STORE_PREDICTIONS_COLLECTION", "predictions"),

		ArtifactDir: artifactDir,
		ScalerPath:  getEnv("SCALER_PATH", filepath.Join(artifactDir, "scaler.yaml")),
		ModelPath:   getEnv("MODEL_PATH", filepath.Join(artifactDir, "classifier.yaml")),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),
		HistoryCacheTTL: getDuration("HISTORY_CACHE_TTL", 30*time.Second),

		KafkaBrokers:         getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaPredictionTopic: getEnv("KAFKA_PREDICTION_TOPIC", "cardioguard.predictions"),

		WriterQueueSize:     getIntEnv("WRITER_QUEUE_SIZE", 256),
		WriterAppendTimeout: getDuration("WRITER_APPEND_TIMEOUT", 5*time.Second),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 0),
	}
}

// Validate reports configuration that would leave the service half-initialised.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StoreURL) == "" {
		return errors.New("STORE_URL is required")
	}
	if _, err := StoreScheme(c.StoreURL); err != nil {
		return err
	}
	if c.ScalerPath == "" {
		return errors.New("SCALER_PATH is required")
	}
	if c.ModelPath == "" {
		return errors.New("MODEL_PATH is required")
	}
	if c.WriterQueueSize <= 0 {
		return fmt.Errorf("WRITER_QUEUE_SIZE must be positive, got %d", c.WriterQueueSize)
	}
	if c.WriterAppendTimeout <= 0 {
		return fmt.Errorf("WRITER_APPEND_TIMEOUT must be positive, got %s", c.WriterAppendTimeout)
	}
	return nil
}

// StoreScheme normalises the scheme of a store URL to one of
// "mongodb", "postgres" or "sqlite".
func StoreScheme(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid STORE_URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return "mongodb", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "file":
		return "sqlite", nil
	case "":
		return "", fmt.Errorf("STORE_URL %q has no scheme", raw)
	default:
		return "", fmt.Errorf("unsupported STORE_URL scheme %q", u.Scheme)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
