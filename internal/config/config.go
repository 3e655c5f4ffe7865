// Package config loads pipeline configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for one indexing run.
type Config struct {
	// MongoDB (source document store)
	MongoURI         string
	MongoCollection  string
	MongoMaxPoolSize int
	MongoBatchSize   int // cursor batch size

	// OpenSearch (search cluster)
	OpenSearchHosts       []string
	OpenSearchUser        string
	OpenSearchPassword    string
	OpenSearchVerifyCerts bool
	IndexPrefix           string
	StatusIndexName       string

	// Pipeline sizing
	NumWorkers    int // P, pool size
	BulkSize      int // B, commands per flush
	QueueCapacity int // Q, document queue capacity

	// Flags
	UpdateStatus bool
	SignalStats  bool

	// Webhook subscriber (ambient observability fanout)
	WebhookURL           string
	WebhookTimeout       time.Duration
	WebhookMaxRetries    int
	WebhookMaxConcurrent int
	WebhookRatePerSecond float64

	// Run history cache
	HistoryDir string
}

// Load reads configuration from environment variables, falling back to a
// .env file in the working directory if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017/research_db"),
		MongoCollection:  getEnv("MONGODB_COLLECTION", "research_records"),
		MongoMaxPoolSize: getEnvInt("MONGO_MAX_POOL_SIZE", 20),
		MongoBatchSize:   getEnvInt("MONGO_BATCH_SIZE", 100),

		OpenSearchHosts:       strings.Split(getEnv("OPENSEARCH_HOSTS", "https://localhost:9200"), ","),
		OpenSearchUser:        getEnv("OPENSEARCH_USER", "admin"),
		OpenSearchPassword:    getEnv("OPENSEARCH_PASSWORD", "admin"),
		OpenSearchVerifyCerts: getEnv("OPENSEARCH_VERIFY_CERTS", "false") == "true",
		IndexPrefix:           getEnv("OPENSEARCH_INDEX_PREFIX", "verindex_"),
		StatusIndexName:       getEnv("OPENSEARCH_STATUS_INDEX", "verindex_status"),

		NumWorkers:    getEnvInt("NUM_WORKERS", 8),
		BulkSize:      getEnvInt("BULK_SIZE", 500),
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 1000),

		UpdateStatus: getEnv("UPDATE_STATUS", "true") == "true",
		SignalStats:  getEnv("SIGNAL_STATS", "true") == "true",

		WebhookURL:           getEnv("WEBHOOK_URL", ""),
		WebhookTimeout:       time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,
		WebhookMaxRetries:    getEnvInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookMaxConcurrent: getEnvInt("WEBHOOK_MAX_CONCURRENT", 2),
		WebhookRatePerSecond: getEnvFloat("WEBHOOK_RATE_PER_SECOND", 10),

		HistoryDir: getEnv("HISTORY_DIR", ".verindex-history"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
