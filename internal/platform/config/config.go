// Package config loads MnemoLite's environment-driven configuration surface,
// following the teacher's pkg/config pattern (godotenv + typed getEnv helpers).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// Config is the full environment-driven configuration surface from spec §6.
type Config struct {
	Database  DatabaseConfig
	Cache     CacheConfig
	Stream    StreamConfig
	Chunking  ChunkingConfig
	Embedding EmbeddingConfig
	Rerank    RerankConfig
	Timeouts  TimeoutConfig
	OpenAI    OpenAIConfig
	Git       GitConfig
}

// DatabaseConfig holds Postgres connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CacheConfig configures the cascading L1/L2 cache (C2).
type CacheConfig struct {
	L1MaxMB  int
	L1TTL    time.Duration // 0 disables TTL-based eviction; see SPEC_FULL §12
	L2URL    string        // empty => L1-only mode
}

// StreamConfig configures the producer/consumer stream (C7/C8).
type StreamConfig struct {
	BatchSize     int
	BatchTimeout  time.Duration
	MaxFiles      int
	WarnFiles     int
	StreamMaxLen  int64
	StatusTTL     time.Duration
	IncludeTests  bool
}

// ChunkingConfig configures C3.
type ChunkingConfig struct {
	MaxChunkSize int
}

// EmbeddingConfig configures C5. Dimension is enforced to 768 by Validate.
type EmbeddingConfig struct {
	Dimension int
	Model     string
	CacheTTL  time.Duration
}

// RerankConfig configures C12. An empty Model disables reranking.
type RerankConfig struct {
	Model    string
	Endpoint string
}

// TimeoutConfig carries one named timeout per externally-bounded operation
// (C14), each independently env-overridable.
type TimeoutConfig struct {
	Lexical     time.Duration
	Vector      time.Duration
	EmbedSingle time.Duration
	EmbedBatch  time.Duration
	BatchWorker time.Duration
	StreamBlock time.Duration
}

// OpenAIConfig is embedding-provider configuration.
type OpenAIConfig struct {
	APIKey string
}

// GitConfig mirrors the teacher's git clone/auth settings, used by the C7
// producer when scanning a cloned repository.
type GitConfig struct {
	CloneDir      string
	SSHKeyPath    string
	SSHKnownHosts string
	DefaultBranch string
}

// Load reads environment variables (optionally seeded from an .env file) and
// validates the result. A missing .env file is tolerated; everything else
// falls back to getEnv defaults.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "mnemolite"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "mnemolite"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			L1MaxMB: getEnvAsInt("CACHE_L1_MAX_MB", 256),
			L1TTL:   getEnvAsDurationSeconds("CACHE_L1_TTL_SECONDS", 0),
			L2URL:   getEnv("CACHE_L2_URL", ""),
		},
		Stream: StreamConfig{
			BatchSize:    getEnvAsInt("BATCH_SIZE", 40),
			BatchTimeout: getEnvAsDurationSeconds("BATCH_TIMEOUT", 300*time.Second),
			MaxFiles:     getEnvAsInt("PRODUCER_MAX_FILES", 10000),
			WarnFiles:    getEnvAsInt("PRODUCER_WARN_FILES", 5000),
			StreamMaxLen: int64(getEnvAsInt("STREAM_MAX_LEN", 1000)),
			StatusTTL:    getEnvAsDurationSeconds("STATUS_TTL_SECONDS", 24*time.Hour),
			IncludeTests: getEnvAsBool("INCLUDE_TESTS", false),
		},
		Chunking: ChunkingConfig{
			MaxChunkSize: getEnvAsInt("MAX_CHUNK_SIZE", 2000),
		},
		Embedding: EmbeddingConfig{
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", domain.EmbeddingDimension),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			CacheTTL:  getEnvAsDurationSeconds("EMBEDDING_CACHE_TTL_SECONDS", 10*time.Minute),
		},
		Rerank: RerankConfig{
			Model:    getEnv("RERANK_MODEL", ""),
			Endpoint: getEnv("RERANK_ENDPOINT", "http://localhost:8081/rerank"),
		},
		Timeouts: TimeoutConfig{
			Lexical:     getEnvAsDurationSeconds("TIMEOUT_LEXICAL", 5*time.Second),
			Vector:      getEnvAsDurationSeconds("TIMEOUT_VECTOR", 5*time.Second),
			EmbedSingle: getEnvAsDurationSeconds("TIMEOUT_EMBED_SINGLE", 30*time.Second),
			EmbedBatch:  getEnvAsDurationSeconds("TIMEOUT_EMBED_BATCH", 60*time.Second),
			BatchWorker: getEnvAsDurationSeconds("TIMEOUT_BATCH_WORKER", 300*time.Second),
			StreamBlock: getEnvAsDurationSeconds("TIMEOUT_STREAM_BLOCK", 5*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
		},
		Git: GitConfig{
			CloneDir:      getEnv("GIT_CLONE_DIR", "/var/lib/mnemolite/repos"),
			SSHKeyPath:    getEnv("GIT_SSH_KEY_PATH", ""),
			SSHKnownHosts: getEnv("GIT_SSH_KNOWN_HOSTS", ""),
			DefaultBranch: getEnv("GIT_DEFAULT_BRANCH", "main"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces embedding_dimension=768 at start-up per spec §6.
func (c *Config) Validate() error {
	if c.Embedding.Dimension != domain.EmbeddingDimension {
		return fmt.Errorf("embedding_dimension must be %d, got %d", domain.EmbeddingDimension, c.Embedding.Dimension)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads a raw time.Duration string (e.g. "500ms").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDurationSeconds reads a plain integer and interprets it as seconds,
// matching spec §6's "Per-operation timeout in seconds".
func getEnvAsDurationSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
