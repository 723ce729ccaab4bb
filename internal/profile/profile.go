// Package profile holds the runtime configuration for the engine host.
package profile

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration to start the engine host.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the HTTP host
	Addr string
	// Port is the binding port for the HTTP host
	Port int
	// DSN points to the relational store (read-only repository)
	DSN string
	// VectorDSN points to the pgvector-enabled database backing the
	// vector collections. May equal DSN when both live in one instance.
	VectorDSN string
	// Version is the current version of the engine
	Version string

	// Vector store pool
	PoolSize       int           // CURIO_POOL_SIZE (default: 10)
	AcquireTimeout time.Duration // CURIO_POOL_ACQUIRE_TIMEOUT (default: 2s)

	// Embedding service (OpenAI-compatible)
	EmbeddingAPIKey  string // CURIO_EMBEDDING_API_KEY
	EmbeddingBaseURL string // CURIO_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)
	EmbeddingModel   string // CURIO_EMBEDDING_MODEL (default: text-embedding-3-small)

	// Optional Redis L2 cache. Empty addr disables it.
	RedisAddr     string // CURIO_REDIS_ADDR
	RedisPassword string // CURIO_REDIS_PASSWORD
	RedisDB       int    // CURIO_REDIS_DB
}

// IsDev reports whether the host runs in development mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled reports whether an embedding provider is configured.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from CURIO_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("CURIO_MODE", p.Mode)
	p.Addr = getEnvOrDefault("CURIO_ADDR", p.Addr)
	p.Port = getIntEnvOrDefault("CURIO_PORT", p.Port)
	p.DSN = getEnvOrDefault("CURIO_DSN", p.DSN)
	p.VectorDSN = getEnvOrDefault("CURIO_VECTOR_DSN", p.VectorDSN)

	p.PoolSize = getIntEnvOrDefault("CURIO_POOL_SIZE", p.PoolSize)
	if v := os.Getenv("CURIO_POOL_ACQUIRE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			p.AcquireTimeout = d
		}
	}

	p.EmbeddingAPIKey = getEnvOrDefault("CURIO_EMBEDDING_API_KEY", p.EmbeddingAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("CURIO_EMBEDDING_BASE_URL", p.EmbeddingBaseURL)
	p.EmbeddingModel = getEnvOrDefault("CURIO_EMBEDDING_MODEL", p.EmbeddingModel)

	p.RedisAddr = getEnvOrDefault("CURIO_REDIS_ADDR", p.RedisAddr)
	p.RedisPassword = getEnvOrDefault("CURIO_REDIS_PASSWORD", p.RedisPassword)
	p.RedisDB = getIntEnvOrDefault("CURIO_REDIS_DB", p.RedisDB)
}

// FromFile loads configuration from a YAML config file via viper. Values
// already set by flags or environment keep precedence for empty fields only.
func (p *Profile) FromFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	if p.Mode == "" {
		p.Mode = v.GetString("mode")
	}
	if p.Addr == "" {
		p.Addr = v.GetString("addr")
	}
	if p.Port == 0 {
		p.Port = v.GetInt("port")
	}
	if p.DSN == "" {
		p.DSN = v.GetString("dsn")
	}
	if p.VectorDSN == "" {
		p.VectorDSN = v.GetString("vector_dsn")
	}
	if p.PoolSize == 0 {
		p.PoolSize = v.GetInt("pool.size")
	}
	if p.AcquireTimeout == 0 {
		p.AcquireTimeout = v.GetDuration("pool.acquire_timeout")
	}
	if p.EmbeddingAPIKey == "" {
		p.EmbeddingAPIKey = v.GetString("embedding.api_key")
	}
	if p.EmbeddingBaseURL == "" {
		p.EmbeddingBaseURL = v.GetString("embedding.base_url")
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = v.GetString("embedding.model")
	}
	if p.RedisAddr == "" {
		p.RedisAddr = v.GetString("redis.addr")
	}
	return nil
}

// Validate fills defaults and rejects unusable configurations.
func (p *Profile) Validate() error {
	if p.Mode == "" {
		p.Mode = "dev"
	}
	if p.Addr == "" {
		p.Addr = "0.0.0.0"
	}
	if p.Port == 0 {
		p.Port = 8090
	}
	if p.PoolSize == 0 {
		p.PoolSize = 10
	}
	if p.AcquireTimeout == 0 {
		p.AcquireTimeout = 2 * time.Second
	}
	if p.EmbeddingBaseURL == "" {
		p.EmbeddingBaseURL = "https://api.openai.com/v1"
	}
	if p.EmbeddingModel == "" {
		p.EmbeddingModel = "text-embedding-3-small"
	}
	if p.VectorDSN == "" {
		p.VectorDSN = p.DSN
	}
	if p.VectorDSN == "" {
		return errors.New("vector store DSN is required")
	}
	return nil
}
