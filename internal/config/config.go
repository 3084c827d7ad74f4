// Package config loads and validates the sitequery configuration.
//
// Configuration is environment-first: every knob has a SITEQUERY_* variable.
// An optional YAML file (SITEQUERY_CONFIG) provides a base layer; environment
// variables always win. A .env file in the working directory is honored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete sitequery configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Content ContentConfig `yaml:"content"`
	Vector  VectorConfig  `yaml:"vector"`
	LLM     LLMConfig     `yaml:"llm"`
	Embed   EmbedConfig   `yaml:"embeddings"`
	Search  SearchConfig  `yaml:"search"`
	Index   IndexConfig   `yaml:"index"`
	Suggest SuggestConfig `yaml:"suggest"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
}

// ContentConfig configures the CMS content source.
type ContentConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Types        []string      `yaml:"types"`
	PageSize     int           `yaml:"page_size"`
	MaxPages     int           `yaml:"max_pages"`
	MaxInFlight  int           `yaml:"max_in_flight"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// VectorConfig configures the Qdrant vector database.
type VectorConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxInFlight int           `yaml:"max_in_flight"`
	QueueLimit  int           `yaml:"queue_limit"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig configures the search pipeline defaults.
type SearchConfig struct {
	DefaultAIWeight  float64 `yaml:"default_ai_weight"`
	RRFConstant      int     `yaml:"rrf_constant"`
	RerankTopM       int     `yaml:"rerank_top_m"`
	MaxVariants      int     `yaml:"max_variants"`
	VariantWorkers   int     `yaml:"variant_workers"`
	RetrievalLimit   int     `yaml:"retrieval_limit"`
	AnswerSources    int     `yaml:"answer_sources"`
	MaxTFIDFFeatures int     `yaml:"max_tfidf_features"`
}

// IndexConfig configures the indexing pipeline.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	EmbedBatch   int `yaml:"embed_batch"`
}

// SuggestConfig configures the query suggestion store.
type SuggestConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	MaxTracked    int    `yaml:"max_tracked"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			RateLimitPerMin: 300,
		},
		Content: ContentConfig{
			Types:        []string{"post", "page"},
			PageSize:     50,
			MaxPages:     100,
			MaxInFlight:  8,
			FetchTimeout: 20 * time.Second,
		},
		Vector: VectorConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "sitequery",
			BatchSize:  50,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Timeout:     15 * time.Second,
			MaxInFlight: 16,
			QueueLimit:  64,
		},
		Embed: EmbedConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			CacheSize:  1000,
		},
		Search: SearchConfig{
			DefaultAIWeight:  0.7,
			RRFConstant:      60,
			RerankTopM:       20,
			MaxVariants:      3,
			VariantWorkers:   8,
			RetrievalLimit:   50,
			AnswerSources:    5,
			MaxTFIDFFeatures: 10000,
		},
		Index: IndexConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			EmbedBatch:   32,
		},
		Suggest: SuggestConfig{
			MaxTracked: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file, and
// the environment, then validates it.
func Load() (Config, error) {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("SITEQUERY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config values from SITEQUERY_* environment variables.
func (c *Config) applyEnv() {
	envString(&c.Server.Addr, "SITEQUERY_ADDR")
	envDuration(&c.Server.RequestTimeout, "SITEQUERY_REQUEST_TIMEOUT")
	envInt(&c.Server.RateLimitPerMin, "SITEQUERY_RATE_LIMIT_PER_MIN")

	envString(&c.Content.BaseURL, "SITEQUERY_CONTENT_URL")
	envDuration(&c.Content.FetchTimeout, "SITEQUERY_FETCH_TIMEOUT")
	envInt(&c.Content.MaxInFlight, "SITEQUERY_FETCH_MAX_IN_FLIGHT")

	envString(&c.Vector.Host, "SITEQUERY_QDRANT_HOST")
	envInt(&c.Vector.Port, "SITEQUERY_QDRANT_PORT")
	envString(&c.Vector.APIKey, "SITEQUERY_QDRANT_API_KEY")
	envBool(&c.Vector.UseTLS, "SITEQUERY_QDRANT_TLS")
	envString(&c.Vector.Collection, "SITEQUERY_COLLECTION")
	envInt(&c.Vector.BatchSize, "SITEQUERY_VECTOR_BATCH")

	envString(&c.LLM.BaseURL, "SITEQUERY_LLM_URL")
	envString(&c.LLM.APIKey, "SITEQUERY_LLM_API_KEY")
	envString(&c.LLM.Model, "SITEQUERY_LLM_MODEL")
	envDuration(&c.LLM.Timeout, "SITEQUERY_LLM_TIMEOUT")
	envInt(&c.LLM.MaxInFlight, "SITEQUERY_LLM_MAX_IN_FLIGHT")

	envString(&c.Embed.BaseURL, "SITEQUERY_EMBED_URL")
	envString(&c.Embed.APIKey, "SITEQUERY_EMBED_API_KEY")
	envString(&c.Embed.Model, "SITEQUERY_EMBED_MODEL")
	envInt(&c.Embed.Dimensions, "SITEQUERY_EMBED_DIMENSIONS")

	envFloat(&c.Search.DefaultAIWeight, "SITEQUERY_AI_WEIGHT")

	envInt(&c.Index.ChunkSize, "SITEQUERY_CHUNK_SIZE")
	envInt(&c.Index.ChunkOverlap, "SITEQUERY_CHUNK_OVERLAP")

	envString(&c.Suggest.RedisAddr, "SITEQUERY_REDIS_ADDR")
	envString(&c.Suggest.RedisPassword, "SITEQUERY_REDIS_PASSWORD")

	envString(&c.Logging.Level, "SITEQUERY_LOG_LEVEL")
	envString(&c.Logging.Format, "SITEQUERY_LOG_FORMAT")
}

// Validate normalizes and bounds all configuration values.
func (c *Config) Validate() error {
	if c.Vector.Collection == "" {
		return fmt.Errorf("vector collection name must not be empty")
	}
	if c.Embed.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embed.Dimensions)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.Index.ChunkOverlap)
	}
	if c.Search.DefaultAIWeight < 0 || c.Search.DefaultAIWeight > 1 {
		return fmt.Errorf("default ai weight must be in [0,1], got %g", c.Search.DefaultAIWeight)
	}
	if c.Vector.BatchSize <= 0 {
		c.Vector.BatchSize = 50
	}
	if c.Search.VariantWorkers <= 0 {
		c.Search.VariantWorkers = 8
	}
	if c.Search.RRFConstant <= 0 {
		c.Search.RRFConstant = 60
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 15 * time.Second
	}
	return nil
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
