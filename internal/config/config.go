package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	IndexDriverLocal   = "local"
	IndexDriverRedis   = "redis"
	IndexDriverElastic = "elasticsearch"
)

// Config holds the venuerank configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Judge     LLMConfig       `yaml:"judge"`
	Rewriter  LLMConfig       `yaml:"rewriter"`
	Venues    VenuesConfig    `yaml:"venues"`
	Recommend RecommendConfig `yaml:"recommend"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Health    HealthConfig    `yaml:"health"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Driver  string             `yaml:"driver"` // local, redis, elasticsearch (default: local)
	Local   LocalIndexConfig   `yaml:"local"`
	Redis   RedisIndexConfig   `yaml:"redis"`
	Elastic ElasticIndexConfig `yaml:"elasticsearch"`
}

// LocalIndexConfig holds the in-process badger index settings.
type LocalIndexConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// RedisIndexConfig holds Redis / Valkey Search connection settings.
type RedisIndexConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ElasticIndexConfig holds Elasticsearch connection settings.
type ElasticIndexConfig struct {
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider         string      `yaml:"provider"`
	APIKey           string      `yaml:"api_key"`
	BaseURL          string      `yaml:"base_url"`
	Model            string      `yaml:"model"`
	QueryInstruction string      `yaml:"query_instruction"`
	TimeoutSec       int         `yaml:"timeout_sec"`
	Cache            CacheConfig `yaml:"cache"`
}

// CacheConfig holds the Redis embedding cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"` // 0 = no expiry
}

// RerankConfig holds cross-encoder service settings.
type RerankConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// LLMConfig holds an OpenAI-compatible chat endpoint used as judge or rewriter.
// An empty APIKey disables the collaborator.
type LLMConfig struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	Attempts     int     `yaml:"attempts"`
	RetryDelayMs int     `yaml:"retry_delay_ms"`
}

// Enabled reports whether credentials are configured.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// VenuesConfig holds the PostgreSQL venue store settings.
type VenuesConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// RecommendConfig holds the pipeline defaults.
type RecommendConfig struct {
	RequestedCount int      `yaml:"requested_count"`
	MaxResults     int      `yaml:"max_results"`
	RandomCount    int      `yaml:"random_count"`
	MinSimilarity  *float64 `yaml:"min_similarity"`
	Multiplier     int      `yaml:"rerank_multiplier"`
	Weights        *Weights `yaml:"weights"`
	Enhance        bool     `yaml:"enhance_query"`
	Concurrency    int      `yaml:"category_concurrency"`
}

// Weights are the fusion weights. They are not normalized.
type Weights struct {
	Keyword  float64 `yaml:"keyword"`
	Semantic float64 `yaml:"semantic"`
	Rerank   float64 `yaml:"rerank"`
}

// ScoringConfig holds the scoring worker pool settings.
type ScoringConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// HealthConfig holds health check settings.
type HealthConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file, when present, is loaded first so it can feed ${VAR} expansion.
func Load(env string) (Config, error) {
	LoadDotEnv()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data and decodes, defaults and validates it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// LoadDotEnv loads the first existing .env file without overriding variables
// already set in the process environment.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join("..", ".env")}
	}
	for _, path := range paths {
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Index.Driver == "" {
		c.Index.Driver = IndexDriverLocal
	}
	if c.Index.Local.Dir == "" {
		c.Index.Local.Dir = "data/venues"
	}
	if c.Index.Redis.IndexName == "" {
		c.Index.Redis.IndexName = "venues"
	}
	if c.Index.Redis.KeyPrefix == "" {
		c.Index.Redis.KeyPrefix = "venue:"
	}
	if c.Index.Redis.ReadinessTimeout <= 0 {
		c.Index.Redis.ReadinessTimeout = 10
	}
	if c.Index.Elastic.Index == "" {
		c.Index.Elastic.Index = "venues"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Rerank.TimeoutSec <= 0 {
		c.Rerank.TimeoutSec = 10
	}
	applyLLMDefaults(&c.Judge, 30)
	applyLLMDefaults(&c.Rewriter, 10)

	if c.Venues.MaxOpenConns <= 0 {
		c.Venues.MaxOpenConns = 10
	}
	if c.Venues.MaxIdleConns <= 0 {
		c.Venues.MaxIdleConns = 5
	}
	if c.Venues.ConnMaxLifetimeSec <= 0 {
		c.Venues.ConnMaxLifetimeSec = 300
	}

	r := &c.Recommend
	if r.RequestedCount <= 0 {
		r.RequestedCount = 15
	}
	if r.MaxResults <= 0 {
		r.MaxResults = 10
	}
	if r.RandomCount <= 0 {
		r.RandomCount = 10
	}
	if r.MinSimilarity == nil {
		v := 0.2
		r.MinSimilarity = &v
	}
	if r.Multiplier <= 0 {
		r.Multiplier = 5
	}
	if r.Weights == nil {
		r.Weights = &Weights{Keyword: 0.5, Semantic: 0.3, Rerank: 0.2}
	}
	if r.Concurrency <= 0 {
		r.Concurrency = 4
	}

	if c.Scoring.PoolSize <= 0 {
		c.Scoring.PoolSize = max(runtime.NumCPU()/2, 1)
	}
	if c.Health.TimeoutSec <= 0 {
		c.Health.TimeoutSec = 3
	}
}

func applyLLMDefaults(c *LLMConfig, timeoutSec int) {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = timeoutSec
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryDelayMs <= 0 {
		c.RetryDelayMs = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Index.Driver {
	case IndexDriverLocal:
	case IndexDriverRedis:
		if len(c.Index.Redis.Addrs) == 0 {
			return errors.New("index.redis.addrs is required for the redis driver")
		}
	case IndexDriverElastic:
		if len(c.Index.Elastic.Addresses) == 0 {
			return errors.New("index.elasticsearch.addresses is required for the elasticsearch driver")
		}
	default:
		return fmt.Errorf("index.driver must be %q, %q or %q, got %q",
			IndexDriverLocal, IndexDriverRedis, IndexDriverElastic, c.Index.Driver)
	}

	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 {
		return errors.New("embedding.cache.addrs is required when the cache is enabled")
	}
	if c.Rerank.Enabled && c.Rerank.BaseURL == "" {
		return errors.New("rerank.base_url is required when rerank is enabled")
	}
	if c.Venues.DSN == "" {
		return errors.New("venues.dsn is required")
	}

	if *c.Recommend.MinSimilarity < 0 {
		return fmt.Errorf("recommend.min_similarity must not be negative, got %v", *c.Recommend.MinSimilarity)
	}
	w := c.Recommend.Weights
	if w.Keyword < 0 || w.Semantic < 0 || w.Rerank < 0 {
		return fmt.Errorf("recommend.weights must not be negative, got %+v", *w)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
