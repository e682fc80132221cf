package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
		Venues:    VenuesConfig{DSN: "postgres://localhost/venues"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_IndexDriver(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"local needs nothing", func(c *Config) { c.Index.Driver = IndexDriverLocal }, ""},
		{"redis without addrs", func(c *Config) { c.Index.Driver = IndexDriverRedis }, "index.redis.addrs"},
		{"redis with addrs", func(c *Config) {
			c.Index.Driver = IndexDriverRedis
			c.Index.Redis.Addrs = []string{"localhost:6379"}
		}, ""},
		{"elastic without addresses", func(c *Config) { c.Index.Driver = IndexDriverElastic }, "index.elasticsearch.addresses"},
		{"unknown driver", func(c *Config) { c.Index.Driver = "chroma" }, `got "chroma"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"embedding model", func(c *Config) { c.Embedding.Model = "" }},
		{"venues dsn", func(c *Config) { c.Venues.DSN = "" }},
		{"cache addrs", func(c *Config) { c.Embedding.Cache.Enabled = true }},
		{"rerank base url", func(c *Config) { c.Rerank.Enabled = true }},
		{"negative weight", func(c *Config) { c.Recommend.Weights.Rerank = -0.1 }},
		{"negative floor", func(c *Config) { v := -1.0; c.Recommend.MinSimilarity = &v }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Index.Driver != IndexDriverLocal {
		t.Errorf("expected local index driver, got %q", cfg.Index.Driver)
	}
	if cfg.Index.Redis.KeyPrefix != "venue:" {
		t.Errorf("expected KeyPrefix='venue:', got %q", cfg.Index.Redis.KeyPrefix)
	}
	r := cfg.Recommend
	if r.RequestedCount != 15 || r.MaxResults != 10 || r.RandomCount != 10 || r.Multiplier != 5 {
		t.Errorf("unexpected recommend defaults: %+v", r)
	}
	if r.MinSimilarity == nil || *r.MinSimilarity != 0.2 {
		t.Errorf("expected min_similarity 0.2, got %v", r.MinSimilarity)
	}
	if *r.Weights != (Weights{Keyword: 0.5, Semantic: 0.3, Rerank: 0.2}) {
		t.Errorf("unexpected default weights: %+v", *r.Weights)
	}
	if cfg.Judge.Attempts != 3 || cfg.Judge.RetryDelayMs != 1000 || cfg.Judge.TimeoutSec != 30 {
		t.Errorf("unexpected judge defaults: %+v", cfg.Judge)
	}
	if cfg.Rewriter.TimeoutSec != 10 {
		t.Errorf("expected rewriter timeout 10, got %d", cfg.Rewriter.TimeoutSec)
	}
	if cfg.Scoring.PoolSize < 1 {
		t.Errorf("expected positive pool size, got %d", cfg.Scoring.PoolSize)
	}
	if cfg.Judge.Enabled() {
		t.Error("judge must be disabled without api key")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0.0
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:     IndexConfig{Driver: IndexDriverRedis, Redis: RedisIndexConfig{KeyPrefix: "custom:"}},
		Recommend: RecommendConfig{MinSimilarity: &zero, Weights: &Weights{Keyword: 0.75, Semantic: 0.2, Rerank: 0.05}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.Redis.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Index.Redis.KeyPrefix)
	}
	if *cfg.Recommend.MinSimilarity != 0 {
		t.Errorf("explicit zero floor overridden: %v", *cfg.Recommend.MinSimilarity)
	}
	if cfg.Recommend.Weights.Keyword != 0.75 {
		t.Errorf("explicit weights overridden: %+v", *cfg.Recommend.Weights)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("VENUERANK_TEST_DSN", "postgres://db/venues")
	data := []byte(`
http:
  port: ${VENUERANK_TEST_PORT:-9090}
embedding:
  model: text-embedding-3-small
venues:
  dsn: ${VENUERANK_TEST_DSN}
recommend:
  min_similarity: 0
  weights:
    keyword: 0.75
    semantic: 0.2
    rerank: 0.05
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Venues.DSN != "postgres://db/venues" {
		t.Errorf("env not expanded: %q", cfg.Venues.DSN)
	}
	if *cfg.Recommend.MinSimilarity != 0 {
		t.Errorf("expected floor 0, got %v", *cfg.Recommend.MinSimilarity)
	}
	if cfg.Recommend.Weights.Rerank != 0.05 {
		t.Errorf("expected rerank weight 0.05, got %v", cfg.Recommend.Weights.Rerank)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VENUERANK_DOTENV_A=from-file\nVENUERANK_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VENUERANK_DOTENV_A", "from-env")
	t.Setenv("VENUERANK_DOTENV_B", "")
	os.Unsetenv("VENUERANK_DOTENV_B")

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	t.Cleanup(func() { os.Unsetenv("VENUERANK_DOTENV_B") })

	if got := os.Getenv("VENUERANK_DOTENV_A"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}
	if got := os.Getenv("VENUERANK_DOTENV_B"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
}
