package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{Model: "intfloat/multilingual-e5-large"},
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

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"missing model", func(c *Config) { c.Embedding.Model = "" }, "embedding.model"},
		{"negative dims", func(c *Config) { c.Embedding.Dimensions = -1 }, "embedding.dimensions"},
		{"unknown policy", func(c *Config) { c.Attribution.Policy = "majority" }, "attribution.policy"},
		{"min above max", func(c *Config) { c.Attribution.MinDocuments = 60 }, "min_documents"},
		{"threshold out of range", func(c *Config) { c.Attribution.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"negative noise floor", func(c *Config) { c.Attribution.NoiseFloor = -1 }, "noise_floor"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8000 {
		t.Errorf("expected Port=8000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Cache.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.KeyPrefix != "ontology:" {
		t.Errorf("expected KeyPrefix='ontology:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %q", cfg.Embedding.Provider)
	}
	if !cfg.Embedding.NormalizeEnabled() {
		t.Error("expected normalize enabled by default")
	}
	if cfg.Content.ResultsLimit != 60 || cfg.Content.TimeoutSec != 90 {
		t.Errorf("unexpected content defaults: %+v", cfg.Content)
	}
	if cfg.Attribution.Policy != "weighted_sum" {
		t.Errorf("expected Policy=weighted_sum, got %q", cfg.Attribution.Policy)
	}
	if cfg.Attribution.MaxPosts != 50 || cfg.Attribution.MinDocuments != 3 {
		t.Errorf("unexpected document bounds: %+v", cfg.Attribution)
	}
	if cfg.Attribution.NoiseFloor != 1.0 || cfg.Attribution.TopN != 10 {
		t.Errorf("unexpected weighted-sum defaults: %+v", cfg.Attribution)
	}
	if cfg.Attribution.ConfidenceThreshold != 0.55 {
		t.Errorf("expected ConfidenceThreshold=0.55, got %v", cfg.Attribution.ConfidenceThreshold)
	}
	if cfg.Cache.Enabled() {
		t.Error("cache must be disabled without addrs")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	normalize := false
	cfg := Config{
		HTTP:        HTTPConfig{Port: 9000, ReadTimeoutSec: 30, WriteTimeoutSec: 60},
		Cache:       CacheConfig{Driver: "valkey", KeyPrefix: "custom:"},
		Embedding:   EmbeddingConfig{Provider: "gemini", Normalize: &normalize},
		Attribution: AttributionConfig{Policy: "best_match", TopN: 5, ConfidenceThreshold: 0.7},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9000 || cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http settings overridden: %+v", cfg.HTTP)
	}
	if cfg.Cache.Driver != "valkey" || cfg.Cache.KeyPrefix != "custom:" {
		t.Errorf("cache settings overridden: %+v", cfg.Cache)
	}
	if cfg.Embedding.Provider != "gemini" || cfg.Embedding.NormalizeEnabled() {
		t.Errorf("embedding settings overridden: %+v", cfg.Embedding)
	}
	if cfg.Attribution.Policy != "best_match" || cfg.Attribution.TopN != 5 || cfg.Attribution.ConfidenceThreshold != 0.7 {
		t.Errorf("attribution settings overridden: %+v", cfg.Attribution)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("ONTOLOGY_TEST_MODEL", "e5-large")
	t.Setenv("ONTOLOGY_TEST_TOKEN", "")

	data := []byte(`
http:
  port: 8080
embedding:
  model: ${ONTOLOGY_TEST_MODEL}
content:
  token: ${ONTOLOGY_TEST_TOKEN:-fallback}
cache:
  addrs: ["localhost:6379"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Model != "e5-large" {
		t.Errorf("expected model from env, got %q", cfg.Embedding.Model)
	}
	if cfg.Content.Token != "fallback" {
		t.Errorf("expected default token, got %q", cfg.Content.Token)
	}
	if !cfg.Cache.Enabled() {
		t.Error("expected cache enabled")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error for missing model")
	}
}

func TestAttributionSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Content.TimeoutSec = 30

	s := cfg.AttributionSettings()
	if s.FetchTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", s.FetchTimeout)
	}
	if s.FetchLimit != 60 || s.MaxPosts != 50 || s.MinDocuments != 3 {
		t.Errorf("unexpected settings: %+v", s)
	}
}
