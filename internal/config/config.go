package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ontology/internal/domain"
)

// Config holds the ontology API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Content     ContentConfig     `yaml:"content"`
	Vocabulary  VocabularyConfig  `yaml:"vocabulary"`
	Attribution AttributionConfig `yaml:"attribution"`
	Auth        AuthConfig        `yaml:"auth"`
	CORS        CORSConfig        `yaml:"cors"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds allowed browser origins. Empty disables CORS headers.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the embedding cache connection. Empty addrs disable the cache.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = keep forever
	KeyPrefix        string   `yaml:"key_prefix"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, gemini (default: openai)
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	Normalize           *bool  `yaml:"normalize"` // default: true
	DocumentInstruction string `yaml:"document_instruction"`
	PhraseInstruction   string `yaml:"phrase_instruction"`
	Serialize           bool   `yaml:"serialize"`
}

// NormalizeEnabled returns the effective normalize flag.
func (e EmbeddingConfig) NormalizeEnabled() bool { return e.Normalize == nil || *e.Normalize }

// ContentConfig holds the content provider (Apify actor) settings.
type ContentConfig struct {
	Token        string `yaml:"token"`
	BaseURL      string `yaml:"base_url"`
	Actor        string `yaml:"actor"`
	ResultsLimit int    `yaml:"results_limit"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// VocabularyConfig points at the archetype vocabulary file.
type VocabularyConfig struct {
	Path string `yaml:"path"`
}

// AttributionConfig holds the aggregation thresholds.
type AttributionConfig struct {
	Policy              string  `yaml:"policy"`    // weighted_sum, best_match
	MaxPosts            int     `yaml:"max_posts"` // captions considered; the biography comes on top
	MinDocuments        int     `yaml:"min_documents"`
	NoiseFloor          float64 `yaml:"noise_floor"`
	TopN                int     `yaml:"top_n"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it and validates the result.
func Parse(data []byte) (Config, error) {
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	def := domain.DefaultAttributionConfig()

	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// апстрим может думать до 90с, запись ответа должна пережить его
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = domain.KeyPrefix
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Content.BaseURL == "" {
		c.Content.BaseURL = "https://api.apify.com"
	}
	if c.Content.Actor == "" {
		c.Content.Actor = "apify~instagram-profile-scraper"
	}
	if c.Content.ResultsLimit <= 0 {
		c.Content.ResultsLimit = def.FetchLimit
	}
	if c.Content.TimeoutSec <= 0 {
		c.Content.TimeoutSec = int(def.FetchTimeout / time.Second)
	}
	if c.Vocabulary.Path == "" {
		c.Vocabulary.Path = "config/vocab_id.json"
	}
	if c.Attribution.Policy == "" {
		c.Attribution.Policy = "weighted_sum"
	}
	if c.Attribution.MaxPosts <= 0 {
		c.Attribution.MaxPosts = def.MaxPosts
	}
	if c.Attribution.MinDocuments <= 0 {
		c.Attribution.MinDocuments = def.MinDocuments
	}
	if c.Attribution.NoiseFloor == 0 {
		c.Attribution.NoiseFloor = def.NoiseFloor
	}
	if c.Attribution.TopN <= 0 {
		c.Attribution.TopN = def.TopN
	}
	if c.Attribution.ConfidenceThreshold == 0 {
		c.Attribution.ConfidenceThreshold = def.ConfidenceThreshold
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("cache.driver must be \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	switch c.Embedding.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"gemini\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be >= 0, got %d", c.Embedding.Dimensions)
	}
	switch c.Attribution.Policy {
	case "weighted_sum", "best_match":
	default:
		return fmt.Errorf(
			"attribution.policy must be \"weighted_sum\" or \"best_match\", got %q",
			c.Attribution.Policy,
		)
	}
	if c.Attribution.MinDocuments > c.Attribution.MaxPosts+1 {
		return fmt.Errorf("attribution.min_documents (%d) exceeds max_posts (%d) plus biography",
			c.Attribution.MinDocuments, c.Attribution.MaxPosts)
	}
	if c.Attribution.ConfidenceThreshold < -1 || c.Attribution.ConfidenceThreshold > 1 {
		return fmt.Errorf("attribution.confidence_threshold must be in [-1, 1], got %v",
			c.Attribution.ConfidenceThreshold)
	}
	if c.Attribution.NoiseFloor < 0 {
		return fmt.Errorf("attribution.noise_floor must be >= 0, got %v", c.Attribution.NoiseFloor)
	}
	return nil
}

// AttributionSettings converts the file settings into the pipeline config.
func (c *Config) AttributionSettings() domain.AttributionConfig {
	return domain.AttributionConfig{
		FetchLimit:          c.Content.ResultsLimit,
		FetchTimeout:        time.Duration(c.Content.TimeoutSec) * time.Second,
		MaxPosts:            c.Attribution.MaxPosts,
		MinDocuments:        c.Attribution.MinDocuments,
		NoiseFloor:          c.Attribution.NoiseFloor,
		TopN:                c.Attribution.TopN,
		ConfidenceThreshold: c.Attribution.ConfidenceThreshold,
	}
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
