package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete client configuration
type Config struct {
	API          APIConfig         `yaml:"api" mapstructure:"api"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Archive      ArchiveConfig     `yaml:"archive" mapstructure:"archive"`
	News         NewsConfig        `yaml:"news" mapstructure:"news"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// APIConfig configures the fact-checking backend client
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout" validate:"gt=0"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	HTTPProxy      string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy     string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// RateLimitConfig configures per-host outbound rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// ArchiveConfig configures the fact-checked article archive
type ArchiveConfig struct {
	PageSize int           `yaml:"page_size" mapstructure:"page_size" validate:"gte=1,lte=100"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce" validate:"gte=0"`
}

// NewsConfig configures the headline feed
type NewsConfig struct {
	Provider string            `yaml:"provider" mapstructure:"provider" validate:"oneof=newsapi rss"`
	APIKey   string            `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string            `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Country  string            `yaml:"country" mapstructure:"country"`
	PageSize int               `yaml:"page_size" mapstructure:"page_size" validate:"gte=1,lte=100"`
	Feeds    map[string]string `yaml:"feeds" mapstructure:"feeds"` // RSS feed per category
}

// CacheConfig configures the headline cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// LLMConfig configures the optional result digest
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai ollama"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig configures rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	Color         bool `yaml:"color" mapstructure:"color"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "verdict-cache")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "verdict")
	}

	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000",
			RequestTimeout: 60 * time.Second,
			UserAgent:      "verdict/0.3 (+https://github.com/ppiankov/verdict)",
			MaxBodyBytes:   4 << 20,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Archive: ArchiveConfig{
			PageSize: 20,
			Debounce: 500 * time.Millisecond,
		},
		News: NewsConfig{
			Provider: "newsapi",
			BaseURL:  "https://newsapi.org/v2",
			Country:  "us",
			PageSize: 20,
			Feeds: map[string]string{
				"general":    "https://feeds.npr.org/1001/rss.xml",
				"business":   "https://feeds.npr.org/1006/rss.xml",
				"health":     "https://feeds.npr.org/1128/rss.xml",
				"science":    "https://feeds.npr.org/1007/rss.xml",
				"technology": "https://feeds.npr.org/1019/rss.xml",
			},
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 5 * time.Minute,
			DiskTTL:   30 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 600,
		},
		Output: OutputConfig{
			Color:         true,
			IncludeFooter: true,
		},
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for values the client cannot work with
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ValidateQuery checks an archive query before it is dispatched
func ValidateQuery(q ArchiveQuery) error {
	if err := configValidator.Struct(q); err != nil {
		return fmt.Errorf("invalid archive query: %w", err)
	}
	return nil
}
