package core

import (
	"crypto/tls"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	// Provider credentials. At least one image provider must be configured.
	GeminiAPIKey  string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Model selection
	DefaultModel     ImageModel
	OpenAIImageModel string
	OpenAICopyModel  string
	CopySuggestions  bool

	// Generation defaults (personal profile)
	DefaultAspectRatio string
	DefaultImageCount  int
	DefaultNegatives   []string

	// Retry behaviour around the image API
	RetryDelay time.Duration
	AITimeout  time.Duration

	// Storage
	DatabasePath         string
	HistoryLimit         int
	MetricsRetentionDays int
	CleanupInterval      time.Duration

	// Prompt catalog override file (YAML, optional)
	PromptCatalogPath string

	// Server configuration
	Host                 string
	Port                 int
	WebUIPassword        string
	AllowSelfSignedCerts bool

	// Logging
	LogFile string
}

const (
	DefaultHistoryLimit = 100
	MaxImagesPerRequest = 4
)

// DefaultNegativeTerms are applied when DEFAULT_NEGATIVES is not set.
var DefaultNegativeTerms = []string{"motion blur", "low contrast", "cropped vehicle", "text artifacts"}

// LoadConfig loads configuration from environment variables with sensible defaults.
// The returned error is a *ConfigError when validation fails.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:  GetEnvOrDefault("GEMINI_API_KEY", GetEnvOrDefault("API_KEY", "")),
		GeminiBaseURL: GetEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		OpenAIAPIKey:  GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL: GetEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		DefaultModel:     ImageModel(GetEnvOrDefault("DEFAULT_MODEL", string(ModelGeminiFlashImage))),
		OpenAIImageModel: GetEnvOrDefault("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAICopyModel:  GetEnvOrDefault("OPENAI_COPY_MODEL", "gpt-4o-mini"),
		CopySuggestions:  ParseBoolEnv("COPY_SUGGESTIONS", true),

		DefaultAspectRatio: GetEnvOrDefault("DEFAULT_ASPECT_RATIO", "16:9"),
		DefaultImageCount:  ParseIntEnv("DEFAULT_IMAGE_COUNT", 2),
		DefaultNegatives:   ParseListEnv("DEFAULT_NEGATIVES", DefaultNegativeTerms),

		RetryDelay: ParseDurationEnv("RETRY_DELAY", 1),
		AITimeout:  ParseDurationEnv("AI_TIMEOUT", 60),

		DatabasePath:         GetEnvOrDefault("STUDIO_DB_PATH", "./data/studio.db"),
		HistoryLimit:         ParseIntEnv("HISTORY_LIMIT", DefaultHistoryLimit),
		MetricsRetentionDays: ParseIntEnv("METRICS_RETENTION_DAYS", 30),
		CleanupInterval:      time.Duration(ParseIntEnv("CLEANUP_INTERVAL_HOURS", 24)) * time.Hour,

		PromptCatalogPath: GetEnvOrDefault("PROMPT_CATALOG_PATH", ""),

		Host:                 GetEnvOrDefault("HOST", "localhost"),
		Port:                 ParseIntEnv("PORT", 3000),
		WebUIPassword:        GetEnvOrDefault("WEBUI_PWD", ""),
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),

		LogFile: GetEnvOrDefault("LOG_FILE", "app.log"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that is missing or out of range.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return ErrMissingAuth("image")
	}
	if c.DatabasePath == "" {
		return ErrMissingConfig("STUDIO_DB_PATH")
	}
	if !c.DefaultModel.Valid() {
		return ErrInvalidValue("DEFAULT_MODEL", string(c.DefaultModel), "must be one of "+strings.Join(ModelNames(), ", "))
	}
	if c.DefaultImageCount < 1 || c.DefaultImageCount > MaxImagesPerRequest {
		return ErrInvalidValue("DEFAULT_IMAGE_COUNT", strconv.Itoa(c.DefaultImageCount), "must be between 1 and 4")
	}
	if c.HistoryLimit < 1 {
		return ErrInvalidValue("HISTORY_LIMIT", strconv.Itoa(c.HistoryLimit), "must be at least 1")
	}
	if c.RetryDelay < 0 {
		return ErrInvalidValue("RETRY_DELAY", c.RetryDelay.String(), "must not be negative")
	}
	if c.AITimeout <= 0 {
		return ErrInvalidValue("AI_TIMEOUT", c.AITimeout.String(), "must be positive")
	}
	return nil
}

// HasGemini reports whether the Gemini/Imagen provider is configured.
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasOpenAI reports whether the OpenAI provider is configured.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// DefaultSettings returns the generation settings of the personal profile.
func (c *Config) DefaultSettings() GenerationSettings {
	return GenerationSettings{
		AspectRatio:    c.DefaultAspectRatio,
		NumberOfImages: c.DefaultImageCount,
		Model:          c.DefaultModel,
	}
}

// GetHTTPClient returns an HTTP client configured with TLS settings
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with default timeout (30s) configured with TLS settings
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}
