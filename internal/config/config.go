// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (DEEPSEEK_API_KEY plus GOTIONGPT_* overrides)
//  2. Config file (~/.gotiongpt/config.yaml or ./config.yaml)
//  3. Defaults
//
// Sensitive values are masked in String() and MarshalJSON; validation uses
// sentinel errors checkable with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the DeepSeek API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidListenAddr indicates the listen address is empty.
	ErrInvalidListenAddr = errors.New("invalid listen address")

	// ErrInvalidPredictBaseURL indicates the prediction service URL is unusable.
	ErrInvalidPredictBaseURL = errors.New("invalid predict base URL")

	// ErrInvalidDeepSeekBaseURL indicates the chat-completion URL is unusable.
	ErrInvalidDeepSeekBaseURL = errors.New("invalid deepseek base URL")

	// ErrInvalidTimeout indicates a non-positive upstream timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidMaxTokens indicates the reply token cap is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidRateLimit indicates an inconsistent rate-limit setting.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidConversationTTL indicates a negative idle-eviction window.
	ErrInvalidConversationTTL = errors.New("invalid conversation TTL")

	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// maxReplyTokensCeiling matches the deepseek-chat API limit for max_tokens.
const maxReplyTokensCeiling = 8192

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Prediction service (battery-size model)
	PredictBaseURL string        `mapstructure:"predict_base_url" json:"predict_base_url"`
	PredictTimeout time.Duration `mapstructure:"predict_timeout" json:"predict_timeout"`

	// DeepSeek chat completions
	DeepSeekBaseURL string        `mapstructure:"deepseek_base_url" json:"deepseek_base_url"`
	DeepSeekAPIKey  string        `mapstructure:"deepseek_api_key" json:"deepseek_api_key"` // SENSITIVE: masked in MarshalJSON
	DeepSeekModel   string        `mapstructure:"deepseek_model" json:"deepseek_model"`
	DeepSeekTimeout time.Duration `mapstructure:"deepseek_timeout" json:"deepseek_timeout"`
	MaxReplyTokens  int           `mapstructure:"max_reply_tokens" json:"max_reply_tokens"`

	// API protection
	RatePerSecond float64 `mapstructure:"rate_per_second" json:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy    bool    `mapstructure:"trust_proxy" json:"trust_proxy"` // set true behind a reverse proxy

	// ConversationTTL enables idle conversation eviction when positive.
	ConversationTTL time.Duration `mapstructure:"conversation_ttl" json:"conversation_ttl"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".gotiongpt")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	return loadFrom(configDir)
}

func loadFrom(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("predict_base_url", "https://battery-size-cnn.onrender.com")
	v.SetDefault("predict_timeout", "30s")

	v.SetDefault("deepseek_base_url", "https://api.deepseek.com")
	v.SetDefault("deepseek_model", "deepseek-chat")
	v.SetDefault("deepseek_timeout", "120s")
	v.SetDefault("max_reply_tokens", 500)

	v.SetDefault("rate_per_second", 5.0)
	v.SetDefault("rate_burst", 10)
	v.SetDefault("trust_proxy", false)

	v.SetDefault("conversation_ttl", "0s")

	v.SetDefault("log_level", "info")
}

// bindEnvVariables binds environment overrides explicitly. The API key has
// no GOTIONGPT_ prefix because that is the name the DeepSeek tooling
// ecosystem already uses.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("deepseek_api_key", "DEEPSEEK_API_KEY")

	mustBind("listen_addr", "GOTIONGPT_LISTEN_ADDR")
	mustBind("predict_base_url", "GOTIONGPT_PREDICT_BASE_URL")
	mustBind("predict_timeout", "GOTIONGPT_PREDICT_TIMEOUT")
	mustBind("deepseek_base_url", "GOTIONGPT_DEEPSEEK_BASE_URL")
	mustBind("deepseek_model", "GOTIONGPT_DEEPSEEK_MODEL")
	mustBind("deepseek_timeout", "GOTIONGPT_DEEPSEEK_TIMEOUT")
	mustBind("max_reply_tokens", "GOTIONGPT_MAX_REPLY_TOKENS")
	mustBind("rate_per_second", "GOTIONGPT_RATE_PER_SECOND")
	mustBind("rate_burst", "GOTIONGPT_RATE_BURST")
	mustBind("trust_proxy", "GOTIONGPT_TRUST_PROXY")
	mustBind("conversation_ttl", "GOTIONGPT_CONVERSATION_TTL")
	mustBind("log_level", "GOTIONGPT_LOG_LEVEL")
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.DeepSeekAPIKey) == "" {
		return fmt.Errorf("%w: set the DEEPSEEK_API_KEY environment variable", ErrMissingAPIKey)
	}

	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidListenAddr)
	}

	if err := checkBaseURL(c.PredictBaseURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPredictBaseURL, err)
	}
	if err := checkBaseURL(c.DeepSeekBaseURL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeepSeekBaseURL, err)
	}

	if c.PredictTimeout <= 0 {
		return fmt.Errorf("%w: predict_timeout must be positive, got %s", ErrInvalidTimeout, c.PredictTimeout)
	}
	if c.DeepSeekTimeout <= 0 {
		return fmt.Errorf("%w: deepseek_timeout must be positive, got %s", ErrInvalidTimeout, c.DeepSeekTimeout)
	}

	if c.MaxReplyTokens < 1 || c.MaxReplyTokens > maxReplyTokensCeiling {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidMaxTokens, maxReplyTokensCeiling, c.MaxReplyTokens)
	}

	if c.RatePerSecond < 0 {
		return fmt.Errorf("%w: rate_per_second cannot be negative, got %g", ErrInvalidRateLimit, c.RatePerSecond)
	}
	if c.RatePerSecond > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst must be at least 1 when rate limiting is on, got %d",
			ErrInvalidRateLimit, c.RateBurst)
	}

	if c.ConversationTTL < 0 {
		return fmt.Errorf("%w: conversation_ttl cannot be negative, got %s",
			ErrInvalidConversationTTL, c.ConversationTTL)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q is not one of debug, info, warn, error", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func checkBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// SlogLevel maps the configured level name onto slog. Validate guarantees
// the name is known.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 characters or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit masking of sensitive
// fields. When adding a new secret field, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DeepSeekAPIKey = maskSecret(a.DeepSeekAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
