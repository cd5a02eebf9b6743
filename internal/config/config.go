// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.shoplens/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: model selection, turn budget, invocation timeout
//   - Shopify: access token, API version, default store, retry tuning
//   - Server: listen address
//   - Logging: level and format
//
// Security: sensitive data (access tokens, API keys) is never logged;
// MarshalJSON masks it explicitly.
//
// Error handling: sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingAccessToken indicates the Shopify access token is missing.
	ErrMissingAccessToken = errors.New("missing Shopify access token")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidAPIVersion indicates the Shopify API version is invalid.
	ErrInvalidAPIVersion = errors.New("invalid Shopify API version")

	// ErrInvalidMaxTurns indicates the max turns value is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidTimeout indicates the agent timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidMaxRetries indicates the Shopify retry count is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidMaxPages indicates the pagination ceiling is out of range.
	ErrInvalidMaxPages = errors.New("invalid max pages")
)

const (
	// DefaultModelName is the default reasoning model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultAPIVersion is the default Shopify Admin API version.
	DefaultAPIVersion = "2024-10"

	// MaxAllowedTurns caps the tool-calling loop to bound cost per query.
	MaxAllowedTurns = 50

	// MaxAllowedRetries caps Shopify rate-limit retries.
	MaxAllowedRetries = 10

	// MaxAllowedPages caps the pagination ceiling.
	MaxAllowedPages = 100
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, API keys), update MarshalJSON.
type Config struct {
	// Server configuration
	Addr string `mapstructure:"addr" json:"addr"`

	// AI configuration
	ModelName    string        `mapstructure:"model_name" json:"model_name"`
	MaxTurns     int           `mapstructure:"max_turns" json:"max_turns"`
	AgentTimeout time.Duration `mapstructure:"agent_timeout" json:"agent_timeout"`

	// Shopify Admin API configuration
	ShopifyAccessToken string        `mapstructure:"shopify_access_token" json:"shopify_access_token"` // SENSITIVE: masked in MarshalJSON
	ShopifyAPIVersion  string        `mapstructure:"shopify_api_version" json:"shopify_api_version"`
	ShopifyShopName    string        `mapstructure:"shopify_shop_name" json:"shopify_shop_name"`
	ShopifyMaxRetries  int           `mapstructure:"shopify_max_retries" json:"shopify_max_retries"`
	InitialBackoff     time.Duration `mapstructure:"initial_backoff" json:"initial_backoff"`
	MaxPages           int           `mapstructure:"max_pages" json:"max_pages"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".shoplens")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("addr", "127.0.0.1:8080")

	// AI defaults
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("max_turns", 10)
	v.SetDefault("agent_timeout", 120*time.Second)

	// Shopify defaults
	v.SetDefault("shopify_api_version", DefaultAPIVersion)
	v.SetDefault("shopify_max_retries", 5)
	v.SetDefault("initial_backoff", time.Second)
	v.SetDefault("max_pages", 5)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables.
// SHOPLENS_-prefixed names cover everything; the unprefixed Shopify and
// Gemini names are also honored because existing deployments export them.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key string, envVars ...string) {
		if err := v.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	v.SetEnvPrefix("SHOPLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	mustBind("shopify_access_token", "SHOPLENS_SHOPIFY_ACCESS_TOKEN", "SHOPIFY_ACCESS_TOKEN")
	mustBind("shopify_api_version", "SHOPLENS_SHOPIFY_API_VERSION", "SHOPIFY_API_VERSION")
	mustBind("shopify_shop_name", "SHOPLENS_SHOPIFY_SHOP_NAME", "SHOPIFY_SHOP_NAME")

	// NOTE: GEMINI_API_KEY is read directly by the Genkit GoogleAI plugin,
	// not via Viper. Validate() checks its presence.
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked; longer ones keep the first and last two characters for
// debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.ShopifyAccessToken = maskSecret(a.ShopifyAccessToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". A name already containing "/" is
// returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
