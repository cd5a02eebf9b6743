package config

import (
	"fmt"
	"os"
	"regexp"
)

// apiVersionPattern matches Shopify Admin API versions like "2024-10".
var apiVersionPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ShopifyAccessToken == "" {
		return fmt.Errorf("%w: set SHOPIFY_ACCESS_TOKEN or shopify_access_token in config.yaml",
			ErrMissingAccessToken)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if !apiVersionPattern.MatchString(c.ShopifyAPIVersion) {
		return fmt.Errorf("%w: %q must look like \"2024-10\"", ErrInvalidAPIVersion, c.ShopifyAPIVersion)
	}

	if c.MaxTurns < 1 || c.MaxTurns > MaxAllowedTurns {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidMaxTurns, MaxAllowedTurns, c.MaxTurns)
	}

	if c.AgentTimeout <= 0 {
		return fmt.Errorf("%w: agent_timeout must be positive, got %s", ErrInvalidTimeout, c.AgentTimeout)
	}

	if c.ShopifyMaxRetries < 0 || c.ShopifyMaxRetries > MaxAllowedRetries {
		return fmt.Errorf("%w: must be between 0 and %d, got %d", ErrInvalidMaxRetries, MaxAllowedRetries, c.ShopifyMaxRetries)
	}

	if c.MaxPages < 1 || c.MaxPages > MaxAllowedPages {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidMaxPages, MaxAllowedPages, c.MaxPages)
	}

	return nil
}
