package marketplace

import (
	"errors"

	"github.com/channelport/backend/internal/domain/integration"
)

// Config holds configuration for the marketplace catalog API client
type Config struct {
	// ClientID identifies the seller account on the marketplace
	ClientID string
	// APIKey is the account's API key
	APIKey string
	// BaseURL is the base URL for the marketplace API
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PrimaryLanguageTag is the marketplace language code used for the
	// primary-language pass
	PrimaryLanguageTag string
	// SecondaryLanguageTag is the marketplace language code used for the
	// secondary-language pass
	SecondaryLanguageTag string
	// RequestsPerSecond is the sustained rate allowed against the catalog
	// resource class
	RequestsPerSecond float64
	// Burst is the rate limiter burst size
	Burst int
}

// DefaultAPIBaseURL is the production API endpoint
const DefaultAPIBaseURL = "https://api-seller.marketplace.example"

// Errors for marketplace configuration
var (
	ErrConfigMissingClientID = errors.New("marketplace: client ID is required")
	ErrConfigMissingAPIKey   = errors.New("marketplace: API key is required")
)

// NewConfig creates a new marketplace configuration with defaults
func NewConfig(clientID, apiKey string) *Config {
	return &Config{
		ClientID:             clientID,
		APIKey:               apiKey,
		BaseURL:              DefaultAPIBaseURL,
		TimeoutSeconds:       30,
		PrimaryLanguageTag:   "DEFAULT",
		SecondaryLanguageTag: "EN",
		RequestsPerSecond:    2,
		Burst:                4,
	}
}

// Validate validates the marketplace configuration and fills in defaults
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrConfigMissingClientID
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultAPIBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.PrimaryLanguageTag == "" {
		c.PrimaryLanguageTag = "DEFAULT"
	}
	if c.SecondaryLanguageTag == "" {
		c.SecondaryLanguageTag = "EN"
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Burst <= 0 {
		c.Burst = 4
	}
	return nil
}

// LanguageTag maps the internal language enumeration onto the marketplace's
// own language codes
func (c *Config) LanguageTag(lang integration.Language) string {
	if lang == integration.LanguageSecondary {
		return c.SecondaryLanguageTag
	}
	return c.PrimaryLanguageTag
}
