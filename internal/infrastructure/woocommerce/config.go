package woocommerce

import "errors"

// Config holds the REST credentials for one storefront site
type Config struct {
	// BaseURL is the storefront REST root, e.g. https://shop.example.com/wp-json/wc/v3
	BaseURL string
	// ConsumerKey is the REST API consumer key
	ConsumerKey string
	// ConsumerSecret is the REST API consumer secret
	ConsumerSecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for storefront configuration
var (
	ErrConfigMissingBaseURL = errors.New("woocommerce: base URL is required")
	ErrConfigMissingKey     = errors.New("woocommerce: consumer key is required")
	ErrConfigMissingSecret  = errors.New("woocommerce: consumer secret is required")
)

// NewConfig creates a storefront configuration with defaults
func NewConfig(baseURL, consumerKey, consumerSecret string) *Config {
	return &Config{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		TimeoutSeconds: 30,
	}
}

// Validate validates the storefront configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrConfigMissingKey
	}
	if c.ConsumerSecret == "" {
		return ErrConfigMissingSecret
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
