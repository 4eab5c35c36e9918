package razorpay

// Config represents the configuration for the Razorpay client
type Config struct {
	// KeyID is the public API key id, used as the basic auth user
	KeyID string

	// KeySecret signs callbacks and authenticates API calls
	KeySecret string

	// BaseURL is the Razorpay API base URL
	BaseURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.KeyID == "" || c.KeySecret == "" || c.BaseURL == "" {
		return ErrInvalidConfig
	}
	return nil
}
