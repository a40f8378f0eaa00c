package config

import "time"

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
)

// DefaultConfig returns a configuration with no setting overridden; the
// getters supply the defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	return c.Timeout == "" &&
		c.MaxRedirects == nil &&
		c.FollowRedirects == nil &&
		c.Insecure == nil &&
		c.Proxy == "" &&
		len(c.Headers) == 0 &&
		len(c.Variables) == 0 &&
		c.EnvFile == "" &&
		c.Pretty == nil &&
		c.NoColor == nil
}
