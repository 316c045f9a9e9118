package api

import "time"

// APIConfig configures the control-API HTTP server.
type APIConfig struct {
	// Enabled controls whether the API server is started.
	// Default: true. A pointer distinguishes "not set" from
	// "explicitly false".
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the bind address. The default binds loopback only, the
	// control API is not meant to be reachable from the network unless
	// bearer tokens are configured.
	// Default: 127.0.0.1
	Listen string `mapstructure:"listen" yaml:"listen"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8815
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Enrollment runs external tools, so this must cover a full
	// join against a slow domain controller.
	// Default: 10m
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// JWTSecret enables bearer-token authorization when set. Must be at
	// least 32 characters. Empty means the API trusts its transport and
	// every caller is an administrator.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
}

// IsEnabled returns whether the API server is enabled.
// Defaults to true if not explicitly set.
func (c *APIConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// applyDefaults fills in zero values with sensible defaults.
func (c *APIConfig) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1"
	}
	if c.Port <= 0 {
		c.Port = 8815
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
