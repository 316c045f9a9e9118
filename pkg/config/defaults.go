package config

import (
	"os"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults, explicit values
// are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	applyKerberosDefaults(&cfg.Kerberos)
	applyProvidersDefaults(&cfg.Providers)
	applyServiceDefaults(&cfg.Service)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyKerberosDefaults sets ticket acquisition defaults.
func applyKerberosDefaults(cfg *KerberosConfig) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}
	if cfg.TicketLifetime == 0 {
		cfg.TicketLifetime = time.Hour
	}
}

// applyProvidersDefaults sets back-end tool defaults.
func applyProvidersDefaults(cfg *ProvidersConfig) {
	if cfg.Samba.NetPath == "" {
		cfg.Samba.NetPath = "net"
	}
	if cfg.SSSD.ADCLIPath == "" {
		cfg.SSSD.ADCLIPath = "adcli"
	}
	if cfg.SSSD.IPAInstallPath == "" {
		cfg.SSSD.IPAInstallPath = "ipa-client-install"
	}
}

// applyServiceDefaults sets orchestration defaults.
func applyServiceDefaults(cfg *ServiceConfig) {
	if cfg.NameCachesFlush == nil {
		cfg.NameCachesFlush = []string{"sss_cache", "-E"}
	}
}

// SambaEnabled reports whether the samba back-end should be registered.
// Defaults to true if not explicitly set.
func (c *ProvidersConfig) SambaEnabled() bool {
	if c.Samba.Enabled == nil {
		return true
	}
	return *c.Samba.Enabled
}

// SSSDEnabled reports whether the sssd back-ends should be registered.
// Defaults to true if not explicitly set.
func (c *ProvidersConfig) SSSDEnabled() bool {
	if c.SSSD.Enabled == nil {
		return true
	}
	return *c.SSSD.Enabled
}

// SSSDDefault reports whether sssd is the system-default membership
// software. Defaults to true unless samba claims the default.
func (c *ProvidersConfig) SSSDDefault() bool {
	if c.SSSD.Default == nil {
		return !c.Samba.Default
	}
	return *c.SSSD.Default
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
