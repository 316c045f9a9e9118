package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/MalloZup/realmd/pkg/api"
)

// Config represents the realmd daemon configuration.
//
// This structure captures the static configuration of the daemon:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Control API settings (bind address, timeouts, authorization)
//   - Kerberos ticket acquisition settings
//   - Provider back-end settings (samba, sssd)
//
// Realm state (discovered realms, enrollment) is runtime state managed
// through the control API, never written here.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (REALMD_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// API contains control API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Kerberos contains ticket acquisition configuration
	Kerberos KerberosConfig `mapstructure:"kerberos" yaml:"kerberos"`

	// Providers contains per-back-end settings
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`

	// Service contains enrollment orchestration settings
	Service ServiceConfig `mapstructure:"service" yaml:"service"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// KerberosConfig contains ticket acquisition configuration.
//
// Joins that authenticate with a password first obtain a ticket-granting
// ticket, written to a private credential cache that the membership tool
// reads through KRB5CCNAME.
type KerberosConfig struct {
	// CacheDir is the directory for private credential cache files.
	// Default: os.TempDir()
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`

	// Enctypes restricts the permitted encryption types, newest first.
	// Empty uses the library defaults.
	Enctypes []string `mapstructure:"enctypes" yaml:"enctypes,omitempty"`

	// TicketLifetime is the requested ticket lifetime.
	// Default: 1h, enough to cover a slow join.
	TicketLifetime time.Duration `mapstructure:"ticket_lifetime" yaml:"ticket_lifetime"`
}

// ProvidersConfig contains per-back-end settings.
type ProvidersConfig struct {
	Samba SambaConfig `mapstructure:"samba" yaml:"samba"`
	SSSD  SSSDConfig  `mapstructure:"sssd" yaml:"sssd"`
}

// SambaConfig configures the samba (winbind) back-end.
type SambaConfig struct {
	// Enabled controls whether the samba back-end is registered.
	// Default: true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// NetPath is the samba `net` binary.
	// Default: "net"
	NetPath string `mapstructure:"net_path" yaml:"net_path"`

	// Default marks samba as the system-default membership software,
	// raising its discovery priority over sssd.
	Default bool `mapstructure:"default" yaml:"default"`

	// PreconfiguredRealm seeds an already-joined realm at startup, as
	// read from smb.conf by the packaging integration.
	PreconfiguredRealm string `mapstructure:"preconfigured_realm" yaml:"preconfigured_realm,omitempty"`
}

// SSSDConfig configures the sssd back-ends (Active Directory and IPA).
type SSSDConfig struct {
	// Enabled controls whether the sssd back-ends are registered.
	// Default: true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// ADCLIPath is the adcli binary used for Active Directory joins.
	// Default: "adcli"
	ADCLIPath string `mapstructure:"adcli_path" yaml:"adcli_path"`

	// IPAInstallPath is the ipa-client-install binary.
	// Default: "ipa-client-install"
	IPAInstallPath string `mapstructure:"ipa_install_path" yaml:"ipa_install_path"`

	// Default marks sssd as the system-default membership software.
	// Default: true
	Default *bool `mapstructure:"default" yaml:"default"`
}

// ServiceConfig contains enrollment orchestration settings.
type ServiceConfig struct {
	// InstallMode suppresses post-join host integration steps, for
	// offline image builds.
	InstallMode bool `mapstructure:"install_mode" yaml:"install_mode"`

	// NameCachesFlush is the tool invocation that flushes name-service
	// caches after a successful join. Empty disables the post-step.
	// Default: ["sss_cache", "-E"]
	NameCachesFlush []string `mapstructure:"name_caches_flush" yaml:"name_caches_flush,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (REALMD_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry the API bearer secret, keep it owner-only.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings. Environment variables use the REALMD_ prefix, for example
// REALMD_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("REALMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		for _, dir := range configSearchPath() {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("realmd")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// configSearchPath returns the directories searched for realmd.yaml, system
// location first. The XDG location supports running unprivileged in
// development.
func configSearchPath() []string {
	paths := []string{"/etc/realmd"}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "realmd"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "realmd"))
	}

	return paths
}

// GetDefaultConfigPath returns the preferred configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join("/etc/realmd", "realmd.yaml")
}
