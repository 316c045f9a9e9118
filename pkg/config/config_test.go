package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stdout" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Kerberos.TicketLifetime != time.Hour {
		t.Errorf("TicketLifetime = %v", cfg.Kerberos.TicketLifetime)
	}
	if cfg.Kerberos.CacheDir != os.TempDir() {
		t.Errorf("CacheDir = %q", cfg.Kerberos.CacheDir)
	}
	if len(cfg.Service.NameCachesFlush) != 2 || cfg.Service.NameCachesFlush[0] != "sss_cache" {
		t.Errorf("NameCachesFlush = %v", cfg.Service.NameCachesFlush)
	}
	if cfg.Providers.Samba.NetPath != "net" || cfg.Providers.SSSD.ADCLIPath != "adcli" {
		t.Errorf("tool paths = %+v", cfg.Providers)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must be opt-in")
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v", cfg.Telemetry.SampleRate)
	}
	if !cfg.API.IsEnabled() {
		t.Error("API must default to enabled")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration must validate: %v", err)
	}
}

func TestProviderToggles(t *testing.T) {
	var cfg ProvidersConfig
	if !cfg.SambaEnabled() || !cfg.SSSDEnabled() {
		t.Error("both back-ends default to enabled")
	}
	if !cfg.SSSDDefault() {
		t.Error("sssd is the default membership software unless samba claims it")
	}

	cfg.Samba.Default = true
	if cfg.SSSDDefault() {
		t.Error("samba claiming the default must demote sssd")
	}

	off := false
	cfg.Samba.Enabled = &off
	if cfg.SambaEnabled() {
		t.Error("explicit disable must win")
	}

	on := true
	cfg.SSSD.Default = &on
	if !cfg.SSSDDefault() {
		t.Error("explicit sssd default must win over samba's claim")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
logging:
  level: debug
  format: json
shutdown_timeout: 45s
api:
  port: 9000
  jwt_secret: 0123456789abcdef0123456789abcdef
kerberos:
  ticket_lifetime: 2h
  enctypes:
    - aes256-cts-hmac-sha1-96
providers:
  samba:
    default: true
    preconfigured_realm: AD.EXAMPLE.COM
service:
  install_mode: true
`
	path := filepath.Join(t.TempDir(), "realmd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Level = %q, want normalized DEBUG", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 45*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("Port = %d", cfg.API.Port)
	}
	if cfg.Kerberos.TicketLifetime != 2*time.Hour {
		t.Errorf("TicketLifetime = %v", cfg.Kerberos.TicketLifetime)
	}
	if len(cfg.Kerberos.Enctypes) != 1 {
		t.Errorf("Enctypes = %v", cfg.Kerberos.Enctypes)
	}
	if !cfg.Providers.Samba.Default || cfg.Providers.SSSDDefault() {
		t.Error("samba must be the default membership software")
	}
	if cfg.Providers.Samba.PreconfiguredRealm != "AD.EXAMPLE.COM" {
		t.Errorf("PreconfiguredRealm = %q", cfg.Providers.Samba.PreconfiguredRealm)
	}
	if !cfg.Service.InstallMode {
		t.Error("InstallMode = false")
	}

	// Unset fields still get defaults.
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Output = %q", cfg.Logging.Output)
	}
	if len(cfg.Service.NameCachesFlush) == 0 {
		t.Error("NameCachesFlush default missing")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Level = %q, want defaults", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realmd.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: TRACE\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("error = %v, want the config-file field path", err)
	}
}

func TestValidateShortJWTSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.JWTSecret = "too-short"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "api.jwt_secret") {
		t.Errorf("error = %v, want jwt secret length failure", err)
	}
}

func TestValidateZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Error("expected a validation error")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "etc", "realmd.yaml")

	cfg := GetDefaultConfig()
	cfg.API.JWTSecret = "0123456789abcdef0123456789abcdef"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// The file can carry the bearer secret.
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.API.JWTSecret != cfg.API.JWTSecret {
		t.Error("JWT secret did not survive the round trip")
	}
	if loaded.ShutdownTimeout != cfg.ShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", loaded.ShutdownTimeout, cfg.ShutdownTimeout)
	}
}
