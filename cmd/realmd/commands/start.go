package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/internal/logger"
	"github.com/MalloZup/realmd/internal/telemetry"
	"github.com/MalloZup/realmd/pkg/api"
	"github.com/MalloZup/realmd/pkg/command"
	"github.com/MalloZup/realmd/pkg/config"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/enroll"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/provider/addisco"
	"github.com/MalloZup/realmd/pkg/provider/samba"
	"github.com/MalloZup/realmd/pkg/provider/sssd"
	"github.com/MalloZup/realmd/pkg/realm"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the realmd daemon",
	Long: `Start the realmd daemon with the specified configuration.

The daemon runs in the foreground; under systemd use a simple service
unit. Use --config to specify a custom configuration file, or it will
use the default location at /etc/realmd/realmd.yaml.

Examples:
  # Start with the default configuration
  realmd start

  # Start with custom config file
  realmd start --config /etc/realmd/realmd.yaml

  # Start with environment variable overrides
  REALMD_LOGGING_LEVEL=DEBUG realmd start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: none)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "realmd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "realmd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Wire the enrollment engine
	realms := realm.NewRegistry()
	sink := diag.NewLogSink()
	runner := command.NewExecRunner(sink)
	disco := addisco.New()
	providers := provider.NewRegistry()

	if cfg.Providers.SambaEnabled() {
		p := samba.New(samba.Config{
			NetPath:            cfg.Providers.Samba.NetPath,
			DefaultSoftware:    cfg.Providers.Samba.Default,
			PreconfiguredRealm: cfg.Providers.Samba.PreconfiguredRealm,
			CacheDir:           cfg.Kerberos.CacheDir,
			Enctypes:           cfg.Kerberos.Enctypes,
			TicketLifetime:     cfg.Kerberos.TicketLifetime,
		}, disco, runner, sink)
		if err := providers.Register(p); err != nil {
			return fmt.Errorf("failed to register samba provider: %w", err)
		}
		p.Seed(realms)
		logger.Info("Provider registered", "provider", samba.Name, "default", cfg.Providers.Samba.Default)
	}

	if cfg.Providers.SSSDEnabled() {
		sssdCfg := sssd.Config{
			ADCLIPath:       cfg.Providers.SSSD.ADCLIPath,
			IPAInstallPath:  cfg.Providers.SSSD.IPAInstallPath,
			DefaultSoftware: cfg.Providers.SSSDDefault(),
			CacheDir:        cfg.Kerberos.CacheDir,
			Enctypes:        cfg.Kerberos.Enctypes,
			TicketLifetime:  cfg.Kerberos.TicketLifetime,
		}
		if err := providers.Register(sssd.NewAD(sssdCfg, disco, runner, sink)); err != nil {
			return fmt.Errorf("failed to register sssd-ad provider: %w", err)
		}
		if err := providers.Register(sssd.NewIPA(sssdCfg, disco, runner, sink)); err != nil {
			return fmt.Errorf("failed to register sssd-ipa provider: %w", err)
		}
		logger.Info("Provider registered", "provider", "sssd", "default", cfg.Providers.SSSDDefault())
	}

	service := enroll.NewService(realms, providers, enroll.NewLock(), sink, runner, enroll.Config{
		InstallMode:     cfg.Service.InstallMode,
		NameCachesFlush: cfg.Service.NameCachesFlush,
	})
	aggregator := provider.NewAggregator(providers, realms, sink)
	handlers := api.NewHandlers(service, aggregator, providers)

	if !cfg.API.IsEnabled() {
		return fmt.Errorf("control API is disabled; nothing to serve")
	}

	apiServer, err := api.NewServer(cfg.API, handlers)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	logger.Info("API server configured", "listen", cfg.API.Listen, "port", cfg.API.Port)
	if cfg.API.JWTSecret == "" {
		logger.Warn("API authentication disabled, all callers are treated as admin")
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start API server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Daemon is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Daemon stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Daemon stopped")
	}

	return nil
}
