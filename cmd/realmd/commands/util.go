package commands

import (
	"fmt"
	"os"

	"github.com/MalloZup/realmd/internal/logger"
	"github.com/MalloZup/realmd/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if _, err := os.Stat(config.GetDefaultConfigPath()); err == nil {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
