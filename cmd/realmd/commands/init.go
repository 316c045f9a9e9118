package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample realmd configuration file.

By default, the configuration file is created at /etc/realmd/realmd.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  realmd init

  # Initialize with custom path
  realmd init --config /tmp/realmd.yaml

  # Force overwrite existing config
  realmd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the daemon with: realmd start")
	fmt.Printf("  3. Or specify custom config: realmd start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  The API listens on loopback without authentication by default.")
	fmt.Println("  To expose it beyond localhost, set a bearer secret first:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Println("    export REALMD_API_JWT_SECRET=$(openssl rand -hex 32)")

	return nil
}
