package cli

import (
	"fmt"

	"github.com/existflow/joyful/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change settings stored in ~/.joyful/config.yaml.

Examples:
  joyful config                                  # Show settings
  joyful config set api-url https://host/api     # Point at another backend
  joyful config set output-dir ~/Pictures/joyful`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:       "set [key] [value]",
	Short:     "Change a setting",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"api-url", "output-dir", "store-path"},
	RunE:      runConfigSet,
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Printf("API URL:     %s\n", cfg.APIBaseURL)
	fmt.Printf("Timeout:     %s\n", cfg.RequestTimeout)
	fmt.Printf("Store:       %s\n", cfg.StorePath)
	fmt.Printf("Output dir:  %s\n", cfg.OutputDir)
	fmt.Printf("Log level:   %s\n", cfg.LogLevel)
	fmt.Printf("Log file:    %s\n", cfg.LogFile)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	switch key {
	case "api-url":
		if err := cfg.SetAPIBaseURL(value); err != nil {
			return err
		}
	case "output-dir":
		cfg.OutputDir = value
	case "store-path":
		cfg.StorePath = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	logger.Info("Config updated", logger.F("key", key))
	fmt.Printf("✓ %s set to %s\n", key, value)
	return nil
}
