package cli

import (
	"fmt"
	"os"

	"github.com/existflow/joyful/internal/ui"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"status"},
	Short:   "Show the logged in user and remaining generations",
	RunE:    runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Restore(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Server:    %s\n", cfg.APIBaseURL)
	printStatus(os.Stdout, st)
	return nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is up and can generate",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Health(cmd.Context())
		if t, warn := ui.HealthToast(err == nil && resp.APIKeyConfigured, err); warn {
			if err != nil {
				return fmt.Errorf("%s", t.Message)
			}
			fmt.Printf("⚠️  %s\n", t.Message)
			return nil
		}
		fmt.Printf("✅ Backend %s at %s\n", resp.Status, cfg.APIBaseURL)
		return nil
	},
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios",
	Short: "List the supported aspect ratios",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Client.Ratios(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list ratios: %w", err)
		}

		fmt.Println()
		for _, r := range resp.Ratios {
			fmt.Printf("  %-6s  %-10s  %s\n", r.Value, r.Size, r.Label)
		}
		fmt.Println()
		return nil
	},
}
