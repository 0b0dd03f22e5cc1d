package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/config"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/tui"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	logLevel   string
	logFile    string
	logConsole bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "joyful",
	Short: "Joyful - AI image generation from the terminal",
	Long: `Joyful turns text prompts into images.

Log in or register, type a prompt, pick an aspect ratio and how many
images you want. Free accounts get a limited number of generations.

Run 'joyful' without arguments to launch the interactive TUI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to load config, using defaults: %v\n", err)
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Logging flags are remembered, the api url flag only applies to this run
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if configChanged {
			if err := cfg.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Failed to save config: %v\n", err)
			}
		}
		if cmd.Flags().Changed("api-url") {
			if err := cfg.SetAPIBaseURL(apiURL); err != nil {
				return err
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}
		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("Joyful started", logger.F("command", cmd.Name()), logger.F("api", cfg.APIBaseURL))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		bridge := tui.NewBridge()
		a, err := openApp(func(o *app.Options) {
			o.Observers = append(o.Observers, bridge.Observe)
		})
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("Launching TUI")
		if err := tui.Run(cmd.Context(), a, bridge); err != nil {
			logger.Error("TUI error", logger.F("error", err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("Joyful exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// openApp builds the client shell from the loaded config
func openApp(opts ...func(*app.Options)) (*app.App, error) {
	var o app.Options
	for _, fn := range opts {
		fn(&o)
	}
	a, err := app.Open(cfg, o)
	if err != nil {
		logger.Error("Failed to open app", logger.F("error", err))
		return nil, err
	}
	return a, nil
}

// Execute runs the root command. Ctrl+C cancels whatever request is in flight.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API base URL (e.g. http://localhost:81/api)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(ratiosCmd)
	rootCmd.AddCommand(configCmd)
}
