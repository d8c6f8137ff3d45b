// calchat is a conversational assistant for Cal.com: it turns natural
// language into slot lookups, bookings, cancellations and reschedules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/soypete/calchat/pkg/config"
	"github.com/soypete/calchat/pkg/container"
	"github.com/soypete/calchat/pkg/httpbridge"
	"github.com/soypete/calchat/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = httpbridge.DefaultVersion

var (
	// Global flags
	configFile string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "calchat",
		Short: "Chat with your Cal.com calendar",
		Long: `calchat lets you manage Cal.com meetings in plain language.

It can find free slots, book meetings, list your bookings, and cancel or
reschedule them. Run it as an HTTP API (serve), chat in the terminal (chat),
or ask a single question (ask).

Configuration is read from .calchat.yaml (current directory, then home) and
CALCHAT_* environment variables. CAL_API_KEY, CAL_EVENT_TYPE_ID and
OPENAI_API_KEY are honoured as well, including from a .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			logging.Init(config.LoggingConfig{Level: logLevel, Format: "auto"})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: .calchat.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(scriptCmd())
	rootCmd.AddCommand(eventTypesCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig reads the configuration and applies its logging settings.
// An explicit --log-level wins over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	logging.Init(cfg.Logging)
	return cfg, nil
}

// buildContainer loads config and wires every service
func buildContainer(ctx context.Context, cmd *cobra.Command) (*container.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return container.New(ctx, cfg, container.WithVersion(version))
}

// chatter returns an HTTP client when remote is set and an in-process
// orchestrator otherwise. The returned func releases resources.
func chatter(ctx context.Context, cmd *cobra.Command, remote string) (httpbridge.Chatter, func(), error) {
	if remote != "" {
		client := httpbridge.NewClient(remote, 0)
		if err := client.Health(ctx); err != nil {
			return nil, nil, errors.Wrapf(err, "cannot reach %s", remote)
		}
		return client, func() {}, nil
	}

	c, err := buildContainer(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	return c.Orchestrator(), func() { _ = c.Close() }, nil
}
