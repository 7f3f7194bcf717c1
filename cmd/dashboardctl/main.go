package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eliasbrown99/solicitation-dashboard/internal/bootstrap"
	"github.com/eliasbrown99/solicitation-dashboard/internal/config"
	"github.com/eliasbrown99/solicitation-dashboard/internal/observability/logging"
)

const service = "dashboardctl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newApp loads the config and wires a controller. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logLevel, _ := cmd.Flags().GetString("log-level")
	slog.SetDefault(logging.NewJSONLogger(service, logLevel, os.Stderr))

	a, err := bootstrap.New(cmd.Context(), cfg, service)
	if err != nil {
		return nil, fmt.Errorf("initializing controller: %w", err)
	}
	return a, nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if url, _ := cmd.Flags().GetString("summarizer-url"); url != "" {
		cfg.SummarizerURL = url
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "dashboardctl",
	Short:        "Drive the document summary dashboard from a terminal",
	SilenceUsage: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("summarizer-url", "", "Summarizer base URL (overrides SUMMARIZER_URL)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level for diagnostics written to stderr")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolP("yes", "y", false, "Overwrite an existing summary without asking")
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("search", "s", "", "Search on the backend by filename or summary text")
	listCmd.Flags().StringP("filter", "f", "", "Narrow the fetched listing locally")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(watchCmd)
}
