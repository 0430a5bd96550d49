// Command cua is the CLI entry point for the Computer-Use Agent runtime
// (§6.1/§6.2/§6.4): run a single agent task to completion, serve the HTTP
// Integrations Surface, or replay a saved trajectory. Structured the way
// the teacher's cmd/nexus/main.go does — a thin main() plus one
// buildXCmd per verb, built and tested independently of main().
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/cua/internal/obs"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the command tree; separated from main so tests
// can exercise it without a process exit.
func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cua",
		Short:        "Computer-Use Agent runtime CLI",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildRunCmd(), buildServeCmd(), buildReplayCmd())
	return root
}

func loggerFromConfigPath(configPath string) *obs.Logger {
	cfg := loadConfigOrDefault(configPath)
	return obs.NewLogger(obs.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
}
