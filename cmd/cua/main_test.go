package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"run", "serve", "replay"} {
		require.True(t, names[name], "expected subcommand %q to be registered", name)
	}
}

func TestLoadConfigOrDefault_EmptyPathReturnsDefault(t *testing.T) {
	cfg := loadConfigOrDefault("")
	require.Equal(t, 3, cfg.Agent.MaxRetries)
}

func TestLoadConfigOrDefault_MissingFileFallsBack(t *testing.T) {
	cfg := loadConfigOrDefault("/nonexistent/path/cua.yaml")
	require.Equal(t, "info", cfg.Observability.LogLevel)
}
