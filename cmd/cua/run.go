package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	cua "github.com/haasonsaas/cua"
)

// buildRunCmd creates the "run" command: construct one Agent and drive it
// through a single RunCollect call, printing the collected turns as JSON.
// This is the CLI's equivalent of the teacher's one-shot verbs (e.g.
// "nexus memory search") — a thin wrapper over the library, not a
// long-running process.
func buildRunCmd() *cobra.Command {
	var (
		configPath string
		env        string
		headless   bool
	)

	cmd := &cobra.Command{
		Use:   "run <model> <input>",
		Short: "Run a single agent task to completion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, input := args[0], args[1]
			cfg := loadConfigOrDefault(configPath)

			ctx := cmd.Context()
			h, err := buildHandler(ctx, env, headless)
			if err != nil {
				return err
			}

			agent, err := cua.New(model, buildAgentOptions(cfg, nil, h))
			if err != nil {
				return fmt.Errorf("construct agent: %w", err)
			}

			turns, err := agent.RunCollect(ctx, input)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(turns)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVar(&env, "env", "", "Computer environment: browser, linux (empty runs without a handler)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser handler headless")

	return cmd
}
