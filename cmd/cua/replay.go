package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/cua/internal/responses"
	"github.com/haasonsaas/cua/internal/trajectory"
)

// buildReplayCmd creates the "replay" command (SPEC_FULL.md supplemented
// feature #2): reload a saved run's per-turn items from
// <trajectory_dir>/turn-NNNN/output.json and round-trip each one through
// ResponsesToCompletion/CompletionToResponses, reporting any turn whose
// round trip doesn't reproduce the original item count — exercising the
// Message Model & Converters against real captured data instead of only
// synthetic fixtures.
func buildReplayCmd() *cobra.Command {
	var allowImages bool

	cmd := &cobra.Command{
		Use:   "replay <run_dir>",
		Short: "Replay a saved trajectory through the message-model converters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir := args[0]
			meta, err := trajectory.Load(runDir)
			if err != nil {
				return fmt.Errorf("load metadata: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: model=%s turns=%d total_tokens=%d cost=$%.4f\n",
				meta.RunID, meta.Model, meta.Turns, meta.TotalUsage.TotalTokens, meta.TotalUsage.ResponseCost)

			mismatches := 0
			for i := 0; i < meta.Turns; i++ {
				_, output, err := trajectory.LoadTurn(runDir, i)
				if err != nil {
					return fmt.Errorf("load turn %d: %w", i, err)
				}

				completion := responses.ResponsesToCompletion(output, allowImages)
				roundTripped, err := responses.CompletionToResponses(completion)
				if err != nil {
					return fmt.Errorf("turn %d: completion round trip: %w", i, err)
				}

				status := "ok"
				if len(roundTripped) != len(output) {
					status = fmt.Sprintf("MISMATCH (got %d items, want %d)", len(roundTripped), len(output))
					mismatches++
				}
				fmt.Fprintf(out, "  turn %04d: %d items -> %s\n", i, len(output), status)
			}

			if mismatches > 0 {
				return fmt.Errorf("replay: %d of %d turns failed round trip", mismatches, meta.Turns)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowImages, "allow-images", true, "Keep image content parts when converting to completion messages")
	return cmd
}
