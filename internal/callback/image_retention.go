package callback

import (
	"context"

	"github.com/haasonsaas/cua/internal/responses"
)

// ImageRetention limits the number of recent computer_call_output
// screenshots kept in message history to bound context window growth
// (§3.4, §4.4 bundled callbacks). It removes a dropped computer_call_output
// together with its matching computer_call (by call_id) and a single
// reasoning item immediately preceding that call, mirroring the original
// runtime's eviction pass exactly.
type ImageRetention struct {
	Base
	OnlyNMostRecent int
}

// NewImageRetention returns a callback that keeps only the N most recent
// screenshots. n<=0 disables retention (all images kept).
func NewImageRetention(n int) *ImageRetention {
	return &ImageRetention{OnlyNMostRecent: n}
}

func (r *ImageRetention) OnLLMStart(_ context.Context, messages responses.Items) (responses.Items, error) {
	if r.OnlyNMostRecent <= 0 {
		return messages, nil
	}
	return applyImageRetention(messages, r.OnlyNMostRecent), nil
}

func applyImageRetention(messages responses.Items, keepN int) responses.Items {
	var outputIndices []int
	for idx, msg := range messages {
		if msg.Type == responses.ItemComputerCallOutput && msg.Output != nil && msg.Output.ImageURL != "" {
			outputIndices = append(outputIndices, idx)
		}
	}

	if len(outputIndices) <= keepN {
		return messages
	}

	keep := make(map[int]bool, keepN)
	for _, idx := range outputIndices[len(outputIndices)-keepN:] {
		keep[idx] = true
	}

	toRemove := make(map[int]bool)
	for _, idx := range outputIndices {
		if keep[idx] {
			continue
		}
		toRemove[idx] = true

		callID := messages[idx].CallID
		prevIdx := idx - 1
		if prevIdx >= 0 && messages[prevIdx].Type == responses.ItemComputerCall && messages[prevIdx].CallID == callID {
			toRemove[prevIdx] = true

			rIdx := prevIdx - 1
			if rIdx >= 0 && messages[rIdx].Type == responses.ItemReasoning {
				toRemove[rIdx] = true
			}
		}
	}

	filtered := make(responses.Items, 0, len(messages)-len(toRemove))
	for i, m := range messages {
		if !toRemove[i] {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
