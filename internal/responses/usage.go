package responses

// Usage is the per-turn usage record (§3.3), accumulated monotonically by
// the orchestrator across yielded turns (§4.8, §8 property 3).
type Usage struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	ResponseCost     float64 `json:"response_cost"`

	InputTokensDetails  UsageInputDetails  `json:"input_tokens_details"`
	OutputTokensDetails UsageOutputDetails `json:"output_tokens_details"`
}

// UsageInputDetails breaks down prompt tokens further.
type UsageInputDetails struct {
	CachedTokens int64 `json:"cached_tokens"`
}

// UsageOutputDetails breaks down completion tokens further.
type UsageOutputDetails struct {
	ReasoningTokens int64 `json:"reasoning_tokens"`
}

// Add accumulates other into u in place, the sole mutation allowed on a
// Usage once it has been yielded to a caller (everything else in the item
// model is append-only or callback-pruned).
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.ResponseCost += other.ResponseCost
	u.InputTokensDetails.CachedTokens += other.InputTokensDetails.CachedTokens
	u.OutputTokensDetails.ReasoningTokens += other.OutputTokensDetails.ReasoningTokens
}
