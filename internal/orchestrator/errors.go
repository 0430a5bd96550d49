package orchestrator

import "fmt"

// ConfigError is raised at Agent/Orchestrator construction time when the
// wiring between strategy, tools, and handler cannot satisfy the run
// contract (§7) — e.g. a strategy that requires a computer handler but none
// was supplied. Construction-time errors never surface mid-run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "orchestrator: config: " + e.Reason }

// TransientProviderError wraps an LLM call failure the retry policy (§7)
// should retry: timeouts, 5xx responses, and rate limits. Strategies that
// want retry treatment should wrap their returned error in this type;
// anything else is treated as permanent by the orchestrator's retry
// wrapper (predictStepWithRetry).
type TransientProviderError struct {
	Cause error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("orchestrator: transient provider error: %v", e.Cause)
}

func (e *TransientProviderError) Unwrap() error { return e.Cause }

// IsRetryable reports true for every TransientProviderError, satisfying the
// ambient error-handling convention (§NEW ambient stack: "classified by an
// IsRetryable() bool method where retry semantics matter").
func (e *TransientProviderError) IsRetryable() bool { return true }

// ActionExecutionError wraps a handler.Dispatch failure (§7). It never
// bubbles out of Run: the orchestrator converts it into a
// function_call_output so the model can observe and self-correct on the
// next turn (§7, S6).
type ActionExecutionError struct {
	CallID string
	Cause  error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("orchestrator: action %s failed: %v", e.CallID, e.Cause)
}

func (e *ActionExecutionError) Unwrap() error { return e.Cause }

// MaxTurnsReachedError records that the optional MaxTurns cap was hit
// (§4.7 termination rules): Run's channel just closes after the last
// allowed turn, and RunCollect returns this error as the run's terminal
// error.
type MaxTurnsReachedError struct {
	MaxTurns int
}

func (e *MaxTurnsReachedError) Error() string {
	return fmt.Sprintf("orchestrator: max turns (%d) reached", e.MaxTurns)
}
