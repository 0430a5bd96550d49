package callback

import (
	"context"

	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/responses"
)

// Logging emits a structured log line around every hook, using the same
// ambient internal/obs.Logger (with its run_id/turn/model correlation and
// secret redaction) the rest of the runtime logs through — not a
// bespoke logger for this callback alone.
type Logging struct {
	Base

	Logger *obs.Logger
}

// NewLogging returns a Logging callback. A nil logger falls back to
// obs.Default().
func NewLogging(logger *obs.Logger) *Logging {
	if logger == nil {
		logger = obs.Default()
	}
	return &Logging{Logger: logger}
}

func (l *Logging) OnRunStart(ctx context.Context, runID string) error {
	l.Logger.WithContext(ctx).Info(ctx, "run started", "run_id", runID)
	return nil
}

func (l *Logging) OnRunEnd(ctx context.Context, runID string) error {
	l.Logger.WithContext(ctx).Info(ctx, "run ended", "run_id", runID)
	return nil
}

func (l *Logging) OnAPIStart(ctx context.Context, provider, model string) error {
	l.Logger.WithContext(ctx).Debug(ctx, "api call started", "provider", provider, "model", model)
	return nil
}

func (l *Logging) OnAPIEnd(ctx context.Context, provider, model string) error {
	l.Logger.WithContext(ctx).Debug(ctx, "api call finished", "provider", provider, "model", model)
	return nil
}

func (l *Logging) OnUsage(ctx context.Context, usage responses.Usage) error {
	l.Logger.WithContext(ctx).Info(ctx, "usage recorded",
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"response_cost", usage.ResponseCost,
	)
	return nil
}

func (l *Logging) OnComputerCallStart(ctx context.Context, callID string, action responses.Action) error {
	l.Logger.WithContext(ctx).Debug(ctx, "dispatching computer call", "call_id", callID, "action", action.Type)
	return nil
}
