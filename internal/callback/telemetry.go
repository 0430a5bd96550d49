package callback

import (
	"context"
	"os"

	"github.com/haasonsaas/cua/internal/obs"
)

// Emitter receives anonymous telemetry events. The concrete transport
// (HTTP beacon, local file, etc.) is an external collaborator per spec.md's
// Non-goals ("telemetry transport"); Telemetry only decides *when* to fire,
// not *where* events go. A nil Emitter is replaced with one that logs at
// debug level, so telemetry is never silently dropped during development.
type Emitter func(event string, attrs map[string]any)

// Telemetry records anonymous run_start/run_end events (§4.4 bundled
// callbacks), gated by the same environment variables the original reads
// directly (§6.6): CUA_TELEMETRY_ENABLED (default true) and the legacy
// CUA_TELEMETRY=off override.
type Telemetry struct {
	Base

	Emit    Emitter
	enabled bool

	logger *obs.Logger
}

// NewTelemetry builds a Telemetry callback, resolving enablement from the
// environment the same way the original's telemetry_enabled default does.
func NewTelemetry(emit Emitter) *Telemetry {
	t := &Telemetry{
		Emit:    emit,
		enabled: telemetryEnabledFromEnv(),
		logger:  obs.Default(),
	}
	if t.Emit == nil {
		t.Emit = t.logEvent
	}
	return t
}

func telemetryEnabledFromEnv() bool {
	if v := os.Getenv("CUA_TELEMETRY"); v == "off" {
		return false
	}
	if v, ok := os.LookupEnv("CUA_TELEMETRY_ENABLED"); ok {
		return v != "false" && v != "0"
	}
	return true
}

func (t *Telemetry) logEvent(event string, attrs map[string]any) {
	args := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	t.logger.Debug(context.Background(), "telemetry: "+event, args...)
}

func (t *Telemetry) OnRunStart(_ context.Context, runID string) error {
	if !t.enabled {
		return nil
	}
	t.Emit("run_start", map[string]any{"run_id": runID})
	return nil
}

func (t *Telemetry) OnRunEnd(_ context.Context, runID string) error {
	if !t.enabled {
		return nil
	}
	t.Emit("run_end", map[string]any{"run_id": runID})
	return nil
}
