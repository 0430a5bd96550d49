package cua

import (
	"time"

	"github.com/haasonsaas/cua/internal/callback"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/registry"
	"github.com/haasonsaas/cua/internal/toolschema"
)

// TrajectoryOption configures trajectory persistence (§4.4, §6.5), mirroring
// the spec's two accepted shapes for the trajectory_dir constructor
// parameter: a bare directory path, or an object adding ResetOnRun.
type TrajectoryOption struct {
	Dir        string
	ResetOnRun bool
}

// BudgetOption configures the BudgetManager callback (§4.4), mirroring the
// spec's two accepted shapes for max_trajectory_budget: a bare USD figure,
// or an object adding RaiseError/ResetAfterEachRun.
type BudgetOption struct {
	MaxUSD            float64
	RaiseError        bool
	ResetAfterEachRun bool
}

// Options is the Agent construction parameter set (§6.1). The zero value is
// meaningful field-by-field: New fills every unset field from
// DefaultOptions() using the same "override wins only when non-zero"
// merge the teacher's internal/agent/options.go mergeRuntimeOptions applies,
// rather than a functional-options builder — that is the shape the teacher
// corpus actually uses for runtime construction, so Options is kept a plain
// struct literal callers fill in directly.
type Options struct {
	// Tools lists the function tools offered to the model in addition to
	// whatever native computer-use affordance the resolved loop strategy
	// provides. Validated eagerly (ConfigError, §7) at New.
	Tools []toolschema.Tool

	// Callbacks are appended after the bundled callbacks New wires in from
	// the other Options fields below (§4.4).
	Callbacks []callback.Callback

	// CustomLoop overrides model-pattern dispatch entirely (§4.5): when
	// set, Registry is never consulted.
	CustomLoop loop.Strategy

	// Registry overrides the package-level default dispatch table. Caller
	// is responsible for registering every pattern it expects Model to
	// match; see NewDefaultRegistry to build on top of the built-ins.
	Registry *registry.Registry

	// Handler is the computer-handler the orchestrator dispatches actions
	// through (§4.2). Required whenever Tools (or a native computer-use
	// loop strategy) exposes the "computer" tool.
	Handler handler.Handler

	OnlyNMostRecentImages int
	Instructions          string
	MaxRetries            int
	ScreenshotDelay       time.Duration
	UsePromptCaching      bool

	// Budget is nil when no spend cap is wanted.
	Budget *BudgetOption

	// Trajectory is nil when runs should not be persisted to disk.
	Trajectory *TrajectoryOption

	// Verbosity selects the Logging callback's detail level: 1 (info,
	// default) or 2 (debug). A zero value counts as unset and is replaced by
	// the default 1, so the Logging callback is always wired in by New.
	Verbosity int

	// TelemetryEnabled defaults to true; set false (via
	// DisableTelemetry) to force telemetry off regardless of the
	// CUA_TELEMETRY environment variable New would otherwise defer to.
	TelemetryEnabled    bool
	telemetryEnabledSet bool
}

// DisableTelemetry forces the Telemetry callback off regardless of the
// CUA_TELEMETRY/CUA_TELEMETRY_ENABLED environment variables. Exposed as a
// method rather than a plain bool field default because Options' zero
// value must mean "defer to environment", not "disabled".
func (o *Options) DisableTelemetry() {
	o.TelemetryEnabled = false
	o.telemetryEnabledSet = true
}

// DefaultOptions returns the baseline Options New merges a caller-supplied
// Options on top of, mirrored from internal/config.AgentDefaults and the
// teacher's DefaultRuntimeOptions.
func DefaultOptions() Options {
	return Options{
		MaxRetries:       3,
		ScreenshotDelay:  500 * time.Millisecond,
		Verbosity:        1,
		TelemetryEnabled: true,
	}
}

// mergeOptions overlays override on base: a field on override only takes
// effect when it is non-zero/non-empty, exactly the pattern
// mergeRuntimeOptions applies in the teacher. Slice/pointer/interface
// fields are overridden whenever override sets them at all (nil means
// "unset", matching how the teacher treats pointer-shaped overrides).
func mergeOptions(base, override Options) Options {
	merged := base

	if len(override.Tools) > 0 {
		merged.Tools = override.Tools
	}
	if len(override.Callbacks) > 0 {
		merged.Callbacks = override.Callbacks
	}
	if override.CustomLoop != nil {
		merged.CustomLoop = override.CustomLoop
	}
	if override.Registry != nil {
		merged.Registry = override.Registry
	}
	if override.Handler != nil {
		merged.Handler = override.Handler
	}
	if override.OnlyNMostRecentImages > 0 {
		merged.OnlyNMostRecentImages = override.OnlyNMostRecentImages
	}
	if override.Instructions != "" {
		merged.Instructions = override.Instructions
	}
	if override.MaxRetries > 0 {
		merged.MaxRetries = override.MaxRetries
	}
	if override.ScreenshotDelay > 0 {
		merged.ScreenshotDelay = override.ScreenshotDelay
	}
	if override.UsePromptCaching {
		merged.UsePromptCaching = override.UsePromptCaching
	}
	if override.Budget != nil {
		merged.Budget = override.Budget
	}
	if override.Trajectory != nil {
		merged.Trajectory = override.Trajectory
	}
	if override.Verbosity > 0 {
		merged.Verbosity = override.Verbosity
	}
	if override.telemetryEnabledSet {
		merged.TelemetryEnabled = override.TelemetryEnabled
		merged.telemetryEnabledSet = true
	}

	return merged
}
