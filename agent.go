// Package cua is the Computer-Use Agent runtime's public API (§6.1, §6.2):
// construct an Agent for a model, then drive it with Run/RunCollect. The
// package wires together the internal/* subsystems — loop strategy
// dispatch, the computer handler, the callback chain, trajectory
// persistence, and the run orchestrator — behind the single construction
// surface the spec describes.
package cua

import (
	"fmt"
	"os"

	"github.com/haasonsaas/cua/internal/callback"
	"github.com/haasonsaas/cua/internal/config"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/obs"
	"github.com/haasonsaas/cua/internal/orchestrator"
	"github.com/haasonsaas/cua/internal/toolschema"
	"github.com/haasonsaas/cua/internal/trajectory"
)

// Agent is a constructed, ready-to-run Computer-Use Agent (§6.1). One Agent
// may be driven through Run/RunCollect repeatedly; each call starts an
// independent run with its own run id, cumulative usage counter, and (if
// configured) trajectory directory.
type Agent struct {
	model         string
	strategy      loop.Strategy
	handler       handler.Handler
	tools         []toolschema.Tool
	baseCallbacks []callback.Callback
	maxRetries    int
	trajCfg       *TrajectoryOption
}

// New resolves Options against DefaultOptions, validates tools, resolves a
// loop strategy for model (via CustomLoop, Options.Registry, or the
// package default registry), assembles the bundled callback chain (§4.4),
// and returns a ready-to-run Agent. Construction failures are always a
// ConfigError (§7): nothing here makes a network call except, indirectly,
// loading the AWS SDK's default credential chain when model resolves to
// the bedrock strategy. New performs one throwaway orchestrator.New call to
// surface the computer-tool/handler wiring check at construction time
// rather than at first Run, matching §7's "Fatal at construction" for
// ConfigError.
func New(model string, opts Options) (*Agent, error) {
	merged := mergeOptions(DefaultOptions(), opts)

	if err := toolschema.ValidateAll(merged.Tools); err != nil {
		return nil, &orchestrator.ConfigError{Reason: err.Error()}
	}

	strategy, err := resolveStrategy(model, merged)
	if err != nil {
		return nil, &orchestrator.ConfigError{Reason: err.Error()}
	}

	tools := merged.Tools
	switch strategy.(type) {
	case *loop.FunctionCallingStrategy, *loop.BedrockStrategy, *loop.ComposedStrategy:
		tools = withComputerToolIfHandlerPresent(tools, merged.Handler)
	}

	baseCallbacks := buildCallbackChain(merged).All()

	if _, err := orchestrator.New(strategy, merged.Handler, tools, model, callback.NewChain(baseCallbacks...)); err != nil {
		return nil, err
	}

	return &Agent{
		model:         model,
		strategy:      strategy,
		handler:       merged.Handler,
		tools:         tools,
		baseCallbacks: baseCallbacks,
		maxRetries:    merged.MaxRetries,
		trajCfg:       merged.Trajectory,
	}, nil
}

// resolveStrategy honors CustomLoop first, then a caller-supplied
// Registry, then the package default (credentials read from the
// conventional provider environment variables, §6.6).
func resolveStrategy(model string, opts Options) (loop.Strategy, error) {
	if opts.CustomLoop != nil {
		return opts.CustomLoop, nil
	}

	reg := opts.Registry
	if reg == nil {
		built, err := NewDefaultRegistry(providersFromEnv(), nil)
		if err != nil {
			return nil, fmt.Errorf("cua: build default registry: %w", err)
		}
		reg = built
	}

	factory, name, err := reg.Resolve(model)
	if err != nil {
		return nil, err
	}
	built, err := factory(model)
	if err != nil {
		return nil, fmt.Errorf("cua: resolve strategy %q for model %q: %w", name, model, err)
	}
	strategy, ok := built.(loop.Strategy)
	if !ok {
		return nil, fmt.Errorf("cua: registry entry %q did not build a loop.Strategy", name)
	}
	return strategy, nil
}

// withComputerToolIfHandlerPresent appends the virtual "computer" function
// tool (§4.6.D) for strategy families that drive the handler through an
// ordinary tool call instead of a native computer-use affordance.
func withComputerToolIfHandlerPresent(tools []toolschema.Tool, h handler.Handler) []toolschema.Tool {
	if h == nil {
		return tools
	}
	for _, t := range tools {
		if t.Name == toolschema.ComputerToolName {
			return tools
		}
	}
	return append(append([]toolschema.Tool{}, tools...), toolschema.ComputerTool())
}

// buildCallbackChain wires the bundled callbacks (§4.4) that Options'
// fields ask for, in the fixed order the spec's callback chain composes
// left-to-right, followed by any caller-supplied Callbacks.
func buildCallbackChain(opts Options) *callback.Chain {
	chain := callback.NewChain()

	chain.Add(callback.NewOperatorNormalizer())

	if opts.OnlyNMostRecentImages > 0 {
		chain.Add(callback.NewImageRetention(opts.OnlyNMostRecentImages))
	}
	if opts.Instructions != "" {
		chain.Add(callback.NewPromptInstructions(opts.Instructions))
	}
	if opts.Budget != nil && opts.Budget.MaxUSD > 0 {
		bm := callback.NewBudgetManager(opts.Budget.MaxUSD)
		bm.RaiseError = opts.Budget.RaiseError
		bm.ResetAfterEachRun = opts.Budget.ResetAfterEachRun
		chain.Add(bm)
	}
	if opts.Verbosity > 0 {
		logger := obs.Default()
		if opts.Verbosity < 2 {
			logger = obs.NewLogger(obs.LogConfig{Level: "info", Format: "json"})
		} else {
			logger = obs.NewLogger(obs.LogConfig{Level: "debug", Format: "json"})
		}
		chain.Add(callback.NewLogging(logger))
	}
	if opts.TelemetryEnabled {
		chain.Add(callback.NewTelemetry(nil))
	}
	// NewTrajectorySaver is intentionally NOT wired here: its Writer is
	// bound to one run directory, so Agent.Run builds and adds it fresh
	// per run (see run.go) rather than sharing one Writer across runs.

	for _, cb := range opts.Callbacks {
		chain.Add(cb)
	}

	return chain
}

// providersFromEnv reads provider credentials from the conventional
// environment variable names (§6.6: "any provider-SDK keys consumed
// directly by the completion client"), the same names the Anthropic,
// OpenAI, and AWS SDKs themselves document.
func providersFromEnv() config.ProvidersConfig {
	return config.ProvidersConfig{
		Anthropic: config.ProviderConfig{
			APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		},
		OpenAI: config.ProviderConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Gemini: config.ProviderConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
		},
		Bedrock: config.BedrockConfig{
			Region:  firstNonEmpty(os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION")),
			Profile: os.Getenv("AWS_PROFILE"),
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// newRunTrajectoryWriter builds a fresh per-run trajectory.Writer when
// Options.Trajectory is set, or returns (nil, nil) when trajectory
// persistence wasn't requested.
func newRunTrajectoryWriter(runID, model string, cfg *TrajectoryOption) (*trajectory.Writer, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, nil
	}
	return trajectory.New(trajectory.Config{Dir: cfg.Dir, ResetOnRun: cfg.ResetOnRun}, runID, model)
}
