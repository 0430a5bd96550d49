package cua

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/cua/internal/config"
	"github.com/haasonsaas/cua/internal/grounding"
	"github.com/haasonsaas/cua/internal/loop"
	"github.com/haasonsaas/cua/internal/registry"
)

// NewDefaultRegistry builds the out-of-the-box Agent-Loop Registry (§4.5)
// every Agent uses unless Options.Registry or Options.CustomLoop overrides
// it: one entry per loop strategy family (§4.6) the module ships, wired to
// the credentials in providers. grounderCompleter is optional; when nil,
// model ids matching a known free-form grounded backend (UI-TARS et al.)
// fail to resolve instead of silently falling through to the generic
// tool-calling family, since those models don't speak OpenAI-style function
// calling at all.
//
// There is no teacher analog for a pattern-matched dispatch table (the
// teacher instead wires one fixed provider per FailoverOrchestrator
// instance); this mirrors registry.go's own framing: designed fresh from
// spec.md §4.5/§4.6, reusing every provider client the teacher and the
// rest of the examples already demonstrate constructing.
func NewDefaultRegistry(providers config.ProvidersConfig, grounderCompleter grounding.Completer) (*registry.Registry, error) {
	reg := registry.New()

	err := reg.Register("openai-computer-use-preview", `^computer-use-preview`, 100, func(model string) (any, error) {
		return loop.NewOpenAIResponsesStrategy(loop.OpenAIResponsesConfig{
			APIKey:       providers.OpenAI.APIKey,
			BaseURL:      providers.OpenAI.BaseURL,
			DefaultModel: model,
			Environment:  "browser",
		})
	})
	if err != nil {
		return nil, err
	}

	err = reg.Register("anthropic-computer-use", `^claude-`, 100, func(model string) (any, error) {
		return loop.NewAnthropicStrategy(loop.AnthropicConfig{
			APIKey:       providers.Anthropic.APIKey,
			BaseURL:      providers.Anthropic.BaseURL,
			DefaultModel: model,
		})
	})
	if err != nil {
		return nil, err
	}

	err = reg.Register("bedrock-converse", `^(anthropic\.|amazon\.|meta\.|mistral\.|cohere\.)`, 90, func(model string) (any, error) {
		return loop.NewBedrockStrategy(context.Background(), loop.BedrockConfig{
			Region:       providers.Bedrock.Region,
			DefaultModel: model,
		})
	})
	if err != nil {
		return nil, err
	}

	err = reg.Register("grounded-freeform", `^(ui-tars|internvl|opencua|holo|moondream)`, 100, func(model string) (any, error) {
		if grounderCompleter == nil {
			return nil, fmt.Errorf("cua: model %q needs a grounding.Completer (see Options/grounderCompleter), none configured", model)
		}
		return loop.NewGroundedStrategy(model, grounderCompleter), nil
	})
	if err != nil {
		return nil, err
	}

	// Composed planner+grounder (§4.6.D): "<planner>+<grounder>" resolves
	// each half through this same registry, so a composed model string can
	// name any other registered family on either side. The string is split
	// at its first "+", so the planner half never contains one; a grounder
	// half that does resolves to another composed strategy.
	err = reg.Register("composed-planner-grounder", `.+\+.+`, 110, func(model string) (any, error) {
		parts := strings.SplitN(model, "+", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("cua: composed model %q must be \"<planner>+<grounder>\"", model)
		}
		plannerFactory, _, err := reg.Resolve(parts[0])
		if err != nil {
			return nil, fmt.Errorf("cua: composed planner: %w", err)
		}
		grounderFactory, _, err := reg.Resolve(parts[1])
		if err != nil {
			return nil, fmt.Errorf("cua: composed grounder: %w", err)
		}
		plannerAny, err := plannerFactory(parts[0])
		if err != nil {
			return nil, fmt.Errorf("cua: composed planner: %w", err)
		}
		grounderAny, err := grounderFactory(parts[1])
		if err != nil {
			return nil, fmt.Errorf("cua: composed grounder: %w", err)
		}
		planner, ok := plannerAny.(loop.Strategy)
		if !ok {
			return nil, fmt.Errorf("cua: composed planner %q did not build a loop.Strategy", parts[0])
		}
		grounder, ok := grounderAny.(loop.Strategy)
		if !ok {
			return nil, fmt.Errorf("cua: composed grounder %q did not build a loop.Strategy", parts[1])
		}
		return loop.NewComposedStrategy(planner, grounder), nil
	})
	if err != nil {
		return nil, err
	}

	// Fallback: any other model is assumed to speak OpenAI-compatible
	// chat-completions tool calling (§4.6.B), including self-hosted and
	// OpenRouter-style endpoints reachable via providers.OpenAI.BaseURL.
	reg.MustRegister("generic-tool-calling", `.*`, 0, func(model string) (any, error) {
		return loop.NewFunctionCallingStrategy(loop.FunctionCallingConfig{
			APIKey:       providers.OpenAI.APIKey,
			BaseURL:      providers.OpenAI.BaseURL,
			DefaultModel: model,
			Name:         "generic-tool-calling",
		})
	})

	return reg, nil
}
