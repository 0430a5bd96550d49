package main

import (
	"context"
	"fmt"
	"os"

	cua "github.com/haasonsaas/cua"
	"github.com/haasonsaas/cua/internal/config"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/handler/browser"
	"github.com/haasonsaas/cua/internal/handler/desktop"
	"github.com/haasonsaas/cua/internal/proxy"
)

// loadConfigOrDefault loads path, falling back to config.Default() when
// path is empty or unreadable, rather than a hard failure for verbs that
// work fine without a config file (e.g. `cua run` against env vars
// alone). The fallback is silent: no warning is logged.
func loadConfigOrDefault(path string) *config.Config {
	if path == "" {
		def := config.Default()
		return &def
	}
	cfg, err := config.Load(path)
	if err != nil {
		def := config.Default()
		return &def
	}
	return cfg
}

// buildHandler constructs the concrete ComputerHandler for env (§4.2):
// "browser" launches/connects Playwright, "linux" drives the attached X11
// display via xdotool/scrot, anything else (or empty) runs handler-less
// (native computer-use strategies that don't need one, or pure text runs).
func buildHandler(ctx context.Context, env string, headless bool) (handler.Handler, error) {
	switch handler.Environment(env) {
	case handler.EnvironmentBrowser:
		return browser.New(browser.Config{Headless: headless})
	case handler.EnvironmentLinux:
		return desktop.New(ctx, os.Getenv("DISPLAY"))
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("cua: no built-in handler for environment %q (mac/windows require a remote desktop bridge not provided by this CLI)", env)
	}
}

// buildAgentOptions merges an AgentKwargs override (from a proxy request,
// or nil for the CLI's own static flags) on top of the config file's
// AgentDefaults (§6.1).
func buildAgentOptions(cfg *config.Config, kwargs *proxy.AgentKwargs, h handler.Handler) cua.Options {
	opts := cua.Options{
		Handler:               h,
		Instructions:          cfg.Agent.Instructions,
		MaxRetries:            cfg.Agent.MaxRetries,
		ScreenshotDelay:       cfg.Agent.ScreenshotDelay,
		OnlyNMostRecentImages: cfg.Agent.OnlyNMostRecentImages,
		UsePromptCaching:      cfg.Agent.UsePromptCaching,
	}
	if cfg.Agent.MaxTrajectoryBudgetUSD > 0 {
		opts.Budget = &cua.BudgetOption{MaxUSD: cfg.Agent.MaxTrajectoryBudgetUSD, RaiseError: true}
	}
	if cfg.Trajectory.Dir != "" {
		opts.Trajectory = &cua.TrajectoryOption{Dir: cfg.Trajectory.Dir, ResetOnRun: cfg.Trajectory.ResetOnRun}
	}
	if kwargs != nil {
		if kwargs.Instructions != "" {
			opts.Instructions = kwargs.Instructions
		}
		if kwargs.MaxRetries > 0 {
			opts.MaxRetries = kwargs.MaxRetries
		}
		if kwargs.OnlyNMostRecentImages > 0 {
			opts.OnlyNMostRecentImages = kwargs.OnlyNMostRecentImages
		}
		if kwargs.UsePromptCaching {
			opts.UsePromptCaching = kwargs.UsePromptCaching
		}
		if kwargs.Verbosity > 0 {
			opts.Verbosity = kwargs.Verbosity
		}
	}

	// No grounding.Completer is wired here: the CLI has no standalone
	// text-completion client of its own, so free-form grounded models
	// (§4.6.C) are only reachable through the composed planner+grounder
	// form where the grounder half is itself an ordinary registered
	// strategy, not through this nil-completer default registry.
	reg, err := cua.NewDefaultRegistry(cfg.Providers, nil)
	if err == nil {
		opts.Registry = reg
	}
	return opts
}

// buildProxyFactory adapts buildAgentOptions into a proxy.AgentFactory: one
// call per /responses (or /responses/stream) request, building a fresh
// handler and Agent for the request's declared env. Agents are not
// cached across requests — Handler state (an open browser page) is
// request-scoped, matching one CUA run driving exactly one desktop.
func buildProxyFactory(cfg *config.Config) proxy.AgentFactory {
	return func(model string, kwargs *proxy.AgentKwargs, env string) (*cua.Agent, error) {
		h, err := buildHandler(context.Background(), env, true)
		if err != nil {
			return nil, err
		}
		return cua.New(model, buildAgentOptions(cfg, kwargs, h))
	}
}
