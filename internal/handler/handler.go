// Package handler defines the computer-handler contract the orchestrator
// drives (§4.2), plus the exact action-dispatch mapping (§6.3).
package handler

import (
	"context"
	"fmt"

	"github.com/haasonsaas/cua/internal/responses"
)

// Environment is the desktop kind a handler drives.
type Environment string

const (
	EnvironmentMac     Environment = "mac"
	EnvironmentWindows Environment = "windows"
	EnvironmentLinux   Environment = "linux"
	EnvironmentBrowser Environment = "browser"
)

// Handler is the sealed capability surface the orchestrator dispatches
// actions through. The loop never introspects an implementation beyond
// this interface (§4.2): a minimal shim implementing only Screenshot,
// Dimensions, and Environment is valid when the surrounding harness
// executes actions externally (e.g. a benchmark framework) — see
// internal/handler/shim.
//
// All methods may suspend for arbitrary durations and must accept
// cancellation via ctx (§5: every handler action is a suspension point).
type Handler interface {
	Screenshot(ctx context.Context) (pngBase64 string, err error)
	Dimensions(ctx context.Context) (width, height int, err error)
	Environment(ctx context.Context) (Environment, error)

	Click(ctx context.Context, x, y float64, button responses.Button) error
	DoubleClick(ctx context.Context, x, y float64) error
	Move(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, x, y, scrollX, scrollY float64) error
	Type(ctx context.Context, text string) error
	Keypress(ctx context.Context, keys []string) error
	Drag(ctx context.Context, path []responses.Point) error
	Wait(ctx context.Context, ms int) error
	LeftMouseDown(ctx context.Context, x, y float64) error
	LeftMouseUp(ctx context.Context, x, y float64) error

	// CurrentURL is optional capability-flagged behavior (§4.2
	// get_current_url?); implementations that don't drive a browser should
	// return ("", ErrUnsupported).
	CurrentURL(ctx context.Context) (string, error)
}

// ErrUnsupported is returned by an optional Handler capability the
// implementation doesn't provide.
var ErrUnsupported = fmt.Errorf("handler: capability not supported")

// Dispatch executes action against h, following the exact mapping in §6.3.
// It never retries (§7 ActionExecutionError: dispatch errors are converted
// by the caller to a function_call_output, never retried here).
func Dispatch(ctx context.Context, h Handler, action responses.Action) error {
	switch action.Type {
	case responses.ActionClick:
		button := action.Button
		if button == "" {
			button = responses.ButtonLeft
		}
		if button == responses.ButtonWheel {
			// "wheel" clicks are synthesized via scroll, per §6.3.
			return h.Scroll(ctx, action.X, action.Y, 0, 0)
		}
		return h.Click(ctx, action.X, action.Y, button)

	case responses.ActionDoubleClick:
		return h.DoubleClick(ctx, action.X, action.Y)

	case responses.ActionTripleClick:
		button := action.Button
		if button == "" {
			button = responses.ButtonLeft
		}
		for i := 0; i < 3; i++ {
			if err := h.Click(ctx, action.X, action.Y, button); err != nil {
				return err
			}
		}
		return nil

	case responses.ActionMove:
		return h.Move(ctx, action.X, action.Y)

	case responses.ActionScroll:
		return h.Scroll(ctx, action.X, action.Y, action.ScrollX, action.ScrollY)

	case responses.ActionType_:
		return h.Type(ctx, action.Text)

	case responses.ActionKeypress:
		return h.Keypress(ctx, action.Keys)

	case responses.ActionDrag:
		return h.Drag(ctx, action.Path)

	case responses.ActionWait:
		return h.Wait(ctx, 1000)

	case responses.ActionScreenshot:
		// Result discarded: the orchestrator's implicit post-action
		// screenshot already covers it (§6.3).
		_, err := h.Screenshot(ctx)
		return err

	case responses.ActionLeftMouseDown:
		return h.LeftMouseDown(ctx, action.X, action.Y)

	case responses.ActionLeftMouseUp:
		return h.LeftMouseUp(ctx, action.X, action.Y)

	default:
		return fmt.Errorf("handler: unsupported action type %q", action.Type)
	}
}
