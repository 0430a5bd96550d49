// Package shim implements the minimal handler.Handler surface valid when
// the surrounding harness executes actions externally — e.g. a benchmark
// framework that scores screenshots but replays actions itself (§4.2).
package shim

import (
	"context"

	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/responses"
)

// Shim provides Screenshot/Dimensions/Environment from a caller-supplied
// source and treats every action-dispatch method as a no-op success. It
// satisfies handler.Handler in full so it can be passed anywhere a Handler
// is expected, but every mutating method is inert.
type Shim struct {
	ScreenshotFunc func(ctx context.Context) (string, error)
	Width, Height  int
	Env            handler.Environment
}

func New(screenshotFunc func(ctx context.Context) (string, error), width, height int, env handler.Environment) *Shim {
	return &Shim{ScreenshotFunc: screenshotFunc, Width: width, Height: height, Env: env}
}

func (s *Shim) Screenshot(ctx context.Context) (string, error) { return s.ScreenshotFunc(ctx) }
func (s *Shim) Dimensions(context.Context) (int, int, error)   { return s.Width, s.Height, nil }
func (s *Shim) Environment(context.Context) (handler.Environment, error) { return s.Env, nil }

func (s *Shim) Click(context.Context, float64, float64, responses.Button) error { return nil }
func (s *Shim) DoubleClick(context.Context, float64, float64) error             { return nil }
func (s *Shim) Move(context.Context, float64, float64) error                   { return nil }
func (s *Shim) Scroll(context.Context, float64, float64, float64, float64) error { return nil }
func (s *Shim) Type(context.Context, string) error                             { return nil }
func (s *Shim) Keypress(context.Context, []string) error                       { return nil }
func (s *Shim) Drag(context.Context, []responses.Point) error                  { return nil }
func (s *Shim) Wait(context.Context, int) error                                { return nil }
func (s *Shim) LeftMouseDown(context.Context, float64, float64) error          { return nil }
func (s *Shim) LeftMouseUp(context.Context, float64, float64) error            { return nil }
func (s *Shim) CurrentURL(context.Context) (string, error)                     { return "", handler.ErrUnsupported }

var _ handler.Handler = (*Shim)(nil)
