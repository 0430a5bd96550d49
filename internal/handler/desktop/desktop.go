// Package desktop implements handler.Handler against a real Linux X11
// desktop by shelling out to xdotool and scrot, the concrete backend for
// get_environment()=="linux" (§4.2).
package desktop

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	execsafety "github.com/haasonsaas/cua/internal/exec"
	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/responses"
)

// Handler drives xdotool/scrot subprocesses against the X11 display the
// process is attached to.
type Handler struct {
	width, height int
	displayEnv    string // DISPLAY=... forwarded to every subprocess, empty means inherit
}

// New probes the display dimensions once via xdotool getdisplaygeometry and
// returns a ready-to-use Handler.
func New(ctx context.Context, display string) (*Handler, error) {
	h := &Handler{displayEnv: display}
	out, err := h.run(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return nil, fmt.Errorf("desktop: probe display geometry: %w", err)
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return nil, fmt.Errorf("desktop: unexpected getdisplaygeometry output %q", out)
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("desktop: parse width: %w", err)
	}
	ht, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("desktop: parse height: %w", err)
	}
	h.width, h.height = w, ht
	return h, nil
}

// run shells out to a bare executable name with sanitized arguments. Every
// argument is validated through internal/exec before being handed to
// exec.CommandContext, closing the command-injection surface a
// coordinate/text/key-combo payload sourced from a model response would
// otherwise open.
func (h *Handler) run(ctx context.Context, name string, args ...string) (string, error) {
	if !execsafety.IsSafeExecutableValue(name) {
		return "", fmt.Errorf("desktop: unsafe executable name %q", name)
	}
	safeArgs, err := execsafety.SanitizeArguments(args)
	if err != nil {
		return "", fmt.Errorf("desktop: unsafe argument: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, safeArgs...)
	if h.displayEnv != "" {
		cmd.Env = append(os.Environ(), "DISPLAY="+h.displayEnv)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("desktop: %s %v: %w: %s", name, args, err, stderr.String())
	}
	return stdout.String(), nil
}

func (h *Handler) Screenshot(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "cua-screenshot-*.png")
	if err != nil {
		return "", fmt.Errorf("desktop: create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if !execsafety.IsSafeArgument(path) {
		return "", fmt.Errorf("desktop: unsafe temp path %q", path)
	}
	if _, err := h.run(ctx, "scrot", "--overwrite", path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("desktop: read screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (h *Handler) Dimensions(context.Context) (int, int, error) { return h.width, h.height, nil }

func (h *Handler) Environment(context.Context) (handler.Environment, error) {
	return handler.EnvironmentLinux, nil
}

func (h *Handler) Click(ctx context.Context, x, y float64, button responses.Button) error {
	if err := h.moveTo(ctx, x, y); err != nil {
		return err
	}
	_, err := h.run(ctx, "xdotool", "click", strconv.Itoa(xdotoolButton(button)))
	return err
}

func (h *Handler) DoubleClick(ctx context.Context, x, y float64) error {
	if err := h.moveTo(ctx, x, y); err != nil {
		return err
	}
	_, err := h.run(ctx, "xdotool", "click", "--repeat", "2", "1")
	return err
}

func (h *Handler) Move(ctx context.Context, x, y float64) error {
	return h.moveTo(ctx, x, y)
}

func (h *Handler) moveTo(ctx context.Context, x, y float64) error {
	_, err := h.run(ctx, "xdotool", "mousemove", strconv.Itoa(int(x)), strconv.Itoa(int(y)))
	return err
}

func (h *Handler) Scroll(ctx context.Context, x, y, scrollX, scrollY float64) error {
	if err := h.moveTo(ctx, x, y); err != nil {
		return err
	}
	if scrollY != 0 {
		button := "4" // up
		clicks := int(scrollY)
		if clicks < 0 {
			button, clicks = "5", -clicks
		}
		if _, err := h.run(ctx, "xdotool", "click", "--repeat", strconv.Itoa(clicks), button); err != nil {
			return err
		}
	}
	if scrollX != 0 {
		button := "7" // right
		clicks := int(scrollX)
		if clicks < 0 {
			button, clicks = "6", -clicks
		}
		if _, err := h.run(ctx, "xdotool", "click", "--repeat", strconv.Itoa(clicks), button); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) Type(ctx context.Context, text string) error {
	_, err := h.run(ctx, "xdotool", "type", "--clearmodifiers", text)
	return err
}

func (h *Handler) Keypress(ctx context.Context, keys []string) error {
	_, err := h.run(ctx, "xdotool", "key", strings.Join(keys, "+"))
	return err
}

func (h *Handler) Drag(ctx context.Context, path []responses.Point) error {
	if len(path) == 0 {
		return nil
	}
	if err := h.moveTo(ctx, path[0].X, path[0].Y); err != nil {
		return err
	}
	if _, err := h.run(ctx, "xdotool", "mousedown", "1"); err != nil {
		return err
	}
	for _, p := range path[1:] {
		if err := h.moveTo(ctx, p.X, p.Y); err != nil {
			return err
		}
	}
	_, err := h.run(ctx, "xdotool", "mouseup", "1")
	return err
}

func (h *Handler) Wait(ctx context.Context, ms int) error {
	_, err := h.run(ctx, "xdotool", "sleep", strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64))
	return err
}

func (h *Handler) LeftMouseDown(ctx context.Context, x, y float64) error {
	if err := h.moveTo(ctx, x, y); err != nil {
		return err
	}
	_, err := h.run(ctx, "xdotool", "mousedown", "1")
	return err
}

func (h *Handler) LeftMouseUp(ctx context.Context, x, y float64) error {
	if err := h.moveTo(ctx, x, y); err != nil {
		return err
	}
	_, err := h.run(ctx, "xdotool", "mouseup", "1")
	return err
}

func (h *Handler) CurrentURL(context.Context) (string, error) {
	return "", handler.ErrUnsupported
}

func xdotoolButton(b responses.Button) int {
	switch b {
	case responses.ButtonRight:
		return 3
	case responses.ButtonWheel:
		return 2
	default:
		return 1
	}
}

var _ handler.Handler = (*Handler)(nil)
