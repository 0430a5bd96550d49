// Package browser implements handler.Handler by driving a real Chromium
// page through github.com/playwright-community/playwright-go, the concrete
// backend for get_environment()=="browser" (§4.2).
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/haasonsaas/cua/internal/handler"
	"github.com/haasonsaas/cua/internal/media"
	"github.com/haasonsaas/cua/internal/responses"
)

// Handler drives one Playwright page for the lifetime of an agent run. It
// is intentionally single-session (unlike the pooled multi-tool design it
// is grounded on) because a CUA run drives exactly one desktop at a time.
type Handler struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	width   int
	height  int
}

// Config configures the browser handler.
type Config struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	// RemoteURL, when set, connects to an already-running browser server
	// instead of launching a local Chromium (ws:// or http(s)://).
	RemoteURL string
	StartURL  string
}

// New launches (or connects to) a browser and opens a single page sized per
// Config, ready to be driven by the orchestrator.
func New(cfg Config) (*Handler, error) {
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 800
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browser: start playwright: %w", err)
	}

	var b playwright.Browser
	if strings.TrimSpace(cfg.RemoteURL) != "" {
		b, err = pw.Chromium.ConnectOverCDP(cfg.RemoteURL)
	} else {
		b, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(cfg.Headless)})
	}
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	page, err := b.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("browser: new page: %w", err)
	}

	if cfg.StartURL != "" {
		if _, err := page.Goto(cfg.StartURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		}); err != nil {
			return nil, fmt.Errorf("browser: navigate to start url: %w", err)
		}
	}

	return &Handler{pw: pw, browser: b, page: page, width: cfg.ViewportWidth, height: cfg.ViewportHeight}, nil
}

// Close tears down the page, browser, and playwright driver process.
func (h *Handler) Close() error {
	if h.browser != nil {
		_ = h.browser.Close()
	}
	if h.pw != nil {
		return h.pw.Stop()
	}
	return nil
}

func (h *Handler) Screenshot(ctx context.Context) (string, error) {
	data, err := h.page.Screenshot(playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng})
	if err != nil {
		return "", fmt.Errorf("browser: screenshot: %w", err)
	}

	normalized, err := media.NormalizeBrowserScreenshot(data, nil)
	if err != nil {
		return "", fmt.Errorf("browser: normalize screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(normalized.Buffer), nil
}

func (h *Handler) Dimensions(context.Context) (int, int, error) { return h.width, h.height, nil }

func (h *Handler) Environment(context.Context) (handler.Environment, error) {
	return handler.EnvironmentBrowser, nil
}

func (h *Handler) Click(_ context.Context, x, y float64, button responses.Button) error {
	return h.page.Mouse().Click(x, y, playwright.MouseClickOptions{Button: playwrightButton(button)})
}

func (h *Handler) DoubleClick(_ context.Context, x, y float64) error {
	return h.page.Mouse().Dblclick(x, y)
}

func (h *Handler) Move(_ context.Context, x, y float64) error {
	return h.page.Mouse().Move(x, y)
}

func (h *Handler) Scroll(_ context.Context, x, y, scrollX, scrollY float64) error {
	if err := h.page.Mouse().Move(x, y); err != nil {
		return err
	}
	return h.page.Mouse().Wheel(scrollX, scrollY)
}

func (h *Handler) Type(_ context.Context, text string) error {
	return h.page.Keyboard().Type(text)
}

func (h *Handler) Keypress(_ context.Context, keys []string) error {
	return h.page.Keyboard().Press(strings.Join(keys, "+"))
}

func (h *Handler) Drag(_ context.Context, path []responses.Point) error {
	if len(path) == 0 {
		return nil
	}
	if err := h.page.Mouse().Move(path[0].X, path[0].Y); err != nil {
		return err
	}
	if err := h.page.Mouse().Down(); err != nil {
		return err
	}
	for _, p := range path[1:] {
		if err := h.page.Mouse().Move(p.X, p.Y); err != nil {
			return err
		}
	}
	return h.page.Mouse().Up()
}

func (h *Handler) Wait(_ context.Context, ms int) error {
	h.page.WaitForTimeout(float64(ms))
	return nil
}

func (h *Handler) LeftMouseDown(_ context.Context, x, y float64) error {
	if err := h.page.Mouse().Move(x, y); err != nil {
		return err
	}
	return h.page.Mouse().Down()
}

func (h *Handler) LeftMouseUp(_ context.Context, x, y float64) error {
	if err := h.page.Mouse().Move(x, y); err != nil {
		return err
	}
	return h.page.Mouse().Up()
}

func (h *Handler) CurrentURL(context.Context) (string, error) {
	return h.page.URL(), nil
}

func playwrightButton(b responses.Button) *playwright.MouseButton {
	switch b {
	case responses.ButtonRight:
		return playwright.MouseButtonRight
	case responses.ButtonWheel:
		return playwright.MouseButtonMiddle
	default:
		return playwright.MouseButtonLeft
	}
}

var _ handler.Handler = (*Handler)(nil)
