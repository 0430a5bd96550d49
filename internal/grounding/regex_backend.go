package grounding

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strconv"

	"github.com/haasonsaas/cua/internal/groundspace"
)

var (
	numPattern   = `(\d+(?:\.\d+)?)`
	pointPattern = regexp.MustCompile(`\[\[\s*` + numPattern + `\s*,\s*` + numPattern + `\s*\]\]`)
	bboxPattern  = regexp.MustCompile(`\[\[\s*` + numPattern + `\s*,\s*` + numPattern + `\s*,\s*` + numPattern + `\s*,\s*` + numPattern + `\s*\]\]`)
)

// Completer is the minimal text-completion call a RegexBackend needs: send
// a grounding prompt plus the screenshot, get back the model's raw text.
type Completer interface {
	CompleteGrounding(ctx context.Context, imageB64, prompt string) (string, error)
}

// RegexBackend implements the grounded-loop family's (§4.6.C) predict_click
// by prompting a vision model for a bounding box in `[[x1,y1,x2,y2]]` or
// point in `[[x,y]]` form (0-1000 normalized, per the ScreenSpot/InternVL
// grounding baseline convention), then regex-extracting and rescaling to
// the screenshot's real pixel dimensions.
type RegexBackend struct {
	Completer Completer
}

func NewRegexBackend(c Completer) *RegexBackend {
	return &RegexBackend{Completer: c}
}

func (b *RegexBackend) PredictClick(ctx context.Context, imageB64, instruction string) (Point, bool, error) {
	width, height := decodeDimensions(imageB64)

	prompt := fmt.Sprintf(
		"Please provide the bounding box coordinate of the UI element this user instruction describes: <ref>%s</ref>. "+
			"Answer in the format of [[x1, y1, x2, y2]]", instruction)

	text, err := b.Completer.CompleteGrounding(ctx, imageB64, prompt)
	if err != nil {
		return Point{}, false, err
	}

	if x, y, ok := extractLastBBoxCenter(text); ok {
		px, py := scaleNormToPixels(x, y, width, height)
		return Point{X: px, Y: py}, true, nil
	}
	if x, y, ok := extractFirstPoint(text); ok {
		px, py := scaleNormToPixels(x, y, width, height)
		return Point{X: px, Y: py}, true, nil
	}
	return Point{}, false, nil
}

func extractFirstPoint(text string) (x, y float64, ok bool) {
	m := pointPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	x, _ = strconv.ParseFloat(m[1], 64)
	y, _ = strconv.ParseFloat(m[2], 64)
	return x, y, true
}

func extractLastBBoxCenter(text string) (x, y float64, ok bool) {
	matches := bboxPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, 0, false
	}
	m := matches[len(matches)-1]
	x1, _ := strconv.ParseFloat(m[1], 64)
	y1, _ := strconv.ParseFloat(m[2], 64)
	x2, _ := strconv.ParseFloat(m[3], 64)
	y2, _ := strconv.ParseFloat(m[4], 64)
	return (x1 + x2) / 2, (y1 + y2) / 2, true
}

// scaleNormToPixels rescales a 0-1000-normalized (x, y) to real screenshot
// pixels via the same smart_resize-derived rescaling internal/groundspace
// centralizes for the Family B/C loop strategies, then clamps to the
// screenshot bounds.
func scaleNormToPixels(xNorm, yNorm float64, width, height int) (float64, float64) {
	x, y := groundspace.ToScreenCoordsNormalized(xNorm, yNorm, 1000, width, height)
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > float64(width-1) {
		x = float64(width - 1)
	}
	if y > float64(height-1) {
		y = float64(height - 1)
	}
	return x, y
}

func decodeDimensions(imageB64 string) (width, height int) {
	data, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return 1920, 1080
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 1920, 1080
	}
	return cfg.Width, cfg.Height
}
