// Package groundspace normalizes screen coordinates between the raw
// screenshot resolution and the resized resolution a vision-language
// grounding model actually saw, so a predicted (x,y) in model-space maps
// back to a real screen pixel (§4.6.C/D).
package groundspace

import "math"

// Default bounds mirror the widely-used Qwen2-VL image preprocessing
// defaults: images are resized to a multiple of 28 pixels per side,
// bounded between ~12.5K and ~12.8M total pixels.
const (
	DefaultFactor   = 28
	DefaultMinPixels = 3136 * 4   // 4 * 28 * 28 * 4
	DefaultMaxPixels = 12845056 // 16384 * 28 * 28
)

// Resize computes the resized (height, width) a vision model would
// actually process for an image of the given height/width, following the
// smart_resize algorithm: round both dimensions to the nearest multiple of
// factor, then scale uniformly until total pixels fall within
// [minPixels, maxPixels], preserving aspect ratio throughout.
func Resize(height, width, factor, minPixels, maxPixels int) (resizedHeight, resizedWidth int) {
	if factor <= 0 {
		factor = DefaultFactor
	}
	if minPixels <= 0 {
		minPixels = DefaultMinPixels
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	hBar := roundByFactor(height, factor)
	wBar := roundByFactor(width, factor)

	if hBar*wBar > maxPixels {
		beta := math.Sqrt(float64(height*width) / float64(maxPixels))
		hBar = floorByFactor(float64(height)/beta, factor)
		wBar = floorByFactor(float64(width)/beta, factor)
	} else if hBar*wBar < minPixels {
		beta := math.Sqrt(float64(minPixels) / float64(height*width))
		hBar = ceilByFactor(float64(height)*beta, factor)
		wBar = ceilByFactor(float64(width)*beta, factor)
	}

	return hBar, wBar
}

func roundByFactor(dim, factor int) int {
	return int(math.Round(float64(dim)/float64(factor))) * factor
}

func floorByFactor(dim float64, factor int) int {
	return int(math.Floor(dim/float64(factor))) * factor
}

func ceilByFactor(dim float64, factor int) int {
	return int(math.Ceil(dim/float64(factor))) * factor
}

// ToScreenCoords rescales a point predicted in resized-image space back to
// real screen pixel space.
func ToScreenCoords(x, y float64, resizedW, resizedH, screenW, screenH int) (screenX, screenY float64) {
	if resizedW == 0 || resizedH == 0 {
		return x, y
	}
	scaleX := float64(screenW) / float64(resizedW)
	scaleY := float64(screenH) / float64(resizedH)
	return x * scaleX, y * scaleY
}

// ToScreenCoordsNormalized rescales a point predicted as a 0-1 (or 0-1000)
// normalized fraction of the image back to real screen pixel space, for
// grounders that emit fractional/box coordinates instead of resized-image
// pixels (e.g. bounding-box style outputs).
func ToScreenCoordsNormalized(x, y float64, scale float64, screenW, screenH int) (screenX, screenY float64) {
	if scale <= 0 {
		scale = 1
	}
	return (x / scale) * float64(screenW), (y / scale) * float64(screenH)
}
