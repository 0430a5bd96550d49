package groundspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResize_WithinBounds_RoundsToFactor(t *testing.T) {
	h, w := Resize(720, 1280, DefaultFactor, DefaultMinPixels, DefaultMaxPixels)
	require.Equal(t, 0, h%DefaultFactor)
	require.Equal(t, 0, w%DefaultFactor)
}

func TestResize_OverMax_ScalesDown(t *testing.T) {
	h, w := Resize(4000, 6000, DefaultFactor, DefaultMinPixels, DefaultMaxPixels)
	require.LessOrEqual(t, h*w, DefaultMaxPixels+DefaultFactor*DefaultFactor*4)
}

func TestResize_UnderMin_ScalesUp(t *testing.T) {
	h, w := Resize(20, 20, DefaultFactor, DefaultMinPixels, DefaultMaxPixels)
	require.GreaterOrEqual(t, h*w, DefaultMinPixels-DefaultFactor*DefaultFactor*4)
}

func TestToScreenCoords(t *testing.T) {
	x, y := ToScreenCoords(100, 50, 1000, 500, 2000, 1000)
	require.Equal(t, 200.0, x)
	require.Equal(t, 100.0, y)
}
