package hwpx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPixelsToUnits(t *testing.T) {
	assert.Equal(t, 0, PixelsToUnits(0))
	assert.Equal(t, 75, PixelsToUnits(1))
	assert.Equal(t, 45000, PixelsToUnits(600))
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, 34500, ClampWidth(34500, MaxWidthUnits))
	assert.Equal(t, MaxWidthUnits, ClampWidth(MaxWidthUnits, MaxWidthUnits))
	assert.Equal(t, MaxWidthUnits, ClampWidth(45000, MaxWidthUnits))
}

func TestGeometryFor_Unclamped(t *testing.T) {
	g := GeometryFor(460, 420)
	assert.Equal(t, Geometry{Width: 34500, Height: 31500}, g)
}

func TestGeometryFor_ClampedKeepsAspect(t *testing.T) {
	g := GeometryFor(600, 500)
	assert.Equal(t, MaxWidthUnits, g.Width)
	// 500px = 37500 units, scaled by 42520/45000.
	assert.Equal(t, 35433, g.Height)
}

func TestGeometryFor_WidthNeverExceedsMax(t *testing.T) {
	for w := 1; w <= 3000; w += 7 {
		h := w/2 + 13
		g := GeometryFor(w, h)
		if g.Width > MaxWidthUnits {
			t.Fatalf("GeometryFor(%d, %d).Width = %d, exceeds %d", w, h, g.Width, MaxWidthUnits)
		}
		if PixelsToUnits(w) > MaxWidthUnits {
			want := float64(h) / float64(w)
			got := float64(g.Height) / float64(g.Width)
			if math.Abs(got-want) > 0.001 {
				t.Errorf("GeometryFor(%d, %d) aspect = %f, want %f", w, h, got, want)
			}
		}
	}
}

func TestScaleHeight_NotClamped(t *testing.T) {
	assert.Equal(t, PixelsToUnits(300), ScaleHeight(200, 300, PixelsToUnits(200), MaxWidthUnits))
}

func TestScaleHeight_ReturnsUnits(t *testing.T) {
	raw := PixelsToUnits(600)
	assert.Equal(t, 35433, ScaleHeight(600, 500, raw, MaxWidthUnits))
	assert.NotEqual(t, 472, ScaleHeight(600, 500, raw, MaxWidthUnits))
	assert.Equal(t, PixelsToUnits(420), ScaleHeight(460, 420, PixelsToUnits(460), MaxWidthUnits))
}
