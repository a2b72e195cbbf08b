// Package hwpx embeds raster images into HWPX documents.
//
// An HWPX file is a ZIP archive of OWPML XML parts. Embedding a picture touches three
// places: a new BinData/ entry holding the image bytes, an item in the package manifest
// (Contents/content.hpf) and a picture paragraph in the body section (Contents/section0.xml).
// Everything else in the archive is copied through untouched.
package hwpx

import "math"

// UnitsPerPixel converts 96dpi pixels to HWP units (1/7200 inch): 7200 / 96.
const UnitsPerPixel = 75

// MaxWidthUnits is the printable body width of an A4 page with default margins (150mm).
const MaxWidthUnits = 42520

// Geometry is a picture size in HWP units.
type Geometry struct {
	Width  int
	Height int
}

// PixelsToUnits converts a pixel length to HWP units.
func PixelsToUnits(px int) int {
	return px * UnitsPerPixel
}

// ClampWidth limits a width in HWP units to max.
func ClampWidth(units, max int) int {
	if units > max {
		return max
	}
	return units
}

// ScaleHeight returns the height in HWP units that keeps the aspect ratio of
// widthPx x heightPx once the raw width has been clamped to max. Both the
// result and max are in units: 600x500 px clamps to 42520 wide and 35433 high,
// not the 472 a pixel-domain scale would give.
func ScaleHeight(widthPx, heightPx, widthUnitsRaw, max int) int {
	if widthUnitsRaw > max && widthUnitsRaw > 0 {
		return int(math.Round(float64(PixelsToUnits(heightPx)) * float64(max) / float64(widthUnitsRaw)))
	}
	return PixelsToUnits(heightPx)
}

// GeometryFor converts a pixel size to a clamped picture geometry.
func GeometryFor(widthPx, heightPx int) Geometry {
	raw := PixelsToUnits(widthPx)
	return Geometry{
		Width:  ClampWidth(raw, MaxWidthUnits),
		Height: ScaleHeight(widthPx, heightPx, raw, MaxWidthUnits),
	}
}
