package floorplan

import "math"

// SnapToGrid rounds v to the nearest multiple of grid. A non-positive grid
// returns v unchanged.
func SnapToGrid(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// ConstrainToBounds clamps v into [min, max] inclusive.
func ConstrainToBounds(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RotatedBounds returns the axis-aligned bounding box of a width×height
// rectangle rotated by deg degrees.
func RotatedBounds(width, height, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	sin := math.Abs(math.Sin(rad))
	cos := math.Abs(math.Cos(rad))
	return width*cos + height*sin, width*sin + height*cos
}

// TopLeftToCenter converts a persisted top-left origin to the center of a
// w×h footprint.
func TopLeftToCenter(x, y, w, h float64) (float64, float64) {
	return x + w/2, y + h/2
}

// CenterToTopLeft converts an in-memory center back to the persisted
// top-left origin of a w×h footprint.
func CenterToTopLeft(x, y, w, h float64) (float64, float64) {
	return x - w/2, y - h/2
}
