package floorplan

import "encoding/json"

// Shape identifies a table footprint on the floor plan
type Shape string

const (
	ShapeCircle    Shape = "circle"
	ShapeSquare    Shape = "square"
	ShapeRectangle Shape = "rectangle"
	ShapeWide      Shape = "wide"
)

// Valid reports whether s is one of the known shapes
func (s Shape) Valid() bool {
	switch s {
	case ShapeCircle, ShapeSquare, ShapeRectangle, ShapeWide:
		return true
	}
	return false
}

// SizeTier selects between the base footprint of a shape and its enlarged
// variant. Tiers are explicit presets, not a scale factor: a uniform
// multiplier would break the fixed per-shape pixel sizes the grid logic
// depends on.
type SizeTier string

const (
	TierNormal SizeTier = "normal"
	TierBig    SizeTier = "big"
)

// Size is a width/height pair in canvas pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Presets maps shape and tier to a footprint. Loaded from FloorConfig at
// startup; DefaultPresets supplies the shipped values.
type Presets map[Shape]map[SizeTier]Size

// DefaultPresets returns the shipped shape sizes
func DefaultPresets() Presets {
	return Presets{
		ShapeCircle: {
			TierNormal: {Width: 100, Height: 100},
			TierBig:    {Width: 140, Height: 140},
		},
		ShapeSquare: {
			TierNormal: {Width: 100, Height: 100},
			TierBig:    {Width: 140, Height: 140},
		},
		ShapeRectangle: {
			TierNormal: {Width: 200, Height: 100},
			TierBig:    {Width: 280, Height: 140},
		},
		ShapeWide: {
			TierNormal: {Width: 300, Height: 100},
			TierBig:    {Width: 390, Height: 130},
		},
	}
}

// ParsePresets decodes presets stored as JSON configuration, falling back to
// the defaults when the payload is empty or malformed.
func ParsePresets(raw []byte) Presets {
	if len(raw) == 0 {
		return DefaultPresets()
	}
	var p Presets
	if err := json.Unmarshal(raw, &p); err != nil || len(p) == 0 {
		return DefaultPresets()
	}
	return p
}

// Default returns the normal-tier size for shape, falling back to the
// square preset for unknown shapes.
func (p Presets) Default(shape Shape) Size {
	return p.Size(shape, TierNormal)
}

// Size returns the preset for shape at tier, falling back to the square
// preset and then to 100×100.
func (p Presets) Size(shape Shape, tier SizeTier) Size {
	if tiers, ok := p[shape]; ok {
		if s, ok := tiers[tier]; ok {
			return s
		}
	}
	if tiers, ok := p[ShapeSquare]; ok {
		if s, ok := tiers[tier]; ok {
			return s
		}
	}
	return Size{Width: 100, Height: 100}
}

// TierOf reports which tier a w×h footprint of the given shape is in, by
// comparing the larger dimension against the shape's normal-tier larger
// dimension. Orientation (which of w/h is larger) does not matter.
func (p Presets) TierOf(shape Shape, w, h float64) SizeTier {
	normal := p.Size(shape, TierNormal)
	if maxDim(w, h) > maxDim(normal.Width, normal.Height) {
		return TierBig
	}
	return TierNormal
}

func maxDim(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
