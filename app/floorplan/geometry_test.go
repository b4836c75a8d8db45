package floorplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapToGrid(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		grid float64
		want float64
	}{
		{"already on grid", 150, 50, 150},
		{"rounds down", 162, 50, 150},
		{"rounds up", 180, 50, 200},
		{"halfway rounds away from zero", 175, 50, 200},
		{"zero grid is passthrough", 163, 0, 163},
		{"negative grid is passthrough", 163, -10, 163},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapToGrid(tt.v, tt.grid))
		})
	}
}

func TestSnapToGridIdempotent(t *testing.T) {
	for _, v := range []float64{0, 12.3, 149.99, 150, 175, 999.5} {
		once := SnapToGrid(v, 50)
		assert.Equal(t, once, SnapToGrid(once, 50), "snapping %v twice drifted", v)
	}
}

func TestConstrainToBounds(t *testing.T) {
	assert.Equal(t, 50.0, ConstrainToBounds(10, 50, 900))
	assert.Equal(t, 900.0, ConstrainToBounds(1500, 50, 900))
	assert.Equal(t, 400.0, ConstrainToBounds(400, 50, 900))
	assert.Equal(t, 50.0, ConstrainToBounds(50, 50, 900), "min is inclusive")
	assert.Equal(t, 900.0, ConstrainToBounds(900, 50, 900), "max is inclusive")
}

func TestCoordinateRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h float64
	}{
		{"square", 110, 110, 80, 80},
		{"rectangle", 150, 300, 200, 100},
		{"rotated rectangle", 400, 50, 100, 200},
		{"odd size", 33, 47, 85, 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cy := TopLeftToCenter(tt.x, tt.y, tt.w, tt.h)
			gotX, gotY := CenterToTopLeft(cx, cy, tt.w, tt.h)
			assert.Equal(t, tt.x, gotX)
			assert.Equal(t, tt.y, gotY)
		})
	}
}

func TestTopLeftToCenter(t *testing.T) {
	cx, cy := TopLeftToCenter(110, 110, 80, 80)
	assert.Equal(t, 150.0, cx)
	assert.Equal(t, 150.0, cy)
}

func TestRotatedBounds(t *testing.T) {
	w, h := RotatedBounds(200, 100, 0)
	assert.InDelta(t, 200, w, 1e-9)
	assert.InDelta(t, 100, h, 1e-9)

	w, h = RotatedBounds(200, 100, 90)
	assert.InDelta(t, 100, w, 1e-9)
	assert.InDelta(t, 200, h, 1e-9)

	w, h = RotatedBounds(100, 100, 45)
	assert.InDelta(t, 141.42, w, 0.01)
	assert.InDelta(t, 141.42, h, 0.01)
}
