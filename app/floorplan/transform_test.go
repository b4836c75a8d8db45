package floorplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MesaApp/app/models"
)

func fp(v float64) *float64 { return &v }

func TestTransformTableConvertsToCenter(t *testing.T) {
	row := models.Table{
		ID:        1,
		Number:    "M1",
		Capacity:  4,
		PositionX: fp(110),
		PositionY: fp(110),
		Width:     fp(80),
		Height:    fp(80),
		Rotation:  fp(90),
		Shape:     string(ShapeSquare),
	}

	got := transformTable(&row, clock(12, 0))
	assert.Equal(t, 150.0, got.X)
	assert.Equal(t, 150.0, got.Y)
	assert.Equal(t, 80.0, got.Width)
	assert.Equal(t, 80.0, got.Height)
	assert.Equal(t, 90.0, got.Rotation)
	assert.Equal(t, ShapeSquare, got.Shape)
	assert.Equal(t, StatusEmpty, got.Status)
}

func TestTransformTableFallbacks(t *testing.T) {
	tests := []struct {
		name string
		row  models.Table
	}{
		{"nil layout", models.Table{ID: 2, Number: "M2"}},
		{"zero sizes", models.Table{ID: 3, Number: "M3", Width: fp(0), Height: fp(-10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transformTable(&tt.row, clock(12, 0))
			assert.Equal(t, 80.0, got.Width)
			assert.Equal(t, 80.0, got.Height)
			// Fallback top-left (100,100) converts like any other position
			assert.Equal(t, 140.0, got.X)
			assert.Equal(t, 140.0, got.Y)
			assert.Equal(t, ShapeSquare, got.Shape, "missing shape defaults to square")
		})
	}
}

func TestTransformTablesKeepsOrder(t *testing.T) {
	rows := []models.Table{
		{ID: 1, Number: "M1"},
		{ID: 2, Number: "M2"},
		{ID: 3, Number: "M3"},
	}

	got := TransformTables(rows, clock(12, 0))
	require.Len(t, got, 3)
	assert.Equal(t, "M1", got[0].Number)
	assert.Equal(t, "M3", got[2].Number)
}

func TestReconcilePreservesLayoutRefreshesStatus(t *testing.T) {
	existing := []FloorTable{
		{ID: 1, Number: "M1", X: 375, Y: 275, Width: 80, Height: 80, Shape: ShapeSquare, Status: StatusEmpty},
	}
	// Storage still has the stale position but now carries a live order
	rows := []models.Table{
		{
			ID:        1,
			Number:    "M1",
			Capacity:  6,
			PositionX: fp(110),
			PositionY: fp(110),
			Width:     fp(80),
			Height:    fp(80),
			Orders: []models.Order{
				{Status: models.OrderStatusPending, PartySize: 3},
			},
		},
	}

	got := Reconcile(existing, rows, clock(21, 0))
	require.Len(t, got, 1)
	assert.Equal(t, 375.0, got[0].X, "unsaved drag position survives the refresh")
	assert.Equal(t, 275.0, got[0].Y)
	assert.Equal(t, StatusOccupied, got[0].Status)
	assert.Equal(t, 3, got[0].CurrentGuests)
	assert.Equal(t, 6, got[0].Capacity, "identity fields refresh from storage")
}

func TestReconcileAddsAndDrops(t *testing.T) {
	existing := []FloorTable{
		{ID: 1, Number: "M1", X: 150, Y: 150, Width: 80, Height: 80},
		{ID: 2, Number: "M2", X: 250, Y: 150, Width: 80, Height: 80},
	}
	rows := []models.Table{
		{ID: 2, Number: "M2", PositionX: fp(210), PositionY: fp(110), Width: fp(80), Height: fp(80)},
		{ID: 3, Number: "M3", PositionX: fp(310), PositionY: fp(110), Width: fp(80), Height: fp(80)},
	}

	got := Reconcile(existing, rows, clock(12, 0))
	require.Len(t, got, 2)
	assert.Equal(t, uint(2), got[0].ID)
	assert.Equal(t, uint(3), got[1].ID)
	assert.Equal(t, 350.0, got[1].X, "new tables arrive transformed")
}
