package floorplan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MesaApp/app/models"
)

type fieldPatch struct {
	id     uint
	fields map[string]interface{}
}

// fakeStore records persistence calls and serves canned rows
type fakeStore struct {
	rows      []models.Table
	listErr   error
	patches   []fieldPatch
	patchErr  error
	layouts   [][]LayoutUpdate
	layoutErr error
	created   []*models.Table
	deleted   []uint
	deleteErr error
}

func (f *fakeStore) ListTables(branchID uint) ([]models.Table, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Table, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeStore) CreateTable(t *models.Table) error {
	if t.ID == 0 {
		t.ID = uint(len(f.created) + 100)
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeStore) UpdateTableFields(id uint, fields map[string]interface{}) error {
	f.patches = append(f.patches, fieldPatch{id: id, fields: fields})
	return f.patchErr
}

func (f *fakeStore) SaveLayout(updates []LayoutUpdate) error {
	if f.layoutErr != nil {
		return f.layoutErr
	}
	f.layouts = append(f.layouts, updates)
	return nil
}

func (f *fakeStore) DeleteTable(id uint) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

var wholeCanvas = CanvasRect{Left: 0, Top: 0, Width: 1000, Height: 700}

// newFloor builds a controller over three tables:
//
//	id 1: 200×100 rectangle, center (150,100)
//	id 2: 40×40 square (smaller than a grid cell), center (125,125)
//	id 3: 100×100 square, center (275,275)
func newFloor(t *testing.T) (*Controller, *fakeStore) {
	t.Helper()
	store := &fakeStore{
		rows: []models.Table{
			{ID: 1, Number: "M1", Capacity: 4, PositionX: fp(50), PositionY: fp(50), Width: fp(200), Height: fp(100), Shape: string(ShapeRectangle)},
			{ID: 2, Number: "M2", Capacity: 2, PositionX: fp(105), PositionY: fp(105), Width: fp(40), Height: fp(40), Shape: string(ShapeSquare)},
			{ID: 3, Number: "M3", Capacity: 4, PositionX: fp(225), PositionY: fp(225), Width: fp(100), Height: fp(100), Shape: string(ShapeSquare)},
		},
	}
	c := NewController(store, Config{
		BranchID:     1,
		GridSize:     50,
		CanvasWidth:  1000,
		CanvasHeight: 700,
		Zoom:         1,
		Now:          func() time.Time { return clock(12, 0) },
	})
	require.NoError(t, c.Refresh())
	return c, store
}

func table(t *testing.T, c *Controller, id uint) FloorTable {
	t.Helper()
	for _, ft := range c.Tables() {
		if ft.ID == id {
			return ft
		}
	}
	t.Fatalf("table %d not on the floor", id)
	return FloorTable{}
}

func TestRefreshLoadsFloor(t *testing.T) {
	c, _ := newFloor(t)

	require.Len(t, c.Tables(), 3)
	ft := table(t, c, 1)
	assert.Equal(t, 150.0, ft.X)
	assert.Equal(t, 100.0, ft.Y)
	assert.False(t, c.Dirty())
}

func TestRefreshError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	c := NewController(store, Config{BranchID: 1})
	assert.Error(t, c.Refresh())
	assert.Empty(t, c.Tables())
}

func TestDragSnapsLargeTableToGridLines(t *testing.T) {
	c, _ := newFloor(t)

	// Grab table 1 slightly off-center, then move the pointer
	c.BeginDrag(1, 160, 110, wholeCanvas)
	c.HandleTableDrag(383, 267, wholeCanvas)

	ft := table(t, c, 1)
	assert.Equal(t, 350.0, ft.X, "footprint exceeds the grid cell, center lands on a grid line")
	assert.Equal(t, 250.0, ft.Y)
	assert.True(t, c.Dirty())

	c.EndDrag()
	assert.Equal(t, uint(0), c.Dragging())
}

func TestDragSnapsSmallTableToCellCenters(t *testing.T) {
	c, _ := newFloor(t)

	c.BeginDrag(2, 125, 125, wholeCanvas)
	c.HandleTableDrag(373, 257, wholeCanvas)

	ft := table(t, c, 2)
	assert.Equal(t, 375.0, ft.X, "footprint fits inside a cell, center lands mid-cell")
	assert.Equal(t, 275.0, ft.Y)
}

func TestDragClampsToCanvas(t *testing.T) {
	c, _ := newFloor(t)

	c.BeginDrag(1, 150, 100, wholeCanvas)
	c.HandleTableDrag(5000, 5000, wholeCanvas)
	ft := table(t, c, 1)
	assert.Equal(t, 900.0, ft.X)
	assert.Equal(t, 650.0, ft.Y)

	c.HandleTableDrag(-400, -400, wholeCanvas)
	ft = table(t, c, 1)
	assert.Equal(t, 50.0, ft.X)
	assert.Equal(t, 50.0, ft.Y)
}

func TestDragAccountsForZoomAndCanvasOffset(t *testing.T) {
	store := &fakeStore{
		rows: []models.Table{
			{ID: 1, Number: "M1", PositionX: fp(50), PositionY: fp(50), Width: fp(200), Height: fp(100), Shape: string(ShapeRectangle)},
		},
	}
	c := NewController(store, Config{BranchID: 1, Zoom: 2, Now: func() time.Time { return clock(12, 0) }})
	require.NoError(t, c.Refresh())

	canvas := CanvasRect{Left: 100, Top: 40, Width: 2000, Height: 1400}
	// Pointer at screen (400,240) is canvas (150,100): dead on the center
	c.BeginDrag(1, 400, 240, canvas)
	// Screen (820,620) is canvas (360,290), snapping to (350,300)
	c.HandleTableDrag(820, 620, canvas)

	ft := table(t, c, 1)
	assert.Equal(t, 350.0, ft.X)
	assert.Equal(t, 300.0, ft.Y)
}

func TestDragWithoutBeginIsNoop(t *testing.T) {
	c, _ := newFloor(t)
	before := table(t, c, 1)

	c.HandleTableDrag(500, 500, wholeCanvas)
	assert.Equal(t, before, table(t, c, 1))
	assert.False(t, c.Dirty())
}

func TestDragStopsAfterEndDrag(t *testing.T) {
	c, _ := newFloor(t)

	c.BeginDrag(1, 150, 100, wholeCanvas)
	c.EndDrag()
	c.HandleTableDrag(500, 500, wholeCanvas)

	assert.Equal(t, 150.0, table(t, c, 1).X)
}

func TestRotatePivotsOnTopLeft(t *testing.T) {
	c, _ := newFloor(t)

	c.Rotate(1)
	ft := table(t, c, 1)
	assert.Equal(t, 100.0, ft.Width)
	assert.Equal(t, 200.0, ft.Height)
	assert.Equal(t, 100.0, ft.X, "top-left (50,50) is preserved, so the center moves")
	assert.Equal(t, 150.0, ft.Y)
	assert.Equal(t, 90.0, ft.Rotation)
	assert.True(t, c.Dirty())
}

func TestFourRotationsAreIdentity(t *testing.T) {
	c, _ := newFloor(t)
	before := table(t, c, 1)

	for i := 0; i < 4; i++ {
		c.Rotate(1)
	}
	assert.Equal(t, before, table(t, c, 1))
}

func TestResizeKeepsCenterFixed(t *testing.T) {
	c, _ := newFloor(t)

	c.Resize(3, TierBig)
	ft := table(t, c, 3)
	assert.Equal(t, 140.0, ft.Width)
	assert.Equal(t, 140.0, ft.Height)
	assert.Equal(t, 275.0, ft.X, "resize grows around the center")
	assert.Equal(t, 275.0, ft.Y)
	assert.True(t, c.Dirty())
}

func TestResizeSameTierIsNoop(t *testing.T) {
	c, _ := newFloor(t)

	c.Resize(3, TierNormal)
	ft := table(t, c, 3)
	assert.Equal(t, 100.0, ft.Width)
	assert.False(t, c.Dirty())
}

func TestResizePreservesOrientation(t *testing.T) {
	c, _ := newFloor(t)

	c.Rotate(1) // 200×100 becomes 100×200
	c.Resize(1, TierBig)
	ft := table(t, c, 1)
	assert.Equal(t, 140.0, ft.Width, "the big rectangle preset follows the rotated orientation")
	assert.Equal(t, 280.0, ft.Height)
}

func TestChangeShapeAppliesPresetAndResnaps(t *testing.T) {
	store := &fakeStore{
		rows: []models.Table{
			// 100×100 with center (375,275): valid only for a small footprint
			{ID: 1, Number: "M1", PositionX: fp(325), PositionY: fp(225), Width: fp(100), Height: fp(100), Shape: string(ShapeSquare)},
		},
	}
	c := NewController(store, Config{BranchID: 1, Now: func() time.Time { return clock(12, 0) }})
	require.NoError(t, c.Refresh())

	c.ChangeShape(1, ShapeRectangle)
	ft := table(t, c, 1)
	assert.Equal(t, ShapeRectangle, ft.Shape)
	assert.Equal(t, 200.0, ft.Width)
	assert.Equal(t, 100.0, ft.Height)
	assert.Equal(t, 400.0, ft.X, "center re-snaps for the new footprint")
	assert.Equal(t, 300.0, ft.Y)
}

func TestSetCapacityOptimistic(t *testing.T) {
	c, store := newFloor(t)

	c.SetCapacity(1, 8)
	assert.Equal(t, 8, table(t, c, 1).Capacity)

	require.Len(t, store.patches, 1)
	assert.Equal(t, uint(1), store.patches[0].id)
	assert.Equal(t, map[string]interface{}{"capacity": 8}, store.patches[0].fields)

	for _, row := range c.SimpleTables() {
		if row.ID == 1 {
			assert.Equal(t, 8, row.Capacity, "simple view mirrors the change")
		}
	}
}

func TestSetCapacityKeepsLocalChangeOnStoreError(t *testing.T) {
	c, store := newFloor(t)
	store.patchErr = errors.New("db down")

	c.SetCapacity(1, 8)
	assert.Equal(t, 8, table(t, c, 1).Capacity, "no rollback, the next refresh reconciles")
}

func TestSetStatusAndShared(t *testing.T) {
	c, store := newFloor(t)

	c.SetStatus(2, StatusCleaning)
	c.SetShared(2, true)

	ft := table(t, c, 2)
	assert.Equal(t, StatusCleaning, ft.Status)
	assert.True(t, ft.IsShared)
	require.Len(t, store.patches, 2)
	assert.Equal(t, map[string]interface{}{"status": "cleaning"}, store.patches[0].fields)
	assert.Equal(t, map[string]interface{}{"is_shared": true}, store.patches[1].fields)
}

func TestAddTable(t *testing.T) {
	c, store := newFloor(t)

	row := &models.Table{Number: "M4", Capacity: 2, PositionX: fp(425), PositionY: fp(425), Width: fp(100), Height: fp(100), Shape: string(ShapeSquare)}
	require.NoError(t, c.AddTable(row))

	require.Len(t, store.created, 1)
	ft := table(t, c, row.ID)
	assert.Equal(t, "M4", ft.Number)
	assert.Equal(t, 475.0, ft.X)
	assert.Len(t, c.SimpleTables(), 4)
}

func TestDeleteRemovesOnSuccess(t *testing.T) {
	c, store := newFloor(t)
	c.Select(2)

	require.NoError(t, c.Delete(2))
	assert.Equal(t, []uint{2}, store.deleted)
	assert.Len(t, c.Tables(), 2)
	assert.Len(t, c.SimpleTables(), 2)
	assert.Equal(t, uint(0), c.Selected(), "deleting the selected table clears the selection")
}

func TestDeleteKeepsTableOnStoreError(t *testing.T) {
	c, store := newFloor(t)
	store.deleteErr = errors.New("db down")

	assert.Error(t, c.Delete(2))
	assert.Len(t, c.Tables(), 3)
}

func TestSaveLayoutPersistsTopLeft(t *testing.T) {
	store := &fakeStore{
		rows: []models.Table{
			{ID: 1, Number: "M1", PositionX: fp(110), PositionY: fp(110), Width: fp(80), Height: fp(80), Shape: string(ShapeSquare)},
			{ID: 2, Number: "M2", PositionX: fp(150), PositionY: fp(300), Width: fp(200), Height: fp(100), Shape: string(ShapeRectangle)},
			{ID: 3, Number: "M3", PositionX: fp(400), PositionY: fp(50), Width: fp(100), Height: fp(200), Rotation: fp(90), Shape: string(ShapeRectangle)},
		},
	}
	c := NewController(store, Config{BranchID: 1, Now: func() time.Time { return clock(12, 0) }})
	require.NoError(t, c.Refresh())

	require.NoError(t, c.SaveLayout())
	require.Len(t, store.layouts, 1)
	saved := store.layouts[0]
	require.Len(t, saved, 3)

	// Centers (150,150), (250,350), (450,150) convert back to top-left
	assert.Equal(t, LayoutUpdate{ID: 1, PositionX: 110, PositionY: 110, Width: 80, Height: 80, Shape: ShapeSquare}, saved[0])
	assert.Equal(t, LayoutUpdate{ID: 2, PositionX: 150, PositionY: 300, Width: 200, Height: 100, Shape: ShapeRectangle}, saved[1])
	assert.Equal(t, LayoutUpdate{ID: 3, PositionX: 400, PositionY: 50, Width: 100, Height: 200, Rotation: 90, Shape: ShapeRectangle}, saved[2])
}

func TestSaveLayoutClearsDirtyAndSyncsMirror(t *testing.T) {
	c, store := newFloor(t)

	c.BeginDrag(1, 150, 100, wholeCanvas)
	c.HandleTableDrag(383, 267, wholeCanvas)
	c.EndDrag()
	require.True(t, c.Dirty())

	require.NoError(t, c.SaveLayout())
	assert.False(t, c.Dirty())
	require.Len(t, store.layouts, 1)

	for _, row := range c.SimpleTables() {
		if row.ID == 1 {
			require.NotNil(t, row.PositionX)
			assert.Equal(t, 250.0, *row.PositionX, "center (350,250) saved as top-left (250,200)")
			assert.Equal(t, 200.0, *row.PositionY)
		}
	}
}

func TestSaveLayoutFailureKeepsDirty(t *testing.T) {
	c, store := newFloor(t)
	store.layoutErr = errors.New("db down")

	c.Rotate(1)
	assert.Error(t, c.SaveLayout())
	assert.True(t, c.Dirty(), "a failed save stays retryable")
}

func TestGestureOnUnknownTableIsNoop(t *testing.T) {
	c, store := newFloor(t)

	c.Rotate(99)
	c.Resize(99, TierBig)
	c.ChangeShape(99, ShapeWide)
	c.SetCapacity(99, 10)

	assert.False(t, c.Dirty())
	assert.Empty(t, store.patches)
}
