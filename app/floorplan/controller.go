package floorplan

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"MesaApp/app/models"
)

// LayoutUpdate is one row of a batched layout save. Coordinates are
// top-left origin, matching storage.
type LayoutUpdate struct {
	ID        uint    `json:"id"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
	Shape     Shape   `json:"shape"`
}

// FloorStore is the persistence boundary of the floor plan. The concrete
// implementation lives in the services package; the controller never touches
// the database directly.
type FloorStore interface {
	ListTables(branchID uint) ([]models.Table, error)
	CreateTable(t *models.Table) error
	UpdateTableFields(id uint, fields map[string]interface{}) error
	SaveLayout(updates []LayoutUpdate) error
	DeleteTable(id uint) error
}

// CanvasRect is the floor canvas viewport in screen coordinates, as reported
// by the client alongside pointer events.
type CanvasRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Config holds the floor-plan editor settings for one branch
type Config struct {
	BranchID     uint
	GridSize     float64
	CanvasWidth  float64
	CanvasHeight float64
	Zoom         float64
	Presets      Presets
	Now          func() time.Time // clock override for tests
}

func (c *Config) applyDefaults() {
	if c.GridSize <= 0 {
		c.GridSize = 50
	}
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = 1000
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = 700
	}
	if c.Zoom <= 0 {
		c.Zoom = 1
	}
	if c.Presets == nil {
		c.Presets = DefaultPresets()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Controller owns the in-memory floor state for one branch and applies
// editor gestures to it. All entry points serialize on one mutex so the
// state behaves like the single-threaded UI model it mirrors; the simple
// table list is a read-mostly projection updated only as a side effect of
// successful operations here.
type Controller struct {
	mu    sync.Mutex
	store FloorStore
	cfg   Config

	tables []FloorTable
	simple []models.Table

	dragID      uint
	dragOffsetX float64
	dragOffsetY float64
	selectedID  uint
	dirty       bool
}

// NewController builds a controller; call Refresh to load the floor.
func NewController(store FloorStore, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{store: store, cfg: cfg}
}

// Refresh reloads persisted tables and reconciles them into the current
// floor state. Layout fields of known tables are preserved so polling never
// disturbs an in-progress drag or unsaved edits.
func (c *Controller) Refresh() error {
	rows, err := c.store.ListTables(c.cfg.BranchID)
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = Reconcile(c.tables, rows, c.cfg.Now())
	c.simple = rows
	return nil
}

// Tables returns a snapshot of the floor state
func (c *Controller) Tables() []FloorTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FloorTable, len(c.tables))
	copy(out, c.tables)
	return out
}

// SimpleTables returns the mirrored non-floor table list
func (c *Controller) SimpleTables() []models.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Table, len(c.simple))
	copy(out, c.simple)
	return out
}

// Dirty reports whether the floor has layout edits not yet saved
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Select marks a table as selected; zero clears the selection
func (c *Controller) Select(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
}

// Selected returns the selected table id, zero if none
func (c *Controller) Selected() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// BeginDrag starts dragging a table, recording the pointer's offset from
// the table center. Unknown ids are ignored.
func (c *Controller) BeginDrag(id uint, pointerX, pointerY float64, canvas CanvasRect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := c.find(id)
	if ft == nil {
		return
	}
	px, py := c.toCanvas(pointerX, pointerY, canvas)
	c.dragID = id
	c.dragOffsetX = px - ft.X
	c.dragOffsetY = py - ft.Y
}

// HandleTableDrag moves the dragged table to the snapped, bounds-checked
// position under the pointer. No-op when no drag is in progress.
func (c *Controller) HandleTableDrag(pointerX, pointerY float64, canvas CanvasRect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dragID == 0 {
		return
	}
	ft := c.find(c.dragID)
	if ft == nil {
		return
	}

	px, py := c.toCanvas(pointerX, pointerY, canvas)
	rawX := px - c.dragOffsetX
	rawY := py - c.dragOffsetY

	newX := c.snapAxis(rawX, ft.Width, c.cfg.CanvasWidth)
	newY := c.snapAxis(rawY, ft.Height, c.cfg.CanvasHeight)
	if newX != ft.X || newY != ft.Y {
		ft.X = newX
		ft.Y = newY
		c.dirty = true
	}
}

// EndDrag finishes the drag; the new position stays local until SaveLayout
func (c *Controller) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragID = 0
	c.dragOffsetX = 0
	c.dragOffsetY = 0
}

// Dragging returns the id of the table being dragged, zero if none
func (c *Controller) Dragging() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragID
}

// Rotate swaps the table's width and height around its top-left corner.
// The center must be recomputed from the preserved top-left: with the sides
// swapped, keeping the old center would shift the table's drawn position.
func (c *Controller) Rotate(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := c.find(id)
	if ft == nil {
		return
	}

	tlx, tly := CenterToTopLeft(ft.X, ft.Y, ft.Width, ft.Height)
	ft.Width, ft.Height = ft.Height, ft.Width
	ft.X, ft.Y = TopLeftToCenter(tlx, tly, ft.Width, ft.Height)
	ft.Rotation = math.Mod(ft.Rotation+90, 360)
	c.dirty = true
}

// ChangeShape applies the new shape's default footprint, keeping the
// table's current orientation, then re-snaps the center: the old center may
// not be grid-valid for the new footprint.
func (c *Controller) ChangeShape(id uint, shape Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := c.find(id)
	if ft == nil {
		return
	}

	size := c.cfg.Presets.Default(shape)
	w, h := size.Width, size.Height
	if ft.Height > ft.Width {
		w, h = h, w
	}

	ft.Shape = shape
	ft.Width = w
	ft.Height = h
	ft.X = c.snapAxis(ft.X, w, c.cfg.CanvasWidth)
	ft.Y = c.snapAxis(ft.Y, h, c.cfg.CanvasHeight)
	c.dirty = true
}

// Resize switches the table between the normal and big preset of its shape.
// Requesting the tier the table is already in is a no-op. The center stays
// fixed: resize grows and shrinks around the middle, unlike rotation which
// pivots on the top-left corner.
func (c *Controller) Resize(id uint, tier SizeTier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := c.find(id)
	if ft == nil {
		return
	}
	if c.cfg.Presets.TierOf(ft.Shape, ft.Width, ft.Height) == tier {
		return
	}

	size := c.cfg.Presets.Size(ft.Shape, tier)
	w, h := size.Width, size.Height
	if ft.Height > ft.Width {
		w, h = h, w
	}
	ft.Width = w
	ft.Height = h
	c.dirty = true
}

// SetCapacity updates the table's capacity optimistically and persists in
// the background of the caller; a storage failure is logged, not rolled
// back, and the next refresh reconciles.
func (c *Controller) SetCapacity(id uint, capacity int) {
	c.updateField(id, "capacity", capacity, func(ft *FloorTable, t *models.Table) {
		ft.Capacity = capacity
		t.Capacity = capacity
	})
}

// SetShared updates the shared flag on both views and persists it
func (c *Controller) SetShared(id uint, shared bool) {
	c.updateField(id, "is_shared", shared, func(ft *FloorTable, t *models.Table) {
		ft.IsShared = shared
		t.IsShared = shared
	})
}

// SetStatus sets the table's manual status on both views and persists it
func (c *Controller) SetStatus(id uint, status Status) {
	c.updateField(id, "status", string(status), func(ft *FloorTable, t *models.Table) {
		ft.Status = status
		t.Status = string(status)
	})
}

// updateField applies an optimistic single-field change to the floor table
// and its simple-view mirror, then issues the persistence patch.
func (c *Controller) updateField(id uint, column string, value interface{}, apply func(*FloorTable, *models.Table)) {
	c.mu.Lock()
	ft := c.find(id)
	if ft == nil {
		c.mu.Unlock()
		return
	}
	apply(ft, c.findSimple(id))
	c.mu.Unlock()

	if err := c.store.UpdateTableFields(id, map[string]interface{}{column: value}); err != nil {
		log.Printf("Floor: failed to persist %s for table %d: %v", column, id, err)
	}
}

// AddTable creates a table in storage and places it on the floor
func (c *Controller) AddTable(t *models.Table) error {
	if err := c.store.CreateTable(t); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = append(c.tables, transformTable(t, c.cfg.Now()))
	c.simple = append(c.simple, *t)
	return nil
}

// Delete removes a table from storage and, only on success, from local
// state and the current selection.
func (c *Controller) Delete(id uint) error {
	if err := c.store.DeleteTable(id); err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tables {
		if c.tables[i].ID == id {
			c.tables = append(c.tables[:i], c.tables[i+1:]...)
			break
		}
	}
	for i := range c.simple {
		if c.simple[i].ID == id {
			c.simple = append(c.simple[:i], c.simple[i+1:]...)
			break
		}
	}
	if c.selectedID == id {
		c.selectedID = 0
	}
	if c.dragID == id {
		c.dragID = 0
	}
	return nil
}

// SaveLayout persists every table's current layout in one batch. On success
// the dirty flag clears and the saved layout is copied into the simple-view
// mirror; on failure the flag stays set so the client can retry.
func (c *Controller) SaveLayout() error {
	c.mu.Lock()
	updates := make([]LayoutUpdate, 0, len(c.tables))
	for _, ft := range c.tables {
		tlx, tly := CenterToTopLeft(ft.X, ft.Y, ft.Width, ft.Height)
		updates = append(updates, LayoutUpdate{
			ID:        ft.ID,
			PositionX: tlx,
			PositionY: tly,
			Width:     ft.Width,
			Height:    ft.Height,
			Rotation:  ft.Rotation,
			Shape:     ft.Shape,
		})
	}
	c.mu.Unlock()

	if err := c.store.SaveLayout(updates); err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
	for _, u := range updates {
		if t := c.findSimple(u.ID); t != nil {
			x, y, w, h, rot := u.PositionX, u.PositionY, u.Width, u.Height, u.Rotation
			t.PositionX = &x
			t.PositionY = &y
			t.Width = &w
			t.Height = &h
			t.Rotation = &rot
			t.Shape = string(u.Shape)
		}
	}
	return nil
}

// toCanvas converts screen pointer coordinates into canvas space
func (c *Controller) toCanvas(x, y float64, canvas CanvasRect) (float64, float64) {
	return (x - canvas.Left) / c.cfg.Zoom, (y - canvas.Top) / c.cfg.Zoom
}

// snapAxis snaps a raw center coordinate along one axis. Tables wider than
// a grid cell align their center to grid lines so their edges meet cell
// boundaries; smaller tables center inside a cell. Both modes share the one
// grid constant so every operation lands on the same lattice.
func (c *Controller) snapAxis(raw, footprint, canvasSize float64) float64 {
	g := c.cfg.GridSize
	var snapped, min, max float64
	if footprint > g {
		snapped = math.Round(raw/g) * g
		min = g
		max = math.Floor((canvasSize-footprint/2)/g) * g
	} else {
		snapped = math.Floor(raw/g)*g + g/2
		min = g / 2
		max = math.Floor((canvasSize-footprint/2)/g)*g + g/2
	}
	return ConstrainToBounds(snapped, min, max)
}

func (c *Controller) find(id uint) *FloorTable {
	for i := range c.tables {
		if c.tables[i].ID == id {
			return &c.tables[i]
		}
	}
	return nil
}

func (c *Controller) findSimple(id uint) *models.Table {
	for i := range c.simple {
		if c.simple[i].ID == id {
			return &c.simple[i]
		}
	}
	return nil
}
