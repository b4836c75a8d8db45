package floorplan

import (
	"time"

	"MesaApp/app/models"
)

// Layout defaults applied to persisted tables that never went through the
// floor editor.
const (
	fallbackSize     = 80.0
	fallbackPosition = 100.0
)

// FloorTable is the in-memory, UI-facing view of a table. X and Y are the
// geometric center of the footprint, unlike the persisted top-left origin.
type FloorTable struct {
	ID            uint    `json:"id"`
	Number        string  `json:"number"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Rotation      float64 `json:"rotation"`
	Shape         Shape   `json:"shape"`
	Capacity      int     `json:"capacity"`
	Status        Status  `json:"status"`
	CurrentGuests int     `json:"current_guests"`
	IsShared      bool    `json:"is_shared"`
	HasWaiter     bool    `json:"has_waiter"`
	WaiterName    string  `json:"waiter_name,omitempty"`
}

// TransformTables maps persisted rows into floor tables, deriving status and
// converting coordinates.
func TransformTables(tables []models.Table, now time.Time) []FloorTable {
	out := make([]FloorTable, 0, len(tables))
	for i := range tables {
		out = append(out, transformTable(&tables[i], now))
	}
	return out
}

func transformTable(t *models.Table, now time.Time) FloorTable {
	w := positiveOr(t.Width, fallbackSize)
	h := positiveOr(t.Height, fallbackSize)
	px := floatOr(t.PositionX, fallbackPosition)
	py := floatOr(t.PositionY, fallbackPosition)
	cx, cy := TopLeftToCenter(px, py, w, h)

	shape := Shape(t.Shape)
	if shape == "" {
		shape = ShapeSquare
	}

	res := ResolveTableStatus(t, now)

	return FloorTable{
		ID:            t.ID,
		Number:        t.Number,
		X:             cx,
		Y:             cy,
		Width:         w,
		Height:        h,
		Rotation:      floatOr(t.Rotation, 0),
		Shape:         shape,
		Capacity:      t.Capacity,
		Status:        res.Status,
		CurrentGuests: res.CurrentGuests,
		IsShared:      t.IsShared,
		HasWaiter:     res.HasWaiter,
		WaiterName:    res.WaiterName,
	}
}

// Reconcile merges freshly fetched rows into the current floor state. Layout
// fields (position, size, rotation, shape) of tables already on the floor
// are kept so a poll never yanks a table out from under an in-progress drag
// or an unsaved edit; everything derived or identity-adjacent is refreshed.
// Tables deleted from storage drop out, new tables come in transformed.
func Reconcile(existing []FloorTable, tables []models.Table, now time.Time) []FloorTable {
	byID := make(map[uint]FloorTable, len(existing))
	for _, ft := range existing {
		byID[ft.ID] = ft
	}

	out := make([]FloorTable, 0, len(tables))
	for i := range tables {
		t := &tables[i]
		prev, ok := byID[t.ID]
		if !ok {
			out = append(out, transformTable(t, now))
			continue
		}

		res := ResolveTableStatus(t, now)
		prev.Number = t.Number
		prev.Capacity = t.Capacity
		prev.IsShared = t.IsShared
		prev.Status = res.Status
		prev.CurrentGuests = res.CurrentGuests
		prev.HasWaiter = res.HasWaiter
		prev.WaiterName = res.WaiterName
		out = append(out, prev)
	}
	return out
}

func floatOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// positiveOr treats zero and negative persisted sizes as absent
func positiveOr(p *float64, fallback float64) float64 {
	if p == nil || *p <= 0 {
		return fallback
	}
	return *p
}
