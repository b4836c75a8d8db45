package floorplan

import (
	"time"

	"MesaApp/app/models"
)

// Status is the effective display status of a table
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusOccupied Status = "occupied"
	StatusReserved Status = "reserved"
	StatusCleaning Status = "cleaning"
)

// Valid reports whether s is a settable manual status
func (s Status) Valid() bool {
	switch s {
	case StatusEmpty, StatusOccupied, StatusReserved, StatusCleaning:
		return true
	}
	return false
}

// Resolution is the derived state of a table: what the floor plan shows
type Resolution struct {
	Status        Status `json:"status"`
	CurrentGuests int    `json:"current_guests"`
	HasWaiter     bool   `json:"has_waiter"`
	WaiterName    string `json:"waiter_name,omitempty"`
}

// ResolveTableStatus derives the effective status and guest count of a
// table from its active orders, manual status and reservations.
//
// Precedence: live orders beat a manual flag, a manual flag beats inferred
// reservation state, and reservations only count inside their slot window.
// The function is pure: calling it twice with the same inputs and clock
// yields the same resolution.
func ResolveTableStatus(t *models.Table, now time.Time) Resolution {
	res := Resolution{Status: StatusEmpty}

	active := activeOrders(t.Orders)
	switch {
	case len(active) > 0:
		res.Status = StatusOccupied
		for _, o := range active {
			res.CurrentGuests += o.PartySize
			if !res.HasWaiter && o.Waiter != nil {
				res.HasWaiter = true
				res.WaiterName = o.Waiter.Name
			}
		}

	case t.Status != "":
		res.Status = Status(t.Status)

	case len(t.Reservations) > 0:
		r := t.Reservations[0] // store orders by date, then slot start
		res.CurrentGuests = r.PartySize
		switch {
		case sameDay(r.Date, now):
			if withinSlot(r.TimeSlot, now) {
				if r.Confirmed() {
					res.Status = StatusOccupied
				} else {
					res.Status = StatusReserved
				}
			}
		case r.Date.After(now):
			res.Status = StatusReserved
		}
	}

	// The manual-status branch never sets a guest count; fill it in from the
	// leading reservation so the floor still shows the expected party size.
	if res.CurrentGuests == 0 && len(t.Reservations) > 0 {
		res.CurrentGuests = t.Reservations[0].PartySize
	}

	return res
}

func activeOrders(orders []models.Order) []models.Order {
	var out []models.Order
	for _, o := range orders {
		if o.Status.Active() {
			out = append(out, o)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// withinSlot reports whether now falls inside the slot's [start, end)
// window. A nil slot means the reservation holds the table all day.
func withinSlot(slot *models.TimeSlot, now time.Time) bool {
	if slot == nil {
		return true
	}
	start, okStart := parseClock(slot.StartTime)
	end, okEnd := parseClock(slot.EndTime)
	if !okStart || !okEnd {
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	if end <= start {
		// Slot crosses midnight ("20:00"–"01:00")
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

// parseClock converts "HH:MM" to minutes since midnight
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
