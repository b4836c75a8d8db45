package floorplan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MesaApp/app/models"
)

// clock returns a local time on 2026-03-14 at hh:mm
func clock(hh, mm int) time.Time {
	return time.Date(2026, 3, 14, hh, mm, 0, 0, time.Local)
}

func midnight(daysFromBase int) time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local).AddDate(0, 0, daysFromBase)
}

func lunchSlot() *models.TimeSlot {
	return &models.TimeSlot{ID: 1, Name: "Mediodía", StartTime: "10:00", EndTime: "11:00"}
}

func TestResolveTableStatusOrdersWin(t *testing.T) {
	waiter := &models.Employee{ID: 7, Name: "Ana"}
	table := &models.Table{
		ID:     1,
		Status: models.TableStatusCleaning,
		Orders: []models.Order{
			{Status: models.OrderStatusPreparing, PartySize: 2, Waiter: waiter},
		},
		Reservations: []models.Reservation{
			{Date: midnight(0), TimeSlot: lunchSlot(), PartySize: 4, Status: models.ReservationConfirmed},
		},
	}

	res := ResolveTableStatus(table, clock(10, 30))
	assert.Equal(t, StatusOccupied, res.Status, "a live order beats the manual status and the reservation")
	assert.Equal(t, 2, res.CurrentGuests)
	assert.True(t, res.HasWaiter)
	assert.Equal(t, "Ana", res.WaiterName)
}

func TestResolveTableStatusSharedTableSumsGuests(t *testing.T) {
	ana := &models.Employee{ID: 7, Name: "Ana"}
	bruno := &models.Employee{ID: 8, Name: "Bruno"}
	table := &models.Table{
		ID:       2,
		IsShared: true,
		Orders: []models.Order{
			{Status: models.OrderStatusPending, PartySize: 2, Waiter: ana},
			{Status: models.OrderStatusDelivered, PartySize: 3, Waiter: bruno},
		},
	}

	res := ResolveTableStatus(table, clock(21, 0))
	assert.Equal(t, StatusOccupied, res.Status)
	assert.Equal(t, 5, res.CurrentGuests, "guest counts from every active order add up")
	assert.Equal(t, "Ana", res.WaiterName, "first active order's waiter is shown")
}

func TestResolveTableStatusClosedOrdersDoNotHold(t *testing.T) {
	table := &models.Table{
		ID: 3,
		Orders: []models.Order{
			{Status: models.OrderStatusPaid, PartySize: 2},
			{Status: models.OrderStatusCancelled, PartySize: 4},
		},
	}

	res := ResolveTableStatus(table, clock(13, 0))
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Equal(t, 0, res.CurrentGuests)
}

func TestResolveTableStatusManualBeatsReservation(t *testing.T) {
	table := &models.Table{
		ID:     4,
		Status: models.TableStatusCleaning,
		Reservations: []models.Reservation{
			{Date: midnight(0), TimeSlot: lunchSlot(), PartySize: 4, Status: models.ReservationConfirmed},
		},
	}

	res := ResolveTableStatus(table, clock(10, 30))
	assert.Equal(t, StatusCleaning, res.Status)
	assert.Equal(t, 4, res.CurrentGuests, "party size still surfaces for staff")
}

func TestResolveTableStatusReservationWindow(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		now        time.Time
		wantStatus Status
	}{
		{"confirmed inside slot", models.ReservationConfirmed, clock(10, 30), StatusOccupied},
		{"seated inside slot", models.ReservationSeated, clock(10, 30), StatusOccupied},
		{"pending inside slot", models.ReservationPending, clock(10, 30), StatusReserved},
		{"slot start is inclusive", models.ReservationConfirmed, clock(10, 0), StatusOccupied},
		{"last minute of slot", models.ReservationPending, clock(10, 59), StatusReserved},
		{"slot end is exclusive", models.ReservationConfirmed, clock(11, 0), StatusEmpty},
		{"before slot", models.ReservationConfirmed, clock(9, 59), StatusEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &models.Table{
				ID: 5,
				Reservations: []models.Reservation{
					{Date: midnight(0), TimeSlot: lunchSlot(), PartySize: 4, Status: tt.status},
				},
			}
			res := ResolveTableStatus(table, tt.now)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, 4, res.CurrentGuests)
		})
	}
}

func TestResolveTableStatusFutureReservation(t *testing.T) {
	table := &models.Table{
		ID: 6,
		Reservations: []models.Reservation{
			{Date: midnight(2), TimeSlot: lunchSlot(), PartySize: 6, Status: models.ReservationPending},
		},
	}

	res := ResolveTableStatus(table, clock(10, 30))
	assert.Equal(t, StatusReserved, res.Status, "future bookings show as reserved regardless of slot")
	assert.Equal(t, 6, res.CurrentGuests)
}

func TestResolveTableStatusPastReservation(t *testing.T) {
	table := &models.Table{
		ID: 7,
		Reservations: []models.Reservation{
			{Date: midnight(-1), TimeSlot: lunchSlot(), PartySize: 6, Status: models.ReservationConfirmed},
		},
	}

	res := ResolveTableStatus(table, clock(10, 30))
	assert.Equal(t, StatusEmpty, res.Status)
}

func TestResolveTableStatusNilSlotHoldsAllDay(t *testing.T) {
	table := &models.Table{
		ID: 8,
		Reservations: []models.Reservation{
			{Date: midnight(0), PartySize: 3, Status: models.ReservationConfirmed},
		},
	}

	assert.Equal(t, StatusOccupied, ResolveTableStatus(table, clock(0, 5)).Status)
	assert.Equal(t, StatusOccupied, ResolveTableStatus(table, clock(23, 55)).Status)
}

func TestResolveTableStatusMidnightCrossingSlot(t *testing.T) {
	slot := &models.TimeSlot{ID: 2, Name: "Noche", StartTime: "20:00", EndTime: "01:00"}
	table := &models.Table{
		ID: 9,
		Reservations: []models.Reservation{
			{Date: midnight(0), TimeSlot: slot, PartySize: 2, Status: models.ReservationConfirmed},
		},
	}

	assert.Equal(t, StatusOccupied, ResolveTableStatus(table, clock(23, 30)).Status)
	assert.Equal(t, StatusEmpty, ResolveTableStatus(table, clock(19, 30)).Status)
}

func TestResolveTableStatusEmptyTable(t *testing.T) {
	res := ResolveTableStatus(&models.Table{ID: 10}, clock(12, 0))
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Equal(t, 0, res.CurrentGuests)
	assert.False(t, res.HasWaiter)
}

func TestResolveTableStatusDeterministic(t *testing.T) {
	table := &models.Table{
		ID: 11,
		Orders: []models.Order{
			{Status: models.OrderStatusReady, PartySize: 4},
		},
	}
	now := clock(14, 0)
	first := ResolveTableStatus(table, now)
	second := ResolveTableStatus(table, now)
	assert.Equal(t, first, second)
}
