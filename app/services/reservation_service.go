package services

import (
	"fmt"
	"time"

	"MesaApp/app/models"

	"gorm.io/gorm"
)

// ReservationService handles bookings and their table assignments
type ReservationService struct {
	*BaseService
}

// NewReservationService creates a new reservation service
func NewReservationService() *ReservationService {
	return &ReservationService{BaseService: NewBaseService()}
}

// CreateReservation creates a booking and links it to its tables. A table
// that is not shared can hold only one booking per date and slot.
func (s *ReservationService) CreateReservation(reservation *models.Reservation, tableIDs []uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	if reservation.CustomerName == "" {
		return fmt.Errorf("customer name is required")
	}
	if reservation.PartySize <= 0 {
		return fmt.Errorf("party size must be positive")
	}
	if reservation.Date.IsZero() {
		return fmt.Errorf("reservation date is required")
	}
	if reservation.Status == "" {
		reservation.Status = models.ReservationPending
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var tables []models.Table
		if len(tableIDs) > 0 {
			if err := tx.Find(&tables, tableIDs).Error; err != nil {
				return fmt.Errorf("failed to load tables: %w", err)
			}
			if len(tables) != len(tableIDs) {
				return fmt.Errorf("some tables do not exist")
			}

			for _, t := range tables {
				if t.IsShared {
					continue
				}
				conflict, err := s.hasConflict(tx, t.ID, reservation)
				if err != nil {
					return err
				}
				if conflict {
					return fmt.Errorf("table %s is already reserved for that slot", t.Number)
				}
			}
		}

		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		if len(tables) > 0 {
			if err := tx.Model(reservation).Association("Tables").Append(&tables); err != nil {
				return fmt.Errorf("failed to assign tables: %w", err)
			}
		}

		return nil
	})
}

// hasConflict checks for another live booking on the same table, date and slot
func (s *ReservationService) hasConflict(tx *gorm.DB, tableID uint, reservation *models.Reservation) (bool, error) {
	query := tx.Model(&models.Reservation{}).
		Joins("JOIN reservation_tables rt ON rt.reservation_id = reservations.id").
		Where("rt.table_id = ?", tableID).
		Where("reservations.date = ?", reservation.Date).
		Where("reservations.status NOT IN ?", []string{models.ReservationCancelled, models.ReservationNoShow}).
		Where("reservations.id <> ?", reservation.ID)

	if reservation.TimeSlotID != nil {
		// A booking with no slot blocks the whole day, so it conflicts too
		query = query.Where("reservations.time_slot_id = ? OR reservations.time_slot_id IS NULL", *reservation.TimeSlotID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check reservation conflicts: %w", err)
	}
	return count > 0, nil
}

// GetReservation returns one booking with its slot and tables
func (s *ReservationService) GetReservation(id uint) (*models.Reservation, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var reservation models.Reservation
	err := s.db.Preload("TimeSlot").Preload("Tables").First(&reservation, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation %d: %w", id, err)
	}
	return &reservation, nil
}

// ListReservationsForDate returns the bookings of one day, ordered by slot
func (s *ReservationService) ListReservationsForDate(branchID uint, date time.Time) ([]models.Reservation, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var reservations []models.Reservation
	err := s.db.
		Where("branch_id = ? AND date >= ? AND date < ?", branchID, dayStart, dayEnd).
		Preload("TimeSlot").
		Preload("Tables").
		Order("time_slot_id ASC, created_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// UpdateReservationStatus moves a booking through its lifecycle
func (s *ReservationService) UpdateReservationStatus(id uint, status string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	switch status {
	case models.ReservationPending, models.ReservationConfirmed, models.ReservationSeated,
		models.ReservationCancelled, models.ReservationNoShow:
	default:
		return fmt.Errorf("invalid reservation status: %s", status)
	}

	result := s.db.Model(&models.Reservation{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update reservation %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reservation %d not found", id)
	}
	return nil
}

// ReassignTables replaces the table assignment of a booking
func (s *ReservationService) ReassignTables(id uint, tableIDs []uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, id).Error; err != nil {
			return fmt.Errorf("failed to get reservation %d: %w", id, err)
		}

		var tables []models.Table
		if len(tableIDs) > 0 {
			if err := tx.Find(&tables, tableIDs).Error; err != nil {
				return fmt.Errorf("failed to load tables: %w", err)
			}
			if len(tables) != len(tableIDs) {
				return fmt.Errorf("some tables do not exist")
			}
			for _, t := range tables {
				if t.IsShared {
					continue
				}
				conflict, err := s.hasConflict(tx, t.ID, &reservation)
				if err != nil {
					return err
				}
				if conflict {
					return fmt.Errorf("table %s is already reserved for that slot", t.Number)
				}
			}
		}

		if err := tx.Model(&reservation).Association("Tables").Replace(&tables); err != nil {
			return fmt.Errorf("failed to reassign tables: %w", err)
		}
		return nil
	})
}

// ListTimeSlots returns the active service windows
func (s *ReservationService) ListTimeSlots() ([]models.TimeSlot, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var slots []models.TimeSlot
	err := s.db.Where("is_active = ?", true).Order("display_order").Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}
	return slots, nil
}
