package models

import (
	"time"

	"gorm.io/gorm"
)

// TableStatus values stored in tables.status. An empty string means no
// manual status was set by staff and the effective status is derived.
const (
	TableStatusEmpty    = "empty"
	TableStatusOccupied = "occupied"
	TableStatusReserved = "reserved"
	TableStatusCleaning = "cleaning"
)

// Branch represents one restaurant location
type Branch struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Address   string         `json:"address"`
	Phone     string         `json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Sector represents a logical grouping of tables within a branch
type Sector struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BranchID    uint           `gorm:"index" json:"branch_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Color       string         `json:"color"` // Hex color for UI
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Table represents a restaurant table
//
// Position, size and rotation are optional: tables created before the floor
// editor existed have no layout yet. PositionX/PositionY are always the
// top-left corner of the footprint; the floor plan converts to center-origin
// coordinates in memory.
type Table struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	BranchID     uint           `gorm:"index" json:"branch_id"`
	Number       string         `gorm:"not null" json:"number"` // Unique constraint handled by partial index in migration
	Name         string         `json:"name"`
	Capacity     int            `json:"capacity"`
	SectorID     *uint          `json:"sector_id,omitempty"`
	Sector       *Sector        `gorm:"foreignKey:SectorID" json:"sector,omitempty"`
	Status       string         `json:"status"` // manual status: "", "empty", "occupied", "reserved", "cleaning"
	PositionX    *float64       `json:"position_x,omitempty"`
	PositionY    *float64       `json:"position_y,omitempty"`
	Width        *float64       `json:"width,omitempty"`
	Height       *float64       `json:"height,omitempty"`
	Rotation     *float64       `json:"rotation,omitempty"` // degrees
	Shape        string         `json:"shape"`              // "circle", "square", "rectangle", "wide"
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	IsShared     bool           `gorm:"default:false" json:"is_shared"`
	Orders       []Order        `gorm:"foreignKey:TableID" json:"orders,omitempty"`
	Reservations []Reservation  `gorm:"many2many:reservation_tables" json:"reservations,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TimeSlot represents a reservation service window ("Mediodía", "Noche")
type TimeSlot struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	StartTime    string         `json:"start_time"` // "12:00", 24h clock
	EndTime      string         `json:"end_time"`   // "15:00", exclusive
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	DisplayOrder int            `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Reservation status values
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationSeated    = "seated"
	ReservationCancelled = "cancelled"
	ReservationNoShow    = "no_show"
)

// Reservation represents a booking, optionally linked to one or more tables
// (large parties span tables, shared tables host several bookings).
type Reservation struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	BranchID      uint           `gorm:"index" json:"branch_id"`
	CustomerName  string         `gorm:"not null" json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	Date          time.Time      `gorm:"index" json:"date"` // day of the booking, midnight local
	TimeSlotID    *uint          `json:"time_slot_id,omitempty"`
	TimeSlot      *TimeSlot      `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
	PartySize     int            `json:"party_size"`
	Status        string         `gorm:"default:pending" json:"status"`
	Notes         string         `json:"notes"`
	Tables        []Table        `gorm:"many2many:reservation_tables" json:"tables,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Confirmed reports whether the booking was confirmed by the customer.
// Seated bookings count as confirmed too.
func (r *Reservation) Confirmed() bool {
	return r.Status == ReservationConfirmed || r.Status == ReservationSeated
}
