package models

import (
	"time"

	"gorm.io/gorm"
)

// Employee represents a staff member (waiter, cashier, manager)
type Employee struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BranchID  uint           `gorm:"index" json:"branch_id"`
	Name      string         `gorm:"not null" json:"name"`
	Role      string         `json:"role"` // "waiter", "cashier", "manager"
	PIN       string         `json:"-"`    // bcrypt hash, never serialized
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Session represents an authenticated staff session on a device
type Session struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EmployeeID uint      `gorm:"index" json:"employee_id"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Token      string    `gorm:"unique" json:"token"`
	Device     string    `json:"device"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}
