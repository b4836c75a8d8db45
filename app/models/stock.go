package models

import (
	"time"

	"gorm.io/gorm"
)

// StockItem represents a sellable product or ingredient tracked by quantity
type StockItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BranchID    uint           `gorm:"index" json:"branch_id"`
	Name        string         `gorm:"not null" json:"name"`
	Unit        string         `json:"unit"` // "unidad", "kg", "lt"
	Price       float64        `json:"price"`
	CostPrice   float64        `json:"cost_price"`
	Quantity    float64        `json:"quantity"`
	MinQuantity float64        `json:"min_quantity"` // low-stock alert threshold
	TrackStock  bool           `gorm:"default:true" json:"track_stock"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// StockMovement records every change to a stock item quantity
type StockMovement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StockItemID uint      `gorm:"index" json:"stock_item_id"`
	Type        string    `json:"type"` // "sale", "purchase", "adjustment", "waste"
	Quantity    float64   `json:"quantity"`
	PreviousQty float64   `json:"previous_qty"`
	NewQty      float64   `json:"new_qty"`
	Reference   string    `json:"reference"`
	EmployeeID  *uint     `json:"employee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
