package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusPaid      OrderStatus = "paid"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Active reports whether the order still holds its table. Cancelled and paid
// orders no longer count toward table occupancy.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered:
		return true
	}
	return false
}

func (s *OrderStatus) Scan(value interface{}) error {
	*s = OrderStatus(value.(string))
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Order represents a dine-in comanda
type Order struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	OrderNumber string         `gorm:"unique;not null" json:"order_number"`
	BranchID    uint           `gorm:"index" json:"branch_id"`
	Status      OrderStatus    `gorm:"index" json:"status"`
	TableID     *uint          `gorm:"index" json:"table_id,omitempty"`
	Table       *Table         `gorm:"foreignKey:TableID" json:"table,omitempty"`
	PartySize   int            `gorm:"default:1" json:"party_size"`
	WaiterID    *uint          `gorm:"index" json:"waiter_id,omitempty"`
	Waiter      *Employee      `gorm:"foreignKey:WaiterID" json:"waiter,omitempty"`
	Items       []OrderItem    `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal    float64        `json:"subtotal"`
	Tax         float64        `json:"tax"`
	Discount    float64        `json:"discount"`
	Total       float64        `json:"total"`
	Notes       string         `json:"notes"`
	SaleID      *uint          `json:"sale_id,omitempty"`
	Source      string         `json:"source"` // "pos", "waiter_app"
	IsSynced    bool           `gorm:"default:false" json:"is_synced"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// OrderItem represents an item in an order
type OrderItem struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderID         uint       `gorm:"index" json:"order_id"`
	Order           *Order     `gorm:"foreignKey:OrderID" json:"-"`
	StockItemID     *uint      `gorm:"index" json:"stock_item_id,omitempty"`
	StockItem       *StockItem `gorm:"foreignKey:StockItemID" json:"stock_item,omitempty"`
	Name            string     `gorm:"not null" json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPrice       float64    `json:"unit_price"`
	Subtotal        float64    `json:"subtotal"`
	Notes           string     `json:"notes"`
	Status          string     `json:"status"` // "pending", "preparing", "ready"
	SentToKitchen   bool       `gorm:"default:false" json:"sent_to_kitchen"`
	SentToKitchenAt *time.Time `json:"sent_to_kitchen_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
