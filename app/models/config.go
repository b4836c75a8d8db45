package models

import (
	"encoding/json"
	"time"
)

// SystemConfig stores key-value system settings
type SystemConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"unique;not null" json:"key"`
	Value     string    `json:"value"`
	Type      string    `json:"type"` // "string", "number", "boolean"
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RestaurantConfig stores business information printed on tickets
type RestaurantConfig struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `json:"name"`
	LegalName      string    `json:"legal_name"`
	CUIT           string    `json:"cuit"`
	GrossIncome    string    `json:"gross_income"` // IIBB number
	ActivityStart  string    `json:"activity_start"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Website        string    `json:"website"`
	Logo           string    `gorm:"type:text" json:"logo"` // base64 PNG for receipts
	DefaultTaxRate float64   `gorm:"default:21" json:"default_tax_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AfipConfig stores electronic invoicing settings. The actual SOAP exchange
// with AFIP happens in the external ARCA bridge; this app only talks to the
// bridge over HTTP.
type AfipConfig struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	BridgeURL          string    `json:"bridge_url"`
	BridgeToken        string    `json:"-"`
	PointOfSale        int       `json:"point_of_sale"`
	DefaultInvoiceType string    `gorm:"default:B" json:"default_invoice_type"`
	TestMode           bool      `gorm:"default:true" json:"test_mode"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PrinterConfig represents a configured thermal printer
type PrinterConfig struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Role           string    `gorm:"default:front" json:"role"` // "front", "kitchen"
	Type           string    `json:"type"`                      // "usb", "network", "serial", "file"
	ConnectionType string    `json:"connection_type"`
	Address        string    `json:"address"`
	Port           int       `gorm:"default:9100" json:"port"`
	PaperWidth     int       `gorm:"default:80" json:"paper_width"` // mm
	AutoCut        bool      `gorm:"default:true" json:"auto_cut"`
	CashDrawer     bool      `gorm:"default:false" json:"cash_drawer"`
	IsDefault      bool      `gorm:"default:false" json:"is_default"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FloorConfig stores floor-plan editor settings per branch. ShapePresets
// holds the serialized shape size tiers so presets stay configuration,
// not compiled-in constants.
type FloorConfig struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BranchID     uint            `gorm:"index" json:"branch_id"`
	GridSize     float64         `gorm:"default:50" json:"grid_size"`
	CanvasWidth  float64         `gorm:"default:1000" json:"canvas_width"`
	CanvasHeight float64         `gorm:"default:700" json:"canvas_height"`
	ShapePresets json.RawMessage `gorm:"type:text" json:"shape_presets"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
