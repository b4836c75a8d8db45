package models

import (
	"time"

	"gorm.io/gorm"
)

// CashRegister represents one cash session (apertura/cierre de caja)
type CashRegister struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	BranchID        uint           `gorm:"index" json:"branch_id"`
	OpenedByID      uint           `json:"opened_by_id"`
	OpenedBy        *Employee      `gorm:"foreignKey:OpenedByID" json:"opened_by,omitempty"`
	Status          string         `gorm:"default:open" json:"status"` // "open", "closed"
	OpeningBalance  float64        `json:"opening_balance"`
	ClosingBalance  float64        `json:"closing_balance"`  // cash counted at close
	ExpectedBalance float64        `json:"expected_balance"` // opening + cash sales + deposits - withdrawals
	Difference      float64        `json:"difference"`
	Notes           string         `json:"notes"`
	OpenedAt        time.Time      `json:"opened_at"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// CashMovement records cash in/out of an open register session
type CashMovement struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CashRegisterID uint      `gorm:"index" json:"cash_register_id"`
	Type           string    `json:"type"` // "sale", "deposit", "withdrawal"
	Amount         float64   `json:"amount"`
	Description    string    `json:"description"`
	EmployeeID     *uint     `json:"employee_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Sale represents a closed order turned into a ticket
type Sale struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	SaleNumber        string             `gorm:"unique;not null" json:"sale_number"`
	BranchID          uint               `gorm:"index" json:"branch_id"`
	OrderID           uint               `gorm:"index" json:"order_id"`
	Order             *Order             `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	CashRegisterID    uint               `gorm:"index" json:"cash_register_id"`
	EmployeeID        uint               `gorm:"index" json:"employee_id"`
	Employee          *Employee          `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Subtotal          float64            `json:"subtotal"`
	Tax               float64            `json:"tax"`
	Discount          float64            `json:"discount"`
	Total             float64            `json:"total"`
	Status            string             `gorm:"default:completed" json:"status"`
	ElectronicInvoice *ElectronicInvoice `gorm:"foreignKey:SaleID" json:"electronic_invoice,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}

// Electronic invoice status values
const (
	InvoicePending    = "pending"
	InvoiceAuthorized = "authorized"
	InvoiceRejected   = "rejected"
)

// ElectronicInvoice represents an AFIP/ARCA comprobante electrónico.
// CAE and its due date come back from the fiscal bridge once authorized.
type ElectronicInvoice struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SaleID        uint           `gorm:"index" json:"sale_id"`
	PointOfSale   int            `json:"point_of_sale"`
	InvoiceType   string         `json:"invoice_type"` // "A", "B", "C"
	InvoiceNumber int64          `json:"invoice_number"`
	CAE           string         `json:"cae"`
	CAEDueDate    *time.Time     `json:"cae_due_date,omitempty"`
	Status        string         `gorm:"index;default:pending" json:"status"`
	QRData        string         `json:"qr_data"` // full AFIP QR URL printed on the ticket
	ArcaResponse  string         `gorm:"type:text" json:"arca_response,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
