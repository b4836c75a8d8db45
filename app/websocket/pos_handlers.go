package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"MesaApp/app/models"
)

// RegisterBackend is the cash-session contract for the POS endpoints
type RegisterBackend interface {
	OpenRegister(branchID, employeeID uint, openingBalance float64) (*models.CashRegister, error)
	GetOpenRegister(branchID uint) (*models.CashRegister, error)
	RecordMovement(registerID uint, movementType string, amount float64, description string, employeeID *uint) error
	CloseOrder(orderID, registerID, employeeID uint) (*models.Sale, error)
	CloseRegister(registerID uint, closingBalance float64, notes string) (*models.CashRegister, error)
	GetRegisterSummary(registerID uint) (map[string]float64, error)
}

// Invoicer requests electronic invoices for closed sales
type Invoicer interface {
	RequestInvoice(sale *models.Sale) (*models.ElectronicInvoice, error)
}

// ReceiptPrinter prints fiscal tickets and register close reports
type ReceiptPrinter interface {
	PrintReceipt(sale *models.Sale, invoice *models.ElectronicInvoice) error
	PrintRegisterReport(register *models.CashRegister, summary map[string]float64) error
}

// StockBackend is the inventory contract for the POS endpoints
type StockBackend interface {
	ListStockItems(branchID uint) ([]models.StockItem, error)
	LowStockItems(branchID uint) ([]models.StockItem, error)
	AdjustQuantity(id uint, delta float64, movementType, reference string, employeeID *uint) error
}

// HandleRegister routes GET (open session + summary) and POST (open session)
// for /api/register.
func (h *RESTHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") {
		return
	}
	if h.server.cashRegister == nil {
		http.Error(w, "Cash register not available", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case "GET":
		h.handleGetRegister(w, r)
	case "POST":
		h.handleOpenRegister(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RESTHandlers) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	branchID := queryUint(r, "branch_id", 1)

	register, err := h.server.cashRegister.GetOpenRegister(branchID)
	if err != nil {
		http.Error(w, "No open cash register", http.StatusNotFound)
		return
	}

	summary, err := h.server.cashRegister.GetRegisterSummary(register.ID)
	if err != nil {
		log.Printf("REST API: Error loading register summary: %v", err)
		http.Error(w, "Error loading register summary", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"register": register,
		"summary":  summary,
	})
}

func (h *RESTHandlers) handleOpenRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID       uint    `json:"branch_id"`
		EmployeeID     uint    `json:"employee_id"`
		OpeningBalance float64 `json:"opening_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	register, err := h.server.cashRegister.OpenRegister(req.BranchID, req.EmployeeID, req.OpeningBalance)
	if err != nil {
		log.Printf("REST API: Error opening register: %v", err)
		http.Error(w, fmt.Sprintf("Error opening register: %v", err), http.StatusConflict)
		return
	}

	writeSuccess(w, map[string]interface{}{"register_id": register.ID})
}

// HandleRegisterMovement records a deposit or withdrawal on the open session
func (h *RESTHandlers) HandleRegisterMovement(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.cashRegister == nil {
		http.Error(w, "Cash register not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		RegisterID  uint    `json:"register_id"`
		Type        string  `json:"type"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		EmployeeID  *uint   `json:"employee_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.server.cashRegister.RecordMovement(req.RegisterID, req.Type, req.Amount, req.Description, req.EmployeeID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error recording movement: %v", err), http.StatusBadRequest)
		return
	}
	writeSuccess(w, nil)
}

// HandleRegisterClose closes the session and prints the close report
func (h *RESTHandlers) HandleRegisterClose(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.cashRegister == nil {
		http.Error(w, "Cash register not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		RegisterID     uint    `json:"register_id"`
		ClosingBalance float64 `json:"closing_balance"`
		Notes          string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	register, err := h.server.cashRegister.CloseRegister(req.RegisterID, req.ClosingBalance, req.Notes)
	if err != nil {
		log.Printf("REST API: Error closing register: %v", err)
		http.Error(w, fmt.Sprintf("Error closing register: %v", err), http.StatusConflict)
		return
	}

	if h.server.receipts != nil {
		summary, serr := h.server.cashRegister.GetRegisterSummary(register.ID)
		if serr == nil {
			go func() {
				if perr := h.server.receipts.PrintRegisterReport(register, summary); perr != nil {
					log.Printf("REST API: Register report print failed: %v", perr)
				}
			}()
		}
	}

	writeSuccess(w, map[string]interface{}{"difference": register.Difference})
}

// HandleCheckout closes an order against the open register, requests the
// electronic invoice and prints the ticket. The floor is rebroadcast because
// paying the last active order frees the table.
func (h *RESTHandlers) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.cashRegister == nil {
		http.Error(w, "Cash register not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		OrderID    uint `json:"order_id"`
		RegisterID uint `json:"register_id"`
		EmployeeID uint `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sale, err := h.server.cashRegister.CloseOrder(req.OrderID, req.RegisterID, req.EmployeeID)
	if err != nil {
		log.Printf("REST API: Checkout failed for order %d: %v", req.OrderID, err)
		http.Error(w, fmt.Sprintf("Checkout failed: %v", err), http.StatusConflict)
		return
	}

	var invoice *models.ElectronicInvoice
	if h.server.invoices != nil {
		invoice, err = h.server.invoices.RequestInvoice(sale)
		if err != nil {
			// The sale stands; invoicing can be retried from the worker
			log.Printf("REST API: Invoice request failed for sale %s: %v", sale.SaleNumber, err)
		}
	}

	if h.server.receipts != nil {
		go func() {
			if perr := h.server.receipts.PrintReceipt(sale, invoice); perr != nil {
				log.Printf("REST API: Receipt print failed for %s: %v", sale.SaleNumber, perr)
			}
		}()
	}

	go h.broadcastFloor()

	response := map[string]interface{}{
		"success":     true,
		"sale_id":     sale.ID,
		"sale_number": sale.SaleNumber,
	}
	if invoice != nil {
		response["invoice_status"] = invoice.Status
		response["cae"] = invoice.CAE
	}
	json.NewEncoder(w).Encode(response)
}

// HandleStock lists stock items, optionally only the ones at or under their
// minimum (?low=true).
func (h *RESTHandlers) HandleStock(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.stock == nil {
		http.Error(w, "Stock not available", http.StatusServiceUnavailable)
		return
	}

	branchID := queryUint(r, "branch_id", 1)

	var items []models.StockItem
	var err error
	if r.URL.Query().Get("low") == "true" {
		items, err = h.server.stock.LowStockItems(branchID)
	} else {
		items, err = h.server.stock.ListStockItems(branchID)
	}
	if err != nil {
		log.Printf("REST API: Error fetching stock: %v", err)
		http.Error(w, "Error fetching stock", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(items)
}

// HandleStockAdjust applies a manual stock adjustment with its movement
func (h *RESTHandlers) HandleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.stock == nil {
		http.Error(w, "Stock not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		StockItemID uint    `json:"stock_item_id"`
		Delta       float64 `json:"delta"`
		Type        string  `json:"type"` // "purchase", "adjustment", "waste"
		Reference   string  `json:"reference"`
		EmployeeID  *uint   `json:"employee_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.server.stock.AdjustQuantity(req.StockItemID, req.Delta, req.Type, req.Reference, req.EmployeeID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error adjusting stock: %v", err), http.StatusBadRequest)
		return
	}
	writeSuccess(w, nil)
}

// queryUint reads a numeric query parameter with a default
func queryUint(r *http.Request, key string, fallback uint) uint {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(v)
}
