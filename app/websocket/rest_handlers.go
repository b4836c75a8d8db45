package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MesaApp/app/floorplan"
	"MesaApp/app/models"

	"gorm.io/gorm"
)

// OrderBackend is the contract the order endpoints need. Declared here
// instead of importing the services package directly, breaking the import
// cycle.
type OrderBackend interface {
	CreateOrder(order *models.Order, items []models.OrderItem) error
	AddItems(orderID uint, items []models.OrderItem) error
	UpdateOrderStatus(id uint, status models.OrderStatus) error
	CancelOrder(id uint, employeeID *uint) error
	MarkItemsSent(orderID uint) error
}

// ReservationBackend is the contract the reservation endpoints need
type ReservationBackend interface {
	CreateReservation(reservation *models.Reservation, tableIDs []uint) error
	UpdateReservationStatus(id uint, status string) error
	ReassignTables(id uint, tableIDs []uint) error
	ListTimeSlots() ([]models.TimeSlot, error)
}

// Authenticator validates waiter PINs and opens device sessions
type Authenticator interface {
	Authenticate(employeeID uint, pin, device string) (*models.Session, error)
}

// StaffBackend manages employee accounts; satisfied by the same service
// that implements Authenticator.
type StaffBackend interface {
	ListEmployees(branchID uint) ([]models.Employee, error)
	CreateEmployee(employee *models.Employee, pin string) error
	Logout(token string) error
	DeactivateEmployee(id uint) error
}

// KitchenPrinter prints comandas for new order items
type KitchenPrinter interface {
	PrintKitchenTicket(order *models.Order, tableNumber string) error
}

// RESTHandlers provides HTTP REST endpoints for the floor screens and
// waiter devices.
type RESTHandlers struct {
	db     *gorm.DB
	server *Server
	floor  *floorplan.Controller
}

// NewRESTHandlers creates a new REST handlers instance
func NewRESTHandlers(db *gorm.DB, server *Server, floor *floorplan.Controller) *RESTHandlers {
	return &RESTHandlers{
		db:     db,
		server: server,
		floor:  floor,
	}
}

// cors sets the CORS and content-type headers every endpoint shares and
// answers preflight requests. Returns true when the request was a preflight
// and is already handled.
func cors(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// writeSuccess writes the standard success envelope
func writeSuccess(w http.ResponseWriter, extra map[string]interface{}) {
	response := map[string]interface{}{"success": true}
	for k, v := range extra {
		response[k] = v
	}
	json.NewEncoder(w).Encode(response)
}

// pathID extracts the trailing numeric id from a path like /api/tables/12
func pathID(path, prefix string) (uint, error) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.Trim(raw, "/")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// broadcastFloor refreshes the floor state and pushes it to every client
func (h *RESTHandlers) broadcastFloor() {
	if err := h.floor.Refresh(); err != nil {
		log.Printf("REST API: Floor refresh failed: %v", err)
	}
	h.server.SendFloorUpdate(h.floor.Tables())
}

// HandleFloor returns the derived floor state: every table with its
// center-origin layout, resolved status, guest count and waiter.
func (h *RESTHandlers) HandleFloor(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Query().Get("refresh") != "false" {
		if err := h.floor.Refresh(); err != nil {
			log.Printf("REST API: Error refreshing floor: %v", err)
			http.Error(w, "Error loading floor", http.StatusInternalServerError)
			return
		}
	}

	response := map[string]interface{}{
		"tables":   h.floor.Tables(),
		"selected": h.floor.Selected(),
		"dirty":    h.floor.Dirty(),
	}
	json.NewEncoder(w).Encode(response)
}

// floorDragRequest carries one pointer event of a drag gesture
type floorDragRequest struct {
	TableID  uint                 `json:"table_id"`
	Phase    string               `json:"phase"` // "begin", "move", "end"
	PointerX float64              `json:"pointer_x"`
	PointerY float64              `json:"pointer_y"`
	Canvas   floorplan.CanvasRect `json:"canvas"`
}

// HandleFloorDrag applies drag gestures: begin records the pointer offset,
// move snaps the table under the pointer, end releases it and broadcasts
// the floor so other screens see the new position.
func (h *RESTHandlers) HandleFloorDrag(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req floorDragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Phase {
	case "begin":
		h.floor.BeginDrag(req.TableID, req.PointerX, req.PointerY, req.Canvas)
		h.floor.Select(req.TableID)
	case "move":
		h.floor.HandleTableDrag(req.PointerX, req.PointerY, req.Canvas)
	case "end":
		h.floor.EndDrag()
		go h.server.SendFloorUpdate(h.floor.Tables())
	default:
		http.Error(w, "Invalid drag phase", http.StatusBadRequest)
		return
	}

	writeSuccess(w, map[string]interface{}{"dirty": h.floor.Dirty()})
}

// HandleFloorRotate rotates a table 90 degrees around its top-left corner
func (h *RESTHandlers) HandleFloorRotate(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TableID uint `json:"table_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.floor.Rotate(req.TableID)
	go h.server.SendFloorUpdate(h.floor.Tables())
	writeSuccess(w, map[string]interface{}{"dirty": h.floor.Dirty()})
}

// HandleFloorShape changes a table's shape, applying the preset footprint
func (h *RESTHandlers) HandleFloorShape(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TableID uint   `json:"table_id"`
		Shape   string `json:"shape"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	shape := floorplan.Shape(req.Shape)
	if !shape.Valid() {
		http.Error(w, "Invalid shape", http.StatusBadRequest)
		return
	}

	h.floor.ChangeShape(req.TableID, shape)
	go h.server.SendFloorUpdate(h.floor.Tables())
	writeSuccess(w, map[string]interface{}{"dirty": h.floor.Dirty()})
}

// HandleFloorResize switches a table between its normal and big size
func (h *RESTHandlers) HandleFloorResize(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TableID uint   `json:"table_id"`
		Tier    string `json:"tier"` // "normal" or "big"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var tier floorplan.SizeTier
	switch req.Tier {
	case "normal":
		tier = floorplan.TierNormal
	case "big":
		tier = floorplan.TierBig
	default:
		http.Error(w, "Invalid size tier", http.StatusBadRequest)
		return
	}

	h.floor.Resize(req.TableID, tier)
	go h.server.SendFloorUpdate(h.floor.Tables())
	writeSuccess(w, map[string]interface{}{"dirty": h.floor.Dirty()})
}

// HandleFloorLayout persists the whole layout in one batch
func (h *RESTHandlers) HandleFloorLayout(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Println("REST API: Saving floor layout")

	if err := h.floor.SaveLayout(); err != nil {
		log.Printf("REST API: Error saving layout: %v", err)
		http.Error(w, fmt.Sprintf("Error saving layout: %v", err), http.StatusInternalServerError)
		return
	}

	go h.server.SendFloorUpdate(h.floor.Tables())
	writeSuccess(w, map[string]interface{}{"message": "Layout saved"})
}

// HandleTables routes between GET and POST for /api/tables
func (h *RESTHandlers) HandleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" || r.Method == "OPTIONS" {
		h.HandleGetTables(w, r)
	} else if r.Method == "POST" {
		h.HandleCreateTable(w, r)
	} else {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetTables returns the plain table list without floor geometry
func (h *RESTHandlers) HandleGetTables(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}

	tables := h.floor.SimpleTables()
	log.Printf("REST API: Returning %d tables", len(tables))
	json.NewEncoder(w).Encode(tables)
}

// HandleCreateTable creates a table and places it on the floor
func (h *RESTHandlers) HandleCreateTable(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}

	var table models.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.floor.AddTable(&table); err != nil {
		log.Printf("REST API: Error creating table: %v", err)
		http.Error(w, fmt.Sprintf("Error creating table: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("REST API: Table %s created (ID: %d)", table.Number, table.ID)
	go h.server.SendFloorUpdate(h.floor.Tables())
	writeSuccess(w, map[string]interface{}{"table_id": table.ID})
}

// HandleTableByID handles PATCH and DELETE for /api/tables/{id}
func (h *RESTHandlers) HandleTableByID(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "PATCH, DELETE") {
		return
	}

	id, err := pathID(r.URL.Path, "/api/tables/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "PATCH":
		h.patchTable(w, r, id)
	case "DELETE":
		if err := h.floor.Delete(id); err != nil {
			log.Printf("REST API: Error deleting table %d: %v", id, err)
			http.Error(w, fmt.Sprintf("Error deleting table: %v", err), http.StatusConflict)
			return
		}
		go h.server.SendFloorUpdate(h.floor.Tables())
		writeSuccess(w, nil)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// patchTable applies the editable non-layout fields of a table
func (h *RESTHandlers) patchTable(w http.ResponseWriter, r *http.Request, id uint) {
	var req struct {
		Capacity *int    `json:"capacity,omitempty"`
		IsShared *bool   `json:"is_shared,omitempty"`
		Status   *string `json:"status,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Capacity != nil {
		h.floor.SetCapacity(id, *req.Capacity)
	}
	if req.IsShared != nil {
		h.floor.SetShared(id, *req.IsShared)
	}
	if req.Status != nil {
		status := floorplan.Status(*req.Status)
		if !status.Valid() {
			http.Error(w, "Invalid table status", http.StatusBadRequest)
			return
		}
		h.floor.SetStatus(id, status)
		go h.server.SendTableUpdate(id, *req.Status)
	}

	writeSuccess(w, nil)
}

// HandleSectors lists and creates floor sectors
func (h *RESTHandlers) HandleSectors(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") {
		return
	}

	switch r.Method {
	case "GET":
		var sectors []models.Sector
		if err := h.db.Where("is_active = ?", true).Order("name").Find(&sectors).Error; err != nil {
			log.Printf("REST API: Error fetching sectors: %v", err)
			http.Error(w, "Error fetching sectors", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(sectors)

	case "POST":
		var sector models.Sector
		if err := json.NewDecoder(r.Body).Decode(&sector); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if sector.Name == "" {
			http.Error(w, "Sector name is required", http.StatusBadRequest)
			return
		}
		sector.IsActive = true
		if err := h.db.Create(&sector).Error; err != nil {
			log.Printf("REST API: Error creating sector: %v", err)
			http.Error(w, "Error creating sector", http.StatusInternalServerError)
			return
		}
		writeSuccess(w, map[string]interface{}{"sector_id": sector.ID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTimeSlots returns the active reservation windows
func (h *RESTHandlers) HandleTimeSlots(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET") {
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.reservations == nil {
		http.Error(w, "Reservations not available", http.StatusServiceUnavailable)
		return
	}

	slots, err := h.server.reservations.ListTimeSlots()
	if err != nil {
		log.Printf("REST API: Error fetching time slots: %v", err)
		http.Error(w, "Error fetching time slots", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(slots)
}

// reservationRequest is a booking submitted by the host screen
type reservationRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"` // "2006-01-02"
	TimeSlotID    *uint  `json:"time_slot_id,omitempty"`
	PartySize     int    `json:"party_size"`
	Notes         string `json:"notes"`
	TableIDs      []uint `json:"table_ids"`
}

// HandleReservations routes between GET and POST for /api/reservations
func (h *RESTHandlers) HandleReservations(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") {
		return
	}

	switch r.Method {
	case "GET":
		h.handleGetReservations(w, r)
	case "POST":
		h.handleCreateReservation(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetReservations lists live bookings for a date (default today)
func (h *RESTHandlers) handleGetReservations(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var reservations []models.Reservation
	err := h.db.Where("date >= ? AND date < ? AND status NOT IN ?",
		dayStart, dayEnd, []string{models.ReservationCancelled, models.ReservationNoShow}).
		Preload("Tables").Preload("TimeSlot").
		Order("time_slot_id, customer_name").
		Find(&reservations).Error
	if err != nil {
		log.Printf("REST API: Error fetching reservations: %v", err)
		http.Error(w, "Error fetching reservations", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(reservations)
}

// handleCreateReservation creates a booking through the reservation service
// so table conflicts are checked.
func (h *RESTHandlers) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	if h.server.reservations == nil {
		http.Error(w, "Reservations not available", http.StatusServiceUnavailable)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	reservation := &models.Reservation{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          date,
		TimeSlotID:    req.TimeSlotID,
		PartySize:     req.PartySize,
		Notes:         req.Notes,
	}

	if err := h.server.reservations.CreateReservation(reservation, req.TableIDs); err != nil {
		log.Printf("REST API: Error creating reservation: %v", err)
		http.Error(w, fmt.Sprintf("Error creating reservation: %v", err), http.StatusConflict)
		return
	}

	log.Printf("REST API: Reservation created for %s (ID: %d)", reservation.CustomerName, reservation.ID)
	go h.broadcastFloor()
	writeSuccess(w, map[string]interface{}{"reservation_id": reservation.ID})
}

// HandleReservationByID handles PATCH for /api/reservations/{id}: status
// changes and table reassignment. Both change what the floor shows.
func (h *RESTHandlers) HandleReservationByID(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "PATCH") {
		return
	}
	if r.Method != "PATCH" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.reservations == nil {
		http.Error(w, "Reservations not available", http.StatusServiceUnavailable)
		return
	}

	id, err := pathID(r.URL.Path, "/api/reservations/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Status   string `json:"status,omitempty"`
		TableIDs []uint `json:"table_ids,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.TableIDs != nil {
		if err := h.server.reservations.ReassignTables(id, req.TableIDs); err != nil {
			log.Printf("REST API: Error reassigning reservation %d: %v", id, err)
			http.Error(w, fmt.Sprintf("Error reassigning tables: %v", err), http.StatusConflict)
			return
		}
	}
	if req.Status != "" {
		if err := h.server.reservations.UpdateReservationStatus(id, req.Status); err != nil {
			log.Printf("REST API: Error updating reservation %d: %v", id, err)
			http.Error(w, fmt.Sprintf("Error updating reservation: %v", err), http.StatusBadRequest)
			return
		}
	}

	go h.broadcastFloor()
	writeSuccess(w, nil)
}

// HandleEmployees lists and creates staff accounts
func (h *RESTHandlers) HandleEmployees(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") {
		return
	}
	if h.server.staff == nil {
		http.Error(w, "Employees not available", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case "GET":
		employees, err := h.server.staff.ListEmployees(queryUint(r, "branch_id", 1))
		if err != nil {
			log.Printf("REST API: Error fetching employees: %v", err)
			http.Error(w, "Error fetching employees", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(employees)

	case "POST":
		var req struct {
			BranchID uint   `json:"branch_id"`
			Name     string `json:"name"`
			Role     string `json:"role"`
			PIN      string `json:"pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		employee := &models.Employee{
			BranchID: req.BranchID,
			Name:     req.Name,
			Role:     req.Role,
			IsActive: true,
		}
		if err := h.server.staff.CreateEmployee(employee, req.PIN); err != nil {
			http.Error(w, fmt.Sprintf("Error creating employee: %v", err), http.StatusBadRequest)
			return
		}
		writeSuccess(w, map[string]interface{}{"employee_id": employee.ID})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEmployeeByID handles DELETE for /api/employees/{id} (deactivation)
func (h *RESTHandlers) HandleEmployeeByID(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "DELETE") {
		return
	}
	if r.Method != "DELETE" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.staff == nil {
		http.Error(w, "Employees not available", http.StatusServiceUnavailable)
		return
	}

	id, err := pathID(r.URL.Path, "/api/employees/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.server.staff.DeactivateEmployee(id); err != nil {
		http.Error(w, fmt.Sprintf("Error deactivating employee: %v", err), http.StatusBadRequest)
		return
	}
	writeSuccess(w, nil)
}

// HandleLogout closes a waiter device session
func (h *RESTHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.staff == nil {
		http.Error(w, "Employees not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.server.staff.Logout(req.Token); err != nil {
		http.Error(w, "Error closing session", http.StatusInternalServerError)
		return
	}
	writeSuccess(w, nil)
}

// orderItemRequest is one line of an order from a waiter device
type orderItemRequest struct {
	StockItemID uint    `json:"stock_item_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Notes       string  `json:"notes,omitempty"`
}

// orderRequest is an order submitted by a waiter device
type orderRequest struct {
	TableID   *uint              `json:"table_id,omitempty"`
	PartySize int                `json:"party_size"`
	WaiterID  *uint              `json:"waiter_id,omitempty"`
	Items     []orderItemRequest `json:"items"`
	Notes     string             `json:"notes,omitempty"`
	Source    string             `json:"source"`
}

// HandleOrders routes between GET and POST for /api/orders
func (h *RESTHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "GET, POST") {
		return
	}

	switch r.Method {
	case "GET":
		h.handleGetOrders(w, r)
	case "POST":
		h.handleCreateOrder(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetOrders lists the active orders
func (h *RESTHandlers) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	var orders []models.Order
	err := h.db.Where("status IN ?", []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusPreparing,
		models.OrderStatusReady, models.OrderStatusDelivered,
	}).
		Preload("Items").Preload("Table").Preload("Waiter").
		Order("created_at").
		Find(&orders).Error
	if err != nil {
		log.Printf("REST API: Error fetching orders: %v", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(orders)
}

// handleCreateOrder creates an order from a waiter device. The floor is
// rebroadcast afterwards because the new order changes the table's derived
// status.
func (h *RESTHandlers) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.server.orders == nil {
		http.Error(w, "Orders not available", http.StatusServiceUnavailable)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.OrderItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		}
		if item.StockItemID != 0 {
			id := item.StockItemID
			items[i].StockItemID = &id
		}
	}

	order := &models.Order{
		TableID:   req.TableID,
		PartySize: req.PartySize,
		WaiterID:  req.WaiterID,
		Notes:     req.Notes,
		Source:    req.Source,
	}

	if err := h.server.orders.CreateOrder(order, items); err != nil {
		log.Printf("REST API: Error creating order: %v", err)
		http.Error(w, fmt.Sprintf("Error creating order: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("REST API: Order %s created (ID: %d)", order.OrderNumber, order.ID)

	go h.server.SendKitchenOrder(order)
	go h.printComanda(order)
	go h.broadcastFloor()

	writeSuccess(w, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
}

// printComanda sends the order's unsent items to the kitchen printer and
// marks them as sent. Print failures are logged; the kitchen display already
// got the order over websocket.
func (h *RESTHandlers) printComanda(order *models.Order) {
	if h.server.printers == nil {
		return
	}

	tableNumber := ""
	if order.TableID != nil {
		var table models.Table
		if err := h.db.First(&table, *order.TableID).Error; err == nil {
			tableNumber = table.Number
		}
	}

	if err := h.server.printers.PrintKitchenTicket(order, tableNumber); err != nil {
		log.Printf("REST API: Kitchen ticket for %s failed: %v", order.OrderNumber, err)
		return
	}
	if err := h.server.orders.MarkItemsSent(order.ID); err != nil {
		log.Printf("REST API: Could not mark items sent for %s: %v", order.OrderNumber, err)
	}
}

// HandleOrderByID handles /api/orders/{id} (PATCH: status changes, items
// sent) and /api/orders/{id}/items (POST: append items to an open order).
func (h *RESTHandlers) HandleOrderByID(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "PATCH, POST") {
		return
	}
	if h.server.orders == nil {
		http.Error(w, "Orders not available", http.StatusServiceUnavailable)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/")
	parts := strings.Split(rest, "/")
	rawID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}
	id := uint(rawID)

	if len(parts) == 2 && parts[1] == "items" && r.Method == "POST" {
		h.handleAddItems(w, r, id)
		return
	}
	if len(parts) != 1 || r.Method != "PATCH" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Status     string `json:"status,omitempty"`
		ItemsSent  bool   `json:"items_sent,omitempty"`
		EmployeeID *uint  `json:"employee_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ItemsSent {
		if err := h.server.orders.MarkItemsSent(id); err != nil {
			log.Printf("REST API: Error marking items sent for order %d: %v", id, err)
			http.Error(w, fmt.Sprintf("Error updating order: %v", err), http.StatusInternalServerError)
			return
		}
	}

	if req.Status != "" {
		// Cancellation returns tracked stock, so it takes its own path
		if req.Status == string(models.OrderStatusCancelled) {
			err = h.server.orders.CancelOrder(id, req.EmployeeID)
		} else {
			err = h.server.orders.UpdateOrderStatus(id, models.OrderStatus(req.Status))
		}
		if err != nil {
			log.Printf("REST API: Error updating order %d: %v", id, err)
			http.Error(w, fmt.Sprintf("Error updating order: %v", err), http.StatusBadRequest)
			return
		}
		go h.server.SendOrderNotification(id, req.Status)
		go h.broadcastFloor()
	}

	writeSuccess(w, nil)
}

// handleAddItems appends items to an open order and prints the new comanda
func (h *RESTHandlers) handleAddItems(w http.ResponseWriter, r *http.Request, orderID uint) {
	var req struct {
		Items []orderItemRequest `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.OrderItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		}
		if item.StockItemID != 0 {
			id := item.StockItemID
			items[i].StockItemID = &id
		}
	}

	if err := h.server.orders.AddItems(orderID, items); err != nil {
		log.Printf("REST API: Error adding items to order %d: %v", orderID, err)
		http.Error(w, fmt.Sprintf("Error adding items: %v", err), http.StatusBadRequest)
		return
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("Waiter").First(&order, orderID).Error; err == nil {
		go h.printComanda(&order)
	}

	writeSuccess(w, nil)
}

// HandleLogin authenticates a waiter device by employee id and PIN
func (h *RESTHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if cors(w, r, "POST") {
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.server.auth == nil {
		http.Error(w, "Authentication not available", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		EmployeeID uint   `json:"employee_id"`
		PIN        string `json:"pin"`
		Device     string `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.server.auth.Authenticate(req.EmployeeID, req.PIN, req.Device)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"employee": map[string]interface{}{
			"id":   session.Employee.ID,
			"name": session.Employee.Name,
			"role": session.Employee.Role,
		},
	})
}
