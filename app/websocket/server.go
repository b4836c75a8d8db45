package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"MesaApp/app/floorplan"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"gorm.io/gorm"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeOrderNew       MessageType = "order_new"
	TypeOrderUpdate    MessageType = "order_update"
	TypeOrderReady     MessageType = "order_ready"
	TypeOrderCancelled MessageType = "order_cancelled"
	TypeTableUpdate    MessageType = "table_update"
	TypeFloorUpdate    MessageType = "floor_update"
	TypeKitchenOrder   MessageType = "kitchen_order"
	TypeNotification   MessageType = "notification"
	TypeHeartbeat      MessageType = "heartbeat"
	TypeAuthResponse   MessageType = "auth_response"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientPOS     ClientType = "pos"
	ClientFloor   ClientType = "floor"
	ClientKitchen ClientType = "kitchen"
	ClientWaiter  ClientType = "waiter"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Server is the realtime hub: it fans floor and order events out to the
// connected POS, floor, waiter and kitchen clients, and exposes the REST
// endpoints the mobile apps use.
type Server struct {
	clients      map[string]*Client
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *Client
	upgrader     websocket.Upgrader
	mu           sync.RWMutex
	port         string
	db           *gorm.DB
	floor        *floorplan.Controller
	orders       OrderBackend
	reservations ReservationBackend
	auth         Authenticator
	staff        StaffBackend
	printers     KitchenPrinter
	receipts     ReceiptPrinter
	cashRegister RegisterBackend
	invoices     Invoicer
	stock        StockBackend
	restHandlers *RESTHandlers
	mdnsShutdown chan bool
}

// NewServer creates a new WebSocket server
func NewServer(port string) *Server {
	return &Server{
		clients:      make(map[string]*Client),
		broadcast:    make(chan []byte),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		port:         port,
		mdnsShutdown: make(chan bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Clients live on the restaurant LAN
				return true
			},
		},
	}
}

// SetDB sets the database connection for the REST endpoints
func (s *Server) SetDB(db *gorm.DB) {
	s.db = db
	s.initHandlers()
}

// SetFloorController wires the floor controller driving the layout endpoints
func (s *Server) SetFloorController(floor *floorplan.Controller) {
	s.floor = floor
	s.initHandlers()
}

// SetOrderService wires the order backend used by the mobile endpoints
func (s *Server) SetOrderService(orders OrderBackend) {
	s.orders = orders
	s.initHandlers()
}

// SetReservationService wires the reservation backend
func (s *Server) SetReservationService(reservations ReservationBackend) {
	s.reservations = reservations
	s.initHandlers()
}

// SetAuthenticator wires PIN authentication for waiter devices. The same
// service usually manages staff accounts too.
func (s *Server) SetAuthenticator(auth Authenticator) {
	s.auth = auth
	if sb, ok := auth.(StaffBackend); ok {
		s.staff = sb
	}
	s.initHandlers()
}

// SetPrinterService wires the kitchen comanda printer
func (s *Server) SetPrinterService(printers KitchenPrinter) {
	s.printers = printers
	if rp, ok := printers.(ReceiptPrinter); ok {
		s.receipts = rp
	}
}

// SetCashRegisterService wires the cash session backend
func (s *Server) SetCashRegisterService(register RegisterBackend) {
	s.cashRegister = register
}

// SetInvoiceService wires the electronic invoicing backend
func (s *Server) SetInvoiceService(invoices Invoicer) {
	s.invoices = invoices
}

// SetStockService wires the inventory backend
func (s *Server) SetStockService(stock StockBackend) {
	s.stock = stock
}

func (s *Server) initHandlers() {
	if s.db != nil && s.floor != nil && s.restHandlers == nil {
		s.restHandlers = NewRESTHandlers(s.db, s, s.floor)
		log.Println("WebSocket server: REST handlers initialized")
	}
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/health", s.handleHealth)

	if s.restHandlers != nil {
		http.HandleFunc("/api/floor", s.restHandlers.HandleFloor)
		http.HandleFunc("/api/floor/drag", s.restHandlers.HandleFloorDrag)
		http.HandleFunc("/api/floor/rotate", s.restHandlers.HandleFloorRotate)
		http.HandleFunc("/api/floor/shape", s.restHandlers.HandleFloorShape)
		http.HandleFunc("/api/floor/resize", s.restHandlers.HandleFloorResize)
		http.HandleFunc("/api/floor/layout", s.restHandlers.HandleFloorLayout)
		http.HandleFunc("/api/tables", s.restHandlers.HandleTables)
		http.HandleFunc("/api/tables/", s.restHandlers.HandleTableByID)
		http.HandleFunc("/api/sectors", s.restHandlers.HandleSectors)
		http.HandleFunc("/api/timeslots", s.restHandlers.HandleTimeSlots)
		http.HandleFunc("/api/reservations", s.restHandlers.HandleReservations)
		http.HandleFunc("/api/reservations/", s.restHandlers.HandleReservationByID)
		http.HandleFunc("/api/orders", s.restHandlers.HandleOrders)
		http.HandleFunc("/api/orders/", s.restHandlers.HandleOrderByID)
		http.HandleFunc("/api/employees", s.restHandlers.HandleEmployees)
		http.HandleFunc("/api/employees/", s.restHandlers.HandleEmployeeByID)
		http.HandleFunc("/api/auth/login", s.restHandlers.HandleLogin)
		http.HandleFunc("/api/auth/logout", s.restHandlers.HandleLogout)
		http.HandleFunc("/api/register", s.restHandlers.HandleRegister)
		http.HandleFunc("/api/register/movements", s.restHandlers.HandleRegisterMovement)
		http.HandleFunc("/api/register/close", s.restHandlers.HandleRegisterClose)
		http.HandleFunc("/api/checkout", s.restHandlers.HandleCheckout)
		http.HandleFunc("/api/stock", s.restHandlers.HandleStock)
		http.HandleFunc("/api/stock/adjust", s.restHandlers.HandleStockAdjust)
		log.Println("WebSocket server: REST API endpoints registered")
	}

	go s.startMDNS()

	log.Printf("WebSocket server starting on port %s", s.port)
	return http.ListenAndServe(s.port, nil)
}

// startMDNS announces the server on the LAN so waiter devices find it
// without manual configuration.
func (s *Server) startMDNS() {
	portStr := strings.TrimPrefix(s.port, ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("mDNS: Invalid port format %s: %v", s.port, err)
		return
	}

	server, err := zeroconf.Register(
		"MesaApp Server",
		"_mesaapp._tcp",
		"local.",
		port,
		[]string{"version=1.0"},
		nil,
	)
	if err != nil {
		log.Printf("mDNS: Failed to register service: %v", err)
		return
	}

	log.Println("mDNS: MesaApp Server announced on _mesaapp._tcp.local")

	<-s.mdnsShutdown
	server.Shutdown()
	log.Println("mDNS: Service announcement stopped")
}

// Stop stops the WebSocket server
func (s *Server) Stop() {
	select {
	case s.mdnsShutdown <- true:
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, client := range s.clients {
		close(client.Send)
		client.Connection.Close()
	}
}

// run handles the main hub loop
func (s *Server) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client registered: %s (type: %s)", client.ID, client.Type)
			s.sendAuthResponse(client, true, "Connected successfully")

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				s.mu.Unlock()
				s.closeClient(client)
				log.Printf("Client unregistered: %s", client.ID)
			} else {
				s.mu.Unlock()
			}

		case message := <-s.broadcast:
			s.mu.Lock()
			for id, client := range s.clients {
				select {
				case client.Send <- message:
				default:
					// Buffer full, drop the client
					delete(s.clients, id)
					s.closeClient(client)
				}
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

// closeClient closes a client send channel, tolerating double closes
func (s *Server) closeClient(client *Client) {
	go func(c *Client) {
		defer func() {
			recover()
		}()
		close(c.Send)
	}(client)
}

// handleWebSocket handles WebSocket connection upgrades
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientType := ClientType(r.URL.Query().Get("type"))
	if clientType == "" {
		clientType = ClientPOS
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	response := map[string]interface{}{
		"status":  "healthy",
		"clients": clientCount,
		"time":    time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readPump handles reading messages from the client
func (c *Client) readPump() {
	defer func() {
		c.Server.unregister <- c
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}

		c.handleMessage(&message)
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Connection.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes incoming client messages
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case TypeOrderNew:
		c.Server.broadcastToType(message, ClientKitchen)
		c.Server.broadcastToType(message, ClientPOS)
		c.Server.broadcastToType(message, ClientFloor)

	case TypeOrderUpdate, TypeOrderCancelled, TypeTableUpdate, TypeFloorUpdate:
		c.Server.broadcastToAll(message)

	case TypeOrderReady:
		if c.Type == ClientKitchen {
			c.Server.broadcastToType(message, ClientPOS)
			c.Server.broadcastToType(message, ClientWaiter)
		}

	case TypeHeartbeat:
		c.sendMessage(Message{
			Type:      TypeHeartbeat,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"status":"alive"}`),
		})

	default:
		log.Printf("Unknown message type: %s", message.Type)
	}
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send channel is full")
	}
}

// BroadcastMessage broadcasts a message to all connected clients
func (s *Server) BroadcastMessage(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	s.broadcast <- data
}

// broadcastToAll sends a message to every client
func (s *Server) broadcastToAll(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			log.Printf("Failed to send to client %s", client.ID)
		}
	}
}

// broadcastToType sends a message to every client of one type
func (s *Server) broadcastToType(message *Message, clientType ClientType) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		if client.Type == clientType {
			select {
			case client.Send <- data:
			default:
				log.Printf("Failed to send to %s client %s", clientType, client.ID)
			}
		}
	}
}

// sendHeartbeat sends heartbeat to all clients
func (s *Server) sendHeartbeat() {
	message := Message{
		Type:      TypeHeartbeat,
		Timestamp: time.Now(),
		Data:      json.RawMessage(`{"ping":"pong"}`),
	}

	s.broadcastToAll(&message)
}

// sendAuthResponse confirms registration to a freshly connected client
func (s *Server) sendAuthResponse(client *Client, success bool, message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"success":   success,
		"message":   message,
		"client_id": client.ID,
	})

	client.sendMessage(Message{
		Type:      TypeAuthResponse,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// SendFloorUpdate pushes the current floor state to every client. Called
// after a gesture changes the layout or a status changes.
func (s *Server) SendFloorUpdate(tables []floorplan.FloorTable) {
	data, err := json.Marshal(map[string]interface{}{
		"tables": tables,
		"time":   time.Now(),
	})
	if err != nil {
		return
	}

	s.broadcastToAll(&Message{
		Type:      TypeFloorUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// SendTableUpdate pushes a single table status change
func (s *Server) SendTableUpdate(tableID uint, status string) {
	data, _ := json.Marshal(map[string]interface{}{
		"table_id": tableID,
		"status":   status,
		"time":     time.Now(),
	})

	s.broadcastToAll(&Message{
		Type:      TypeTableUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// SendOrderNotification broadcasts an order status change
func (s *Server) SendOrderNotification(orderID uint, status string) {
	data, _ := json.Marshal(map[string]interface{}{
		"order_id": orderID,
		"status":   status,
		"time":     time.Now(),
	})

	s.broadcastToAll(&Message{
		Type:      TypeOrderUpdate,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// SendKitchenOrder sends an order to kitchen displays
func (s *Server) SendKitchenOrder(orderData interface{}) {
	data, _ := json.Marshal(orderData)

	s.broadcastToType(&Message{
		Type:      TypeKitchenOrder,
		Timestamp: time.Now(),
		Data:      data,
	}, ClientKitchen)
}

// GetConnectedClients returns the connected clients
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"type":         string(client.Type),
			"connected_at": client.ConnectedAt.Format(time.RFC3339),
			"remote_addr":  client.RemoteAddr,
		})
	}
	return clients
}

// GetServerStatus returns current server status
func (s *Server) GetServerStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[ClientType]int)
	for _, client := range s.clients {
		counts[client.Type]++
	}

	return map[string]interface{}{
		"running":         true,
		"port":            s.port,
		"total_clients":   len(s.clients),
		"floor_clients":   counts[ClientFloor],
		"kitchen_clients": counts[ClientKitchen],
		"waiter_clients":  counts[ClientWaiter],
		"pos_clients":     counts[ClientPOS],
	}
}

// GetPort returns the server port
func (s *Server) GetPort() string {
	return s.port
}

// DisconnectClient disconnects a specific client
func (s *Server) DisconnectClient(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, exists := s.clients[clientID]
	if !exists {
		return fmt.Errorf("client not found: %s", clientID)
	}

	client.Connection.Close()
	delete(s.clients, clientID)

	return nil
}
