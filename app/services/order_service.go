package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"MesaApp/app/database"
	"MesaApp/app/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService handles dine-in comandas
type OrderService struct {
	*BaseService
	localDB *database.LocalDB
}

// NewOrderService creates a new order service
func NewOrderService() *OrderService {
	return &OrderService{
		BaseService: NewBaseService(),
		localDB:     database.GetLocalDB(),
	}
}

// CreateOrder creates an order with its items, deducting stock for every
// tracked item in the same transaction. Table status is not written here:
// the floor derives occupancy from the live order itself. When the main
// database is down the order is queued locally under a provisional number
// and replayed later; the caller still gets the error so it can warn.
func (s *OrderService) CreateOrder(order *models.Order, items []models.OrderItem) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	if len(items) == 0 {
		return fmt.Errorf("order must have at least one item")
	}
	if order.PartySize <= 0 {
		order.PartySize = 1
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.Source == "" {
		order.Source = "pos"
	}

	if err := s.createOrder(order, items); err != nil {
		if s.localDB != nil && s.localDB.IsOfflineMode() {
			s.queueOffline(order, items)
		}
		return err
	}
	return nil
}

func (s *OrderService) createOrder(order *models.Order, items []models.OrderItem) error {
	return s.WithTransaction(func(tx *gorm.DB) error {
		if order.TableID != nil {
			var table models.Table
			if err := tx.First(&table, *order.TableID).Error; err != nil {
				return fmt.Errorf("table %d not found: %w", *order.TableID, err)
			}
		}

		number, err := s.nextOrderNumber(tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		var subtotal float64
		for i := range items {
			if items[i].Quantity <= 0 {
				return fmt.Errorf("item %s has invalid quantity", items[i].Name)
			}
			items[i].Subtotal = items[i].UnitPrice * float64(items[i].Quantity)
			subtotal += items[i].Subtotal
		}
		order.Subtotal = subtotal
		order.Total = subtotal - order.Discount + order.Tax

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
			if items[i].Status == "" {
				items[i].Status = "pending"
			}
			if err := tx.Create(&items[i]).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			if err := s.deductStock(tx, &items[i], order); err != nil {
				return err
			}
		}
		order.Items = items

		return nil
	})
}

// queueOffline stores the order locally under a provisional number so it
// can be replayed when the main database returns.
func (s *OrderService) queueOffline(order *models.Order, items []models.OrderItem) {
	queued := *order
	queued.OrderNumber = "OFF-" + uuid.NewString()[:8]
	queued.Items = items

	if err := s.localDB.QueueOrder(&queued); err != nil {
		log.Printf("Orders: failed to queue order offline: %v", err)
		return
	}
	log.Printf("Orders: queued offline as %s", queued.OrderNumber)
}

// ReplayQueuedOrders recreates orders captured while offline. Each replayed
// order gets a real sequential number; the provisional one only identifies
// the queue row.
func (s *OrderService) ReplayQueuedOrders() error {
	if s.localDB == nil {
		return nil
	}

	pending, err := s.localDB.GetPendingOrders()
	if err != nil {
		return fmt.Errorf("failed to load queued orders: %w", err)
	}

	for _, q := range pending {
		var order models.Order
		if err := json.Unmarshal([]byte(q.OrderData), &order); err != nil {
			log.Printf("Orders: dropping malformed queued order %s: %v", q.OrderNumber, err)
			s.localDB.MarkOrderSynced(q.OrderNumber)
			continue
		}

		items := order.Items
		order.Items = nil
		order.ID = 0
		order.OrderNumber = ""
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = 0
		}

		if err := s.createOrder(&order, items); err != nil {
			if strings.Contains(err.Error(), "not found") {
				// Table or stock item deleted while offline, drop it
				log.Printf("Orders: dropping stale queued order %s: %v", q.OrderNumber, err)
				s.localDB.MarkOrderSynced(q.OrderNumber)
				continue
			}
			s.localDB.RecordSyncFailure(&database.QueuedOrder{}, "order_number = ?", q.OrderNumber, err)
			return fmt.Errorf("order replay stopped at %s: %w", q.OrderNumber, err)
		}

		if err := s.localDB.MarkOrderSynced(q.OrderNumber); err != nil {
			log.Printf("Orders: could not mark %s synced: %v", q.OrderNumber, err)
		}
		s.localDB.LogSync("order", order.ID, "create", "success", "")
	}
	return nil
}

// deductStock lowers the stock of a tracked item and records the movement
func (s *OrderService) deductStock(tx *gorm.DB, item *models.OrderItem, order *models.Order) error {
	if item.StockItemID == nil {
		return nil
	}

	var stock models.StockItem
	if err := tx.First(&stock, *item.StockItemID).Error; err != nil {
		return fmt.Errorf("stock item %d not found: %w", *item.StockItemID, err)
	}
	if !stock.TrackStock {
		return nil
	}

	previous := stock.Quantity
	newQty := previous - float64(item.Quantity)

	if err := tx.Model(&stock).Update("quantity", newQty).Error; err != nil {
		return fmt.Errorf("failed to update stock for %s: %w", stock.Name, err)
	}

	return CreateStockMovement(tx, stock.ID, "sale", float64(item.Quantity),
		previous, newQty, order.OrderNumber, order.WaiterID)
}

// nextOrderNumber builds a daily sequential order number (ORD-20260830-0001)
func (s *OrderService) nextOrderNumber(tx *gorm.DB) (string, error) {
	today := time.Now().Format("20060102")

	var count int64
	err := tx.Model(&models.Order{}).Unscoped().
		Where("order_number LIKE ?", fmt.Sprintf("ORD-%s-%%", today)).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%04d", today, count+1), nil
}

// GetOrder returns one order with its items and waiter
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.Preload("Items").Preload("Waiter").Preload("Table").First(&order, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

// GetActiveOrders returns the orders currently holding tables
func (s *OrderService) GetActiveOrders(branchID uint) ([]models.Order, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := s.db.
		Where("branch_id = ? AND status IN ?", branchID, []string{
			string(models.OrderStatusPending),
			string(models.OrderStatusPreparing),
			string(models.OrderStatusReady),
			string(models.OrderStatusDelivered),
		}).
		Preload("Items").
		Preload("Waiter").
		Preload("Table").
		Order("created_at").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	return orders, nil
}

// AddItems appends items to an open order, updating totals and stock
func (s *OrderService) AddItems(orderID uint, items []models.OrderItem) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no items to add")
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return fmt.Errorf("failed to get order %d: %w", orderID, err)
		}
		if !order.Status.Active() {
			return fmt.Errorf("order %s is closed", order.OrderNumber)
		}

		var added float64
		for i := range items {
			if items[i].Quantity <= 0 {
				return fmt.Errorf("item %s has invalid quantity", items[i].Name)
			}
			items[i].OrderID = order.ID
			items[i].Subtotal = items[i].UnitPrice * float64(items[i].Quantity)
			if items[i].Status == "" {
				items[i].Status = "pending"
			}
			added += items[i].Subtotal

			if err := tx.Create(&items[i]).Error; err != nil {
				return fmt.Errorf("failed to add order item: %w", err)
			}
			if err := s.deductStock(tx, &items[i], &order); err != nil {
				return err
			}
		}

		return tx.Model(&order).Updates(map[string]interface{}{
			"subtotal": order.Subtotal + added,
			"total":    order.Total + added,
		}).Error
	})
}

// MarkItemsSent flags pending items as dispatched to the kitchen
func (s *OrderService) MarkItemsSent(orderID uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	now := time.Now()
	return s.db.Model(&models.OrderItem{}).
		Where("order_id = ? AND sent_to_kitchen = ?", orderID, false).
		Updates(map[string]interface{}{
			"sent_to_kitchen":    true,
			"sent_to_kitchen_at": &now,
		}).Error
}

// UpdateOrderStatus moves an order through the kitchen lifecycle
func (s *OrderService) UpdateOrderStatus(id uint, status models.OrderStatus) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	switch status {
	case models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady,
		models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusPaid:
	default:
		return fmt.Errorf("invalid order status: %s", status)
	}

	result := s.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update order %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %d not found", id)
	}
	return nil
}

// CancelOrder cancels an open order and returns tracked stock
func (s *OrderService) CancelOrder(id uint, employeeID *uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			return fmt.Errorf("failed to get order %d: %w", id, err)
		}
		if !order.Status.Active() {
			return fmt.Errorf("order %s is already closed", order.OrderNumber)
		}

		for _, item := range order.Items {
			if item.StockItemID == nil {
				continue
			}
			var stock models.StockItem
			if err := tx.First(&stock, *item.StockItemID).Error; err != nil {
				continue // stock item deleted since ordering
			}
			if !stock.TrackStock {
				continue
			}
			previous := stock.Quantity
			newQty := previous + float64(item.Quantity)
			if err := tx.Model(&stock).Update("quantity", newQty).Error; err != nil {
				return fmt.Errorf("failed to restock %s: %w", stock.Name, err)
			}
			if err := CreateStockMovement(tx, stock.ID, "adjustment", float64(item.Quantity),
				previous, newQty, order.OrderNumber+"-cancel", employeeID); err != nil {
				return err
			}
		}

		return tx.Model(&order).Update("status", models.OrderStatusCancelled).Error
	})
}
