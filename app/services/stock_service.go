package services

import (
	"fmt"

	"MesaApp/app/models"

	"gorm.io/gorm"
)

// StockService handles stock items and quantity movements
type StockService struct {
	*BaseService
}

// NewStockService creates a new stock service
func NewStockService() *StockService {
	return &StockService{BaseService: NewBaseService()}
}

// ListStockItems returns the active stock items of a branch
func (s *StockService) ListStockItems(branchID uint) ([]models.StockItem, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var items []models.StockItem
	err := s.db.Where("branch_id = ? AND is_active = ?", branchID, true).
		Order("name").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	return items, nil
}

// GetStockItem returns one stock item
func (s *StockService) GetStockItem(id uint) (*models.StockItem, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var item models.StockItem
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get stock item %d: %w", id, err)
	}
	return &item, nil
}

// CreateStockItem creates a stock item
func (s *StockService) CreateStockItem(item *models.StockItem) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if item.Name == "" {
		return fmt.Errorf("stock item name is required")
	}
	if item.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if err := s.db.Create(item).Error; err != nil {
		return fmt.Errorf("failed to create stock item: %w", err)
	}
	return nil
}

// UpdateStockItem updates a stock item's base fields. Quantity changes go
// through AdjustQuantity so every change has a movement record.
func (s *StockService) UpdateStockItem(id uint, fields map[string]interface{}) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	delete(fields, "quantity")

	result := s.db.Model(&models.StockItem{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update stock item %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("stock item %d not found", id)
	}
	return nil
}

// AdjustQuantity applies a manual quantity change (purchase, adjustment,
// waste) and records the movement in the same transaction.
func (s *StockService) AdjustQuantity(id uint, delta float64, movementType, reference string, employeeID *uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	switch movementType {
	case "purchase", "adjustment", "waste":
	default:
		return fmt.Errorf("invalid movement type: %s", movementType)
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var item models.StockItem
		if err := tx.First(&item, id).Error; err != nil {
			return fmt.Errorf("stock item %d not found: %w", id, err)
		}

		previous := item.Quantity
		newQty := previous + delta
		if newQty < 0 {
			return fmt.Errorf("quantity of %s cannot go below zero", item.Name)
		}

		if err := tx.Model(&item).Update("quantity", newQty).Error; err != nil {
			return fmt.Errorf("failed to adjust quantity: %w", err)
		}

		return CreateStockMovement(tx, item.ID, movementType, delta, previous, newQty, reference, employeeID)
	})
}

// LowStockItems returns tracked items at or below their alert threshold
func (s *StockService) LowStockItems(branchID uint) ([]models.StockItem, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var items []models.StockItem
	err := s.db.
		Where("branch_id = ? AND is_active = ? AND track_stock = ? AND quantity <= min_quantity",
			branchID, true, true).
		Order("quantity").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock items: %w", err)
	}
	return items, nil
}

// ListMovements returns the recent movements of one stock item
func (s *StockService) ListMovements(stockItemID uint, limit int) ([]models.StockMovement, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var movements []models.StockMovement
	err := s.db.Where("stock_item_id = ?", stockItemID).
		Order("created_at DESC").Limit(limit).Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}
