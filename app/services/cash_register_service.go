package services

import (
	"fmt"
	"time"

	"MesaApp/app/models"

	"gorm.io/gorm"
)

// CashRegisterService handles cash sessions and the sales closed against them
type CashRegisterService struct {
	*BaseService
}

// NewCashRegisterService creates a new cash register service
func NewCashRegisterService() *CashRegisterService {
	return &CashRegisterService{BaseService: NewBaseService()}
}

// OpenRegister opens a cash session for a branch. Only one session can be
// open per branch at a time.
func (s *CashRegisterService) OpenRegister(branchID, employeeID uint, openingBalance float64) (*models.CashRegister, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}
	if openingBalance < 0 {
		return nil, fmt.Errorf("opening balance cannot be negative")
	}

	var open int64
	s.db.Model(&models.CashRegister{}).
		Where("branch_id = ? AND status = ?", branchID, "open").
		Count(&open)
	if open > 0 {
		return nil, fmt.Errorf("a cash register is already open for this branch")
	}

	register := &models.CashRegister{
		BranchID:        branchID,
		OpenedByID:      employeeID,
		Status:          "open",
		OpeningBalance:  openingBalance,
		ExpectedBalance: openingBalance,
		OpenedAt:        time.Now(),
	}
	if err := s.db.Create(register).Error; err != nil {
		return nil, fmt.Errorf("failed to open cash register: %w", err)
	}
	return register, nil
}

// GetOpenRegister returns the open session of a branch, if any
func (s *CashRegisterService) GetOpenRegister(branchID uint) (*models.CashRegister, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var register models.CashRegister
	err := s.db.Where("branch_id = ? AND status = ?", branchID, "open").
		Preload("OpenedBy").First(&register).Error
	if err != nil {
		return nil, fmt.Errorf("no open cash register: %w", err)
	}
	return &register, nil
}

// RecordMovement adds a deposit or withdrawal to an open session
func (s *CashRegisterService) RecordMovement(registerID uint, movementType string, amount float64, description string, employeeID *uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	switch movementType {
	case "deposit", "withdrawal":
	default:
		return fmt.Errorf("invalid movement type: %s", movementType)
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		var register models.CashRegister
		if err := tx.First(&register, registerID).Error; err != nil {
			return fmt.Errorf("cash register %d not found: %w", registerID, err)
		}
		if register.Status != "open" {
			return fmt.Errorf("cash register %d is closed", registerID)
		}

		movement := models.CashMovement{
			CashRegisterID: registerID,
			Type:           movementType,
			Amount:         amount,
			Description:    description,
			EmployeeID:     employeeID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record cash movement: %w", err)
		}

		delta := amount
		if movementType == "withdrawal" {
			delta = -amount
		}
		return tx.Model(&register).
			Update("expected_balance", register.ExpectedBalance+delta).Error
	})
}

// CloseOrder turns a delivered order into a sale on the open register. The
// order, the sale and the register balance move in one transaction.
func (s *CashRegisterService) CloseOrder(orderID, registerID, employeeID uint) (*models.Sale, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var sale *models.Sale
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return fmt.Errorf("order %d not found: %w", orderID, err)
		}
		if !order.Status.Active() {
			return fmt.Errorf("order %s is already closed", order.OrderNumber)
		}

		var register models.CashRegister
		if err := tx.First(&register, registerID).Error; err != nil {
			return fmt.Errorf("cash register %d not found: %w", registerID, err)
		}
		if register.Status != "open" {
			return fmt.Errorf("cash register %d is closed", registerID)
		}

		number, err := s.nextSaleNumber(tx)
		if err != nil {
			return err
		}

		sale = &models.Sale{
			SaleNumber:     number,
			BranchID:       order.BranchID,
			OrderID:        order.ID,
			CashRegisterID: register.ID,
			EmployeeID:     employeeID,
			Subtotal:       order.Subtotal,
			Tax:            order.Tax,
			Discount:       order.Discount,
			Total:          order.Total,
			Status:         "completed",
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"sale_id": sale.ID,
		}).Error; err != nil {
			return fmt.Errorf("failed to close order: %w", err)
		}

		movement := models.CashMovement{
			CashRegisterID: register.ID,
			Type:           "sale",
			Amount:         order.Total,
			Description:    order.OrderNumber,
			EmployeeID:     &employeeID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record sale movement: %w", err)
		}

		return tx.Model(&register).
			Update("expected_balance", register.ExpectedBalance+order.Total).Error
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// nextSaleNumber builds a daily sequential sale number (VTA-20260830-0001)
func (s *CashRegisterService) nextSaleNumber(tx *gorm.DB) (string, error) {
	today := time.Now().Format("20060102")

	var count int64
	err := tx.Model(&models.Sale{}).Unscoped().
		Where("sale_number LIKE ?", fmt.Sprintf("VTA-%s-%%", today)).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("failed to generate sale number: %w", err)
	}

	return fmt.Sprintf("VTA-%s-%04d", today, count+1), nil
}

// CloseRegister closes the session, recording the counted balance and the
// difference against the expected one.
func (s *CashRegisterService) CloseRegister(registerID uint, closingBalance float64, notes string) (*models.CashRegister, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var register models.CashRegister
	err := s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.First(&register, registerID).Error; err != nil {
			return fmt.Errorf("cash register %d not found: %w", registerID, err)
		}
		if register.Status != "open" {
			return fmt.Errorf("cash register %d is already closed", registerID)
		}

		now := time.Now()
		register.Status = "closed"
		register.ClosingBalance = closingBalance
		register.Difference = closingBalance - register.ExpectedBalance
		register.Notes = notes
		register.ClosedAt = &now

		return tx.Save(&register).Error
	})
	if err != nil {
		return nil, err
	}
	return &register, nil
}

// GetRegisterSummary returns the movements of a session grouped by type
func (s *CashRegisterService) GetRegisterSummary(registerID uint) (map[string]float64, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var movements []models.CashMovement
	if err := s.db.Where("cash_register_id = ?", registerID).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to load cash movements: %w", err)
	}

	summary := make(map[string]float64)
	for _, m := range movements {
		summary[m.Type] += m.Amount
	}
	return summary, nil
}
