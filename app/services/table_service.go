package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"MesaApp/app/database"
	"MesaApp/app/floorplan"
	"MesaApp/app/models"

	"gorm.io/gorm"
)

// TableService handles table persistence. It implements floorplan.FloorStore
// so the floor controller never touches gorm directly.
type TableService struct {
	*BaseService
	localDB *database.LocalDB
}

// NewTableService creates a new table service
func NewTableService() *TableService {
	return &TableService{
		BaseService: NewBaseService(),
		localDB:     database.GetLocalDB(),
	}
}

// ListTables returns the active tables of a branch with everything the floor
// plan needs to derive status: active orders with their waiter, and upcoming
// reservations ordered so the first one is the next relevant booking.
// Results are cached locally; when the main database is unreachable the last
// snapshot is served instead so the floor keeps rendering.
func (s *TableService) ListTables(branchID uint) ([]models.Table, error) {
	if err := s.EnsureDB(); err != nil {
		return s.cachedTables(err)
	}

	today := time.Now().Format("2006-01-02")

	var tables []models.Table
	err := s.db.
		Where("branch_id = ? AND is_active = ?", branchID, true).
		Preload("Sector").
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Where("status IN ?", []string{
				string(models.OrderStatusPending),
				string(models.OrderStatusPreparing),
				string(models.OrderStatusReady),
				string(models.OrderStatusDelivered),
			})
		}).
		Preload("Orders.Waiter").
		Preload("Reservations", func(db *gorm.DB) *gorm.DB {
			// Slot ids follow display order, so this approximates
			// date-then-start-time ordering without a join
			return db.Where("reservations.status NOT IN ? AND reservations.date >= ?",
				[]string{models.ReservationCancelled, models.ReservationNoShow}, today).
				Order("reservations.date ASC, reservations.time_slot_id ASC")
		}).
		Preload("Reservations.TimeSlot").
		Order("number").
		Find(&tables).Error
	if err != nil {
		return s.cachedTables(err)
	}

	if cacheErr := s.localDB.CacheTables(tables); cacheErr != nil {
		log.Printf("Warning: failed to cache tables locally: %v", cacheErr)
	}

	return tables, nil
}

// cachedTables serves the offline snapshot, or the original error when the
// cache is empty too.
func (s *TableService) cachedTables(cause error) ([]models.Table, error) {
	cached, err := s.localDB.GetCachedTables()
	if err != nil || len(cached) == 0 {
		return nil, fmt.Errorf("failed to list tables: %w", cause)
	}
	log.Printf("Warning: serving %d tables from offline cache: %v", len(cached), cause)
	return cached, nil
}

// GetTable returns one table with its floor-plan associations
func (s *TableService) GetTable(id uint) (*models.Table, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var table models.Table
	err := s.db.
		Preload("Sector").
		Preload("Orders", "status IN ?", []string{
			string(models.OrderStatusPending),
			string(models.OrderStatusPreparing),
			string(models.OrderStatusReady),
			string(models.OrderStatusDelivered),
		}).
		Preload("Orders.Waiter").
		First(&table, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get table %d: %w", id, err)
	}
	return &table, nil
}

// CreateTable creates a new table
func (s *TableService) CreateTable(table *models.Table) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	if table.Number == "" {
		return fmt.Errorf("table number is required")
	}
	if table.Capacity <= 0 {
		table.Capacity = 4
	}

	var count int64
	s.db.Model(&models.Table{}).
		Where("branch_id = ? AND number = ?", table.BranchID, table.Number).
		Count(&count)
	if count > 0 {
		return fmt.Errorf("table number %s already exists", table.Number)
	}

	if err := s.db.Create(table).Error; err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// UpdateTableFields applies a partial update to one table
func (s *TableService) UpdateTableFields(id uint, fields map[string]interface{}) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	result := s.db.Model(&models.Table{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update table %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("table %d not found", id)
	}
	return nil
}

// SaveLayout persists a whole floor layout in one transaction: either every
// table's position lands or none does. When the main database is down the
// layout is queued locally for replay.
func (s *TableService) SaveLayout(updates []floorplan.LayoutUpdate) error {
	if err := s.EnsureDB(); err != nil {
		return s.queueLayout(updates, err)
	}

	err := s.WithTransaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			result := tx.Model(&models.Table{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
				"position_x": u.PositionX,
				"position_y": u.PositionY,
				"width":      u.Width,
				"height":     u.Height,
				"rotation":   u.Rotation,
				"shape":      string(u.Shape),
			})
			if result.Error != nil {
				return fmt.Errorf("failed to save layout for table %d: %w", u.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("table %d not found", u.ID)
			}
		}
		return nil
	})
	if err != nil {
		return s.queueLayout(updates, err)
	}
	return nil
}

// queueLayout stores the layout in the offline queue. The save still counts
// as failed for the caller so the floor stays marked dirty, but the data is
// not lost if the app closes before connectivity returns.
func (s *TableService) queueLayout(updates []floorplan.LayoutUpdate, cause error) error {
	data, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("failed to save layout: %w", cause)
	}
	key, qErr := s.localDB.QueueLayout(string(data))
	if qErr != nil {
		log.Printf("Warning: failed to queue layout offline: %v", qErr)
	} else {
		log.Printf("Layout queued offline with key %s", key)
	}
	return fmt.Errorf("failed to save layout: %w", cause)
}

// ReplayQueuedLayouts applies layout saves captured while offline, oldest
// first so the newest layout wins.
func (s *TableService) ReplayQueuedLayouts() error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	pending, err := s.localDB.GetPendingLayouts()
	if err != nil {
		return fmt.Errorf("failed to read queued layouts: %w", err)
	}

	for _, queued := range pending {
		var updates []floorplan.LayoutUpdate
		if err := json.Unmarshal([]byte(queued.LayoutData), &updates); err != nil {
			log.Printf("Warning: dropping malformed queued layout %s: %v", queued.IdempotencyKey, err)
			s.localDB.MarkLayoutSynced(queued.IdempotencyKey)
			continue
		}

		if err := s.SaveLayout(updates); err != nil {
			s.localDB.RecordSyncFailure(&database.QueuedLayout{}, "idempotency_key = ?", queued.IdempotencyKey, err)
			s.localDB.LogSync("layout", queued.ID, "update", "failed", err.Error())
			return err
		}

		if err := s.localDB.MarkLayoutSynced(queued.IdempotencyKey); err != nil {
			log.Printf("Warning: failed to mark layout %s synced: %v", queued.IdempotencyKey, err)
		}
		s.localDB.LogSync("layout", queued.ID, "update", "success", "")
	}

	return nil
}

// DeleteTable soft deletes a table. Tables with an open order cannot be
// deleted: the order would lose its seat.
func (s *TableService) DeleteTable(id uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	var activeOrders int64
	s.db.Model(&models.Order{}).
		Where("table_id = ? AND status IN ?", id, []string{
			string(models.OrderStatusPending),
			string(models.OrderStatusPreparing),
			string(models.OrderStatusReady),
			string(models.OrderStatusDelivered),
		}).
		Count(&activeOrders)
	if activeOrders > 0 {
		return fmt.Errorf("table %d has open orders", id)
	}

	result := s.db.Delete(&models.Table{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete table %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("table %d not found", id)
	}
	return nil
}

// ListSectors returns the active sectors of a branch
func (s *TableService) ListSectors(branchID uint) ([]models.Sector, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var sectors []models.Sector
	err := s.db.Where("branch_id = ? AND is_active = ?", branchID, true).
		Order("name").Find(&sectors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	return sectors, nil
}

// CreateSector creates a sector
func (s *TableService) CreateSector(sector *models.Sector) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}
	if sector.Name == "" {
		return fmt.Errorf("sector name is required")
	}
	return s.db.Create(sector).Error
}

// GetFloorConfig loads the floor-plan settings for a branch, creating the
// default row on first access.
func (s *TableService) GetFloorConfig(branchID uint) (*models.FloorConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var cfg models.FloorConfig
	err := s.db.Where("branch_id = ?", branchID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		presets, mErr := json.Marshal(floorplan.DefaultPresets())
		if mErr != nil {
			return nil, fmt.Errorf("could not serialize shape presets: %w", mErr)
		}
		cfg = models.FloorConfig{
			BranchID:     branchID,
			GridSize:     50,
			CanvasWidth:  1000,
			CanvasHeight: 700,
			ShapePresets: presets,
		}
		if err := s.db.Create(&cfg).Error; err != nil {
			return nil, fmt.Errorf("failed to create floor config: %w", err)
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load floor config: %w", err)
	}
	return &cfg, nil
}
