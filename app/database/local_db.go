package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MesaApp/app/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LocalDB manages the local SQLite database used when the branch loses its
// connection to Postgres: the floor keeps working against cached tables and
// queued writes replay once the main database is reachable again.
type LocalDB struct {
	db          *gorm.DB
	isConnected bool
	dbPath      string
}

var localDB *LocalDB

// InitializeLocalDB initializes the local SQLite database
func InitializeLocalDB(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// CGO-free driver
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to local database: %w", err)
	}

	localDB = &LocalDB{
		db:          db,
		isConnected: true,
		dbPath:      dbPath,
	}

	if err := localDB.runMigrations(); err != nil {
		return fmt.Errorf("failed to run local migrations: %w", err)
	}

	return nil
}

// GetLocalDB returns the local database instance
func GetLocalDB() *LocalDB {
	if localDB == nil {
		InitializeLocalDB("./data/local.db")
	}
	return localDB
}

func (l *LocalDB) runMigrations() error {
	return l.db.AutoMigrate(
		// Queued writes waiting for the main database
		&QueuedLayout{},
		&QueuedOrder{},
		&QueuedInvoice{},

		// Cached reads
		&LocalTable{},
		&LocalReservation{},

		// Sync bookkeeping
		&SyncStatus{},
		&SyncLog{},
	)
}

// LocalTable caches one table row as JSON for offline floor rendering
type LocalTable struct {
	ID         uint      `gorm:"primaryKey"`
	TableData  string    `json:"table_data"`
	LastSynced time.Time `json:"last_synced"`
}

// LocalReservation caches today's reservations for offline status derivation
type LocalReservation struct {
	ID              uint      `gorm:"primaryKey"`
	ReservationData string    `json:"reservation_data"`
	LastSynced      time.Time `json:"last_synced"`
}

// QueuedLayout is a floor layout save captured while offline. The
// idempotency key dedupes replays: saving twice offline and syncing once
// must not apply a stale layout over a newer one.
type QueuedLayout struct {
	ID             uint      `gorm:"primaryKey"`
	IdempotencyKey string    `gorm:"unique" json:"idempotency_key"`
	LayoutData     string    `json:"layout_data"` // JSON []LayoutUpdate
	IsSynced       bool      `json:"is_synced"`
	SyncAttempts   int       `json:"sync_attempts"`
	LastError      string    `json:"last_error"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QueuedOrder is an order captured while offline
type QueuedOrder struct {
	ID           uint      `gorm:"primaryKey"`
	OrderNumber  string    `gorm:"unique"`
	OrderData    string    `json:"order_data"`
	Status       string    `json:"status"`
	IsSynced     bool      `json:"is_synced"`
	SyncAttempts int       `json:"sync_attempts"`
	LastError    string    `json:"last_error"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueuedInvoice is a fiscal invoice request captured while the bridge or the
// main database was unreachable.
type QueuedInvoice struct {
	ID           uint      `gorm:"primaryKey"`
	SaleNumber   string    `gorm:"unique"`
	InvoiceData  string    `json:"invoice_data"`
	IsSynced     bool      `json:"is_synced"`
	SyncAttempts int       `json:"sync_attempts"`
	LastError    string    `json:"last_error"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SyncStatus tracks synchronization status
type SyncStatus struct {
	ID              uint       `gorm:"primaryKey"`
	LastSyncAt      *time.Time `json:"last_sync_at"`
	Status          string     `json:"status"` // "syncing", "completed", "failed"
	PendingLayouts  int        `json:"pending_layouts"`
	PendingOrders   int        `json:"pending_orders"`
	PendingInvoices int        `json:"pending_invoices"`
	LastError       string     `json:"last_error"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SyncLog tracks synchronization history
type SyncLog struct {
	ID         uint      `gorm:"primaryKey"`
	EntityType string    `json:"entity_type"` // "layout", "order", "invoice"
	EntityID   uint      `json:"entity_id"`
	Action     string    `json:"action"` // "create", "update", "delete"
	Status     string    `json:"status"` // "success", "failed"
	Error      string    `json:"error"`
	SyncedAt   time.Time `json:"synced_at"`
}

// CacheTables stores a snapshot of the branch tables for offline use
func (l *LocalDB) CacheTables(tables []models.Table) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&LocalTable{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for i := range tables {
			data, err := json.Marshal(&tables[i])
			if err != nil {
				return err
			}
			row := LocalTable{ID: tables[i].ID, TableData: string(data), LastSynced: now}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCachedTables returns the last cached table snapshot
func (l *LocalDB) GetCachedTables() ([]models.Table, error) {
	var rows []LocalTable
	if err := l.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	tables := make([]models.Table, 0, len(rows))
	for _, row := range rows {
		var t models.Table
		if err := json.Unmarshal([]byte(row.TableData), &t); err != nil {
			continue // skip rows cached by an older build
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// QueueLayout stores a layout save for later replay and returns its
// idempotency key.
func (l *LocalDB) QueueLayout(layoutJSON string) (string, error) {
	key := uuid.NewString()
	queued := QueuedLayout{
		IdempotencyKey: key,
		LayoutData:     layoutJSON,
		IsSynced:       false,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := l.db.Create(&queued).Error; err != nil {
		return "", err
	}
	return key, nil
}

// GetPendingLayouts gets layout saves pending sync, oldest first
func (l *LocalDB) GetPendingLayouts() ([]QueuedLayout, error) {
	var layouts []QueuedLayout
	err := l.db.Where("is_synced = ? AND sync_attempts < ?", false, 3).
		Order("created_at").Find(&layouts).Error
	return layouts, err
}

// MarkLayoutSynced marks a queued layout as replayed
func (l *LocalDB) MarkLayoutSynced(idempotencyKey string) error {
	return l.db.Model(&QueuedLayout{}).
		Where("idempotency_key = ?", idempotencyKey).
		Update("is_synced", true).Error
}

// QueueOrder saves an order locally while offline
func (l *LocalDB) QueueOrder(order *models.Order) error {
	orderJSON, err := json.Marshal(order)
	if err != nil {
		return err
	}

	queued := QueuedOrder{
		OrderNumber: order.OrderNumber,
		OrderData:   string(orderJSON),
		Status:      string(order.Status),
		IsSynced:    false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	return l.db.Create(&queued).Error
}

// GetPendingOrders gets orders pending sync
func (l *LocalDB) GetPendingOrders() ([]QueuedOrder, error) {
	var orders []QueuedOrder
	err := l.db.Where("is_synced = ? AND sync_attempts < ?", false, 3).Find(&orders).Error
	return orders, err
}

// MarkOrderSynced marks an order as synced
func (l *LocalDB) MarkOrderSynced(orderNumber string) error {
	return l.db.Model(&QueuedOrder{}).Where("order_number = ?", orderNumber).Update("is_synced", true).Error
}

// QueueInvoice stores an invoice request for later submission
func (l *LocalDB) QueueInvoice(saleNumber string, invoiceJSON string) error {
	queued := QueuedInvoice{
		SaleNumber:  saleNumber,
		InvoiceData: invoiceJSON,
		IsSynced:    false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	return l.db.Create(&queued).Error
}

// GetPendingInvoices gets invoices pending submission
func (l *LocalDB) GetPendingInvoices() ([]QueuedInvoice, error) {
	var invoices []QueuedInvoice
	err := l.db.Where("is_synced = ? AND sync_attempts < ?", false, 3).Find(&invoices).Error
	return invoices, err
}

// MarkInvoiceSynced marks an invoice as submitted
func (l *LocalDB) MarkInvoiceSynced(saleNumber string) error {
	return l.db.Model(&QueuedInvoice{}).Where("sale_number = ?", saleNumber).Update("is_synced", true).Error
}

// RecordSyncFailure bumps the attempt counter on a queued entity
func (l *LocalDB) RecordSyncFailure(model interface{}, where string, arg interface{}, syncErr error) {
	l.db.Model(model).Where(where, arg).Updates(map[string]interface{}{
		"sync_attempts": gorm.Expr("sync_attempts + 1"),
		"last_error":    syncErr.Error(),
		"updated_at":    time.Now(),
	})
}

// UpdateSyncStatus updates sync status
func (l *LocalDB) UpdateSyncStatus(status string, lastError string) error {
	var syncStatus SyncStatus
	l.db.FirstOrCreate(&syncStatus)

	now := time.Now()
	syncStatus.LastSyncAt = &now
	syncStatus.Status = status
	syncStatus.LastError = lastError
	syncStatus.UpdatedAt = now

	var pendingLayouts, pendingOrders, pendingInvoices int64
	l.db.Model(&QueuedLayout{}).Where("is_synced = ?", false).Count(&pendingLayouts)
	l.db.Model(&QueuedOrder{}).Where("is_synced = ?", false).Count(&pendingOrders)
	l.db.Model(&QueuedInvoice{}).Where("is_synced = ?", false).Count(&pendingInvoices)

	syncStatus.PendingLayouts = int(pendingLayouts)
	syncStatus.PendingOrders = int(pendingOrders)
	syncStatus.PendingInvoices = int(pendingInvoices)

	return l.db.Save(&syncStatus).Error
}

// GetSyncStatus gets current sync status
func (l *LocalDB) GetSyncStatus() (*SyncStatus, error) {
	var status SyncStatus
	err := l.db.FirstOrCreate(&status).Error
	return &status, err
}

// LogSync logs a sync operation
func (l *LocalDB) LogSync(entityType string, entityID uint, action string, status string, errMsg string) {
	entry := SyncLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Status:     status,
		Error:      errMsg,
		SyncedAt:   time.Now(),
	}
	l.db.Create(&entry)
}

// ClearSyncedData removes synced data older than the given number of days
func (l *LocalDB) ClearSyncedData(daysOld int) error {
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	if err := l.db.Where("is_synced = ? AND updated_at < ?", true, cutoff).Delete(&QueuedLayout{}).Error; err != nil {
		return err
	}
	if err := l.db.Where("is_synced = ? AND updated_at < ?", true, cutoff).Delete(&QueuedOrder{}).Error; err != nil {
		return err
	}
	if err := l.db.Where("is_synced = ? AND updated_at < ?", true, cutoff).Delete(&QueuedInvoice{}).Error; err != nil {
		return err
	}
	return l.db.Where("synced_at < ?", cutoff).Delete(&SyncLog{}).Error
}

// IsOfflineMode checks whether the main database is reachable
func (l *LocalDB) IsOfflineMode() bool {
	mainDB := GetDB()
	if mainDB == nil {
		return true
	}

	var count int64
	if err := mainDB.Model(&models.SystemConfig{}).Count(&count).Error; err != nil {
		return true
	}
	return false
}

// GetDB returns the underlying database connection
func (l *LocalDB) GetDB() *gorm.DB {
	return l.db
}

// Transaction executes a function within a local database transaction
func (l *LocalDB) Transaction(fn func(*gorm.DB) error) error {
	return l.db.Transaction(fn)
}

// Close closes the local database connection
func (l *LocalDB) Close() error {
	if l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
