package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"MesaApp/app/config"
	"MesaApp/app/floorplan"
	"MesaApp/app/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// SetDB overrides the database instance, used by tests
func SetDB(database *gorm.DB) {
	db = database
}

// buildDSN constructs the connection string from environment variables.
// Priority: DATABASE_URL > individual variables (DB_HOST, DB_PORT...) > defaults
func buildDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		log.Printf("Using DATABASE_URL for database connection")
		return dsn
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}
	if user == "" {
		user = "postgres"
	}
	if password == "" {
		password = "postgres"
	}
	if dbname == "" {
		dbname = "mesaapp"
	}
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	log.Printf("Built database connection from environment: host=%s port=%s dbname=%s sslmode=%s",
		host, port, dbname, sslmode)

	return dsn
}

// buildDSNFromConfig builds the DSN from config.json settings
func buildDSNFromConfig(cfg *config.AppConfig) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	log.Printf("Built database connection from config.json: host=%s port=%d dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.Database.SSLMode)

	return dsn
}

// Initialize sets up the database connection from environment variables
func Initialize() error {
	return InitializeWithConfig(nil)
}

// InitializeWithConfig sets up the database connection, preferring config.json
// settings when provided.
func InitializeWithConfig(appConfig *config.AppConfig) error {
	var err error
	var dsn string

	if appConfig != nil {
		dsn = buildDSNFromConfig(appConfig)
	} else {
		dsn = buildDSN()
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
	}

	db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := SeedInitialData(); err != nil {
		log.Printf("Warning: failed to seed initial data: %v", err)
	}

	return nil
}

// RunMigrations runs database migrations
func RunMigrations() error {
	err := db.AutoMigrate(
		// Location models
		&models.Branch{},
		&models.Sector{},
		&models.Table{},

		// Reservation models
		&models.TimeSlot{},
		&models.Reservation{},

		// Staff models
		&models.Employee{},
		&models.Session{},

		// Stock models
		&models.StockItem{},
		&models.StockMovement{},

		// Order models
		&models.Order{},
		&models.OrderItem{},

		// Sale models
		&models.CashRegister{},
		&models.CashMovement{},
		&models.Sale{},
		&models.ElectronicInvoice{},

		// Config models
		&models.SystemConfig{},
		&models.RestaurantConfig{},
		&models.AfipConfig{},
		&models.PrinterConfig{},
		&models.FloorConfig{},
	)

	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	createIndexes()

	return nil
}

// createIndexes creates database indexes for better query performance
func createIndexes() {
	// Drop the plain unique constraint on tables.number if it exists: a
	// partial index lets table numbers be reused after a soft delete
	db.Exec("DROP INDEX IF EXISTS uni_tables_number")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_tables_number_unique ON tables(branch_id, number) WHERE deleted_at IS NULL")

	// Order indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_orders_table_id ON orders(table_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)")

	// Reservation indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)")

	// Sale indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sales_cash_register_id ON sales(cash_register_id)")

	// Electronic invoice indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_electronic_invoices_status ON electronic_invoices(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_electronic_invoices_sale_id ON electronic_invoices(sale_id)")

	// Stock indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_stock_item_id ON stock_movements(stock_item_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_created_at ON stock_movements(created_at)")
}

// SeedInitialData seeds initial configuration data
func SeedInitialData() error {
	// Default branch
	var branchCount int64
	db.Model(&models.Branch{}).Count(&branchCount)
	if branchCount == 0 {
		db.Create(&models.Branch{Name: "Casa Central", IsActive: true})
	}

	var branch models.Branch
	if err := db.Order("id").First(&branch).Error; err != nil {
		return fmt.Errorf("no branch available for seeding: %w", err)
	}

	// Default sectors
	sectors := []models.Sector{
		{BranchID: branch.ID, Name: "Salón Principal", Color: "#3B82F6", IsActive: true},
		{BranchID: branch.ID, Name: "Terraza", Color: "#10B981", IsActive: true},
	}
	for _, s := range sectors {
		var count int64
		db.Model(&models.Sector{}).Where("branch_id = ? AND name = ?", branch.ID, s.Name).Count(&count)
		if count == 0 {
			db.Create(&s)
		}
	}

	// Default service windows
	timeSlots := []models.TimeSlot{
		{Name: "Mediodía", StartTime: "12:00", EndTime: "15:30", IsActive: true, DisplayOrder: 1},
		{Name: "Noche", StartTime: "20:00", EndTime: "00:30", IsActive: true, DisplayOrder: 2},
	}
	for _, ts := range timeSlots {
		var count int64
		db.Model(&models.TimeSlot{}).Where("name = ?", ts.Name).Count(&count)
		if count == 0 {
			db.Create(&ts)
		}
	}

	// Floor-plan settings with the shipped shape presets
	var floorCount int64
	db.Model(&models.FloorConfig{}).Where("branch_id = ?", branch.ID).Count(&floorCount)
	if floorCount == 0 {
		presets, err := json.Marshal(floorplan.DefaultPresets())
		if err != nil {
			return fmt.Errorf("could not serialize shape presets: %w", err)
		}
		db.Create(&models.FloorConfig{
			BranchID:     branch.ID,
			GridSize:     50,
			CanvasWidth:  1000,
			CanvasHeight: 700,
			ShapePresets: presets,
		})
	}

	// Default system config
	configs := []models.SystemConfig{
		{Key: "sync_interval", Value: "5", Type: "number", Category: "sync"},
		{Key: "retry_attempts", Value: "3", Type: "number", Category: "sync"},
		{Key: "retry_delay", Value: "30", Type: "number", Category: "sync"},
		{Key: "enable_auto_sync", Value: "true", Type: "boolean", Category: "sync"},
		{Key: "default_tax_rate", Value: "21", Type: "number", Category: "general"},
		{Key: "currency", Value: "ARS", Type: "string", Category: "general"},
		{Key: "currency_symbol", Value: "$", Type: "string", Category: "general"},
		{Key: "floor_poll_seconds", Value: "10", Type: "number", Category: "floor"},
	}
	for _, cfg := range configs {
		var count int64
		db.Model(&models.SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			db.Create(&cfg)
		}
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction
func Transaction(fn func(*gorm.DB) error) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.Transaction(fn)
}
