package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"MesaApp/app/config"
	"MesaApp/app/database"
	"MesaApp/app/floorplan"
	"MesaApp/app/services"
	"MesaApp/app/websocket"

	"github.com/joho/godotenv"
)

// App wires the services together
type App struct {
	LoggerService       *services.LoggerService
	TableService        *services.TableService
	ReservationService  *services.ReservationService
	OrderService        *services.OrderService
	StockService        *services.StockService
	CashRegisterService *services.CashRegisterService
	EmployeeService     *services.EmployeeService
	AfipService         *services.AfipService
	PrinterService      *services.PrinterService
	Floor               *floorplan.Controller
	WSServer            *websocket.Server

	afipStop chan struct{}
}

// loadOrCreateConfig returns the stored configuration, creating the default
// one on first run.
func loadOrCreateConfig(logger *services.LoggerService) (*config.AppConfig, error) {
	exists, err := config.ConfigExists()
	if err != nil {
		return nil, fmt.Errorf("could not check config: %w", err)
	}
	if !exists {
		logger.LogInfo("First run detected, creating default configuration")
		return config.CreateDefaultConfig()
	}
	return config.LoadConfig()
}

// initFloor builds the floor controller from the branch's stored settings
func (a *App) initFloor(branchID uint) error {
	floorCfg, err := a.TableService.GetFloorConfig(branchID)
	if err != nil {
		return fmt.Errorf("could not load floor config: %w", err)
	}

	a.Floor = floorplan.NewController(a.TableService, floorplan.Config{
		BranchID:     branchID,
		GridSize:     floorCfg.GridSize,
		CanvasWidth:  floorCfg.CanvasWidth,
		CanvasHeight: floorCfg.CanvasHeight,
		Presets:      floorplan.ParsePresets(floorCfg.ShapePresets),
	})

	if err := a.Floor.Refresh(); err != nil {
		// Offline start: the cached snapshot may be empty, keep going
		a.LoggerService.LogWarning("Initial floor load failed", err.Error())
	}
	return nil
}

// startServer configures and launches the WebSocket/REST server
func (a *App) startServer() {
	wsPort := os.Getenv("WS_PORT")
	if wsPort == "" {
		wsPort = "8080"
	}

	a.WSServer = websocket.NewServer(":" + wsPort)
	a.WSServer.SetOrderService(a.OrderService)
	a.WSServer.SetReservationService(a.ReservationService)
	a.WSServer.SetAuthenticator(a.EmployeeService)
	a.WSServer.SetPrinterService(a.PrinterService)
	a.WSServer.SetCashRegisterService(a.CashRegisterService)
	a.WSServer.SetInvoiceService(a.AfipService)
	a.WSServer.SetStockService(a.StockService)
	a.WSServer.SetFloorController(a.Floor)
	a.WSServer.SetDB(database.GetDB())

	a.LoggerService.LogInfo("Starting server", "Port: "+wsPort)
	go func() {
		defer a.LoggerService.RecoverPanic()
		if err := a.WSServer.Start(); err != nil {
			a.LoggerService.LogError("Server error", err)
		}
	}()
}

// startWorkers launches the background loops: invoice retries, queued layout
// replay, session cleanup and the floor poll that re-derives table statuses
// as reservations enter and leave their windows.
func (a *App) startWorkers() {
	a.afipStop = make(chan struct{})
	a.AfipService.StartRetryWorker(2*time.Minute, a.afipStop)

	go func() {
		defer a.LoggerService.RecoverPanic()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if err := a.TableService.ReplayQueuedLayouts(); err != nil {
				a.LoggerService.LogWarning("Layout replay failed", err.Error())
			}
			if err := a.OrderService.ReplayQueuedOrders(); err != nil {
				a.LoggerService.LogWarning("Order replay failed", err.Error())
			}
		}
	}()

	go func() {
		defer a.LoggerService.RecoverPanic()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := a.EmployeeService.CleanExpiredSessions(); err != nil {
				a.LoggerService.LogWarning("Session cleanup failed", err.Error())
			}
		}
	}()

	go func() {
		defer a.LoggerService.RecoverPanic()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := a.Floor.Refresh(); err != nil {
				continue
			}
			a.WSServer.SendFloorUpdate(a.Floor.Tables())
		}
	}()
}

// shutdown stops workers and closes connections
func (a *App) shutdown() {
	a.LoggerService.LogInfo("Shutting down")

	if a.afipStop != nil {
		close(a.afipStop)
	}
	if a.WSServer != nil {
		a.WSServer.Stop()
	}
	if localDB := database.GetLocalDB(); localDB != nil {
		if err := localDB.Close(); err != nil {
			a.LoggerService.LogWarning("Error closing local database", err.Error())
		}
	}
	if err := database.Close(); err != nil {
		a.LoggerService.LogError("Error closing database", err)
	}

	a.LoggerService.LogInfo("Shutdown complete")
}

func main() {
	// Initialize logger FIRST to catch all errors
	loggerService := services.NewLoggerService()
	if loggerService == nil {
		fmt.Println("CRITICAL: Logger service failed to initialize")
		os.Exit(1)
	}
	defer loggerService.Close()

	defer func() {
		if r := recover(); r != nil {
			loggerService.LogPanic(r)
			os.Exit(1)
		}
	}()

	loggerService.LogInfo("Application starting", "MesaApp restaurant floor server")

	// Load environment variables from .env file (for development)
	if err := godotenv.Load(".env"); err != nil {
		loggerService.LogWarning(".env file not found, using config.json and defaults")
	}

	cfg, err := loadOrCreateConfig(loggerService)
	if err != nil {
		loggerService.LogFatal("Could not load configuration", err)
	}

	if err := database.InitializeWithConfig(cfg); err != nil {
		loggerService.LogFatal("Failed to initialize database", err)
	}

	dataPath := cfg.System.DataPath
	if dataPath == "" {
		if configPath, perr := config.GetConfigPath(); perr == nil {
			dataPath = filepath.Dir(configPath)
		}
	}
	if err := database.InitializeLocalDB(filepath.Join(dataPath, "local.db")); err != nil {
		loggerService.LogFatal("Failed to initialize local database", err)
	}

	app := &App{
		LoggerService:       loggerService,
		TableService:        services.NewTableService(),
		ReservationService:  services.NewReservationService(),
		OrderService:        services.NewOrderService(),
		StockService:        services.NewStockService(),
		CashRegisterService: services.NewCashRegisterService(),
		EmployeeService:     services.NewEmployeeService(),
		AfipService:         services.NewAfipService(loggerService),
	}
	app.PrinterService = services.NewPrinterService(loggerService)

	branchID := cfg.System.BranchID
	if branchID == 0 {
		branchID = 1
	}

	if err := app.initFloor(branchID); err != nil {
		loggerService.LogFatal("Failed to initialize floor plan", err)
	}

	// Flush anything queued while the server was down
	if err := app.TableService.ReplayQueuedLayouts(); err != nil {
		loggerService.LogWarning("Queued layout replay failed", err.Error())
	}

	app.startServer()
	app.startWorkers()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.shutdown()
}
