package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"MesaApp/app/security"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Database DatabaseConfig `json:"database"`

	// ARCA (ex AFIP) electronic invoicing bridge
	Afip AfipConfig `json:"afip"`

	Business BusinessConfig `json:"business"`

	System SystemConfig `json:"system"`

	FirstRun bool `json:"first_run"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}

// AfipConfig holds the invoicing bridge settings. The bridge holds the
// fiscal certificates and talks WSFE; this app only needs its URL and token.
type AfipConfig struct {
	BridgeURL   string `json:"bridge_url"`
	BridgeToken string `json:"bridge_token"`
	PointOfSale int    `json:"point_of_sale"`
	TestMode    bool   `json:"test_mode"`
}

// BusinessConfig holds business information
type BusinessConfig struct {
	Name        string `json:"name"`
	LegalName   string `json:"legal_name"`
	CUIT        string `json:"cuit"`
	GrossIncome string `json:"gross_income"` // IIBB registration
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// SystemConfig holds system settings
type SystemConfig struct {
	DataPath    string `json:"data_path"`
	PrinterName string `json:"printer_name"`
	Language    string `json:"language"`
	BranchID    uint   `json:"branch_id"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}

	configDir := filepath.Join(base, "MesaApp")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads configuration from config.json and decrypts sensitive fields
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	if err := cfg.decryptSensitiveFields(); err != nil {
		return nil, fmt.Errorf("could not decrypt sensitive fields: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to config.json after encrypting sensitive fields
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Encrypt a copy so the caller keeps plaintext values in memory
	cfgCopy := *cfg
	if err := cfgCopy.encryptSensitiveFields(); err != nil {
		return fmt.Errorf("could not encrypt sensitive fields: %w", err)
	}

	data, err := json.MarshalIndent(&cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

// ConfigExists checks if config file exists
func ConfigExists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// CreateDefaultConfig creates a default configuration file
func CreateDefaultConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "mesa_app_db",
			Username: "postgres",
			Password: "",
			SSLMode:  "disable",
		},
		Afip: AfipConfig{
			BridgeURL:   "",
			BridgeToken: "",
			PointOfSale: 1,
			TestMode:    true,
		},
		Business: BusinessConfig{
			Name: "Mi Restaurante",
		},
		System: SystemConfig{
			Language: "es",
			BranchID: 1,
		},
		FirstRun: true,
	}

	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MarkSetupComplete marks the first run as complete
func MarkSetupComplete() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	cfg.FirstRun = false
	return SaveConfig(cfg)
}

// encryptSensitiveFields encrypts credentials before they hit disk
func (cfg *AppConfig) encryptSensitiveFields() error {
	var err error

	if cfg.Database.Password != "" {
		cfg.Database.Password, err = security.Encrypt(cfg.Database.Password)
		if err != nil {
			return fmt.Errorf("could not encrypt database password: %w", err)
		}
	}

	if cfg.Afip.BridgeToken != "" {
		cfg.Afip.BridgeToken, err = security.Encrypt(cfg.Afip.BridgeToken)
		if err != nil {
			return fmt.Errorf("could not encrypt bridge token: %w", err)
		}
	}

	return nil
}

// decryptSensitiveFields decrypts credentials after loading. A field that
// fails to decrypt is left as-is: development configs store plaintext.
func (cfg *AppConfig) decryptSensitiveFields() error {
	if cfg.Database.Password != "" {
		if decrypted, err := security.Decrypt(cfg.Database.Password); err == nil {
			cfg.Database.Password = decrypted
		}
	}

	if cfg.Afip.BridgeToken != "" {
		if decrypted, err := security.Decrypt(cfg.Afip.BridgeToken); err == nil {
			cfg.Afip.BridgeToken = decrypted
		}
	}

	return nil
}
