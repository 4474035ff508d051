package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Backend names for the remote row store.
const (
	BackendSheets = "sheets"
	BackendGAS    = "gas"
)

// Config represents the full application configuration surface.
type Config struct {
	Server  ServerConfig
	Backend string
	Sheets  SheetsConfig
	GAS     GASConfig
	MongoDB MongoDBConfig
	Sync    SyncConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// SheetsConfig contains configuration for the direct Google Sheets backend.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	StockSheet      string
}

// GASConfig contains configuration for the Apps Script web-app backend.
type GASConfig struct {
	BaseURL string
	Token   string
	Sheet   string
}

// MongoDBConfig holds settings for the audit log database.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SyncConfig holds scheduler-related settings.
type SyncConfig struct {
	ResyncSchedule    string
	KPISchedule       string
	LowStockThreshold int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Backend: getenvWithDefault("STOCK_BACKEND", BackendSheets),
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			StockSheet:      getenvWithDefault("STOCK_SHEET_NAME", "Stock"),
		},
		GAS: GASConfig{
			BaseURL: os.Getenv("GAS_WEBAPP_URL"),
			Token:   os.Getenv("GAS_WEBAPP_TOKEN"),
			Sheet:   getenvWithDefault("STOCK_SHEET_NAME", "Stock"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "implantstock"),
		},
		Sync: SyncConfig{
			ResyncSchedule:    getenvWithDefault("RESYNC_CRON_SCHEDULE", "*/15 * * * *"),
			KPISchedule:       getenvWithDefault("KPI_CRON_SCHEDULE", "0 21 * * *"),
			LowStockThreshold: getenvIntWithDefault("LOW_STOCK_THRESHOLD", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Backend {
	case BackendSheets:
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
		}
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
		}
	case BackendGAS:
		if c.GAS.BaseURL == "" {
			return errors.New("GAS_WEBAPP_URL must be provided")
		}
	default:
		return fmt.Errorf("STOCK_BACKEND must be %q or %q", BackendSheets, BackendGAS)
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sync.ResyncSchedule == "" {
		return errors.New("RESYNC_CRON_SCHEDULE must be provided")
	}
	if c.Sync.KPISchedule == "" {
		return errors.New("KPI_CRON_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvIntWithDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
