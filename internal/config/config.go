package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Invoice  InvoiceConfig
	Services ServicesConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string
	LogLevel    string
	RedisURL    string
	NATSURL     string
}

// InvoiceConfig holds invoice generation settings
type InvoiceConfig struct {
	LogoFetchTimeout time.Duration
	LogoMaxBytes     int64
	PDFCacheTTL      time.Duration
	ContentLockTTL   time.Duration
	ValidatePDF      bool
	ArchiveBucket    string
}

// ServicesConfig holds URLs of collaborating services
type ServicesConfig struct {
	OrdersServiceURL   string
	DocumentServiceURL string
	StaffServiceURL    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: secrets.GetDBPassword(), // Fetch from GCP Secret Manager if enabled
			DBName:   getEnv("DB_NAME", "invoices_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			RedisURL:    getEnv("REDIS_URL", ""),
			NATSURL:     getEnv("NATS_URL", ""),
		},
		Invoice: InvoiceConfig{
			LogoFetchTimeout: getEnvAsDuration("LOGO_FETCH_TIMEOUT", 10*time.Second),
			LogoMaxBytes:     int64(getEnvAsInt("LOGO_MAX_BYTES", 5<<20)),
			PDFCacheTTL:      getEnvAsDuration("PDF_CACHE_TTL", 24*time.Hour),
			ContentLockTTL:   getEnvAsDuration("CONTENT_LOCK_TTL", 30*time.Second),
			ValidatePDF:      getEnvAsBool("VALIDATE_PDF", true),
			ArchiveBucket:    getEnv("INVOICE_ARCHIVE_BUCKET", ""),
		},
		Services: ServicesConfig{
			OrdersServiceURL:   getEnv("ORDERS_SERVICE_URL", "http://orders-service:8080"),
			DocumentServiceURL: getEnv("DOCUMENT_SERVICE_URL", ""),
			StaffServiceURL:    getEnv("STAFF_SERVICE_URL", "http://staff-service:8080"),
		},
	}

	if config.Invoice.LogoMaxBytes <= 0 {
		return nil, fmt.Errorf("LOGO_MAX_BYTES must be positive")
	}

	return config, nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("10s") or plain seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
