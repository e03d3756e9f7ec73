package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Shop     ShopConfig
	Loyalty  LoyaltyConfig
	Sync     SyncConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite file path
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Environment string
	Port        string
}

// ShopConfig holds shop settings surfaced to the front-end
type ShopConfig struct {
	Name        string
	Address     string
	Phone       string
	DeliveryFee int
	MinOrder    int
	OpeningTime string
	ClosingTime string
}

// LoyaltyConfig holds loyalty program rates and flags. It is injected
// into the loyalty engine at construction so tests can run with
// varied rates.
type LoyaltyConfig struct {
	Enabled        bool
	PointsPerRuble float64
	RublesPerPoint float64
}

// SyncConfig holds external integration endpoints. Empty URLs disable
// the corresponding sync.
type SyncConfig struct {
	Enabled        bool
	LoyaltyAPI     string
	MenuAPI        string
	TimeoutSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist in production
		fmt.Println("No .env file found")
	}

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "coffee_shop.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "coffeebliss"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
		},
		Shop: ShopConfig{
			Name:        getEnv("SHOP_NAME", "Coffee Bliss"),
			Address:     getEnv("SHOP_ADDRESS", "15 Coffee St"),
			Phone:       getEnv("SHOP_PHONE", "+7 (999) 123-45-67"),
			DeliveryFee: getEnvInt("DELIVERY_FEE", 150),
			MinOrder:    getEnvInt("MIN_ORDER", 300),
			OpeningTime: getEnv("OPENING_TIME", "08:00"),
			ClosingTime: getEnv("CLOSING_TIME", "22:00"),
		},
		Loyalty: LoyaltyConfig{
			Enabled:        getEnvBool("LOYALTY_ENABLED", true),
			PointsPerRuble: getEnvFloat("POINTS_PER_RUBLE", 1),
			RublesPerPoint: getEnvFloat("RUBLES_PER_POINT", 100),
		},
		Sync: SyncConfig{
			Enabled:        getEnvBool("SYNC_ENABLED", false),
			LoyaltyAPI:     getEnv("EXTERNAL_LOYALTY_API", ""),
			MenuAPI:        getEnv("EXTERNAL_MENU_API", ""),
			TimeoutSeconds: getEnvInt("SYNC_TIMEOUT_SECONDS", 10),
		},
	}

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		// Keep foreign key enforcement on for the embedded store
		return c.Path + "?_foreign_keys=on"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1"
	}
	return fallback
}
