package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DBConnStr string
	GRPCPort  string

	LogLevel  string
	LogPretty bool

	// Quarter and month boundaries are evaluated in this zone
	Timezone string
	Location *time.Location

	// Cron schedule with a seconds field, e.g. "0 0 8 * * *"
	PacingSchedule string

	// Targets the goal seeder writes for quarters that have none
	DefaultTargetDeals      int
	DefaultTargetInvestment decimal.Decimal
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	investment, err := decimal.NewFromString(getEnv("DEFAULT_TARGET_INVESTMENT", "0"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TARGET_INVESTMENT must be a decimal: %w", err)
	}
	pretty, err := getEnvAsBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}
	targetDeals, err := getEnvAsInt("DEFAULT_TARGET_DEALS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBConnStr:               dbConnString(),
		GRPCPort:                getEnv("GRPC_PORT", ":8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogPretty:               pretty,
		Timezone:                getEnv("TIMEZONE", "UTC"),
		PacingSchedule:          getEnv("PACING_SCHEDULE", "0 0 8 * * *"),
		DefaultTargetDeals:      targetDeals,
		DefaultTargetInvestment: investment,
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable and resolves Location
func (c *Config) Validate() error {
	if c.DBConnStr == "" {
		return fmt.Errorf("database connection string is required")
	}
	if c.GRPCPort == "" {
		return fmt.Errorf("GRPC_PORT is required")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.PacingSchedule); err != nil {
		return fmt.Errorf("invalid PACING_SCHEDULE %q: %w", c.PacingSchedule, err)
	}

	if c.DefaultTargetDeals < 0 {
		return fmt.Errorf("DEFAULT_TARGET_DEALS cannot be negative")
	}
	if c.DefaultTargetInvestment.IsNegative() {
		return fmt.Errorf("DEFAULT_TARGET_INVESTMENT cannot be negative")
	}

	return nil
}

// dbConnString prefers DB_CONN_STR, otherwise builds one from individual vars (Docker friendly)
func dbConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "dealflow"),
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt falls back to defaultValue only when key is unset; a malformed value is an error
func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return intVal, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	return boolVal, nil
}
