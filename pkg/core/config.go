// Package core provides the main Recall engine and review scheduling functionality.
package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/studyloop/recall-go/pkg/srs"
)

// Config contains the complete configuration for a Recall engine.
//
// It includes settings for:
//   - Store (SQLite, PostgreSQL, or MySQL persistence)
//   - Scheduler (memory model parameters)
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        SQLite:   core.SQLiteConfig{Path: "./recall.db"},
//	    },
//	}
type Config struct {
	// Store contains storage backend configuration.
	Store StoreConfig `json:"store" yaml:"store"`

	// Scheduler contains memory model parameters. Zero-value fields are
	// filled with defaults; see srs.DefaultParams.
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
}

// SchedulerConfig tunes the memory model.
//
// It is the model parameter set exposed at the configuration surface;
// see srs.Params for field documentation and defaults.
type SchedulerConfig = srs.Params

// StoreConfig contains configuration for the concept store.
//
// Supported providers: sqlite, postgres, mysql
//
// Example:
//
//	storeConfig := core.StoreConfig{
//	    Provider: "postgres",
//	    Postgres: core.PostgresConfig{
//	        Host:   "localhost",
//	        Port:   5432,
//	        User:   "postgres",
//	        DBName: "recall",
//	    },
//	}
type StoreConfig struct {
	// Provider is the store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider" yaml:"provider"`

	// TablePrefix is prepended to every table name (optional).
	TablePrefix string `json:"table_prefix,omitempty" yaml:"table_prefix,omitempty"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`

	// MySQL contains MySQL-specific configuration.
	MySQL MySQLConfig `json:"mysql,omitempty" yaml:"mysql,omitempty"`
}

// SQLiteConfig contains SQLite connection settings.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created
	// on first open.
	Path string `json:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`

	// SSLMode is the libpq sslmode value. Default: disable.
	SSLMode string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
}

// MySQLConfig contains MySQL connection settings.
type MySQLConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - TABLE_PREFIX
//   - SCHEDULER_DESIRED_RETENTION, SCHEDULER_GRADUATION_STREAK,
//     SCHEDULER_LAPSE_INTERVAL (Go duration), SCHEDULER_MAX_INTERVAL_DAYS
//
// Returns a Config instance, or an error if loading fails.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	store := StoreConfig{
		Provider:    provider,
		TablePrefix: os.Getenv("TABLE_PREFIX"),
	}

	switch provider {
	case "sqlite":
		store.SQLite = SQLiteConfig{
			Path: getEnvOrDefault("SQLITE_PATH", "./recall.db"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))

		store.Postgres = PostgresConfig{
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     port,
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   getEnvOrDefault("POSTGRES_DATABASE", "recall"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))

		store.MySQL = MySQLConfig{
			Host:     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			Port:     port,
			User:     getEnvOrDefault("MYSQL_USER", "root"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			DBName:   getEnvOrDefault("MYSQL_DATABASE", "recall"),
		}
	}

	scheduler := SchedulerConfig{}
	if v := os.Getenv("SCHEDULER_DESIRED_RETENTION"); v != "" {
		retention, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, NewEngineError("LoadConfigFromEnv", fmt.Errorf("SCHEDULER_DESIRED_RETENTION: %w", err))
		}
		scheduler.DesiredRetention = retention
	}
	if v := os.Getenv("SCHEDULER_GRADUATION_STREAK"); v != "" {
		streak, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewEngineError("LoadConfigFromEnv", fmt.Errorf("SCHEDULER_GRADUATION_STREAK: %w", err))
		}
		scheduler.GraduationStreak = streak
	}
	if v := os.Getenv("SCHEDULER_LAPSE_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return nil, NewEngineError("LoadConfigFromEnv", fmt.Errorf("SCHEDULER_LAPSE_INTERVAL: %w", err))
		}
		scheduler.LapseInterval = interval
	}
	if v := os.Getenv("SCHEDULER_MAX_INTERVAL_DAYS"); v != "" {
		days, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, NewEngineError("LoadConfigFromEnv", fmt.Errorf("SCHEDULER_MAX_INTERVAL_DAYS: %w", err))
		}
		scheduler.MaxIntervalDays = days
	}

	return &Config{
		Store:     store,
		Scheduler: scheduler,
	}, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromFile loads configuration from a YAML file.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEngineError("LoadConfigFromFile", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewEngineError("LoadConfigFromFile", err)
	}

	return &config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that the store provider is one of the supported backends and
// that its connection settings are present.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	switch c.Store.Provider {
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return NewEngineError("Validate", ErrInvalidConfig)
		}
	case "postgres":
		if c.Store.Postgres.Host == "" || c.Store.Postgres.DBName == "" {
			return NewEngineError("Validate", ErrInvalidConfig)
		}
	case "mysql":
		if c.Store.MySQL.Host == "" || c.Store.MySQL.DBName == "" {
			return NewEngineError("Validate", ErrInvalidConfig)
		}
	default:
		return NewEngineError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	// First check the current directory
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	// Check project root directory (search upward)
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
