package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongoDB = "mongodb"
	DriverSQLite  = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	JWT     JWTConfig
	Ledger  LedgerConfig
	Log     LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Driver  string
	MongoDB MongoDBConfig
	SQLite  SQLiteConfig
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

type SQLiteConfig struct {
	Path string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
	NonceTTL  time.Duration
}

// LedgerConfig holds the raffle ledger settings
type LedgerConfig struct {
	FactoryAddress string
	EventBuffer    int
}

type LogConfig struct {
	Level     string
	File      string
	ErrorFile string
	Console   bool
}

// Load reads .env (when present), config.yaml from . or ./config, and the
// environment. Nested keys map to variables such as STORAGE_DRIVER.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT.Secret (JWT_SECRET) is required")
	}
	switch c.Storage.Driver {
	case DriverMongoDB:
		if c.Storage.MongoDB.URI == "" {
			return errors.New("config: Storage.MongoDB.URI is required for the mongodb driver")
		}
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("config: Storage.SQLite.Path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if !common.IsHexAddress(c.Ledger.FactoryAddress) {
		return fmt.Errorf("config: Ledger.FactoryAddress %q is not a hex address", c.Ledger.FactoryAddress)
	}
	if c.JWT.ExpiresIn <= 0 || c.JWT.NonceTTL <= 0 {
		return errors.New("config: JWT.ExpiresIn and JWT.NonceTTL must be positive")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"http://localhost:3000"})
	v.SetDefault("Server.ShutdownTimeout", 5*time.Second)
	v.SetDefault("Storage.Driver", DriverSQLite)
	v.SetDefault("Storage.MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("Storage.MongoDB.Database", "raffle-ledger")
	v.SetDefault("Storage.SQLite.Path", "raffle-ledger.db")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)
	v.SetDefault("JWT.NonceTTL", 5*time.Minute)
	v.SetDefault("Ledger.FactoryAddress", "0x00000000000000000000000000000000000fac70")
	v.SetDefault("Ledger.EventBuffer", 256)
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.File", "")
	v.SetDefault("Log.ErrorFile", "")
	v.SetDefault("Log.Console", true)
}
