package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StorageFile  = "file"
	StorageMongo = "mongo"
	StorageMySQL = "mysql"
)

type Config struct {
	DataFile       string `toml:"data_file"`
	Storage        string `toml:"storage"`
	MongoURI       string `toml:"mongo_uri"`
	MongoDatabase  string `toml:"mongo_database"`
	MySQLDSN       string `toml:"mysql_dsn"`
	ListenAddr     string `toml:"listen_addr"`
	LogLevel       string `toml:"log_level"`
	ValidateSchema bool   `toml:"validate_schema"`
}

// DefaultConfig returns the configuration used when nothing else is set
func DefaultConfig() *Config {
	return &Config{
		DataFile:       "tasks.json",
		Storage:        StorageFile,
		MongoDatabase:  "tasktracker",
		ListenAddr:     ":8080",
		LogLevel:       "warn",
		ValidateSchema: true,
	}
}

// DefaultConfigPath returns ~/.config/tasktracker/config.toml
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tasktracker", "config.toml")
}

// LoadConfig layers defaults, the TOML file at configPath and the
// environment (after loading envFile, or .env when empty). A missing file
// at either path is not an error.
func LoadConfig(configPath, envFile string, logger *zap.Logger) (*Config, error) {
	config := DefaultConfig()

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No .env file found; falling back to system environment variables", zap.String("path", envFile))
		} else {
			logger.Error("Config file load error", zap.Error(err))
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			logger.Debug("Config file does not exist, using defaults", zap.String("path", configPath))
		} else {
			logger.Debug("Loaded config file", zap.String("path", configPath))
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, target *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}

	setString("TASKS_FILE", &c.DataFile)
	setString("TASKS_STORAGE", &c.Storage)
	setString("MONGO_URI", &c.MongoURI)
	setString("MONGO_DATABASE", &c.MongoDatabase)
	setString("STORE_DSN", &c.MySQLDSN)
	setString("LISTEN_ADDR", &c.ListenAddr)
	setString("LOG_LEVEL", &c.LogLevel)

	if value := strings.TrimSpace(os.Getenv("TASKS_VALIDATE")); value != "" {
		validate, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid TASKS_VALIDATE %q: %w", value, err)
		}
		c.ValidateSchema = validate
	}

	return nil
}

// Validate checks that the selected storage has what it needs
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataFile == "" {
			return fmt.Errorf("data_file is required for file storage")
		}
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for mongo storage")
		}
	case StorageMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("STORE_DSN is required for mysql storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", c.Storage)
	}
	return nil
}

// SaveConfig writes the configuration as TOML, creating the directory
func SaveConfig(config *Config, path string, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(config); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	logger.Debug("Saved config", zap.String("path", path))
	return nil
}
