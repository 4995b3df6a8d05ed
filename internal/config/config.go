package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Logging     LoggingConfig             `json:"logging"`
}

type BasicConfig struct {
	ServerAddress      string `json:"server_address"`
	MinWorkers         int    `json:"min_workers"`
	MaxWorkers         int    `json:"max_workers"`
	QueueSize          int    `json:"queue_size"`
	WorkerIdleTimeout  int    `json:"worker_idle_timeout"`  // minutes
	ClipboardExpiry    int    `json:"clipboard_expiry"`     // seconds
	UploadTickInterval int    `json:"upload_tick_interval"` // milliseconds
	ExpiryScanInterval int    `json:"expiry_scan_interval"` // minutes
	SecretKey          string `json:"secret_key"`
	SkipSeed           bool   `json:"skip_seed"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

const (
	defaultConfigPath = "config.json"
	secretKeyEnv      = "BIZDESK_SECRET_KEY"
)

// LoadEnv loads variables from a .env file; a missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default config file yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults(filepath.Dir(absPath))
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Databases == nil {
		c.Databases = make(map[string]DatabaseConfig)
	}
	sqliteCfg := c.Databases["sqlite3"]
	if sqliteCfg.DSN == "" {
		sqliteCfg.DSN = ":memory:"
	}
	if baseDir != "" && !isMemoryDSN(sqliteCfg.DSN) && !strings.HasPrefix(sqliteCfg.DSN, "file:") && !filepath.IsAbs(sqliteCfg.DSN) {
		sqliteCfg.DSN = filepath.Join(baseDir, sqliteCfg.DSN)
	}
	c.Databases["sqlite3"] = sqliteCfg

	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = ":8090"
	}
	if b.MinWorkers <= 0 {
		b.MinWorkers = 1
	}
	if b.MaxWorkers < b.MinWorkers {
		b.MaxWorkers = 4
		if b.MaxWorkers < b.MinWorkers {
			b.MaxWorkers = b.MinWorkers
		}
	}
	if b.QueueSize <= 0 {
		b.QueueSize = 64
	}
	if env := strings.TrimSpace(os.Getenv(secretKeyEnv)); env != "" {
		b.SecretKey = env
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "127.0.0.1"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// WorkerIdle returns the idle timeout after which surplus upload workers retire.
func (b BasicConfig) WorkerIdle() time.Duration {
	return time.Duration(b.WorkerIdleTimeout) * time.Minute
}

// ClipboardExpiryDuration returns the copied-indicator lifetime; zero means the helper default.
func (b BasicConfig) ClipboardExpiryDuration() time.Duration {
	return time.Duration(b.ClipboardExpiry) * time.Second
}

// UploadTick returns the simulated upload tick; zero means the engine default.
func (b BasicConfig) UploadTick() time.Duration {
	return time.Duration(b.UploadTickInterval) * time.Millisecond
}

// ExpiryScan returns how often statuses derived from dates are refreshed.
func (b BasicConfig) ExpiryScan() time.Duration {
	return time.Duration(b.ExpiryScanInterval) * time.Minute
}
