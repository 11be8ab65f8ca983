package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-clients/pkg/mysql"
)

// 可覆寫設定檔的環境變數
const (
	EnvMySQLPassword = "BANK_MYSQL_PASSWORD"
	EnvJWTSecret     = "BANK_JWT_SECRET"
	EnvStorageDriver = "BANK_STORAGE_DRIVER"
)

// 儲存層
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	MySQL     mysql.Config    `yaml:"mysql"`
	JWT       JWTConfig       `yaml:"jwt"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Accrual   AccrualConfig   `yaml:"accrual"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr"`
	GRPCAddr          string        `yaml:"grpc_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // mysql | memory
	// memory 專用
	WALPath    string `yaml:"wal_path"`
	MemoryMode string `yaml:"memory_mode"` // mutex | event_loop
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Issuer string        `yaml:"issuer"`
}

type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// AccrualConfig 計息倍率，以字串寫在 yaml 內避免浮點誤差 (e.g. "1.05")
type AccrualConfig struct {
	Factor        decimal.Decimal `yaml:"factor"`
	CeilingFactor decimal.Decimal `yaml:"ceiling_factor"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load 讀取 yaml 設定檔，套用 .env 與環境變數後補上預設值並檢查
//
// 參數:
//
//	path: string - yaml 路徑
//	envFile: string - .env 路徑，不存在時忽略；空字串表示不讀取
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvMySQLPassword); v != "" {
		c.MySQL.Password = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		c.Storage.Driver = v
	}
}

// ApplyDefaults 補全 yaml 沒寫的欄位
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMySQL
	}
	if c.Storage.WALPath == "" {
		c.Storage.WALPath = "wal.log"
	}
	if c.Storage.MemoryMode == "" {
		c.Storage.MemoryMode = "mutex"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = time.Hour
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "go-bank-clients"
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 30 * time.Second
	}
	if c.Accrual.Factor.IsZero() {
		c.Accrual.Factor = decimal.RequireFromString("1.05")
	}
	if c.Accrual.CeilingFactor.IsZero() {
		c.Accrual.CeilingFactor = decimal.RequireFromString("2.07")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Storage.Driver == DriverMySQL {
		c.MySQL.ApplyDefaults()
	}
}

// Validate 檢查必要欄位
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverMySQL:
		if err := c.MySQL.Validate(); err != nil {
			errs = append(errs, err)
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("jwt: secret is required (or set %s)", EnvJWTSecret))
	}
	if c.JWT.TTL < 0 {
		errs = append(errs, errors.New("jwt: ttl must be positive"))
	}
	if c.Scheduler.Interval < time.Second {
		errs = append(errs, errors.New("scheduler: interval must be at least 1s"))
	} else if c.Scheduler.Interval%time.Second != 0 {
		errs = append(errs, errors.New("scheduler: interval must be a whole number of seconds"))
	}
	if c.Scheduler.RunTimeout < 0 {
		errs = append(errs, errors.New("scheduler: run_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
