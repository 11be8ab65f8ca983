package mysql

import (
	"errors"
	"fmt"
	"time"
)

// Config 定義 MySQL 連線、連線池與 transaction 重試的配置
type Config struct {
	Host     string `yaml:"host"`     // 資料庫主機地址
	Port     int    `yaml:"port"`     // 資料庫埠號 (預設 3306)
	User     string `yaml:"user"`     // 使用者名稱
	Password string `yaml:"password"` // 密碼
	DBName   string `yaml:"db_name"`  // 資料庫名稱

	// 連線池設定 (Connection Pool)
	// 參考: https://github.com/go-sql-driver/mysql#important-settings
	MaxOpenConns    int           `yaml:"max_open_conns"`    // 最大開啟連線數
	MaxIdleConns    int           `yaml:"max_idle_conns"`    // 最大閒置連線數
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"` // 連線最大存活時間

	// 啟動時的連線重試
	ConnectRetries       int           `yaml:"connect_retries"`
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`

	// Deadlock (1213) / Lock wait timeout (1205) 的 transaction 重試
	TxRetries      int           `yaml:"tx_retries"`
	TxRetryBackoff time.Duration `yaml:"tx_retry_backoff"`

	// GORM 設定
	LogLevel string `yaml:"log_level"` // Log 等級: "silent", "error", "warn", "info"

	// AutoMigrate 啟動時建立或補齊資料表
	AutoMigrate bool `yaml:"auto_migrate"`
}

// ApplyDefaults 補全 yaml 沒寫的欄位
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = 10
	}
	if c.ConnectRetryInterval == 0 {
		c.ConnectRetryInterval = 2 * time.Second
	}
	if c.TxRetries == 0 {
		c.TxRetries = 3
	}
	if c.TxRetryBackoff == 0 {
		c.TxRetryBackoff = 20 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "error"
	}
}

// Validate 檢查必要欄位
func (c *Config) Validate() error {
	if c.Host == "" || c.User == "" || c.DBName == "" {
		return errors.New("mysql: host, user and db_name are required")
	}
	if c.TxRetries < 0 {
		return errors.New("mysql: tx_retries must not be negative")
	}
	return nil
}

// DSN (Data Source Name) 產生連線字串
// 格式: user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=UTC
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}
