package db

import "time"

// 支持的驱动类型
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config DB 组件配置
type Config struct {
	// Driver 数据库驱动类型: "mysql" 或 "sqlite"（默认："sqlite"）
	Driver string `json:"driver" yaml:"driver"`

	// DSN 连接串 [必填]
	// mysql:  "user:pass@tcp(127.0.0.1:3306)/anchor?parseTime=true"
	// sqlite: "file:anchor.db?cache=shared" 或 ":memory:"
	DSN string `json:"dsn" yaml:"dsn"`

	// 连接池配置（可选，有默认值）
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.Driver != DriverMySQL && c.Driver != DriverSQLite {
		return ErrUnsupportedDriver
	}
	if c.DSN == "" {
		return ErrDSNEmpty
	}
	return nil
}
