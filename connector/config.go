package connector

import (
	"time"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name           string        `json:"name" yaml:"name"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// 核心配置
	Addr     string `json:"addr" yaml:"addr"`         // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `json:"password" yaml:"password"` // [可选] 认证密码
	DB       int    `json:"db" yaml:"db"`             // [可选] 数据库编号

	// 高级配置（可选，有默认值）
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	c.setDefaults()
	if c.Addr == "" {
		return ErrAddrEmpty
	}
	if c.DB < 0 {
		return ErrInvalidDB
	}
	return nil
}
