// Package config 为 Anchor 提供统一的配置管理能力。
// 支持多源配置加载、热更新和配置验证，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：监听配置文件变化，通过 Watch 通知应用
//   - 接口优先设计：基于接口的 API，隐藏 Viper 实现细节
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{
//		Name:      "config",
//		Paths:     []string{".", "./config"},
//		EnvPrefix: "ANCHOR",
//	})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg config.AppConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//		return err
//	}
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "guard.profiles.whatsapp")
//	for event := range ch {
//		// 应用新策略
//	}
package config

import (
	"context"
	"strings"
	"time"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（按 yaml 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Timestamp time.Time
}

// Config 加载器配置
type Config struct {
	// Name 配置文件名称，不含扩展名（默认："config"）
	Name string

	// Paths 配置文件搜索路径（默认：["." , "./config"]）
	Paths []string

	// FileType 配置文件类型（默认："yaml"）
	FileType string

	// EnvPrefix 环境变量前缀（默认："ANCHOR"）
	// ANCHOR_GUARD_DEFAULT_ATTEMPT_TIMEOUT 覆盖 guard.default.attempt_timeout
	EnvPrefix string
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "ANCHOR"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建配置加载器
// cfg 为 nil 时使用默认配置
func New(cfg *Config) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfgCopy := *cfg
	cfgCopy.setDefaults()
	return newLoader(&cfgCopy), nil
}
