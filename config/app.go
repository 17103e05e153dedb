package config

import (
	"time"

	"github.com/ceyewan/anchor/audit"
	"github.com/ceyewan/anchor/clog"
	"github.com/ceyewan/anchor/connector"
	"github.com/ceyewan/anchor/db"
	"github.com/ceyewan/anchor/guard"
	"github.com/ceyewan/anchor/idem"
	"github.com/ceyewan/anchor/metrics"
	"github.com/ceyewan/anchor/ratelimit"
	"github.com/ceyewan/anchor/trace"
)

// AppConfig 平台的完整类型化配置
// 各段直接复用组件自己的 Config 结构，loader.Unmarshal 按 yaml 标签填充。
type AppConfig struct {
	App       AppInfo               `yaml:"app"`
	Log       clog.Config           `yaml:"log"`
	Metrics   metrics.Config        `yaml:"metrics"`
	Trace     trace.Config          `yaml:"trace"`
	Redis     connector.RedisConfig `yaml:"redis"`
	DB        db.Config             `yaml:"db"`
	Guard     guard.Config          `yaml:"guard"`
	Idem      idem.Config           `yaml:"idem"`
	Audit     audit.Config          `yaml:"audit"`
	Admission AdmissionConfig       `yaml:"admission"`
	Pacer     ratelimit.PacerConfig `yaml:"pacer"`
}

// AppInfo 应用元信息
type AppInfo struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

// AdmissionConfig 入站准入限流配置
type AdmissionConfig struct {
	// Rule 每个客户端的固定窗口规则
	Limit  int64         `yaml:"limit"`
	Window time.Duration `yaml:"window"`

	// MaxEntries 键基数上限
	MaxEntries int `yaml:"max_entries"`
}

// Rule 转换为 ratelimit.Rule
func (a AdmissionConfig) Rule() ratelimit.Rule {
	return ratelimit.Rule{Limit: a.Limit, Window: a.Window}
}
