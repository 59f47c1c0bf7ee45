package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Download  DownloadConfig  `yaml:"download"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig 服务器接入配置
type ServerConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout int    `yaml:"request_timeout"` // 普通请求超时(秒),不作用于进度流
}

// TransportConfig 进度流传输配置
type TransportConfig struct {
	Mode   string `yaml:"mode"`    // sse | websocket
	WSPath string `yaml:"ws_path"` // websocket 模式的推送路径
}

// DownloadConfig 文件取回配置
type DownloadConfig struct {
	OutputDir     string `yaml:"output_dir"`
	BufferSize    int    `yaml:"buffer_size"`
	SettleDelayMs int    `yaml:"settle_delay_ms"` // 播放列表终态跳转前的等待时间
}

// RateLimitConfig 信息接口限流配置
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// HistoryConfig 本地下载历史配置
type HistoryConfig struct {
	Backend string      `yaml:"backend"` // file | redis
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 从环境变量覆盖配置
	if baseURL := os.Getenv("ANYVIDOW_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.History.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.History.Redis.Password = redisPassword
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 设置默认值
func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:5000"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30
	}
	if c.Transport.Mode == "" {
		c.Transport.Mode = "sse"
	}
	if c.Transport.WSPath == "" {
		c.Transport.WSPath = "/ws/progress"
	}
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = "downloads"
	}
	if c.Download.BufferSize == 0 {
		c.Download.BufferSize = 64 * 1024
	}
	if c.Download.SettleDelayMs == 0 {
		c.Download.SettleDelayMs = 1000
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 2
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 4
	}
	if c.History.Backend == "" {
		c.History.Backend = "file"
	}
	if c.History.Path == "" {
		c.History.Path = "history.json"
	}
	if c.History.Redis.PoolSize == 0 {
		c.History.Redis.PoolSize = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// GetRequestTimeout 获取普通请求超时时间
func (c *ServerConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetSettleDelay 获取终态跳转前的等待时间
func (c *DownloadConfig) GetSettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}
