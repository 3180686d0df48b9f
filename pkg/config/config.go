// Package config 应用配置：YAML 文件加环境变量。
//
// 登录凭证只从环境变量读取（可以放 .env 文件，用 godotenv 加载），
// 绝不写进 YAML 配置：配置文件经常被提交到仓库或拷来拷去，
// 凭证不能跟着走。
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// 凭证环境变量
const (
	EnvUsername = "EMT_USERNAME"
	EnvPassword = "EMT_PASSWORD"
)

// EnvSessionMinutes 会话有效期的环境变量覆盖，优先于 YAML 配置
const EnvSessionMinutes = "EMT_SESSION_MINUTES"

// Config 应用配置
type Config struct {
	// Host 交易主机，空值使用生产主机
	Host string `yaml:"host"`

	// QuoteHost 行情主机
	QuoteHost string `yaml:"quote_host"`

	// TimeoutSeconds 单次 HTTP 请求超时（秒），默认 30
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// SessionMinutes 会话有效期（分钟），默认 30
	SessionMinutes int `yaml:"session_minutes"`

	// Log 日志配置
	Log LogConfig `yaml:"log"`
}

// LogConfig 日志部分
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Credentials 从环境变量读取的登录凭证
type Credentials struct {
	Username string
	Password string
}

// Load 读取 YAML 配置文件，路径为空时返回默认配置。
// 会话有效期可以用 EMT_SESSION_MINUTES 环境变量覆盖配置文件的值。
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
		applyDefaults(cfg)
	}
	cfg.SessionMinutes = EnvInt(EnvSessionMinutes, cfg.SessionMinutes)
	return cfg, nil
}

// LoadCredentials 加载 .env（如果有）并读取凭证环境变量
func LoadCredentials() (*Credentials, error) {
	// .env 不存在不算错误，环境变量可能来自进程环境
	_ = godotenv.Load()

	creds := &Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.Errorf("%s and %s must be set", EnvUsername, EnvPassword)
	}
	return creds, nil
}

// EnvInt 读取整数环境变量，未设置或非法时返回默认值
func EnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.SessionMinutes <= 0 {
		cfg.SessionMinutes = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 7
	}
}
