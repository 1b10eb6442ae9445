// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载 APP_ENV 等环境变量
//  2. 根据 APP_ENV 加载 configs/common.yaml 和 configs/{env}.yaml
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认，500 响应携带错误详情)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitYAML   `yaml:"rate_limit"`
	Client    ClientYAML      `yaml:"client"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// CORSConfig 允许跨域读取响应的来源白名单
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitYAML 限流配置（YAML 层，窗口以秒计）
//
// 窗口和上限是运维调优项，必须走配置而不是硬编码。
type RateLimitYAML struct {
	WindowSeconds int `yaml:"window_seconds"`
	MaxRequests   int `yaml:"max_requests"`
}

// ClientYAML 客户端封装层配置（YAML 层，TTL 以秒计）
type ClientYAML struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// RateLimitConfig 按客户端地址的请求频率上限
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// ClientConfig 客户端封装层配置
type ClientConfig struct {
	CacheTTL time.Duration
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env       Environment
	Server    ServerConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Client    ClientConfig
	Log       LogConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（APP_ENV 等）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:    env,
		Server: yamlCfg.Server,
		CORS:   yamlCfg.CORS,
		RateLimit: RateLimitConfig{
			Window:      time.Duration(yamlCfg.RateLimit.WindowSeconds) * time.Second,
			MaxRequests: yamlCfg.RateLimit.MaxRequests,
		},
		Client: ClientConfig{
			CacheTTL: time.Duration(yamlCfg.Client.CacheTTLSeconds) * time.Second,
		},
		Log: yamlCfg.Log,
	}

	cfg.applyEnvOverrides()
	cfg.validate()

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:    ServerConfig{Host: "0.0.0.0", Port: "8080", MaxBodyBytes: 64 * 1024},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: RateLimitYAML{WindowSeconds: 60, MaxRequests: 120},
		Client:    ClientYAML{CacheTTLSeconds: 30},
		Log:       LogConfig{Level: "info", Format: "text"},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Printf("Warning: malformed config %s ignored: %v", path, err)
			}
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Printf("Warning: malformed config %s ignored: %v", path, err)
			}
			break
		}
	}

	return cfg
}

// applyEnvOverrides 环境变量覆盖 YAML 配置
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Server.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RateLimit.Window = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.MaxRequests = n
		}
	}
	if v := os.Getenv("CLIENT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Client.CacheTTL = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// validate 填充缺失的默认值
func (c *Config) validate() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 64 * 1024
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 120
	}
	if c.Client.CacheTTL <= 0 {
		c.Client.CacheTTL = 30 * time.Second
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment 是否为开发环境（控制 500 响应是否携带错误详情）
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Addr: %s:%s, RateLimit: %d/%s}",
		c.Env, c.Server.Host, c.Server.Port, c.RateLimit.MaxRequests, c.RateLimit.Window)
}
