// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"agent-studio/pkg/secrets"
)

type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Secrets    secrets.Config   `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type MiddlewareConfig struct {
	Auth           bool              `mapstructure:"auth"`
	RateLimit      bool              `mapstructure:"rate_limit"`
	RateLimitRPS   int               `mapstructure:"rate_limit_rps"`
	RateLimitBurst int               `mapstructure:"rate_limit_burst"`
	JWTKey         string            `mapstructure:"jwt_key"`
	JWTTimeout     string            `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh  string            `mapstructure:"jwt_max_refresh"` // 如 "1h"
	Users          map[string]string `mapstructure:"users"`           // 登录用户名 -> 密码，值可为 secret:// 引用
}

// SessionsConfig 会话日志目录
type SessionsConfig struct {
	Dir             string `mapstructure:"dir"`
	Watch           bool   `mapstructure:"watch"`            // API 进程内监听目录变更
	LoadConcurrency int    `mapstructure:"load_concurrency"` // 目录加载并发数
	MaxFileSize     int64  `mapstructure:"max_file_size"`    // 单个会话文件上限（字节），<=0 不限制
}

type WorkerConfig struct {
	ResyncInterval string `mapstructure:"resync_interval"` // 全量重新加载目录的间隔，空则只靠文件监听
	Debounce       string `mapstructure:"debounce"`        // 同一文件连续事件的合并窗口
}

type StorageConfig struct {
	Session SessionStoreConfig `mapstructure:"session"`
	Cache   CacheConfig        `mapstructure:"cache"`
}

type SessionStoreConfig struct {
	Type string `mapstructure:"type"` // memory | sqlite | postgres
	DSN  string `mapstructure:"dsn"`  // Postgres 连接串，type=postgres 时必填
	Path string `mapstructure:"path"` // SQLite 文件路径，type=sqlite 时使用
}

type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis | none
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// Defaults 返回可直接使用的默认配置
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			Port:    8080,
			Host:    "0.0.0.0",
			Timeout: "30s",
			Middleware: MiddlewareConfig{
				RateLimitRPS:  100,
				JWTTimeout:    "1h",
				JWTMaxRefresh: "1h",
			},
		},
		Sessions: SessionsConfig{
			Dir:             "data/sessions",
			LoadConcurrency: 4,
		},
		Worker: WorkerConfig{Debounce: "200ms"},
		Storage: StorageConfig{
			Session: SessionStoreConfig{Type: "memory"},
			Cache:   CacheConfig{Type: "memory", TTL: "10m"},
		},
		Secrets: secrets.Config{Provider: "env"},
		Log:     LogConfig{Level: "info", Format: "json"},
		Monitoring: MonitoringConfig{
			Prometheus: PrometheusConfig{Enable: true},
			Tracing:    TracingConfig{ServiceName: "agent-studio", ExportEndpoint: "localhost:4318", Insecure: true},
		},
	}
}

// LoadConfig 读取 YAML 配置，叠加在 Defaults 之上，再展开 ${ENV} 与 secret:// 引用
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	config := Defaults()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(config)
	if err := resolveSecrets(context.Background(), config); err != nil {
		return nil, err
	}
	return config, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv 展开 ${VAR}；未设置的变量保持原样
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return m
	})
}

// secretFields 可能包含 ${ENV} 或 secret:// 引用的字段
func secretFields(config *Config) []*string {
	return []*string{
		&config.API.Middleware.JWTKey,
		&config.Storage.Session.DSN,
		&config.Storage.Cache.Password,
		&config.Secrets.Vault.Token,
	}
}

func replaceEnvVars(config *Config) {
	for _, f := range secretFields(config) {
		*f = expandEnv(*f)
	}
	config.Secrets.Vault.Address = expandEnv(config.Secrets.Vault.Address)
	config.Sessions.Dir = expandEnv(config.Sessions.Dir)
	config.Storage.Session.Path = expandEnv(config.Storage.Session.Path)
	config.Storage.Cache.Addr = expandEnv(config.Storage.Cache.Addr)
	for user, pw := range config.API.Middleware.Users {
		config.API.Middleware.Users[user] = expandEnv(pw)
	}
}

// resolveSecrets 仅在存在 secret:// 引用时才创建 secret store
func resolveSecrets(ctx context.Context, config *Config) error {
	var refs []*string
	for _, f := range secretFields(config) {
		if f != &config.Secrets.Vault.Token && secrets.IsRef(*f) {
			refs = append(refs, f)
		}
	}
	users := make([]string, 0)
	for user, pw := range config.API.Middleware.Users {
		if secrets.IsRef(pw) {
			users = append(users, user)
		}
	}
	if len(refs) == 0 && len(users) == 0 {
		return nil
	}

	store, err := secrets.NewStore(config.Secrets)
	if err != nil {
		return fmt.Errorf("初始化 secret store 失败: %w", err)
	}
	for _, f := range refs {
		v, err := secrets.Resolve(ctx, store, *f)
		if err != nil {
			return err
		}
		*f = v
	}
	for _, user := range users {
		v, err := secrets.Resolve(ctx, store, config.API.Middleware.Users[user])
		if err != nil {
			return err
		}
		config.API.Middleware.Users[user] = v
	}
	return nil
}

// Duration 解析时长字符串，空串或非法值返回 def
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Addr 监听地址 host:port
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// LoadWorkerConfig 加载 Worker 配置（configs/worker.yaml）
func LoadWorkerConfig() (*Config, error) {
	return LoadConfig("configs/worker.yaml")
}
