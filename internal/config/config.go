/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for the Workstation service.
// config 包提供 Workstation 服务的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath          = "config.yaml"
	DefaultAddr                = ":8080"
	DefaultLogLevel            = "info"
	DefaultLogFile             = "./logs/workstationd.log"
	DefaultLogMaxSize          = 100 // MB
	DefaultLogMaxBackups       = 3
	DefaultLogMaxAge           = 7 // days
	DefaultSQLitePath          = "./data/workstation.db"
	DefaultRunnerPath          = "./env/run_worker"
	DefaultWorkersDir          = "./workers"
	DefaultWorkerLogDir        = "./logs/workers"
	DefaultHealthCheckInterval = 10 * time.Second
	DefaultGracePeriod         = 5 * time.Second
	DefaultMinPort             = 1024
	DefaultMaxPort             = 65535
	DefaultTTSPort             = 5002
	DefaultWorkerLogMaxSize    = 10 // MB
	DefaultWorkerLogMaxBackups = 5
	DefaultWorkerLogMaxAge     = 7 // days
	DefaultWorkerLogRotate     = 24 * time.Hour
)

// Config represents the Workstation service configuration
// Config 表示 Workstation 服务配置
type Config struct {
	// App configuration / 应用配置
	App AppConfig `mapstructure:"app"`

	// Database configuration / 数据库配置
	Database DatabaseConfig `mapstructure:"database"`

	// Log configuration for the service's own log / 服务自身日志配置
	Log LogConfig `mapstructure:"log"`

	// Supervisor configuration / 监督器配置
	Supervisor SupervisorConfig `mapstructure:"supervisor"`

	// Telemetry configuration / 遥测配置
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig contains HTTP service settings
// AppConfig 包含 HTTP 服务设置
type AppConfig struct {
	// AppName identifies the service in traces and logs
	// AppName 在追踪和日志中标识本服务
	AppName string `mapstructure:"app_name"`

	// Addr is the HTTP listen address
	// Addr 是 HTTP 监听地址
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig contains workload store settings
// DatabaseConfig 包含工作负载存储设置
type DatabaseConfig struct {
	// Type selects the database driver: sqlite, mysql, or postgres
	// Type 选择数据库驱动：sqlite、mysql 或 postgres
	Type string `mapstructure:"type"`

	// SQLitePath is the SQLite database file path
	// SQLitePath 是 SQLite 数据库文件路径
	SQLitePath string `mapstructure:"sqlite_path"`

	// DSN is the connection string for mysql/postgres
	// DSN 是 mysql/postgres 的连接串
	DSN string `mapstructure:"dsn"`

	// LogLevel is the GORM log level (silent, error, warn, info)
	// LogLevel 是 GORM 日志级别
	LogLevel string `mapstructure:"log_level"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level"`

	// File is the log file path; empty logs to stderr only
	// File 是日志文件路径；为空时只输出到标准错误
	File string `mapstructure:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
}

// SupervisorConfig contains workload supervisor settings
// SupervisorConfig 包含工作负载监督器设置
type SupervisorConfig struct {
	// RunnerPath is the worker runner executable
	// RunnerPath 是工作进程运行器可执行文件
	RunnerPath string `mapstructure:"runner_path"`

	// WorkersDir is the root directory of worker implementations
	// WorkersDir 是工作进程实现的根目录
	WorkersDir string `mapstructure:"workers_dir"`

	// LogDir is the directory for per-process worker logs
	// LogDir 是各工作进程日志的目录
	LogDir string `mapstructure:"log_dir"`

	// HealthCheckInterval is the health check period
	// HealthCheckInterval 是健康检查周期
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`

	// GracePeriod is the graceful stop timeout before force kill
	// GracePeriod 是强制杀死前的优雅停止超时
	GracePeriod time.Duration `mapstructure:"grace_period"`

	// MinPort and MaxPort define the allowed workload port range
	// MinPort 和 MaxPort 定义允许的工作负载端口范围
	MinPort int `mapstructure:"min_port"`
	MaxPort int `mapstructure:"max_port"`

	// TTSPort is the fixed text-to-speech port passed to lipsync workers
	// TTSPort 是传递给 lipsync 工作进程的固定 text-to-speech 端口
	TTSPort int `mapstructure:"tts_port"`

	// Worker log rotation settings / 工作进程日志轮转设置
	WorkerLogMaxSize    int           `mapstructure:"worker_log_max_size"`
	WorkerLogMaxBackups int           `mapstructure:"worker_log_max_backups"`
	WorkerLogMaxAge     int           `mapstructure:"worker_log_max_age"`
	WorkerLogRotate     time.Duration `mapstructure:"worker_log_rotate"`
}

// TelemetryConfig contains OpenTelemetry settings
// TelemetryConfig 包含 OpenTelemetry 设置
type TelemetryConfig struct {
	// Enabled indicates whether tracing is enabled
	// Enabled 表示是否启用追踪
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint
	// Endpoint 是 OTLP gRPC 收集器地址
	Endpoint string `mapstructure:"endpoint"`
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		envPath := os.Getenv("WORKSTATION_CONFIG_PATH")
		if envPath != "" {
			v.SetConfigFile(envPath)
		} else {
			v.SetConfigFile(DefaultConfigPath)
		}
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix("WORKSTATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if we have defaults
		// 如果有默认值，配置文件未找到不是错误
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults / 文件不存在，使用默认值
		}
	}

	// Unmarshal config / 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// App defaults / 应用默认值
	v.SetDefault("app.app_name", "workstation")
	v.SetDefault("app.addr", DefaultAddr)

	// Database defaults / 数据库默认值
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite_path", DefaultSQLitePath)
	v.SetDefault("database.log_level", "warn")

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	// Supervisor defaults / 监督器默认值
	v.SetDefault("supervisor.runner_path", DefaultRunnerPath)
	v.SetDefault("supervisor.workers_dir", DefaultWorkersDir)
	v.SetDefault("supervisor.log_dir", DefaultWorkerLogDir)
	v.SetDefault("supervisor.health_check_interval", DefaultHealthCheckInterval)
	v.SetDefault("supervisor.grace_period", DefaultGracePeriod)
	v.SetDefault("supervisor.min_port", DefaultMinPort)
	v.SetDefault("supervisor.max_port", DefaultMaxPort)
	v.SetDefault("supervisor.tts_port", DefaultTTSPort)
	v.SetDefault("supervisor.worker_log_max_size", DefaultWorkerLogMaxSize)
	v.SetDefault("supervisor.worker_log_max_backups", DefaultWorkerLogMaxBackups)
	v.SetDefault("supervisor.worker_log_max_age", DefaultWorkerLogMaxAge)
	v.SetDefault("supervisor.worker_log_rotate", DefaultWorkerLogRotate)

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	// Validate database type / 验证数据库类型
	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid database type: %s (must be sqlite, mysql, or postgres)", c.Database.Type)
	}
	if c.Database.Type != "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for type %s", c.Database.Type)
	}

	// Validate supervisor settings / 验证监督器设置
	if c.Supervisor.RunnerPath == "" {
		return errors.New("supervisor.runner_path is required")
	}
	if c.Supervisor.MinPort <= 0 || c.Supervisor.MaxPort < c.Supervisor.MinPort {
		return fmt.Errorf("invalid supervisor port range: [%d, %d]",
			c.Supervisor.MinPort, c.Supervisor.MaxPort)
	}
	if c.Supervisor.HealthCheckInterval <= 0 {
		return errors.New("supervisor.health_check_interval must be positive")
	}

	return nil
}
