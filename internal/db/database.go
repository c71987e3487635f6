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

// Package db 提供工作负载存储的数据库初始化
// Package db provides database initialization for the workload store.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/config"
)

// DatabaseType 数据库类型常量
const (
	DatabaseTypeSQLite   = "sqlite"
	DatabaseTypeMySQL    = "mysql"
	DatabaseTypePostgres = "postgres"
)

// Open 根据配置建立数据库连接并迁移工作负载表
// Open connects to the configured database and migrates the workload table.
// 支持 SQLite、MySQL、PostgreSQL 三种数据库类型，默认使用 SQLite。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var err error

	dbType := cfg.Type
	if dbType == "" {
		dbType = DatabaseTypeSQLite
	}

	switch dbType {
	case DatabaseTypeSQLite:
		dialector, err = sqliteDialector(cfg.SQLitePath)
	case DatabaseTypeMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DatabaseTypePostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("db: unsupported database type: %s (supported: sqlite, mysql, postgres)", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("db: init %s dialector: %w", dbType, err)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect %s database: %w", dbType, err)
	}

	// 注入 OpenTelemetry 追踪
	// Inject OpenTelemetry tracing
	if err := gdb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("db: init tracing plugin: %w", err)
	}

	// 迁移工作负载表
	// Migrate the workload table
	if err := gdb.AutoMigrate(&workload.Workload{}); err != nil {
		return nil, fmt.Errorf("db: migrate workload table: %w", err)
	}

	return gdb, nil
}

// sqliteDialector 初始化 SQLite 驱动，确保数据目录存在
// sqliteDialector initializes the SQLite driver, ensuring the data directory exists
func sqliteDialector(sqlitePath string) (gorm.Dialector, error) {
	if sqlitePath == "" {
		sqlitePath = config.DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	return sqlite.Open(sqlitePath), nil
}

// gormLogger 根据配置获取 GORM 日志记录器
// gormLogger maps the configured level to a GORM logger
func gormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	switch level {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "info":
		logLevel = gormlogger.Info
	case "warn":
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Warn
	}
	return gormlogger.Default.LogMode(logLevel)
}

// Close 关闭底层数据库连接
// Close closes the underlying database connection
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db: get underlying connection: %w", err)
	}
	return sqlDB.Close()
}
