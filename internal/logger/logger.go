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

// Package logger 提供带链路追踪关联的结构化日志
// Package logger provides structured logging with trace correlation.
//
// 日志同时写入标准错误和轮转文件；ctx 中携带的 OpenTelemetry span
// 会自动附加 trace_id / span_id。
// Logs go to stderr and a rotating file; the OpenTelemetry span carried
// in ctx automatically attaches trace_id / span_id.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 控制日志初始化
// Options controls logger initialization
type Options struct {
	// Level 日志级别: debug, info, warn, error
	Level string
	// File 日志文件路径，为空时仅输出到标准错误
	// File is the log file path; empty means stderr only
	File string
	// MaxSize 单个日志文件最大大小（MB）
	MaxSize int
	// MaxBackups 保留的旧日志文件数量
	MaxBackups int
	// MaxAge 旧日志文件保留天数
	MaxAge int
}

var (
	mu     sync.RWMutex
	zl     *zap.Logger
	otl    *otelzap.Logger
	sugar  *zap.SugaredLogger
	closer func() error
)

func init() {
	// 默认使用开发模式 logger，直到 Init 被调用
	// Use a development logger until Init is called
	l, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
	install(l, nil)
}

func install(l *zap.Logger, closeFn func() error) {
	mu.Lock()
	defer mu.Unlock()
	zl = l
	otl = otelzap.New(l, otelzap.WithMinLevel(l.Level()))
	sugar = l.Sugar()
	closer = closeFn
}

// Init initializes the global logger from options
// Init 根据选项初始化全局 logger
func Init(opts Options) error {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return fmt.Errorf("logger: invalid level %q: %w", opts.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	var roller *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("logger: create log directory: %w", err)
		}
		roller = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(roller), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	var closeFn func() error
	if roller != nil {
		closeFn = roller.Close
	}
	install(l, closeFn)
	return nil
}

// L returns the underlying zap logger (without caller skip)
// L 返回底层 zap logger（不带调用层跳过）
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zl.WithOptions(zap.AddCallerSkip(-1))
}

// Sync flushes buffered log entries and closes the log file
// Sync 刷新缓冲的日志并关闭日志文件
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = zl.Sync()
	if closer != nil {
		_ = closer()
	}
}

// DebugF logs a formatted debug message with trace correlation
// DebugF 记录带链路关联的格式化 debug 日志
func DebugF(ctx context.Context, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	otl.Ctx(ctx).Debug(fmt.Sprintf(format, args...))
}

// InfoF logs a formatted info message with trace correlation
// InfoF 记录带链路关联的格式化 info 日志
func InfoF(ctx context.Context, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	otl.Ctx(ctx).Info(fmt.Sprintf(format, args...))
}

// WarnF logs a formatted warning message with trace correlation
// WarnF 记录带链路关联的格式化 warn 日志
func WarnF(ctx context.Context, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	otl.Ctx(ctx).Warn(fmt.Sprintf(format, args...))
}

// ErrorF logs a formatted error message with trace correlation
// ErrorF 记录带链路关联的格式化 error 日志
func ErrorF(ctx context.Context, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	otl.Ctx(ctx).Error(fmt.Sprintf(format, args...))
}
