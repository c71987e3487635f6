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

// Package logsink provides durable, bounded storage of worker process output.
// logsink 包提供工作进程输出的持久化有界存储。
//
// This package provides:
// 此包提供：
// - Structured newline-delimited JSON log records / 结构化的 JSON 行日志记录
// - Size- and age-based rotation with compression / 基于大小和时间的轮转与压缩
// - Bounded retention of rotated files / 轮转文件的有界保留
// - A reader that tolerates malformed lines / 容忍格式错误行的读取器
package logsink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation values
// 默认轮转配置值
const (
	DefaultMaxSizeMB   = 10
	DefaultMaxBackups  = 5
	DefaultMaxAgeDays  = 7
	DefaultRotateEvery = 24 * time.Hour
	defaultFilePerm    = 0o644
	defaultDirPerm     = 0o755
)

// StreamStdout and friends identify the origin of a log record.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
	StreamSystem = "system"
)

// Record is a single structured log entry for a worker process.
// Record 是工作进程的单条结构化日志记录。
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Process   string    `json:"process"`
	PID       int       `json:"pid"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// Options configures rotation and retention for a Sink.
type Options struct {
	// Dir is the directory holding per-process log files.
	Dir string
	// MaxSizeMB is the size ceiling of the active file before rotation.
	MaxSizeMB int
	// MaxBackups bounds how many rotated files are retained.
	MaxBackups int
	// MaxAgeDays bounds how long rotated files are retained.
	MaxAgeDays int
	// RotateEvery forces rotation of the active file after this interval,
	// even if the size ceiling has not been reached.
	RotateEvery time.Duration
	// Compress enables gzip compression of rotated files.
	Compress bool
}

// withDefaults fills zero-valued options.
func (o Options) withDefaults() Options {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = DefaultMaxSizeMB
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = DefaultMaxBackups
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = DefaultMaxAgeDays
	}
	if o.RotateEvery <= 0 {
		o.RotateEvery = DefaultRotateEvery
	}
	return o
}

// Sink is an append-only, rotating, compressed log sink for one process name.
// Writes are fire-and-forget from the producer's point of view: failures are
// absorbed here, never propagated to the caller.
// Sink 是单个进程名的追加式、可轮转、可压缩日志接收器。
// 写入对生产者来说是即发即弃的：失败在这里被吸收，绝不向调用者传播。
type Sink struct {
	name   string
	path   string
	writer *lumberjack.Logger
	logger *zap.Logger

	mu          sync.Mutex
	lastRotate  time.Time
	rotateEvery time.Duration
	closed      bool
}

// New creates a Sink for the given process name under opts.Dir. The log
// directory is created if it does not exist.
func New(name string, opts Options, logger *zap.Logger) (*Sink, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.Dir, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("logsink: create log directory: %w", err)
	}

	path := filepath.Join(opts.Dir, name+".log")
	return &Sink{
		name: name,
		path: path,
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		},
		logger:      logger.With(zap.String("process", name)),
		lastRotate:  time.Now(),
		rotateEvery: opts.RotateEvery,
	}, nil
}

// Path returns the active log file path for this sink.
func (s *Sink) Path() string {
	return s.path
}

// Write appends one structured record as a JSON line. Rotation is triggered
// by whichever comes first: the size ceiling (handled by the underlying
// writer) or the age interval (handled here). A write failure falls back to
// a direct best-effort file append; failures there are only logged.
func (s *Sink) Write(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Process == "" {
		rec.Process = s.name
	}

	// Age-based rotation: the size trigger alone would let a quiet process
	// keep one file open forever.
	// 基于时间的轮转：仅靠大小触发会让低输出进程永远持有同一个文件。
	if time.Since(s.lastRotate) >= s.rotateEvery {
		if err := s.writer.Rotate(); err != nil {
			s.logger.Warn("log rotation failed / 日志轮转失败", zap.Error(err))
		}
		s.lastRotate = time.Now()
	}

	line, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("marshal log record failed / 序列化日志记录失败", zap.Error(err))
		return
	}
	line = append(line, '\n')

	if _, err := s.writer.Write(line); err != nil {
		s.logger.Warn("log sink write failed, falling back to direct append / 日志写入失败，回退为直接追加",
			zap.Error(err))
		s.appendDirect(line)
	}
}

// appendDirect is the best-effort fallback when the rotating writer fails.
func (s *Sink) appendDirect(line []byte) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		s.logger.Error("fallback log append failed / 回退日志追加失败", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		s.logger.Error("fallback log append failed / 回退日志追加失败", zap.Error(err))
	}
}

// Close closes the underlying writer. Further writes are dropped.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
