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

// Package supervisor assembles the workload process supervisor: process
// registry, lifecycle controller, and periodic health checker.
// supervisor 包组装工作负载进程监督器：进程注册表、生命周期控制器和周期性
// 健康检查器。
package supervisor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeai/workstation/internal/supervisor/health"
	"github.com/edgeai/workstation/internal/supervisor/lifecycle"
	"github.com/edgeai/workstation/internal/supervisor/logsink"
	"github.com/edgeai/workstation/internal/supervisor/probe"
	"github.com/edgeai/workstation/internal/supervisor/registry"
)

// Store is the workload persistence collaborator consumed by the supervisor.
type Store interface {
	health.Store
}

// Config holds supervisor assembly configuration.
type Config struct {
	// RunnerPath is the worker runner executable.
	RunnerPath string
	// WorkersDir is the root directory of worker implementations.
	WorkersDir string
	// LogDir is the directory for per-process log files.
	LogDir string
	// TTSPort is the fixed text-to-speech port passed to lipsync workers.
	TTSPort int
	// CheckInterval is the health check period (default 10s).
	CheckInterval time.Duration
	// GracePeriod is the graceful stop timeout (default 5s).
	GracePeriod time.Duration
	// MinPort and MaxPort define the readiness probe port allow-list.
	MinPort int
	MaxPort int
	// Log rotation settings for per-process sinks.
	LogMaxSizeMB   int
	LogMaxBackups  int
	LogMaxAgeDays  int
	LogRotateEvery time.Duration
}

// Supervisor owns the registry, controller, and checker, and ties their
// lifecycle to application startup/shutdown. Start and Shutdown are
// idempotent.
// Supervisor 持有注册表、控制器和检查器，并将它们的生命周期绑定到应用的
// 启动/关闭。Start 和 Shutdown 都是幂等的。
type Supervisor struct {
	registry   *registry.Registry
	controller *lifecycle.Controller
	checker    *health.Checker
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// New assembles a Supervisor from the given store and configuration.
func New(store Store, cfg Config, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}

	sinkOpts := logsink.Options{
		Dir:         cfg.LogDir,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
		RotateEvery: cfg.LogRotateEvery,
		Compress:    true,
	}

	var regOpts []registry.Option
	if cfg.GracePeriod > 0 {
		regOpts = append(regOpts, registry.WithGracePeriod(cfg.GracePeriod))
	}
	reg := registry.New(sinkOpts, logger, regOpts...)

	var proberOpts []probe.ProberOption
	if cfg.MinPort > 0 && cfg.MaxPort > 0 {
		proberOpts = append(proberOpts, probe.WithPortRange(cfg.MinPort, cfg.MaxPort))
	}
	prober := probe.NewProber(logger, proberOpts...)

	controller := lifecycle.NewController(reg, store, lifecycle.Config{
		RunnerPath: cfg.RunnerPath,
		WorkersDir: cfg.WorkersDir,
		TTSPort:    cfg.TTSPort,
	}, logger)

	var checkerOpts []health.CheckerOption
	if cfg.CheckInterval > 0 {
		checkerOpts = append(checkerOpts, health.WithInterval(cfg.CheckInterval))
	}
	checker := health.NewChecker(store, reg, prober, logger, checkerOpts...)

	return &Supervisor{
		registry:   reg,
		controller: controller,
		checker:    checker,
		logger:     logger,
	}
}

// Registry exposes the process registry for read-only consumers.
func (s *Supervisor) Registry() *registry.Registry {
	return s.registry
}

// Controller exposes the lifecycle controller to be wired as the workload
// service's lifecycle hook.
func (s *Supervisor) Controller() *lifecycle.Controller {
	return s.controller
}

// Start launches the periodic health checker. Idempotent.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	return s.checker.Start(ctx)
}

// Shutdown cancels the health checker first, then stops every live process
// with the registry's grace-period semantics. Double invocation is a no-op.
// Shutdown 先取消健康检查器，再按注册表的宽限期语义停止所有存活进程。
// 重复调用是空操作。
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("supervisor shutting down / 监督器正在关闭")
	if err := s.checker.Stop(); err != nil {
		s.logger.Warn("stop health checker failed / 停止健康检查器失败", zap.Error(err))
	}
	s.registry.KillAll(ctx)
	s.logger.Info("supervisor shutdown complete / 监督器关闭完成")
}
