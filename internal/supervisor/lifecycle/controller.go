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

// Package lifecycle drives workload status changes into process registry
// operations.
// lifecycle 包将工作负载状态变化转化为进程注册表操作。
//
// This package provides:
// 此包提供：
// - Spawn on "prepare" with type-specific command assembly / 在 "prepare" 时按类型组装命令并启动
// - Stop on "inactive" / 在 "inactive" 时停止
// - Stop-then-reprepare on "restart" / 在 "restart" 时先停止再重新准备
// - Process termination on workload deletion / 删除工作负载时终止进程
package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/supervisor/registry"
)

// Store is the persistence collaborator the controller writes state back to.
// Store 是控制器写回状态的持久化协作方。
type Store interface {
	Update(ctx context.Context, id string, fields map[string]interface{}) (*workload.Workload, error)
}

// Config holds the worker process launch configuration.
type Config struct {
	// RunnerPath is the fixed executable used to launch every worker
	// (a Python environment/dependency runner).
	RunnerPath string
	// WorkersDir is the root directory of per-type worker implementations.
	WorkersDir string
	// TTSPort is the fixed text-to-speech port passed to lipsync workers.
	TTSPort int
}

// Controller reacts to workload status changes by invoking process registry
// operations and persisting the resulting state. Persistence failures are
// logged and otherwise swallowed: the periodic health checker reconciles on
// its next tick, giving eventual consistency.
// Controller 对工作负载状态变化做出反应：调用进程注册表操作并持久化结果状态。
// 持久化失败只记录日志不再重试，由周期性健康检查在下一轮实现最终一致。
type Controller struct {
	registry *registry.Registry
	store    Store
	cfg      Config
	logger   *zap.Logger
}

// NewController creates a Controller instance.
func NewController(reg *registry.Registry, store Store, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		registry: reg,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnStatusChanged handles an externally triggered status write for a
// workload (operator action persisted to the store).
// OnStatusChanged 处理外部触发的工作负载状态写入（操作员动作已持久化到存储）。
func (c *Controller) OnStatusChanged(ctx context.Context, w *workload.Workload) {
	switch w.Status {
	case workload.StatusPrepare:
		// The health checker later promotes prepare -> active once the
		// process is alive and passes readiness.
		// 健康检查稍后在进程存活且通过就绪探测后将 prepare 提升为 active。
		c.startWorkload(ctx, w)

	case workload.StatusActive:
		// Covers "just created, should run immediately": start directly.
		// 覆盖"刚创建、应立即运行"的路径：直接启动。
		c.startWorkload(ctx, w)

	case workload.StatusInactive:
		c.stopWorkload(ctx, w)

	case workload.StatusRestart:
		c.stopWorkload(ctx, w)
		// Re-enter the startup path via prepare
		// 通过 prepare 重新进入启动路径
		updated, err := c.store.Update(ctx, w.ID, map[string]interface{}{
			"status":     workload.StatusPrepare,
			"is_healthy": false,
		})
		if err != nil {
			c.logger.Error("persist restart->prepare failed / 持久化 restart->prepare 失败",
				zap.String("workload", w.ID), zap.Error(err))
			return
		}
		c.startWorkload(ctx, updated)

	case workload.StatusError:
		// Terminal until an operator or the health checker re-arms it.
		// 终态，直到操作员或健康检查重新激活。

	default:
		c.logger.Warn("unknown workload status / 未知的工作负载状态",
			zap.String("workload", w.ID), zap.String("status", string(w.Status)))
	}
}

// OnDeleted terminates any process associated with a deleted workload.
// OnDeleted 终止已删除工作负载关联的进程。
func (c *Controller) OnDeleted(ctx context.Context, w *workload.Workload) {
	if stopped := c.registry.Stop(ctx, w.ProcessName()); stopped {
		c.logger.Info("stopped process for deleted workload / 已停止被删除工作负载的进程",
			zap.String("workload", w.ID))
	}
}

// startWorkload builds the worker command line and spawns it. A spawn
// failure escalates the workload to error status.
func (c *Controller) startWorkload(ctx context.Context, w *workload.Workload) {
	args, err := buildArgs(w, c.cfg)
	if err != nil {
		c.logger.Error("build worker command failed / 构建工作进程命令失败",
			zap.String("workload", w.ID), zap.Error(err))
		c.markError(ctx, w, err)
		return
	}

	info, err := c.registry.Spawn(w.ProcessName(), c.cfg.RunnerPath, args, registry.SpawnOptions{
		Dir: workerDir(w, c.cfg),
	})
	if err != nil {
		c.logger.Error("spawn worker failed / 启动工作进程失败",
			zap.String("workload", w.ID), zap.Error(err))
		c.markError(ctx, w, err)
		return
	}

	c.logger.Info("worker started / 工作进程已启动",
		zap.String("workload", w.ID),
		zap.String("process", info.Name),
		zap.Int("pid", info.PID))
}

// stopWorkload stops the workload's process if one is registered.
func (c *Controller) stopWorkload(ctx context.Context, w *workload.Workload) {
	if stopped := c.registry.Stop(ctx, w.ProcessName()); !stopped {
		c.logger.Debug("no live process to stop / 没有需要停止的存活进程",
			zap.String("workload", w.ID))
	}
}

// markError persists the error state; failures are logged and swallowed.
func (c *Controller) markError(ctx context.Context, w *workload.Workload, cause error) {
	if _, err := c.store.Update(ctx, w.ID, map[string]interface{}{
		"status":         workload.StatusError,
		"status_message": cause.Error(),
		"is_healthy":     false,
	}); err != nil {
		c.logger.Error("persist error status failed / 持久化错误状态失败",
			zap.String("workload", w.ID), zap.Error(err))
	}
}
