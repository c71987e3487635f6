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

// Package health provides periodic workload health checking for the
// Workstation supervisor.
// health 包为 Workstation 监督器提供周期性工作负载健康检查。
//
// This package provides:
// 此包提供：
// - Fixed-interval sequential checking of all workloads / 固定间隔顺序检查所有工作负载
// - Liveness verification via the process registry / 通过进程注册表验证进程存活
// - HTTP readiness probing with retry policies / 带重试策略的 HTTP 就绪探测
// - Stale process entry cleanup / 失效进程条目清理
package health

import (
	"context"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/supervisor/probe"
	"github.com/edgeai/workstation/internal/supervisor/registry"
)

// DefaultCheckInterval is the default period between health check ticks.
// DefaultCheckInterval 是健康检查的默认周期。
const DefaultCheckInterval = 10 * time.Second

// safeTokenRe is the token set allowed in process-lookup key components.
// Anything else is rejected before building a lookup key.
// safeTokenRe 是进程查找键组成部分允许的字符集。
var safeTokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store is the persistence collaborator supplying and storing workload
// records.
// Store 是提供和存储工作负载记录的持久化协作方。
type Store interface {
	Find(ctx context.Context, filter *workload.WorkloadFilter) ([]*workload.Workload, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*workload.Workload, error)
}

// Checker periodically reconciles workload records against the process
// registry and readiness probes, computing a new (status, isHealthy) pair
// per workload.
// Checker 周期性地将工作负载记录与进程注册表和就绪探测对账，为每个工作负载
// 计算新的 (status, isHealthy) 组合。
type Checker struct {
	store    Store
	registry *registry.Registry
	prober   *probe.Prober

	interval       time.Duration
	standardPolicy probe.RetryConfig
	preparePolicy  probe.RetryConfig
	logger         *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.Mutex
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithInterval overrides the check interval.
func WithInterval(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithPolicies overrides the standard and prepare retry policies.
func WithPolicies(standard, prepare probe.RetryConfig) CheckerOption {
	return func(c *Checker) {
		c.standardPolicy = standard
		c.preparePolicy = prepare
	}
}

// NewChecker creates a Checker instance.
func NewChecker(store Store, reg *registry.Registry, prober *probe.Prober, logger *zap.Logger, opts ...CheckerOption) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{
		store:          store,
		registry:       reg,
		prober:         prober,
		interval:       DefaultCheckInterval,
		standardPolicy: probe.StandardRetryConfig,
		preparePolicy:  probe.PrepareRetryConfig,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the periodic check loop. Calling Start on a running
// checker is a no-op.
// Start 启动周期性检查循环。对运行中的检查器调用 Start 是空操作。
func (c *Checker) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	c.logger.Info("health checker starting / 健康检查器启动",
		zap.Duration("interval", c.interval))

	go c.checkLoop()
	return nil
}

// Stop cancels the check loop. Safe to call more than once.
// Stop 取消检查循环，可安全地多次调用。
func (c *Checker) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false

	c.logger.Info("health checker stopped / 健康检查器已停止")
	return nil
}

// checkLoop runs the fixed-interval check ticker.
func (c *Checker) checkLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(c.ctx)
		}
	}
}

// CheckAll runs one health check pass over every known workload,
// sequentially. Exported so a tick can also be driven explicitly in tests
// and on demand.
// CheckAll 对所有已知工作负载顺序执行一轮健康检查。
func (c *Checker) CheckAll(ctx context.Context) {
	workloads, err := c.store.Find(ctx, nil)
	if err != nil {
		c.logger.Error("list workloads failed / 获取工作负载列表失败", zap.Error(err))
		return
	}

	for _, w := range workloads {
		c.checkWorkload(ctx, w)
	}
}

// checkWorkload computes and persists the new (status, isHealthy) pair for
// one workload. Only fields that actually changed are written back.
func (c *Checker) checkWorkload(ctx context.Context, w *workload.Workload) {
	// Sanitize the key components before any process lookup
	// 在任何进程查找之前清理键组成部分
	if !safeTokenRe.MatchString(string(w.Type)) || !safeTokenRe.MatchString(w.ID) {
		c.logger.Warn("workload has unsafe identifier, skipping / 工作负载标识不安全，跳过",
			zap.String("workload", w.ID), zap.String("type", string(w.Type)))
		return
	}

	name := w.ProcessName()
	info, registered := c.registry.Get(name)
	alive := registered && info.Status == registry.StatusActive && registry.IsPidAlive(info.PID)

	switch w.Status {
	case workload.StatusError, workload.StatusInactive:
		// Cleanup path, not a health determination: drop stale bookkeeping
		// and make sure the record is not claiming health.
		// 清理路径而非健康判定：丢弃失效记录并确保不再声称健康。
		if registered && !alive {
			c.registry.RemoveDeadProcess(name)
		}
		if w.IsHealthy {
			c.persist(ctx, w, map[string]interface{}{"is_healthy": false})
		}

	case workload.StatusPrepare:
		if !alive {
			if registered && !registry.IsPidAlive(info.PID) {
				c.registry.RemoveDeadProcess(name)
			}
			// Spawn has not landed yet or the process died during startup;
			// leave prepare in place for the next tick.
			// 启动尚未完成或进程在启动期间死亡；保持 prepare 等待下一轮。
			if w.IsHealthy {
				c.persist(ctx, w, map[string]interface{}{"is_healthy": false})
			}
			return
		}

		if w.HealthURL == "" {
			// No health URL: an alive process in prepare is promoted directly.
			// 没有健康检查地址：prepare 中的存活进程直接提升。
			c.persist(ctx, w, map[string]interface{}{
				"status":         workload.StatusActive,
				"is_healthy":     true,
				"status_message": "",
			})
			return
		}

		if err := c.prober.Check(ctx, w.Port, w.HealthURL, c.preparePolicy); err != nil {
			// Exhausted the prepare policy: record the still-unhealthy probe
			// result but leave the status unchanged, to be retried next tick.
			// 准备策略已用尽：记录仍不健康的探测结果，状态保持不变，下一轮重试。
			c.logger.Warn("prepare readiness probe failed / 准备期就绪探测失败",
				zap.String("workload", w.ID), zap.Error(err))
			fields := map[string]interface{}{}
			if w.IsHealthy {
				fields["is_healthy"] = false
			}
			if w.StatusMessage != err.Error() {
				fields["status_message"] = err.Error()
			}
			c.persist(ctx, w, fields)
			return
		}

		c.persist(ctx, w, map[string]interface{}{
			"status":         workload.StatusActive,
			"is_healthy":     true,
			"status_message": "",
		})

	default:
		// Normal path for active (and transient) statuses.
		// active（以及过渡）状态的常规路径。
		if !alive {
			if registered {
				c.registry.RemoveDeadProcess(name)
			}
			c.persist(ctx, w, map[string]interface{}{
				"status":         workload.StatusError,
				"is_healthy":     false,
				"status_message": "process is not running",
			})
			return
		}

		if w.HealthURL == "" {
			// Alive with no health URL: healthy by definition.
			// 存活且无健康检查地址：按定义视为健康。
			if !w.IsHealthy {
				c.persist(ctx, w, map[string]interface{}{"is_healthy": true})
			}
			return
		}

		if err := c.prober.Check(ctx, w.Port, w.HealthURL, c.standardPolicy); err != nil {
			// A process that is up but not answering health checks is not
			// torn down: it stays active, only marked unhealthy.
			// 进程存活但不响应健康检查时不会被拆除：保持 active，仅标记为不健康。
			c.logger.Warn("readiness probe failed / 就绪探测失败",
				zap.String("workload", w.ID), zap.Error(err))
			if w.IsHealthy {
				c.persist(ctx, w, map[string]interface{}{"is_healthy": false})
			}
			return
		}

		if !w.IsHealthy {
			c.persist(ctx, w, map[string]interface{}{"is_healthy": true})
		}
	}
}

// persist writes back only the changed fields; a store failure is logged
// and otherwise swallowed, to be self-healed by the next tick.
func (c *Checker) persist(ctx context.Context, w *workload.Workload, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	if _, err := c.store.Update(ctx, w.ID, fields); err != nil {
		c.logger.Error("persist health state failed / 持久化健康状态失败",
			zap.String("workload", w.ID), zap.Error(err))
	}
}
