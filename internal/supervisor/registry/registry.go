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

// Package registry provides worker process lifecycle management for the
// workload supervisor.
// registry 包为工作负载监督器提供工作进程生命周期管理。
//
// This package provides:
// 此包提供：
// - Idempotent spawn with at-most-one-running-instance-per-name / 幂等启动，每个名称最多一个运行实例
// - Graceful stop with process-group termination and forced-kill fallback / 带进程组终止和强杀回退的优雅停止
// - Structured log capture of stdout/stderr into a rotating sink / 将标准输出/错误捕获为结构化日志并轮转
// - Stale entry cleanup and process-wide shutdown / 失效条目清理与整体关闭
package registry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeai/workstation/internal/supervisor/logsink"
)

// DefaultGracePeriod is how long a stopped process may take to exit after
// the graceful termination signal before it is force-killed.
// DefaultGracePeriod 是发送优雅终止信号后进程被强杀前允许的退出时间。
const DefaultGracePeriod = 5 * time.Second

// Status represents the runtime status of a registered process entry.
type Status string

const (
	// StatusActive indicates the process is running.
	StatusActive Status = "active"
	// StatusStopped indicates the process has exited.
	StatusStopped Status = "stopped"
	// StatusError indicates the process entry hit a non-exit error.
	StatusError Status = "error"
)

// ErrSpawnFailed indicates the worker process could not be launched.
var ErrSpawnFailed = errors.New("registry: process failed to start")

// ProcessInfo is a point-in-time snapshot of a registered process entry.
type ProcessInfo struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	PID       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
}

// SpawnOptions contains optional parameters for spawning a worker process.
type SpawnOptions struct {
	// Dir is the working directory for the process.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// processEntry is the runtime record for one spawned process. It is owned
// exclusively by the Registry; consumers only see ProcessInfo snapshots.
// processEntry 是单个已启动进程的运行时记录，由 Registry 独占持有。
type processEntry struct {
	name      string
	cmd       *exec.Cmd
	pid       int
	startTime time.Time
	sink      *logsink.Sink

	mu     sync.RWMutex
	status Status

	// done is closed once the process has exited and its output drained.
	done chan struct{}
}

func (e *processEntry) info() ProcessInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ProcessInfo{
		Name:      e.name,
		Status:    e.status,
		PID:       e.pid,
		StartTime: e.startTime,
	}
}

func (e *processEntry) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

func (e *processEntry) getStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Registry owns the set of live worker processes and their log sinks. All
// mutation of the process table goes through its exported operations, and
// concurrent spawn/stop calls for the same name are serialized.
// Registry 持有所有存活工作进程及其日志接收器。进程表的所有变更都通过其
// 导出的操作进行，同名的并发启动/停止调用会被串行化。
type Registry struct {
	mu      sync.Mutex
	entries map[string]*processEntry

	sinkOpts logsink.Options
	grace    time.Duration
	logger   *zap.Logger
}

// Option customizes a Registry.
type Option func(*Registry)

// WithGracePeriod overrides the graceful stop timeout.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.grace = d
		}
	}
}

// New creates a Registry writing per-process logs under sinkOpts.Dir.
func New(sinkOpts logsink.Options, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries:  make(map[string]*processEntry),
		sinkOpts: sinkOpts,
		grace:    DefaultGracePeriod,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spawn launches the command under the given process name. If the name
// already has a live entry, the existing entry is returned unchanged and a
// warning is logged: spawn is idempotent, at most one running instance per
// name. A dead leftover entry for the name is cleaned up before relaunch.
// Spawn 以给定进程名启动命令。如果该名称已有存活条目，则原样返回现有条目并
// 记录警告：启动是幂等的，每个名称最多一个运行实例。
func (r *Registry) Spawn(name, command string, args []string, opts SpawnOptions) (ProcessInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		if existing.getStatus() == StatusActive {
			r.logger.Warn("spawn ignored, process already running / 忽略启动，进程已在运行",
				zap.String("name", name), zap.Int("pid", existing.pid))
			return existing.info(), nil
		}
		// Leftover dead entry: reclaim before relaunch
		// 残留的死亡条目：重新启动前先回收
		r.cleanupLocked(existing)
	}

	sink, err := logsink.New(name, r.sinkOpts, r.logger)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	cmd := exec.Command(command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	cmd.Env = os.Environ()
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Env, opts.Env...)
	}

	// Run the worker in its own process group so the whole tree can be
	// signalled on stop.
	// 让工作进程运行在独立进程组中，停止时可向整棵进程树发送信号。
	setProcGroupAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sink.Close()
		return ProcessInfo{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		sink.Close()
		return ProcessInfo{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		sink.Write(logsink.Record{
			Process: name,
			Type:    logsink.StreamSystem,
			Message: fmt.Sprintf("failed to start process: %v", err),
		})
		sink.Close()
		return ProcessInfo{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	entry := &processEntry{
		name:      name,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startTime: time.Now(),
		status:    StatusActive,
		sink:      sink,
		done:      make(chan struct{}),
	}
	r.entries[name] = entry

	sink.Write(logsink.Record{
		Process: name,
		PID:     entry.pid,
		Type:    logsink.StreamSystem,
		Message: fmt.Sprintf("process started: %s (pid %d)", command, entry.pid),
	})
	r.logger.Info("process spawned / 进程已启动",
		zap.String("name", name),
		zap.String("command", command),
		zap.Int("pid", entry.pid))

	// Drain both pipes into the sink, then reap the process.
	// 将两个管道排入日志接收器，然后回收进程。
	var pipes sync.WaitGroup
	pipes.Add(2)
	go r.streamOutput(entry, stdout, logsink.StreamStdout, &pipes)
	go r.streamOutput(entry, stderr, logsink.StreamStderr, &pipes)
	go r.reap(entry, &pipes)

	return entry.info(), nil
}

// streamOutput converts raw output lines into structured log records.
func (r *Registry) streamOutput(entry *processEntry, pipe io.Reader, stream string, pipes *sync.WaitGroup) {
	defer pipes.Done()

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry.sink.Write(logsink.Record{
			Process: entry.name,
			PID:     entry.pid,
			Type:    stream,
			Message: scanner.Text(),
		})
	}
}

// reap waits for the process to exit, records the outcome, and transitions
// the entry's status. A plain exit (code 0 or non-zero) becomes "stopped";
// anything else becomes "error".
func (r *Registry) reap(entry *processEntry, pipes *sync.WaitGroup) {
	pipes.Wait()
	err := entry.cmd.Wait()

	switch {
	case err == nil:
		entry.setStatus(StatusStopped)
		entry.sink.Write(logsink.Record{
			Process: entry.name,
			PID:     entry.pid,
			Type:    logsink.StreamSystem,
			Message: "process exited (code 0)",
		})
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			entry.setStatus(StatusStopped)
			entry.sink.Write(logsink.Record{
				Process: entry.name,
				PID:     entry.pid,
				Type:    logsink.StreamSystem,
				Message: fmt.Sprintf("process exited (code %d)", exitErr.ExitCode()),
			})
		} else {
			entry.setStatus(StatusError)
			entry.sink.Write(logsink.Record{
				Process: entry.name,
				PID:     entry.pid,
				Type:    logsink.StreamSystem,
				Message: fmt.Sprintf("process wait error: %v", err),
			})
		}
	}

	r.logger.Info("process exited / 进程已退出",
		zap.String("name", entry.name), zap.Int("pid", entry.pid))
	close(entry.done)
}

// Stop gracefully terminates the named process tree. It returns false when
// no entry exists, and also when the entry's process had already terminated:
// in that case only cleanup is performed, nothing live was stopped. When the
// process is live, the whole process group receives the graceful signal, a
// forced kill is armed after the grace period, and Stop returns true once
// the process has exited and the entry is reclaimed.
// Stop 优雅终止指定名称的进程树。无条目时返回 false；条目进程已经终止时也
// 返回 false，此时只做清理。进程存活时向整个进程组发送优雅信号，超过宽限期
// 后强制杀死，进程退出并回收条目后返回 true。
func (r *Registry) Stop(ctx context.Context, name string) bool {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if entry.getStatus() != StatusActive {
		r.cleanupLocked(entry)
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	r.logger.Info("stopping process / 正在停止进程",
		zap.String("name", name), zap.Int("pid", entry.pid))

	if err := terminateTree(entry.pid, false); err != nil {
		r.logger.Warn("graceful termination signal failed / 优雅终止信号发送失败",
			zap.String("name", name), zap.Int("pid", entry.pid), zap.Error(err))
	}

	// Forced-kill fallback after the grace period
	// 宽限期后的强制杀死回退
	select {
	case <-entry.done:
	case <-time.After(r.grace):
		r.logger.Warn("grace period expired, force killing / 宽限期已过，强制杀死",
			zap.String("name", name), zap.Int("pid", entry.pid))
		if err := terminateTree(entry.pid, true); err != nil {
			r.logger.Warn("force kill failed / 强制杀死失败",
				zap.String("name", name), zap.Int("pid", entry.pid), zap.Error(err))
		}
		select {
		case <-entry.done:
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.cleanupLocked(entry)
	r.mu.Unlock()
	return true
}

// Get returns a snapshot of the named entry.
func (r *Registry) Get(name string) (ProcessInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return ProcessInfo{}, false
	}
	return entry.info(), true
}

// ListProcesses returns a snapshot of all registered entries. No side effects.
func (r *Registry) ListProcesses() []ProcessInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ProcessInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, entry.info())
	}
	return infos
}

// RemoveDeadProcess removes bookkeeping for an entry whose underlying
// process no longer exists, without attempting to signal it. Returns false
// when no entry exists or the process is still alive.
// RemoveDeadProcess 移除底层进程已不存在的条目的记录，不尝试发送信号。
func (r *Registry) RemoveDeadProcess(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return false
	}
	if entry.getStatus() == StatusActive && IsPidAlive(entry.pid) {
		return false
	}

	r.logger.Info("removing stale process entry / 移除失效进程条目",
		zap.String("name", name), zap.Int("pid", entry.pid))
	r.cleanupLocked(entry)
	return true
}

// KillAll best-effort stops every registered entry. Used only at
// process-wide shutdown; calling it twice is harmless.
// KillAll 尽力停止所有已注册条目，仅在整体关闭时使用，重复调用无害。
func (r *Registry) KillAll(ctx context.Context) {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.Stop(ctx, name)
	}
}

// cleanupLocked closes the entry's log sink and drops it from the table.
// The table delete only happens while the name still maps to this same
// entry: Stop releases the lock while waiting for the process to exit, and
// a Spawn landing in that window replaces the dead entry with a fresh live
// one that must survive the final cleanup.
// cleanupLocked 关闭条目的日志接收器并将其从进程表中移除。仅当该名称仍映射
// 到同一条目时才执行删除：Stop 在等待进程退出期间会释放锁，此窗口内落地的
// Spawn 会用新的存活条目替换死亡条目，新条目必须在收尾清理中幸存。
// Callers must hold r.mu.
func (r *Registry) cleanupLocked(entry *processEntry) {
	if err := entry.sink.Close(); err != nil {
		r.logger.Warn("close log sink failed / 关闭日志接收器失败",
			zap.String("name", entry.name), zap.Error(err))
	}
	if current, ok := r.entries[entry.name]; ok && current == entry {
		delete(r.entries, entry.name)
	}
}
