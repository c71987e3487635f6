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

// Package main is the entry point for the Workstation service.
// main 包是 Workstation 服务的入口点。
//
// Workstation is a daemon process deployed on edge AI hosts that:
// Workstation 是部署在边缘 AI 主机上的守护进程，负责：
// - Manages AI workload records via HTTP API / 通过 HTTP API 管理 AI 工作负载记录
// - Supervises workload processes / 监督工作负载进程
// - Performs periodic health checks / 执行周期性健康检查
// - Captures and rotates process logs / 捕获并轮转进程日志
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/config"
	"github.com/edgeai/workstation/internal/db"
	"github.com/edgeai/workstation/internal/logger"
	"github.com/edgeai/workstation/internal/otel_trace"
	"github.com/edgeai/workstation/internal/router"
	"github.com/edgeai/workstation/internal/supervisor"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// rootCmd is the root command for the Workstation CLI
// rootCmd 是 Workstation CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "workstationd",
	Short: "Workstation - Edge AI workload supervisor",
	Long: `Workstation is a daemon process deployed on edge AI hosts.
Workstation 是部署在边缘 AI 主机上的守护进程。

It manages AI workload processes on the local host:
它管理本机上的 AI 工作负载进程：
- Workload CRUD via HTTP API / 通过 HTTP API 管理工作负载
- Process spawn, stop, and restart / 进程启动、停止和重启
- Periodic readiness and liveness checks / 周期性就绪与存活检查
- Per-process log capture with rotation / 按进程捕获并轮转日志`,
	RunE: runService,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Workstation\n")
		fmt.Printf("  Version:    %s\n", Version)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ./config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// runService is the main entry point for the Workstation service
// runService 是 Workstation 服务的主入口点
func runService(cmd *cobra.Command, args []string) error {
	// Load configuration
	// 加载配置
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w / 加载配置失败：%w", err, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w / 无效配置：%w", err, err)
	}

	// Initialize logger
	// 初始化日志
	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (based on config)
	// 初始化 OpenTelemetry 追踪（根据配置）
	otel_trace.Init(cfg.Telemetry, cfg.App.AppName)
	defer otel_trace.Shutdown(ctx)

	// Initialize database
	// 初始化数据库
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	repo := workload.NewRepository(gdb)

	// Assemble the supervisor
	// 组装监督器
	sup := supervisor.New(repo, supervisor.Config{
		RunnerPath:     cfg.Supervisor.RunnerPath,
		WorkersDir:     cfg.Supervisor.WorkersDir,
		LogDir:         cfg.Supervisor.LogDir,
		TTSPort:        cfg.Supervisor.TTSPort,
		CheckInterval:  cfg.Supervisor.HealthCheckInterval,
		GracePeriod:    cfg.Supervisor.GracePeriod,
		MinPort:        cfg.Supervisor.MinPort,
		MaxPort:        cfg.Supervisor.MaxPort,
		LogMaxSizeMB:   cfg.Supervisor.WorkerLogMaxSize,
		LogMaxBackups:  cfg.Supervisor.WorkerLogMaxBackups,
		LogMaxAgeDays:  cfg.Supervisor.WorkerLogMaxAge,
		LogRotateEvery: cfg.Supervisor.WorkerLogRotate,
	}, logger.L())
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start supervisor: %w / 启动监督器失败：%w", err, err)
	}

	service := workload.NewService(repo, sup.Controller(), cfg.Supervisor.MinPort, cfg.Supervisor.MaxPort)
	handler := workload.NewHandler(service, sup.Registry(), cfg.Supervisor.LogDir)

	engine := router.New(cfg.App.AppName, handler)
	srv := &http.Server{Addr: cfg.App.Addr, Handler: engine}

	// Run HTTP server in goroutine
	// 在 goroutine 中运行 HTTP 服务器
	errChan := make(chan error, 1)
	go func() {
		logger.InfoF(ctx, "[API] 监听 %s / listening on %s", cfg.App.Addr, cfg.App.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	// 设置信号处理以实现优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.InfoF(ctx, "[Main] 收到信号: %v / received signal: %v", sig, sig)
	case err := <-errChan:
		logger.ErrorF(ctx, "[Main] HTTP 服务器错误: %v / HTTP server error: %v", err, err)
	}

	// Graceful shutdown: stop accepting requests, then stop all workloads
	// 优雅关闭：先停止接收请求，再停止所有工作负载
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnF(ctx, "[Main] HTTP 关闭失败: %v / HTTP shutdown failed: %v", err, err)
	}
	sup.Shutdown(shutdownCtx)

	logger.InfoF(ctx, "[Main] 服务已退出 / service exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
