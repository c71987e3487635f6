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

// Package probe provides HTTP readiness probing with retry/backoff for the
// workload supervisor.
// probe 包为工作负载监督器提供带重试/退避的 HTTP 就绪探测。
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Default probe values
// 默认探测配置值
const (
	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 3 * time.Second
	// DefaultMinPort and DefaultMaxPort define the port allow-list.
	// Ports below 1024 are never valid worker ports.
	DefaultMinPort = 1024
	DefaultMaxPort = 65535
)

// Error definitions for probe validation and execution.
var (
	// ErrPortNotAllowed indicates the port is outside the allow-list.
	ErrPortNotAllowed = errors.New("probe: port outside allowed range")
	// ErrUnsafeHealthPath indicates the health path failed validation.
	ErrUnsafeHealthPath = errors.New("probe: unsafe health check path")
	// ErrProbeFailed indicates every attempt of a probe run failed.
	ErrProbeFailed = errors.New("probe: readiness probe failed")
)

// ValidateHealthPath validates a relative health-check path. The probe target
// is always http://localhost:<port><path>, so anything that could redirect
// the request elsewhere is rejected: parent traversal, backslashes, embedded
// schemes, and paths that do not start with '/'.
// ValidateHealthPath 验证相对健康检查路径。探测目标始终是
// http://localhost:<port><path>，因此任何可能把请求重定向到别处的内容都会被拒绝。
func ValidateHealthPath(path string) error {
	if path == "" {
		return ErrUnsafeHealthPath
	}
	if !strings.HasPrefix(path, "/") {
		return ErrUnsafeHealthPath
	}
	if strings.Contains(path, "..") || strings.Contains(path, "\\") || strings.Contains(path, "://") {
		return ErrUnsafeHealthPath
	}
	return nil
}

// Prober issues bounded-timeout HTTP readiness probes against localhost.
// Prober 对 localhost 发起有超时限制的 HTTP 就绪探测。
type Prober struct {
	client  *http.Client
	minPort int
	maxPort int
	logger  *zap.Logger
}

// ProberOption customizes a Prober.
type ProberOption func(*Prober)

// WithPortRange overrides the port allow-list.
func WithPortRange(min, max int) ProberOption {
	return func(p *Prober) {
		p.minPort = min
		p.maxPort = max
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.client.Timeout = timeout
	}
}

// NewProber creates a Prober with the default timeout and port allow-list.
func NewProber(logger *zap.Logger, opts ...ProberOption) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Prober{
		client:  &http.Client{Timeout: DefaultTimeout},
		minPort: DefaultMinPort,
		maxPort: DefaultMaxPort,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// validatePort checks the port against the allow-list before any network
// call is attempted.
func (p *Prober) validatePort(port int) error {
	if port < p.minPort || port > p.maxPort {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrPortNotAllowed, port, p.minPort, p.maxPort)
	}
	return nil
}

// Check runs a readiness probe against http://localhost:<port><path> using
// the given retry policy. Validation failures are returned immediately
// without any network call. Any non-200 response counts as a failed attempt.
// The overall result is success only if some attempt returns 200 before the
// policy is exhausted; retries sleep with exponential backoff and respect
// context cancellation.
// Check 使用给定的重试策略对 http://localhost:<port><path> 执行就绪探测。
// 验证失败立即返回，不发起任何网络调用。任何非 200 响应都算一次失败尝试。
func (p *Prober) Check(ctx context.Context, port int, path string, policy RetryConfig) error {
	if err := p.validatePort(port); err != nil {
		return err
	}
	if err := ValidateHealthPath(path); err != nil {
		return err
	}

	target := fmt.Sprintf("http://localhost:%d%s", port, path)

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := p.attempt(ctx, target); err == nil {
			return nil
		} else {
			lastErr = err
			p.logger.Debug("readiness probe attempt failed / 就绪探测尝试失败",
				zap.String("target", target),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(err))
		}

		// No sleep after the final attempt / 最后一次尝试后不再等待
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.DelayFor(attempt)):
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrProbeFailed, target, policy.MaxAttempts, lastErr)
}

// attempt issues a single bounded-timeout GET and treats any non-200
// response as failure.
func (p *Prober) attempt(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
