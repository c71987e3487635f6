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

package workload

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/edgeai/workstation/internal/logger"
)

// LifecycleHook 在工作负载状态变化时被回调
// LifecycleHook is invoked when workload state changes.
// 监督器的生命周期控制器实现该接口。
// The supervisor's lifecycle controller implements this interface.
type LifecycleHook interface {
	// OnStatusChanged 在状态持久化之后调用
	// OnStatusChanged is called after the status has been persisted
	OnStatusChanged(ctx context.Context, w *Workload)

	// OnDeleted 在工作负载删除之前调用
	// OnDeleted is called before the workload record is removed
	OnDeleted(ctx context.Context, w *Workload)
}

// noopHook 用于未接入监督器的场景（如测试）
type noopHook struct{}

func (noopHook) OnStatusChanged(context.Context, *Workload) {}
func (noopHook) OnDeleted(context.Context, *Workload)      {}

// Service 提供工作负载业务逻辑
// Service provides workload business logic.
type Service struct {
	repo    *Repository
	hook    LifecycleHook
	minPort int
	maxPort int
}

// NewService 创建工作负载服务
// NewService creates a workload service.
// hook 为 nil 时状态变化不触发任何进程操作。
func NewService(repo *Repository, hook LifecycleHook, minPort, maxPort int) *Service {
	if hook == nil {
		hook = noopHook{}
	}
	return &Service{repo: repo, hook: hook, minPort: minPort, maxPort: maxPort}
}

// CreateRequest 创建工作负载的入参
// CreateRequest carries parameters for creating a workload.
type CreateRequest struct {
	Name      string         `json:"name" binding:"required"`
	Type      WorkloadType   `json:"type" binding:"required"`
	Model     string         `json:"model"`
	Device    string         `json:"device"`
	Port      int            `json:"port" binding:"required"`
	Metadata  Metadata       `json:"metadata"`
	Status    WorkloadStatus `json:"status"`
	HealthURL string         `json:"health_url"`
}

// Create 校验并创建工作负载；初始状态为 prepare 或 active 时触发进程启动
// Create validates and creates a workload; an initial status of prepare or
// active triggers process startup.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Workload, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrWorkloadInvalidType, req.Type)
	}
	if req.Port < s.minPort || req.Port > s.maxPort {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrWorkloadInvalidPort, req.Port, s.minPort, s.maxPort)
	}

	status := req.Status
	if status == "" {
		status = StatusInactive
	}
	// 初始状态仅允许 inactive / prepare / active；restart 与 error 只能由
	// 运行期产生
	// Only inactive / prepare / active are valid initial statuses; restart
	// and error can only arise at runtime
	switch status {
	case StatusInactive, StatusPrepare, StatusActive:
	default:
		return nil, fmt.Errorf("%w: %s", ErrWorkloadInvalidStatus, status)
	}

	w := &Workload{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      req.Type,
		Model:     req.Model,
		Device:    req.Device,
		Port:      req.Port,
		Metadata:  req.Metadata,
		Status:    status,
		HealthURL: req.HealthURL,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}

	// prepare / active 的初始状态立即启动对应进程
	// An initial prepare / active status starts the process immediately
	if status == StatusPrepare || status == StatusActive {
		s.hook.OnStatusChanged(ctx, w)
	}
	return w, nil
}

// Get 按 ID 获取工作负载
// Get returns a workload by ID.
func (s *Service) Get(ctx context.Context, id string) (*Workload, error) {
	return s.repo.GetByID(ctx, id)
}

// List 按过滤条件返回工作负载，按创建时间排序
// List returns workloads matching the filter, ordered by creation time.
func (s *Service) List(ctx context.Context, filter *WorkloadFilter) ([]*Workload, error) {
	return s.repo.Find(ctx, filter)
}

// UpdateStatus 持久化新状态并触发生命周期动作
// UpdateStatus persists the new status and triggers the lifecycle action.
func (s *Service) UpdateStatus(ctx context.Context, id string, status WorkloadStatus) (*Workload, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrWorkloadInvalidStatus, status)
	}

	fields := map[string]interface{}{"status": status}
	if status != StatusActive {
		fields["is_healthy"] = false
	}
	if status == StatusPrepare || status == StatusRestart {
		fields["status_message"] = ""
	}

	w, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	logger.InfoF(ctx, "[Workload] 状态更新: %s -> %s / status updated", w.ProcessName(), status)
	s.hook.OnStatusChanged(ctx, w)
	return w, nil
}

// Update 更新工作负载的可变字段（不含状态）
// Update modifies mutable workload fields (excluding status).
func (s *Service) Update(ctx context.Context, id string, fields map[string]interface{}) (*Workload, error) {
	if port, ok := fields["port"].(int); ok {
		if port < s.minPort || port > s.maxPort {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrWorkloadInvalidPort, port, s.minPort, s.maxPort)
		}
	}
	delete(fields, "status")
	return s.repo.Update(ctx, id, fields)
}

// Delete 停止工作负载进程并删除记录
// Delete stops the workload process and removes the record.
func (s *Service) Delete(ctx context.Context, id string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// 先停进程再删记录，避免遗留孤儿进程
	// Stop the process before removing the record to avoid orphans
	s.hook.OnDeleted(ctx, w)

	return s.repo.Delete(ctx, id)
}
