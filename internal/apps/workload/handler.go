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
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edgeai/workstation/internal/logger"
	"github.com/edgeai/workstation/internal/supervisor/logsink"
	"github.com/edgeai/workstation/internal/supervisor/registry"
)

// ProcessLister 提供进程注册表快照
// ProcessLister provides process registry snapshots.
type ProcessLister interface {
	ListProcesses() []registry.ProcessInfo
}

// Handler provides HTTP handlers for workload management operations.
// Handler 提供工作负载管理操作的 HTTP 处理器。
type Handler struct {
	service   *Service
	processes ProcessLister
	logDir    string
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
// processes may be nil; the process list endpoint then returns an empty list.
func NewHandler(service *Service, processes ProcessLister, logDir string) *Handler {
	return &Handler{service: service, processes: processes, logDir: logDir}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// UpdateStatusRequest represents the request for updating workload status.
// UpdateStatusRequest 表示更新工作负载状态的请求。
type UpdateStatusRequest struct {
	Status WorkloadStatus `json:"status" binding:"required"`
}

// UpdateWorkloadRequest represents the request for updating workload fields.
// UpdateWorkloadRequest 表示更新工作负载字段的请求。
type UpdateWorkloadRequest struct {
	Name      *string   `json:"name"`
	Model     *string   `json:"model"`
	Device    *string   `json:"device"`
	Port      *int      `json:"port"`
	Metadata  *Metadata `json:"metadata"`
	HealthURL *string   `json:"health_url"`
}

// WorkloadResponse represents a single-workload response.
// WorkloadResponse 表示单个工作负载的响应。
type WorkloadResponse struct {
	ErrorMsg string    `json:"error_msg"`
	Data     *Workload `json:"data"`
}

// ListWorkloadsResponse represents the response for listing workloads.
// ListWorkloadsResponse 表示获取工作负载列表的响应。
type ListWorkloadsResponse struct {
	ErrorMsg string      `json:"error_msg"`
	Data     []*Workload `json:"data"`
}

// DeleteWorkloadResponse represents the response for deleting a workload.
// DeleteWorkloadResponse 表示删除工作负载的响应。
type DeleteWorkloadResponse struct {
	ErrorMsg string `json:"error_msg"`
	Data     any    `json:"data"`
}

// ListProcessesResponse represents the response for listing supervised processes.
// ListProcessesResponse 表示获取受监督进程列表的响应。
type ListProcessesResponse struct {
	ErrorMsg string                 `json:"error_msg"`
	Data     []registry.ProcessInfo `json:"data"`
}

// TailLogsResponse represents the response for tailing workload process logs.
// TailLogsResponse 表示获取工作负载进程日志的响应。
type TailLogsResponse struct {
	ErrorMsg string           `json:"error_msg"`
	Data     []logsink.Record `json:"data"`
}

// ==================== Workload CRUD Handlers 工作负载 CRUD 处理器 ====================

// CreateWorkload handles POST /api/v1/workloads - creates a new workload.
// CreateWorkload 处理 POST /api/v1/workloads - 创建新工作负载。
func (h *Handler) CreateWorkload(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	w, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	logger.InfoF(c.Request.Context(), "[Workload] 创建工作负载成功: %s (type: %s, port: %d)", w.Name, w.Type, w.Port)
	c.JSON(http.StatusOK, WorkloadResponse{Data: w})
}

// ListWorkloads handles GET /api/v1/workloads - lists workloads with filtering.
// ListWorkloads 处理 GET /api/v1/workloads - 获取工作负载列表（支持过滤）。
func (h *Handler) ListWorkloads(c *gin.Context) {
	filter := &WorkloadFilter{
		Name:   c.Query("name"),
		Type:   WorkloadType(c.Query("type")),
		Status: WorkloadStatus(c.Query("status")),
	}

	workloads, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ListWorkloadsResponse{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ListWorkloadsResponse{Data: workloads})
}

// GetWorkload handles GET /api/v1/workloads/:id - gets a workload by ID.
// GetWorkload 处理 GET /api/v1/workloads/:id - 根据 ID 获取工作负载详情。
func (h *Handler) GetWorkload(c *gin.Context) {
	w, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), WorkloadResponse{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, WorkloadResponse{Data: w})
}

// UpdateWorkload handles PUT /api/v1/workloads/:id - updates workload fields.
// UpdateWorkload 处理 PUT /api/v1/workloads/:id - 更新工作负载字段。
func (h *Handler) UpdateWorkload(c *gin.Context) {
	var req UpdateWorkloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Model != nil {
		fields["model"] = *req.Model
	}
	if req.Device != nil {
		fields["device"] = *req.Device
	}
	if req.Port != nil {
		fields["port"] = *req.Port
	}
	if req.Metadata != nil {
		fields["metadata"] = *req.Metadata
	}
	if req.HealthURL != nil {
		fields["health_url"] = *req.HealthURL
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, WorkloadResponse{ErrorMsg: "没有可更新的字段 / no updatable fields"})
		return
	}

	w, err := h.service.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	logger.InfoF(c.Request.Context(), "[Workload] 更新工作负载成功: %s", w.Name)
	c.JSON(http.StatusOK, WorkloadResponse{Data: w})
}

// UpdateWorkloadStatus handles PUT /api/v1/workloads/:id/status - changes desired status.
// UpdateWorkloadStatus 处理 PUT /api/v1/workloads/:id/status - 变更期望状态。
func (h *Handler) UpdateWorkloadStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	w, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), WorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, WorkloadResponse{Data: w})
}

// DeleteWorkload handles DELETE /api/v1/workloads/:id - stops and removes a workload.
// DeleteWorkload 处理 DELETE /api/v1/workloads/:id - 停止并删除工作负载。
func (h *Handler) DeleteWorkload(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(h.getStatusCodeForError(err), DeleteWorkloadResponse{ErrorMsg: err.Error()})
		return
	}

	logger.InfoF(c.Request.Context(), "[Workload] 删除工作负载成功: %s", c.Param("id"))
	c.JSON(http.StatusOK, DeleteWorkloadResponse{})
}

// ==================== Supervisor Handlers 监督器处理器 ====================

// ListProcesses handles GET /api/v1/processes - lists supervised processes.
// ListProcesses 处理 GET /api/v1/processes - 获取受监督进程列表。
func (h *Handler) ListProcesses(c *gin.Context) {
	var infos []registry.ProcessInfo
	if h.processes != nil {
		infos = h.processes.ListProcesses()
	}
	c.JSON(http.StatusOK, ListProcessesResponse{Data: infos})
}

// TailWorkloadLogs handles GET /api/v1/workloads/:id/logs - returns recent process log records.
// TailWorkloadLogs 处理 GET /api/v1/workloads/:id/logs - 返回最近的进程日志记录。
func (h *Handler) TailWorkloadLogs(c *gin.Context) {
	w, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(h.getStatusCodeForError(err), TailLogsResponse{ErrorMsg: err.Error()})
		return
	}

	lines := 100
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 10000 {
			c.JSON(http.StatusBadRequest, TailLogsResponse{ErrorMsg: "无效的行数 / invalid lines parameter"})
			return
		}
		lines = n
	}

	records, err := logsink.ReadTail(h.logDir, w.ProcessName(), lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, TailLogsResponse{ErrorMsg: err.Error()})
		return
	}

	c.JSON(http.StatusOK, TailLogsResponse{Data: records})
}

// getStatusCodeForError maps domain errors to HTTP status codes.
// getStatusCodeForError 将领域错误映射为 HTTP 状态码。
func (h *Handler) getStatusCodeForError(err error) int {
	switch {
	case errors.Is(err, ErrWorkloadNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrWorkloadPortDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrWorkloadNameEmpty),
		errors.Is(err, ErrWorkloadInvalidType),
		errors.Is(err, ErrWorkloadInvalidPort),
		errors.Is(err, ErrWorkloadInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
