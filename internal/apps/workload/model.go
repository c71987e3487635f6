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

// Package workload provides workload management functionality for the Workstation system.
// workload 包提供 Workstation 系统的工作负载管理功能。
package workload

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// WorkloadType represents the kind of AI worker service a workload runs.
type WorkloadType string

const (
	// TypeSpeechToText indicates a speech-to-text worker.
	TypeSpeechToText WorkloadType = "speech-to-text"
	// TypeTextToSpeech indicates a text-to-speech worker.
	TypeTextToSpeech WorkloadType = "text-to-speech"
	// TypeEmbedding indicates an embedding (and reranking) worker.
	TypeEmbedding WorkloadType = "embedding"
	// TypeTextGeneration indicates a text-generation worker.
	TypeTextGeneration WorkloadType = "text-generation"
	// TypeLipsync indicates a lipsync worker.
	TypeLipsync WorkloadType = "lipsync"
)

// AllTypes lists every valid workload type.
var AllTypes = []WorkloadType{
	TypeSpeechToText,
	TypeTextToSpeech,
	TypeEmbedding,
	TypeTextGeneration,
	TypeLipsync,
}

// Valid reports whether t is a known workload type.
func (t WorkloadType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// WorkloadStatus represents the current status of a workload.
type WorkloadStatus string

const (
	// StatusPrepare indicates the workload process has been (or is about to be)
	// launched but has not yet passed its readiness probe.
	StatusPrepare WorkloadStatus = "prepare"
	// StatusActive indicates the workload process is running and has passed readiness.
	StatusActive WorkloadStatus = "active"
	// StatusInactive indicates the workload should not be running.
	StatusInactive WorkloadStatus = "inactive"
	// StatusRestart indicates the workload should be stopped and re-prepared.
	StatusRestart WorkloadStatus = "restart"
	// StatusError indicates the workload is in an error state until re-armed.
	StatusError WorkloadStatus = "error"
)

// Valid reports whether s is a known workload status.
func (s WorkloadStatus) Valid() bool {
	switch s {
	case StatusPrepare, StatusActive, StatusInactive, StatusRestart, StatusError:
		return true
	}
	return false
}

// Metadata represents the free-form JSON metadata attached to a workload.
// Metadata 表示附加到工作负载的自由格式 JSON 元数据。
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("workload: failed to scan Metadata - expected []byte")
		}
	}
	return json.Unmarshal(bytes, m)
}

// String returns the metadata value for key as a string, or "" when absent
// or not a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Workload represents a configured, independently launchable AI worker service.
// Workload 表示一个可独立启动的 AI 工作服务配置。
type Workload struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	Name          string         `json:"name" gorm:"size:100;not null"`
	Type          WorkloadType   `json:"type" gorm:"size:32;not null;index"`
	Model         string         `json:"model" gorm:"size:255"`
	Device        string         `json:"device" gorm:"size:32"`
	Port          int            `json:"port" gorm:"uniqueIndex;not null"`
	Metadata      Metadata       `json:"metadata" gorm:"type:json"`
	Status        WorkloadStatus `json:"status" gorm:"size:16;default:inactive;index"`
	StatusMessage string         `json:"status_message" gorm:"type:text"`
	HealthURL     string         `json:"health_url" gorm:"size:255"`
	IsHealthy     bool           `json:"is_healthy" gorm:"default:false"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the database table name for Workload.
func (Workload) TableName() string {
	return "workloads"
}

// ProcessName returns the derived key used to correlate this workload with
// its OS-level process entry.
// ProcessName 返回用于关联此工作负载与其操作系统进程条目的派生键。
func (w *Workload) ProcessName() string {
	return fmt.Sprintf("%s_%s", w.Type, w.ID)
}

// WorkloadFilter defines filter criteria for listing workloads.
type WorkloadFilter struct {
	Name   string         `json:"name"`
	Type   WorkloadType   `json:"type"`
	Status WorkloadStatus `json:"status"`
}
