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

package lifecycle

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/edgeai/workstation/internal/apps/workload"
)

// Metadata keys consumed by type-specific argument assembly.
// 类型特定参数组装使用的元数据键。
const (
	MetaDenoiseModel   = "denoise_model"
	MetaDenoiseDevice  = "denoise_device"
	MetaRerankerModel  = "rerankerModel"
	MetaRerankerDevice = "rerankerDevice"
	MetaTurnServerIP   = "turnServerIp"
)

// buildArgs assembles the worker runner argument list for a workload. Each
// workload type has its own variant so that adding a type without an
// argument rule is a compile-visible gap, not a silent lookup miss.
// buildArgs 为工作负载组装运行器参数列表。每种工作负载类型都有独立分支，
// 新增类型而缺少参数规则时是编译可见的缺口，而不是无声的查表失败。
func buildArgs(w *workload.Workload, cfg Config) ([]string, error) {
	port := strconv.Itoa(w.Port)

	switch w.Type {
	case workload.TypeSpeechToText:
		return []string{
			"--stt-model-id", w.Model,
			"--stt-device", w.Device,
			"--denoise-model-id", w.Metadata.String(MetaDenoiseModel),
			"--denoise-device", w.Metadata.String(MetaDenoiseDevice),
			"--port", port,
		}, nil

	case workload.TypeEmbedding:
		return []string{
			"--embedding-model-id", w.Model,
			"--embedding-device", w.Device,
			"--reranker-model-id", w.Metadata.String(MetaRerankerModel),
			"--reranker-device", w.Metadata.String(MetaRerankerDevice),
			"--port", port,
		}, nil

	case workload.TypeTextGeneration:
		return []string{
			"--model-id", w.Model,
			"--port", port,
			"--device", w.Device,
		}, nil

	case workload.TypeTextToSpeech:
		return []string{
			"--port", port,
			"--device", w.Device,
		}, nil

	case workload.TypeLipsync:
		args := []string{
			"--port", port,
			"--tts_port", strconv.Itoa(cfg.TTSPort),
			"--device", w.Device,
		}
		if turnServer := w.Metadata.String(MetaTurnServerIP); turnServer != "" {
			args = append(args, "--turn_server", turnServer)
		}
		return args, nil

	default:
		return nil, fmt.Errorf("%w: %q", workload.ErrWorkloadInvalidType, w.Type)
	}
}

// workerDir returns the working directory for a workload's worker process.
// Text-to-speech workers have per-model implementations, so their directory
// additionally includes the model identifier.
// workerDir 返回工作负载进程的工作目录。text-to-speech 按模型有独立实现，
// 因此其目录额外包含模型标识。
func workerDir(w *workload.Workload, cfg Config) string {
	dir := filepath.Join(cfg.WorkersDir, string(w.Type))
	if w.Type == workload.TypeTextToSpeech && w.Model != "" {
		dir = filepath.Join(dir, w.Model)
	}
	return dir
}
