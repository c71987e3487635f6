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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeai/workstation/internal/apps/workload"
)

func TestBuildArgsPerType(t *testing.T) {
	cfg := Config{WorkersDir: "/opt/workers", TTSPort: 5002}

	tests := []struct {
		name string
		w    *workload.Workload
		want []string
	}{
		{
			name: "speech to text with denoise metadata",
			w: &workload.Workload{
				Type:   workload.TypeSpeechToText,
				Model:  "whisper-small",
				Device: "GPU",
				Port:   7010,
				Metadata: workload.Metadata{
					MetaDenoiseModel:  "denoiser-v2",
					MetaDenoiseDevice: "CPU",
				},
			},
			want: []string{
				"--stt-model-id", "whisper-small",
				"--stt-device", "GPU",
				"--denoise-model-id", "denoiser-v2",
				"--denoise-device", "CPU",
				"--port", "7010",
			},
		},
		{
			name: "embedding with reranker metadata",
			w: &workload.Workload{
				Type:   workload.TypeEmbedding,
				Model:  "bge-base",
				Device: "CPU",
				Port:   7020,
				Metadata: workload.Metadata{
					MetaRerankerModel:  "bge-reranker",
					MetaRerankerDevice: "GPU",
				},
			},
			want: []string{
				"--embedding-model-id", "bge-base",
				"--embedding-device", "CPU",
				"--reranker-model-id", "bge-reranker",
				"--reranker-device", "GPU",
				"--port", "7020",
			},
		},
		{
			name: "text generation",
			w: &workload.Workload{
				Type:   workload.TypeTextGeneration,
				Model:  "qwen2-7b",
				Device: "GPU",
				Port:   7030,
			},
			want: []string{"--model-id", "qwen2-7b", "--port", "7030", "--device", "GPU"},
		},
		{
			name: "text to speech omits model argument",
			w: &workload.Workload{
				Type:   workload.TypeTextToSpeech,
				Model:  "melo-tts",
				Device: "CPU",
				Port:   5002,
			},
			want: []string{"--port", "5002", "--device", "CPU"},
		},
		{
			name: "lipsync without turn server",
			w: &workload.Workload{
				Type:   workload.TypeLipsync,
				Device: "GPU",
				Port:   7040,
			},
			want: []string{"--port", "7040", "--tts_port", "5002", "--device", "GPU"},
		},
		{
			name: "lipsync with turn server",
			w: &workload.Workload{
				Type:     workload.TypeLipsync,
				Device:   "GPU",
				Port:     7040,
				Metadata: workload.Metadata{MetaTurnServerIP: "10.0.0.8"},
			},
			want: []string{
				"--port", "7040", "--tts_port", "5002", "--device", "GPU",
				"--turn_server", "10.0.0.8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := buildArgs(tt.w, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestBuildArgsUnknownType(t *testing.T) {
	_, err := buildArgs(&workload.Workload{Type: "quantum"}, Config{})
	require.ErrorIs(t, err, workload.ErrWorkloadInvalidType)
}

func TestWorkerDir(t *testing.T) {
	cfg := Config{WorkersDir: "/opt/workers"}

	w := &workload.Workload{Type: workload.TypeEmbedding, Model: "bge-base"}
	assert.Equal(t, filepath.Join("/opt/workers", "embedding"), workerDir(w, cfg))

	// text-to-speech 按模型有独立目录
	w = &workload.Workload{Type: workload.TypeTextToSpeech, Model: "melo-tts"}
	assert.Equal(t, filepath.Join("/opt/workers", "text-to-speech", "melo-tts"), workerDir(w, cfg))

	// 模型为空时退回类型目录
	w = &workload.Workload{Type: workload.TypeTextToSpeech}
	assert.Equal(t, filepath.Join("/opt/workers", "text-to-speech"), workerDir(w, cfg))
}
