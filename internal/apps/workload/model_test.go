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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkloadTypeValid(t *testing.T) {
	for _, typ := range AllTypes {
		assert.True(t, typ.Valid(), "type %s", typ)
	}
	assert.False(t, WorkloadType("quantum").Valid())
	assert.False(t, WorkloadType("").Valid())
}

func TestWorkloadStatusValid(t *testing.T) {
	for _, s := range []WorkloadStatus{StatusPrepare, StatusActive, StatusInactive, StatusRestart, StatusError} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, WorkloadStatus("busy").Valid())
}

func TestProcessName(t *testing.T) {
	w := &Workload{ID: "abc-123", Type: TypeSpeechToText}
	assert.Equal(t, "speech-to-text_abc-123", w.ProcessName())
}

func TestMetadataString(t *testing.T) {
	m := Metadata{"turnServerIp": "10.0.0.8", "count": 3}
	assert.Equal(t, "10.0.0.8", m.String("turnServerIp"))
	// 非字符串值与缺失键都返回空串
	assert.Empty(t, m.String("count"))
	assert.Empty(t, m.String("missing"))
	assert.Empty(t, Metadata(nil).String("any"))
}
