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

package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteAndReadTail(t *testing.T) {
	dir := t.TempDir()
	sink, err := New("stt_abc", Options{Dir: dir}, zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	for i := 0; i < 5; i++ {
		sink.Write(Record{
			PID:     1234,
			Type:    StreamStdout,
			Message: fmt.Sprintf("line %d", i),
		})
	}

	records, err := ReadTail(dir, "stt_abc", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "line 2", records[0].Message)
	assert.Equal(t, "line 4", records[2].Message)

	// 进程名和时间戳在写入时补齐
	assert.Equal(t, "stt_abc", records[0].Process)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.Equal(t, 1234, records[0].PID)
}

func TestReadTailMoreThanAvailable(t *testing.T) {
	dir := t.TempDir()
	sink, err := New("tts_x", Options{Dir: dir}, zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	sink.Write(Record{Type: StreamSystem, Message: "started"})

	records, err := ReadTail(dir, "tts_x", 100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "started", records[0].Message)
}

func TestReadTailMissingFileReturnsEmpty(t *testing.T) {
	records, err := ReadTail(t.TempDir(), "no_such_process", 10)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadTailSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	sink, err := New("emb_y", Options{Dir: dir}, zap.NewNop())
	require.NoError(t, err)

	sink.Write(Record{Type: StreamStdout, Message: "good one"})
	require.NoError(t, sink.Close())

	// 在文件中间注入损坏的行
	f, err := os.OpenFile(sink.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json at all\nplain text\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sink2, err := New("emb_y", Options{Dir: dir}, zap.NewNop())
	require.NoError(t, err)
	sink2.Write(Record{Type: StreamStdout, Message: "good two"})
	require.NoError(t, sink2.Close())

	records, err := ReadTail(dir, "emb_y", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "good one", records[0].Message)
	assert.Equal(t, "good two", records[1].Message)
}

func TestAgeBasedRotation(t *testing.T) {
	dir := t.TempDir()
	sink, err := New("rot_z", Options{Dir: dir, RotateEvery: time.Nanosecond}, zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	sink.Write(Record{Type: StreamStdout, Message: "first"})
	time.Sleep(5 * time.Millisecond)
	sink.Write(Record{Type: StreamStdout, Message: "second"})

	// 第二次写入触发了基于时间的轮转，产生备份文件
	entries, err := filepath.Glob(filepath.Join(dir, "rot_z*"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)

	// 活动文件只包含轮转后的记录
	records, err := ReadTail(dir, "rot_z", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "second", records[0].Message)
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	dir := t.TempDir()
	sink, err := New("closed_w", Options{Dir: dir}, zap.NewNop())
	require.NoError(t, err)

	sink.Write(Record{Type: StreamStdout, Message: "kept"})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close()) // idempotent

	sink.Write(Record{Type: StreamStdout, Message: "dropped"})

	records, err := ReadTail(dir, "closed_w", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
}
