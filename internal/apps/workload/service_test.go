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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyHook records lifecycle callbacks.
type spyHook struct {
	statusChanged []*Workload
	deleted       []*Workload
}

func (h *spyHook) OnStatusChanged(_ context.Context, w *Workload) {
	h.statusChanged = append(h.statusChanged, w)
}

func (h *spyHook) OnDeleted(_ context.Context, w *Workload) {
	h.deleted = append(h.deleted, w)
}

func newTestService(t *testing.T) (*Service, *spyHook, func()) {
	t.Helper()
	db, cleanup := setupTestDB(t)
	hook := &spyHook{}
	svc := NewService(NewRepository(db), hook, 1024, 65535)
	return svc, hook, cleanup
}

func TestServiceCreateDefaultsToInactive(t *testing.T) {
	svc, hook, cleanup := newTestService(t)
	defer cleanup()

	w, err := svc.Create(context.Background(), &CreateRequest{
		Name: "demo",
		Type: TypeTextGeneration,
		Port: 7030,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, StatusInactive, w.Status)

	// inactive 的初始状态不触发进程启动
	assert.Empty(t, hook.statusChanged)
}

func TestServiceCreateWithPrepareTriggersHook(t *testing.T) {
	svc, hook, cleanup := newTestService(t)
	defer cleanup()

	w, err := svc.Create(context.Background(), &CreateRequest{
		Name:   "demo",
		Type:   TypeSpeechToText,
		Port:   7010,
		Status: StatusPrepare,
	})
	require.NoError(t, err)

	require.Len(t, hook.statusChanged, 1)
	assert.Equal(t, w.ID, hook.statusChanged[0].ID)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateRequest{Name: "x", Type: "quantum", Port: 7030})
	require.ErrorIs(t, err, ErrWorkloadInvalidType)

	_, err = svc.Create(ctx, &CreateRequest{Name: "x", Type: TypeEmbedding, Port: 80})
	require.ErrorIs(t, err, ErrWorkloadInvalidPort)

	_, err = svc.Create(ctx, &CreateRequest{Name: "x", Type: TypeEmbedding, Port: 7030, Status: "busy"})
	require.ErrorIs(t, err, ErrWorkloadInvalidStatus)

	// restart / error 是运行期状态，不能作为初始状态
	_, err = svc.Create(ctx, &CreateRequest{Name: "x", Type: TypeEmbedding, Port: 7030, Status: StatusRestart})
	require.ErrorIs(t, err, ErrWorkloadInvalidStatus)

	_, err = svc.Create(ctx, &CreateRequest{Name: "x", Type: TypeEmbedding, Port: 7030, Status: StatusError})
	require.ErrorIs(t, err, ErrWorkloadInvalidStatus)
}

func TestServiceUpdateStatus(t *testing.T) {
	svc, hook, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	w, err := svc.Create(ctx, &CreateRequest{Name: "demo", Type: TypeTextGeneration, Port: 7030})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, w.ID, StatusPrepare)
	require.NoError(t, err)
	assert.Equal(t, StatusPrepare, updated.Status)
	require.Len(t, hook.statusChanged, 1)
	assert.Equal(t, StatusPrepare, hook.statusChanged[0].Status)

	_, err = svc.UpdateStatus(ctx, w.ID, "busy")
	require.ErrorIs(t, err, ErrWorkloadInvalidStatus)

	_, err = svc.UpdateStatus(ctx, "no-such-id", StatusActive)
	require.ErrorIs(t, err, ErrWorkloadNotFound)
}

func TestServiceUpdateNeverTouchesStatus(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	w, err := svc.Create(ctx, &CreateRequest{Name: "demo", Type: TypeTextGeneration, Port: 7030})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, w.ID, map[string]interface{}{
		"name":   "renamed",
		"status": StatusActive, // 必须被忽略
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, StatusInactive, updated.Status)
}

func TestServiceDeleteStopsProcessFirst(t *testing.T) {
	svc, hook, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	w, err := svc.Create(ctx, &CreateRequest{Name: "demo", Type: TypeTextGeneration, Port: 7030})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, w.ID))
	require.Len(t, hook.deleted, 1)
	assert.Equal(t, w.ID, hook.deleted[0].ID)

	_, err = svc.Get(ctx, w.ID)
	require.ErrorIs(t, err, ErrWorkloadNotFound)

	// 删除不存在的工作负载
	require.ErrorIs(t, svc.Delete(ctx, w.ID), ErrWorkloadNotFound)
}
