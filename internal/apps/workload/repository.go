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
	"errors"

	"gorm.io/gorm"
)

// Repository provides data access operations for Workload entities.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create creates a new workload record in the database.
// Returns ErrWorkloadNameEmpty if the workload name is empty.
// Returns ErrWorkloadPortDuplicate if another workload already uses the port.
func (r *Repository) Create(ctx context.Context, w *Workload) error {
	if w.Name == "" {
		return ErrWorkloadNameEmpty
	}

	// Port must be unique across workloads
	// 端口在所有工作负载间必须唯一
	var count int64
	if err := r.db.WithContext(ctx).Model(&Workload{}).Where("port = ?", w.Port).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrWorkloadPortDuplicate
	}

	return r.db.WithContext(ctx).Create(w).Error
}

// GetByID retrieves a workload by its ID.
// Returns ErrWorkloadNotFound if the workload does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Workload, error) {
	var w Workload
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkloadNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Find retrieves workloads matching the filter criteria. A nil filter
// returns all workloads.
func (r *Repository) Find(ctx context.Context, filter *WorkloadFilter) ([]*Workload, error) {
	query := r.db.WithContext(ctx).Model(&Workload{})

	if filter != nil {
		if filter.Name != "" {
			query = query.Where("name LIKE ?", "%"+filter.Name+"%")
		}
		if filter.Type != "" {
			query = query.Where("type = ?", filter.Type)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	var workloads []*Workload
	if err := query.Order("created_at ASC").Find(&workloads).Error; err != nil {
		return nil, err
	}
	return workloads, nil
}

// Update applies the given field set to a workload and returns the updated
// record. Only the listed fields are written, so callers can persist exactly
// the fields that changed.
// Returns ErrWorkloadPortDuplicate when the new port is already taken by
// another workload.
// Update 将给定字段集应用到工作负载并返回更新后的记录。只写入列出的字段，
// 因此调用者可以只持久化发生变化的字段。
func (r *Repository) Update(ctx context.Context, id string, fields map[string]interface{}) (*Workload, error) {
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}

	// A port change must keep the port unique across other workloads
	// 端口变更必须保持端口在其他工作负载间唯一
	if port, ok := fields["port"]; ok {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Workload{}).
			Where("port = ? AND id <> ?", port, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrWorkloadPortDuplicate
		}
	}

	result := r.db.WithContext(ctx).Model(&Workload{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrWorkloadNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a workload record from the database.
// Returns ErrWorkloadNotFound if the workload does not exist.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Workload{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWorkloadNotFound
	}
	return nil
}
