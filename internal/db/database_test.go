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

package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeai/workstation/internal/apps/workload"
	"github.com/edgeai/workstation/internal/config"
)

func TestOpenSQLiteMigratesWorkloadTable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Type:       DatabaseTypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "workstation.db"),
		LogLevel:   "silent",
	}

	gdb, err := Open(cfg)
	require.NoError(t, err)
	defer Close(gdb)

	assert.True(t, gdb.Migrator().HasTable(&workload.Workload{}))
}

func TestOpenDefaultsToSQLite(t *testing.T) {
	cfg := config.DatabaseConfig{
		SQLitePath: filepath.Join(t.TempDir(), "default.db"),
		LogLevel:   "silent",
	}

	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Close(gdb))
}

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Type: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
