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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "workstation", cfg.App.AppName)
	assert.Equal(t, DefaultAddr, cfg.App.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, DefaultHealthCheckInterval, cfg.Supervisor.HealthCheckInterval)
	assert.Equal(t, DefaultMinPort, cfg.Supervisor.MinPort)
	assert.Equal(t, DefaultMaxPort, cfg.Supervisor.MaxPort)
	assert.Equal(t, DefaultTTSPort, cfg.Supervisor.TTSPort)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  app_name: edge-station
  addr: ":9090"
database:
  type: sqlite
  sqlite_path: /tmp/test.db
log:
  level: debug
supervisor:
  runner_path: /opt/env/run_worker
  health_check_interval: 30s
  grace_period: 10s
  min_port: 5000
  max_port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "edge-station", cfg.App.AppName)
	assert.Equal(t, ":9090", cfg.App.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/env/run_worker", cfg.Supervisor.RunnerPath)
	assert.Equal(t, 30*time.Second, cfg.Supervisor.HealthCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.Supervisor.GracePeriod)
	assert.Equal(t, 5000, cfg.Supervisor.MinPort)
	assert.Equal(t, 9000, cfg.Supervisor.MaxPort)

	// 未设置的字段落回默认值
	assert.Equal(t, DefaultTTSPort, cfg.Supervisor.TTSPort)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WORKSTATION_APP_ADDR", ":7777")
	t.Setenv("WORKSTATION_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.App.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Type = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Type = "mysql" // DSN 缺失
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Supervisor.RunnerPath = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Supervisor.MinPort = 9000
	cfg.Supervisor.MaxPort = 5000
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Supervisor.HealthCheckInterval = 0
	assert.Error(t, cfg.Validate())
}
