// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
  host: "127.0.0.1"
log:
  level: "debug"
sessions:
  dir: "/var/sessions"
  watch: true
storage:
  session:
    type: sqlite
    path: /tmp/studio.db
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Addr())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/sessions", cfg.Sessions.Dir)
	assert.True(t, cfg.Sessions.Watch)
	assert.Equal(t, "sqlite", cfg.Storage.Session.Type)

	// 未出现的字段保留默认值
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Sessions.LoadConcurrency)
	assert.Equal(t, "memory", cfg.Storage.Cache.Type)
	assert.Equal(t, "agent-studio", cfg.Monitoring.Tracing.ServiceName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("STUDIO_TEST_DSN", "postgres://u:p@db/studio")
	path := writeConfig(t, `
storage:
  session:
    type: postgres
    dsn: "${STUDIO_TEST_DSN}"
  cache:
    addr: "${STUDIO_TEST_UNSET_ADDR}"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/studio", cfg.Storage.Session.DSN)
	assert.Equal(t, "${STUDIO_TEST_UNSET_ADDR}", cfg.Storage.Cache.Addr)
}

func TestLoadConfig_SecretRefs(t *testing.T) {
	t.Setenv("STUDIO_JWT_KEY", "from-env-store")
	t.Setenv("ADMIN_PASSWORD", "pw")
	path := writeConfig(t, `
secrets:
  provider: env
api:
  middleware:
    jwt_key: "secret://studio.jwt_key"
    users:
      admin: "secret://admin.password"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env-store", cfg.API.Middleware.JWTKey)
	assert.Equal(t, "pw", cfg.API.Middleware.Users["admin"])
}

func TestLoadConfig_UnresolvableSecret(t *testing.T) {
	path := writeConfig(t, `
secrets:
  provider: memory
storage:
  session:
    dsn: "secret://missing"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "data/sessions", cfg.Sessions.Dir)
	assert.Equal(t, "memory", cfg.Storage.Session.Type)
	assert.True(t, cfg.Monitoring.Prometheus.Enable)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, Duration("bogus", 5*time.Second))
	assert.Equal(t, 90*time.Minute, Duration("1h30m", time.Second))
}
