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

package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/internal/app"
	"agent-studio/pkg/config"
)

func newBootstrap(t *testing.T, mutate func(*config.Config)) *app.Bootstrap {
	t.Helper()
	cfg := config.Defaults()
	cfg.Log.File = filepath.Join(t.TempDir(), "api.log")
	if mutate != nil {
		mutate(cfg)
	}
	b, err := app.NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestNewApp(t *testing.T) {
	a, err := NewApp(newBootstrap(t, nil))
	require.NoError(t, err)
	assert.NotNil(t, a.router)
}

func TestNewApp_AuthRequiresKey(t *testing.T) {
	_, err := NewApp(newBootstrap(t, func(c *config.Config) {
		c.API.Middleware.Auth = true
	}))
	assert.Error(t, err)

	a, err := NewApp(newBootstrap(t, func(c *config.Config) {
		c.API.Middleware.Auth = true
		c.API.Middleware.JWTKey = "k"
		c.API.Middleware.Users = map[string]string{"admin": "pw"}
	}))
	require.NoError(t, err)
	assert.NotNil(t, a)
}
