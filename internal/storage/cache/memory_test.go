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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-studio/pkg/config"
)

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k1", "v1", 0))
	var v string
	require.NoError(t, s.Get(ctx, "k1", &v))
	assert.Equal(t, "v1", v)
	require.NoError(t, s.Delete(ctx, "k1"))
	assert.ErrorIs(t, s.Get(ctx, "k1", &v), ErrMiss)
	// 重复删除不报错
	assert.NoError(t, s.Delete(ctx, "k1"))
}

func TestMemoryStore_StructRoundTrip(t *testing.T) {
	type payload struct {
		ID    string   `json:"id"`
		Items []string `json:"items"`
	}
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "p", payload{ID: "a", Items: []string{"x", "y"}}, time.Minute))
	var got payload
	require.NoError(t, s.Get(ctx, "p", &got))
	assert.Equal(t, payload{ID: "a", Items: []string{"x", "y"}}, got)
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	var v string
	assert.ErrorIs(t, NewMemoryStore().Get(context.Background(), "missing", &v), ErrMiss)
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Set(ctx, "k", "v", 0))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "short", 1, time.Second))
	require.NoError(t, s.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Second)
	var v int
	assert.ErrorIs(t, s.Get(ctx, "short", &v), ErrMiss)
	ok, _ := s.Exists(ctx, "short")
	assert.False(t, ok)
	require.NoError(t, s.Get(ctx, "forever", &v))
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, s.Purge())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k1", "v1", 0))
	require.NoError(t, s.Clear(ctx))
	var v string
	assert.Error(t, s.Get(ctx, "k1", &v))
	assert.Equal(t, 0, s.Len())
}

func TestNewCache(t *testing.T) {
	s, err := NewCache(config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewCache(config.CacheConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewCache(config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}
