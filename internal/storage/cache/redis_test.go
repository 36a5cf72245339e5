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
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需设置 TEST_REDIS_ADDR（如 localhost:6379）
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis cache tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	s := NewRedisStore(client, "studio-test:"+uuid.NewString()+":")
	t.Cleanup(func() {
		_ = s.Clear(context.Background())
		_ = s.Close()
	})
	return s
}

func TestRedisStore_Contract(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", map[string]int{"a": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, s.Get(ctx, "k1", &got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	ok, err := s.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k1"))
	assert.ErrorIs(t, s.Get(ctx, "k1", &got), ErrMiss)
	assert.NoError(t, s.Delete(ctx, "k1"))
}

func TestRedisStore_ClearOnlyPrefix(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(ctx, uuid.NewString(), i, 0))
	}
	other := NewRedisStore(s.client, "studio-test-other:"+uuid.NewString()+":")
	require.NoError(t, other.Set(ctx, "keep", 1, time.Minute))
	defer func() { _ = other.Delete(ctx, "keep") }()

	require.NoError(t, s.Clear(ctx))
	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
	ok, err := other.Exists(ctx, "keep")
	require.NoError(t, err)
	assert.True(t, ok)
}
