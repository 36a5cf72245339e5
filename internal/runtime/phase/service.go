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

package phase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agent-studio/internal/runtime/session"
	"agent-studio/pkg/metrics"
	"agent-studio/pkg/tracing"
)

// Cache 分组结果缓存，internal/storage/cache.Store 满足该接口
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
}

// Result 一次分组的结果
type Result struct {
	SessionID string  `json:"session_id"`
	Source    Source  `json:"source"`
	Groups    []Group `json:"groups"`
}

// Service 带缓存的分组入口；缓存键包含会话内容哈希，会话变更后自然失效
type Service struct {
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewService 创建分组服务，cache 为 nil 时每次重新计算
func NewService(cache Cache, ttl time.Duration) *Service {
	return &Service{cache: cache, ttl: ttl, now: time.Now}
}

// Groups 返回会话的阶段分组；缓存读写失败时退化为直接计算
//
// 命中缓存时 ToolCalls 为反序列化出的副本，而非输入会话中的元素。
func (svc *Service) Groups(ctx context.Context, s *session.AgentSession) Result {
	ctx, span := tracing.StartPhaseGroupSpan(ctx, s.SessionID, len(s.ToolCalls))
	defer span.End()

	key := ""
	if svc.cache != nil {
		key = CacheKey(s)
	}
	if key != "" {
		var cached Result
		if err := svc.cache.Get(ctx, key, &cached); err == nil {
			metrics.PhaseGroupCacheTotal.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("phase.cache_hit", true), attribute.String("phase.source", string(cached.Source)))
			return cached
		}
		metrics.PhaseGroupCacheTotal.WithLabelValues("miss").Inc()
	}

	start := svc.now()
	res := Result{SessionID: s.SessionID, Source: DetectSource(s), Groups: GetPhaseGroups(s)}
	metrics.PhaseGroupingTotal.WithLabelValues(string(res.Source)).Inc()
	metrics.PhaseGroupingDuration.WithLabelValues(string(res.Source)).Observe(svc.now().Sub(start).Seconds())
	span.SetAttributes(
		attribute.Bool("phase.cache_hit", false),
		attribute.String("phase.source", string(res.Source)),
		attribute.Int("phase.groups", len(res.Groups)),
	)

	if key != "" {
		if err := svc.cache.Set(ctx, key, res, svc.ttl); err != nil {
			span.RecordError(err)
		}
	}
	return res
}

// Invalidate 删除会话当前内容对应的缓存项
func (svc *Service) Invalidate(ctx context.Context, s *session.AgentSession) error {
	if svc.cache == nil {
		return nil
	}
	key := CacheKey(s)
	if key == "" {
		return nil
	}
	return svc.cache.Delete(ctx, key)
}

// CacheKey 会话 id + 内容哈希；无法序列化时返回空串
func CacheKey(s *session.AgentSession) string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "phase-groups:" + s.SessionID + ":" + hex.EncodeToString(sum[:8])
}
