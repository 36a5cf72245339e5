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

// Package sessionstore 持久化已导入的会话日志
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agent-studio/internal/runtime/session"
	"agent-studio/pkg/config"
)

// Record 一条已存储的会话：解析结果、原始 JSON 以及来源
type Record struct {
	Session   *session.AgentSession
	Raw       []byte
	Source    string // 文件路径或 "api"
	UpdatedAt time.Time
}

// NewRecord 由解析后的会话构造记录；raw 为空时重新序列化
func NewRecord(s *session.AgentSession, raw []byte, source string) (*Record, error) {
	if raw == nil {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("序列化会话失败: %w", err)
		}
		raw = b
	}
	return &Record{Session: s, Raw: raw, Source: source, UpdatedAt: time.Now()}, nil
}

// ListOptions 列表查询条件
type ListOptions struct {
	Query  string // 见 session.ParseQuery
	Status string
	Sort   string // name | session_id | status
	Dir    string // asc | desc
	Offset int
	Limit  int // <=0 不限制
}

// Store 会话存储接口
type Store interface {
	// Get 按 session_id 获取；不存在返回 ErrNotFound
	Get(ctx context.Context, id string) (*Record, error)
	// List 返回过滤、排序、分页后的摘要以及过滤后的总数
	List(ctx context.Context, opts ListOptions) ([]session.ListItem, int, error)
	// Put 插入或覆盖
	Put(ctx context.Context, rec *Record) error
	// Delete 删除；不存在返回 ErrNotFound
	Delete(ctx context.Context, id string) error
	// Count 会话总数
	Count(ctx context.Context) (int, error)
	Close() error
}

// New 根据配置创建会话存储
func New(ctx context.Context, cfg config.SessionStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "data/studio.db"
		}
		return NewSQLiteStore(ctx, path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage.session.type=postgres 时 dsn 必填")
		}
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", cfg.Type)
	}
}

// applyListOptions 对摘要做搜索、状态过滤、排序和分页
func applyListOptions(items []session.ListItem, opts ListOptions) ([]session.ListItem, int) {
	q := session.ParseQuery(opts.Query)
	out := make([]session.ListItem, 0, len(items))
	for _, it := range items {
		if opts.Status != "" && string(it.Status) != opts.Status {
			continue
		}
		if !q.Empty() && !session.Match(it, q) {
			continue
		}
		out = append(out, it)
	}
	session.SortItems(out, opts.Sort, opts.Dir)

	total := len(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []session.ListItem{}, total
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total
}

func validateRecord(rec *Record) error {
	if rec == nil || rec.Session == nil || rec.Session.SessionID == "" {
		return fmt.Errorf("%w: session_id 必填", errInvalid)
	}
	return nil
}
