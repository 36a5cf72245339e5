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

package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agent-studio/internal/runtime/session"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS studio_sessions (
	session_id TEXT PRIMARY KEY,
	task_title TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	item       JSONB NOT NULL,
	raw        BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgStore PostgreSQL 实现；item 为列表摘要（jsonb），raw 保留原始字节
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建基于 PostgreSQL 的会话存储并确保表存在
func NewPostgresStore(ctx context.Context, dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("初始化 studio_sessions 失败: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		raw     []byte
		source  string
		updated time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT raw, source, updated_at FROM studio_sessions WHERE session_id = $1`, id,
	).Scan(&raw, &source, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	sess, err := session.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Record{Session: sess, Raw: raw, Source: source, UpdatedAt: updated}, nil
}

func (s *pgStore) List(ctx context.Context, opts ListOptions) ([]session.ListItem, int, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if opts.Status != "" {
		rows, err = s.pool.Query(ctx, `SELECT item FROM studio_sessions WHERE status = $1`, opts.Status)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT item FROM studio_sessions`)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]session.ListItem, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, err
		}
		var it session.ListItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	out, total := applyListOptions(items, opts)
	return out, total, nil
}

func (s *pgStore) Put(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	item, err := json.Marshal(rec.Session.Item())
	if err != nil {
		return err
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO studio_sessions (session_id, task_title, status, created_at, source, item, raw, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			task_title = EXCLUDED.task_title,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			source = EXCLUDED.source,
			item = EXCLUDED.item,
			raw = EXCLUDED.raw,
			updated_at = EXCLUDED.updated_at`,
		rec.Session.SessionID, rec.Session.TaskTitle, string(rec.Session.Status), rec.Session.CreatedAt, rec.Source, string(item), rec.Raw, updated,
	)
	return err
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM studio_sessions WHERE session_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *pgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM studio_sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close 关闭连接池
func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
