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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"agent-studio/internal/runtime/session"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	task_title TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	item       TEXT NOT NULL,
	raw        BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// SQLiteStore 基于 modernc.org/sqlite 的单文件存储
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 打开（必要时创建）数据库文件并建表；path 为 ":memory:" 时使用内存库
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	// 单连接，避免 :memory: 下每个连接各自一份库
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化 sqlite 表失败: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var (
		raw     []byte
		source  string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT raw, source, updated_at FROM sessions WHERE session_id = ?`, id,
	).Scan(&raw, &source, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	sess, err := session.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Record{Session: sess, Raw: raw, Source: source, UpdatedAt: time.UnixMilli(updated)}, nil
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]session.ListItem, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item FROM sessions`)
	if err != nil {
		return nil, 0, fmt.Errorf("查询会话列表失败: %w", err)
	}
	defer rows.Close()

	items := make([]session.ListItem, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, err
		}
		var it session.ListItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			return nil, 0, fmt.Errorf("解析列表项失败: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	out, total := applyListOptions(items, opts)
	return out, total, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, task_title, status, created_at, source, item, raw, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			task_title = excluded.task_title,
			status = excluded.status,
			created_at = excluded.created_at,
			source = excluded.source,
			item = excluded.item,
			raw = excluded.raw,
			updated_at = excluded.updated_at`,
		rec.Session.SessionID, rec.Session.TaskTitle, string(rec.Session.Status), rec.Session.CreatedAt, rec.Source, string(item), rec.Raw, updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
