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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"agent-studio/internal/runtime/session"
	"agent-studio/pkg/log"
	"agent-studio/pkg/metrics"
	"agent-studio/pkg/tracing"
)

const defaultLoadConcurrency = 8

// FileError 单个文件的加载失败原因
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// LoadReport 一次目录加载的结果
type LoadReport struct {
	Loaded int         `json:"loaded"`
	Failed []FileError `json:"failed"`
}

// Loader 从目录读取会话 JSON 文件并写入 Store，记录文件路径到 session_id 的映射
type Loader struct {
	store       Store
	logger      *log.Logger
	concurrency int
	maxFileSize int64

	mu    sync.Mutex
	paths map[string]string // 绝对路径 -> session_id
}

// LoaderOption 配置 Loader
type LoaderOption func(*Loader)

// WithConcurrency 并发读取的文件数上限
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithMaxFileSize 单文件大小上限（字节），<=0 不限制
func WithMaxFileSize(n int64) LoaderOption {
	return func(l *Loader) { l.maxFileSize = n }
}

// NewLoader 创建 Loader；logger 为 nil 时使用默认 Logger
func NewLoader(store Store, logger *log.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	l := &Loader{
		store:       store,
		logger:      logger,
		concurrency: defaultLoadConcurrency,
		paths:       make(map[string]string),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Store 底层会话存储
func (l *Loader) Store() Store { return l.store }

// LoadDir 并发加载 dir 下全部 *.json；单个文件失败只记录，不中断整体加载
func (l *Loader) LoadDir(ctx context.Context, dir string) (*LoadReport, error) {
	ctx, span := tracing.StartSessionLoadSpan(ctx, dir)
	defer span.End()

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("会话目录不可用: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("扫描会话目录失败: %w", err)
	}
	sort.Strings(files)

	report := &LoadReport{Failed: []FileError{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			_, err := l.LoadFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, FileError{Path: path, Error: err.Error()})
				return nil
			}
			report.Loaded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Path < report.Failed[j].Path })

	l.refreshGauge(ctx)
	l.logger.Info("会话目录加载完成", "dir", dir, "loaded", report.Loaded, "failed", len(report.Failed))
	return report, nil
}

// LoadFile 读取、校验并存储单个会话文件
func (l *Loader) LoadFile(ctx context.Context, path string) (*Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rec, err := l.readFile(abs)
	if err != nil {
		metrics.SessionLoadErrorsTotal.Inc()
		l.logger.Warn("会话文件无效", "path", abs, "error", err)
		return nil, err
	}
	if err := l.store.Put(ctx, rec); err != nil {
		metrics.SessionLoadErrorsTotal.Inc()
		l.logger.Error("写入会话失败", "path", abs, "session_id", rec.Session.SessionID, "error", err)
		return nil, err
	}
	l.mu.Lock()
	prev := l.paths[abs]
	l.paths[abs] = rec.Session.SessionID
	l.mu.Unlock()
	// 文件内 session_id 变更时移除旧会话
	if prev != "" && prev != rec.Session.SessionID {
		if err := l.store.Delete(ctx, prev); err != nil && !errors.Is(err, ErrNotFound) {
			l.logger.Warn("移除旧会话失败", "path", abs, "session_id", prev, "error", err)
		}
	}
	l.logger.Debug("会话已加载", "path", abs, "session_id", rec.Session.SessionID, "tool_calls", len(rec.Session.ToolCalls))
	return rec, nil
}

func (l *Loader) readFile(path string) (*Record, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%w: 仅支持 .json 文件", errInvalid)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("%w: 文件过大 (%d > %d 字节)", errInvalid, info.Size(), l.maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sess, err := session.Validate(data)
	if err != nil {
		return nil, err
	}
	return NewRecord(sess, data, path)
}

// SessionIDFor 返回此前从 path 加载的 session_id
func (l *Loader) SessionIDFor(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.paths[abs]
	return id, ok
}

// Forget 删除 path 对应的会话，返回被删除的记录；path 未加载过时返回 nil
func (l *Loader) Forget(ctx context.Context, path string) (*Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l.mu.Lock()
	id, ok := l.paths[abs]
	delete(l.paths, abs)
	l.mu.Unlock()
	if !ok {
		return nil, nil
	}

	rec, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	l.refreshGauge(ctx)
	l.logger.Info("会话已移除", "path", abs, "session_id", id)
	return rec, nil
}

func (l *Loader) refreshGauge(ctx context.Context) {
	if n, err := l.store.Count(ctx); err == nil {
		metrics.SessionsLoaded.Set(float64(n))
	}
}
