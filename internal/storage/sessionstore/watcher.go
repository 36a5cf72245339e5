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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"agent-studio/internal/runtime/session"
)

const defaultDebounce = 200 * time.Millisecond

type pendingOp int

const (
	opReload pendingOp = iota + 1
	opRemove
)

// StaleFunc 会话被替换或删除后回调，参数为旧版本会话
type StaleFunc func(ctx context.Context, old *session.AgentSession)

// Watcher 监听会话目录，使 Store 与目录内容保持同步
type Watcher struct {
	loader   *Loader
	dir      string
	debounce time.Duration
	resync   time.Duration
	onStale  StaleFunc

	watcher *fsnotify.Watcher
}

// WatcherOption 配置 Watcher
type WatcherOption func(*Watcher)

// WithDebounce 合并同一文件连续事件的等待时间
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithResync 周期性全量重新加载目录；<=0 关闭
func WithResync(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.resync = d }
}

// WithStaleHook 会话变更或删除时的回调（通常用于失效阶段分组缓存）
func WithStaleHook(fn StaleFunc) WatcherOption {
	return func(w *Watcher) { w.onStale = fn }
}

// NewWatcher 创建目录监听器；目录不存在时创建
func NewWatcher(loader *Loader, dir string, opts ...WatcherOption) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{loader: loader, dir: dir, debounce: defaultDebounce, watcher: fw}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Run 处理文件事件直到 ctx 取消；返回前关闭底层 watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	logger := w.loader.logger

	pending := make(map[string]pendingOp)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	var resyncC <-chan time.Time
	if w.resync > 0 {
		t := time.NewTicker(w.resync)
		defer t.Stop()
		resyncC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			switch {
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				pending[event.Name] = opReload
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				pending[event.Name] = opRemove
			default:
				continue
			}
			logger.Debug("fsnotify", "op", event.Op.String(), "file", event.Name)
			timer.Reset(w.debounce)
		case <-timer.C:
			for path, op := range pending {
				w.apply(ctx, path, op)
			}
			pending = make(map[string]pendingOp)
		case <-resyncC:
			if _, err := w.loader.LoadDir(ctx, w.dir); err != nil {
				logger.Error("周期性重新加载失败", "dir", w.dir, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, path string, op pendingOp) {
	switch op {
	case opReload:
		var old *session.AgentSession
		if id, ok := w.loader.SessionIDFor(path); ok {
			if rec, err := w.loader.store.Get(ctx, id); err == nil {
				old = rec.Session
			}
		}
		if _, err := w.loader.LoadFile(ctx, path); err != nil {
			return
		}
		w.loader.refreshGauge(ctx)
		w.stale(ctx, old)
	case opRemove:
		// 编辑器常以“重命名后新建”方式保存，文件仍存在时按重新加载处理
		if _, err := os.Stat(path); err == nil {
			w.apply(ctx, path, opReload)
			return
		}
		rec, err := w.loader.Forget(ctx, path)
		if err != nil {
			w.loader.logger.Error("移除会话失败", "path", path, "error", err)
			return
		}
		if rec != nil {
			w.stale(ctx, rec.Session)
		}
	}
}

func (w *Watcher) stale(ctx context.Context, old *session.AgentSession) {
	if old != nil && w.onStale != nil {
		w.onStale(ctx, old)
	}
}
