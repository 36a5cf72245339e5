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

package app

import (
	"context"
	"fmt"
	"time"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
	"agent-studio/internal/storage/cache"
	"agent-studio/internal/storage/sessionstore"
	"agent-studio/pkg/config"
	"agent-studio/pkg/log"
)

const defaultCacheTTL = 10 * time.Minute

// Bootstrap 统一初始化：供 api 与 worker 复用，避免在 cmd 内装配存储
type Bootstrap struct {
	Config   *config.Config
	Logger   *log.Logger
	Sessions sessionstore.Store
	Cache    cache.Store // type=none 时为 nil
	Phases   *phase.Service
	Loader   *sessionstore.Loader
}

// NewBootstrap 根据配置创建 Bootstrap（Logger/SessionStore/Cache/PhaseService）；cfg 为 nil 时使用默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	store, err := sessionstore.New(ctx, cfg.Storage.Session)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("初始化会话存储失败: %w", err)
	}

	c, err := cache.NewCache(cfg.Storage.Cache)
	if err != nil {
		store.Close()
		logger.Close()
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}
	var phaseCache phase.Cache
	if c != nil {
		phaseCache = c
	}

	b := &Bootstrap{
		Config:   cfg,
		Logger:   logger,
		Sessions: store,
		Cache:    c,
		Phases:   phase.NewService(phaseCache, config.Duration(cfg.Storage.Cache.TTL, defaultCacheTTL)),
		Loader: sessionstore.NewLoader(store, logger,
			sessionstore.WithConcurrency(cfg.Sessions.LoadConcurrency),
			sessionstore.WithMaxFileSize(cfg.Sessions.MaxFileSize),
		),
	}
	logger.Info("bootstrap 完成",
		"session_store", storeType(cfg.Storage.Session.Type),
		"cache", storeType(cfg.Storage.Cache.Type),
	)
	return b, nil
}

// LoadSessions 加载配置中的会话目录；未配置目录时跳过
func (b *Bootstrap) LoadSessions(ctx context.Context) (*sessionstore.LoadReport, error) {
	dir := b.Config.Sessions.Dir
	if dir == "" {
		return &sessionstore.LoadReport{Failed: []sessionstore.FileError{}}, nil
	}
	return b.Loader.LoadDir(ctx, dir)
}

// NewWatcher 创建会话目录监听器，会话变更时失效对应的阶段分组缓存
func (b *Bootstrap) NewWatcher(opts ...sessionstore.WatcherOption) (*sessionstore.Watcher, error) {
	opts = append([]sessionstore.WatcherOption{
		sessionstore.WithDebounce(config.Duration(b.Config.Worker.Debounce, 0)),
		sessionstore.WithResync(config.Duration(b.Config.Worker.ResyncInterval, 0)),
		sessionstore.WithStaleHook(func(ctx context.Context, old *session.AgentSession) {
			if err := b.Phases.Invalidate(ctx, old); err != nil {
				b.Logger.Warn("失效阶段分组缓存失败", "session_id", old.SessionID, "error", err)
			}
		}),
	}, opts...)
	return sessionstore.NewWatcher(b.Loader, b.Config.Sessions.Dir, opts...)
}

// Close 释放存储与日志文件
func (b *Bootstrap) Close() error {
	var firstErr error
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.Sessions != nil {
		if err := b.Sessions.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.Logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func storeType(t string) string {
	if t == "" {
		return "memory"
	}
	return t
}
