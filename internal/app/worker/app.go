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

package worker

import (
	"context"
	"fmt"
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"agent-studio/internal/app"
	"agent-studio/internal/storage/sessionstore"
	"agent-studio/pkg/tracing"
)

// App Worker 应用：把会话目录同步进持久化存储
type App struct {
	bootstrap *app.Bootstrap
	workerID  string
	watcher   *sessionstore.Watcher
	tracer    *sdktrace.TracerProvider
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewApp 创建 Worker 应用；会话目录不存在时自动创建
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	if bootstrap.Config.Sessions.Dir == "" {
		return nil, fmt.Errorf("sessions.dir 未配置")
	}
	w, err := bootstrap.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("初始化目录监听失败: %w", err)
	}
	return &App{
		bootstrap: bootstrap,
		workerID:  DefaultWorkerID(),
		watcher:   w,
		done:      make(chan struct{}),
	}, nil
}

// Start 全量加载一次后在后台持续监听
func (a *App) Start() error {
	logger := a.bootstrap.Logger.With("worker_id", a.workerID)
	logger.Info("启动 worker 应用", "dir", a.bootstrap.Config.Sessions.Dir)

	if tc := a.bootstrap.Config.Monitoring.Tracing; tc.Enable && tc.ExportEndpoint != "" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    tc.ServiceName,
			ExportEndpoint: tc.ExportEndpoint,
			Insecure:       tc.Insecure,
		})
		if err != nil {
			return fmt.Errorf("初始化链路追踪失败: %w", err)
		}
		a.tracer = tp
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	report, err := a.bootstrap.LoadSessions(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("加载会话目录失败: %w", err)
	}
	for _, f := range report.Failed {
		logger.Warn("会话文件未导入", "path", f.Path, "error", f.Error)
	}

	go func() {
		defer close(a.done)
		if err := a.watcher.Run(ctx); err != nil {
			logger.Error("目录监听退出", "error", err)
		}
	}()
	logger.Info("worker 应用启动成功", "loaded", report.Loaded, "failed", len(report.Failed))
	return nil
}

// Shutdown 停止监听并释放存储
func (a *App) Shutdown(ctx context.Context) error {
	a.bootstrap.Logger.Info("关闭 worker 应用")
	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if a.tracer != nil {
		_ = a.tracer.Shutdown(ctx)
	}
	return a.bootstrap.Close()
}

// DefaultWorkerID 优先 WORKER_ID 环境变量，其次主机名
func DefaultWorkerID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	host, _ := os.Hostname()
	if host != "" {
		return host
	}
	return "worker-unknown"
}
