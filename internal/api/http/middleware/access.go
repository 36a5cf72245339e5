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

package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"agent-studio/pkg/log"
	"agent-studio/pkg/metrics"
)

// AccessLog 记录每个请求的操作、资源、状态码与耗时，并计入 HTTPRequestsTotal
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		path := string(c.Path())
		code := c.Response.StatusCode()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()

		resourceType, resourceID := extractResource(path)
		log.FromContext(ctx).Info("access",
			"method", string(c.Method()),
			"path", path,
			"action", determineAction(string(c.Method()), path),
			"resource_type", resourceType,
			"resource_id", resourceID,
			"status", code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// determineAction 根据 HTTP 方法和路径确定操作类型
func determineAction(method string, path string) string {
	if !strings.HasPrefix(path, "/api/v1/sessions") {
		return "other"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// api v1 sessions [:id [view...]]
	switch len(parts) {
	case 3:
		if method == "POST" {
			return "import_session"
		}
		return "list_sessions"
	case 4:
		if method == "DELETE" {
			return "delete_session"
		}
		return "view_session"
	default:
		return "view_" + strings.ReplaceAll(strings.Join(parts[4:], "_"), "-", "_")
	}
}

// extractResource 从路径提取资源类型和 ID
func extractResource(path string) (resourceType string, resourceID string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 4 && parts[0] == "api" && parts[2] == "sessions" {
		return "session", parts[3]
	}
	return "unknown", ""
}
