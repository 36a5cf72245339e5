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

package http

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"agent-studio/internal/api/http/middleware"
)

// Router HTTP 路由
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *jwt.HertzJWTMiddleware
	rateRPS    int
	rateBurst  int
	metrics    bool
}

// NewRouter 创建路由
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw, metrics: true}
}

// SetJWT 启用 JWT：注册 /api/auth/login，并保护导入与删除接口
func (r *Router) SetJWT(auth *jwt.HertzJWTMiddleware) {
	r.jwt = auth
}

// SetRateLimit 全局限流，rps<=0 关闭
func (r *Router) SetRateLimit(rps, burst int) {
	r.rateRPS, r.rateBurst = rps, burst
}

// SetMetricsEnabled 是否暴露 /metrics
func (r *Router) SetMetricsEnabled(enable bool) {
	r.metrics = enable
}

// Build 创建 Hertz 实例并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)

	h.Use(r.middleware.RequestID(), r.middleware.AccessLog(), r.middleware.CORS())
	if r.rateRPS > 0 {
		h.Use(r.middleware.RateLimit(r.rateRPS, r.rateBurst))
	}

	h.GET("/", r.handler.ServiceInfo)
	if r.metrics {
		h.GET("/metrics", r.handler.Metrics)
	}

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	if r.jwt != nil {
		api.POST("/auth/login", r.jwt.LoginHandler)
		api.GET("/auth/refresh_token", r.jwt.RefreshHandler)
	}

	sessions := api.Group("/v1/sessions")
	{
		sessions.GET("", r.handler.ListSessions)
		sessions.POST("", r.protect(r.handler.ImportSession)...)
		sessions.GET("/:id", r.handler.GetSession)
		sessions.DELETE("/:id", r.protect(r.handler.DeleteSession)...)
		sessions.GET("/:id/phase-groups", r.handler.PhaseGroups)
		sessions.GET("/:id/phase-summary", r.handler.PhaseSummary)
		sessions.GET("/:id/annotations", r.handler.Annotations)
		sessions.GET("/:id/flow", r.handler.Flow)
		sessions.GET("/:id/tree", r.handler.PhaseTree)
		sessions.GET("/:id/tree/page", r.handler.PhaseTreePage)
	}
	return h
}

// protect 启用 JWT 时在处理器前加认证
func (r *Router) protect(h app.HandlerFunc) []app.HandlerFunc {
	if r.jwt == nil {
		return []app.HandlerFunc{h}
	}
	return []app.HandlerFunc{r.jwt.MiddlewareFunc(), h}
}
