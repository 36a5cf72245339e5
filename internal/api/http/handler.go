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
	"bytes"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
	"agent-studio/internal/storage/sessionstore"
	pkgerrors "agent-studio/pkg/errors"
	"agent-studio/pkg/log"
	"agent-studio/pkg/metrics"
)

// Version 服务版本，构建时可由 -ldflags 覆盖
var Version = "dev"

const maxPageLimit = 500

// Handler HTTP 处理器
type Handler struct {
	store     sessionstore.Store
	phases    *phase.Service
	startedAt time.Time
}

// NewHandler 创建 HTTP 处理器；phases 为 nil 时不使用缓存
func NewHandler(store sessionstore.Store, phases *phase.Service) *Handler {
	if phases == nil {
		phases = phase.NewService(nil, 0)
	}
	return &Handler{store: store, phases: phases, startedAt: time.Now()}
}

// ServiceInfo GET /
func (h *Handler) ServiceInfo(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"service": "agent-studio",
		"version": Version,
		"endpoints": []string{
			"/api/health",
			"/api/v1/sessions",
			"/api/v1/sessions/:id/phase-groups",
			"/metrics",
		},
	})
}

// HealthCheck GET /api/health
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	body := map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.store != nil {
		n, err := h.store.Count(ctx)
		if err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			c.JSON(consts.StatusServiceUnavailable, body)
			return
		}
		body["sessions"] = n
	}
	c.JSON(consts.StatusOK, body)
}

// Metrics GET /metrics
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// ListSessions GET /api/v1/sessions?q=&status=&sort=&dir=&offset=&limit=
func (h *Handler) ListSessions(ctx context.Context, c *app.RequestContext) {
	opts := sessionstore.ListOptions{
		Query:  c.Query("q"),
		Status: c.Query("status"),
		Sort:   c.DefaultQuery("sort", session.SortBySessionID),
		Dir:    c.DefaultQuery("dir", session.SortDesc),
	}
	var err error
	if opts.Offset, err = intQuery(c, "offset", 0); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	if opts.Limit, err = intQuery(c, "limit", 0); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	if opts.Limit > maxPageLimit {
		opts.Limit = maxPageLimit
	}

	items, total, err := h.store.List(ctx, opts)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"sessions": items,
		"total":    total,
		"offset":   opts.Offset,
		"limit":    opts.Limit,
	})
}

// GetSession GET /api/v1/sessions/:id
func (h *Handler) GetSession(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	c.Data(consts.StatusOK, "application/json; charset=utf-8", rec.Raw)
}

// ImportSession POST /api/v1/sessions
func (h *Handler) ImportSession(ctx context.Context, c *app.RequestContext) {
	raw := append([]byte(nil), c.Request.Body()...)
	s, err := session.Validate(raw)
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}
	rec, err := sessionstore.NewRecord(s, raw, "api")
	if err != nil {
		h.writeError(ctx, c, err)
		return
	}

	if old, err := h.store.Get(ctx, s.SessionID); err == nil {
		h.invalidate(ctx, old.Session)
	}
	if err := h.store.Put(ctx, rec); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	if n, err := h.store.Count(ctx); err == nil {
		metrics.SessionsLoaded.Set(float64(n))
	}
	log.FromContext(ctx).Info("会话已导入", "session_id", s.SessionID, "tool_calls", len(s.ToolCalls))
	c.JSON(consts.StatusCreated, s.Item())
}

// DeleteSession DELETE /api/v1/sessions/:id
func (h *Handler) DeleteSession(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, rec.Session.SessionID); err != nil {
		h.writeError(ctx, c, err)
		return
	}
	h.invalidate(ctx, rec.Session)
	if n, err := h.store.Count(ctx); err == nil {
		metrics.SessionsLoaded.Set(float64(n))
	}
	c.Status(consts.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context, s *session.AgentSession) {
	if err := h.phases.Invalidate(ctx, s); err != nil {
		log.FromContext(ctx).Warn("阶段分组缓存失效失败", "session_id", s.SessionID, "error", err)
	}
}

// PhaseGroups GET /api/v1/sessions/:id/phase-groups
func (h *Handler) PhaseGroups(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	c.JSON(consts.StatusOK, h.phases.Groups(ctx, rec.Session))
}

// PhaseSummary GET /api/v1/sessions/:id/phase-summary
func (h *Handler) PhaseSummary(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	res := h.phases.Groups(ctx, rec.Session)
	c.JSON(consts.StatusOK, map[string]interface{}{
		"session_id": rec.Session.SessionID,
		"source":     res.Source,
		"phases":     phase.Summarize(res.Groups),
		"stats":      session.ComputeStats(rec.Session),
	})
}

// Annotations GET /api/v1/sessions/:id/annotations
func (h *Handler) Annotations(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	anns := phase.AnnotationsFromPhases(rec.Session)
	if anns == nil {
		anns = []session.PhaseAnnotation{}
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"session_id":  rec.Session.SessionID,
		"annotations": anns,
		"legacy":      rec.Session.IsLegacy(),
	})
}

// Flow GET /api/v1/sessions/:id/flow
func (h *Handler) Flow(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	s := rec.Session
	c.JSON(consts.StatusOK, map[string]interface{}{
		"session_id": s.SessionID,
		"segments":   phase.FlowSegments(s.ToolCalls, phase.AnnotationsFromPhases(s)),
	})
}

// PhaseTree GET /api/v1/sessions/:id/tree
func (h *Handler) PhaseTree(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	res := h.phases.Groups(ctx, rec.Session)
	root := BuildPhaseTree(rec.Session, res.Groups)
	c.JSON(consts.StatusOK, map[string]interface{}{
		"session_id": rec.Session.SessionID,
		"source":     res.Source,
		"tree":       root,
		"steps":      FlattenSteps(root),
	})
}

// PhaseTreePage GET /api/v1/sessions/:id/tree/page
func (h *Handler) PhaseTreePage(ctx context.Context, c *app.RequestContext) {
	rec, ok := h.loadSession(ctx, c)
	if !ok {
		return
	}
	res := h.phases.Groups(ctx, rec.Session)
	page := PhaseTreeToHTML(BuildPhaseTree(rec.Session, res.Groups))
	c.Data(consts.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) loadSession(ctx context.Context, c *app.RequestContext) (*sessionstore.Record, bool) {
	id := c.Param("id")
	if id == "" {
		h.writeError(ctx, c, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "session id is required"))
		return nil, false
	}
	rec, err := h.store.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, c, err)
		return nil, false
	}
	return rec, true
}

// writeError ErrNotFound -> 404，ErrInvalidArg -> 400，其余 500
func (h *Handler) writeError(ctx context.Context, c *app.RequestContext, err error) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(consts.StatusBadRequest, map[string]interface{}{
			"error":  "会话格式无效",
			"errors": verr.Errors,
		})
	case errors.Is(err, pkgerrors.ErrNotFound):
		c.JSON(consts.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, pkgerrors.ErrInvalidArg):
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.FromContext(ctx).Error("请求处理失败", "path", string(c.Path()), "error", err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "内部错误"})
	}
}

func intQuery(c *app.RequestContext, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, pkgerrors.Wrapf(pkgerrors.ErrInvalidArg, "%s must be a non-negative integer", key)
	}
	return n, nil
}
