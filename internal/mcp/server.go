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

// Package mcp 通过 MCP stdio 协议把阶段分组能力暴露为工具
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
	"agent-studio/internal/storage/sessionstore"
	"agent-studio/pkg/log"
)

// Config MCP 服务配置
type Config struct {
	Name    string
	Version string
	Dir     string // 启动时加载的会话目录，可为空
	Logger  *log.Logger
}

// Server 基于内存会话存储的 MCP 服务
type Server struct {
	server *mcp.Server
	store  sessionstore.Store
	loader *sessionstore.Loader
	logger *log.Logger
}

// PhaseGroupsInput session_phase_groups 参数；path 与 session_id 二选一
type PhaseGroupsInput struct {
	Path      string `json:"path,omitempty" jsonschema:"会话 JSON 文件路径"`
	SessionID string `json:"session_id,omitempty" jsonschema:"已加载会话的 session_id"`
}

// ValidateInput session_validate 参数
type ValidateInput struct {
	Path string `json:"path" jsonschema:"待校验的会话 JSON 文件路径"`
}

// ListInput session_list 参数
type ListInput struct {
	Query string `json:"query,omitempty" jsonschema:"搜索串，支持精确短语以及 tool: 和 status: 过滤"`
}

// ValidateOutput 校验结果
type ValidateOutput struct {
	Valid     bool                 `json:"valid"`
	SessionID string               `json:"session_id,omitempty"`
	Errors    []session.FieldError `json:"errors"`
}

// NewServer 创建 MCP 服务并加载会话目录
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithWriter(os.Stderr, "info", "text")
	}
	store := sessionstore.NewMemoryStore()
	s := &Server{
		store:  store,
		loader: sessionstore.NewLoader(store, logger),
		logger: logger,
	}
	if cfg.Dir != "" {
		if _, err := s.loader.LoadDir(ctx, cfg.Dir); err != nil {
			return nil, fmt.Errorf("加载会话目录失败: %w", err)
		}
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, &mcp.ServerOptions{
		Logger: logger.Logger,
	})
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_phase_groups",
		Description: "返回会话的阶段分组（phases > phase_annotations > 自动推断）",
	}, s.handlePhaseGroups)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_validate",
		Description: "校验会话 JSON 文件，列出字段级错误",
	}, s.handleValidate)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_list",
		Description: "列出已加载的会话，可按关键词、工具名、状态过滤",
	}, s.handleList)
	return s, nil
}

// Run 在 stdio 上提供服务，直到客户端断开或 ctx 取消
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect 在指定传输上建立会话，测试中配合 InMemoryTransport 使用
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Close 释放会话存储
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) handlePhaseGroups(ctx context.Context, _ *mcp.CallToolRequest, in PhaseGroupsInput) (*mcp.CallToolResult, any, error) {
	var sess *session.AgentSession
	switch {
	case in.Path != "":
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, nil, err
		}
		if sess, err = session.Validate(data); err != nil {
			return nil, nil, err
		}
	case in.SessionID != "":
		rec, err := s.store.Get(ctx, in.SessionID)
		if err != nil {
			return nil, nil, err
		}
		sess = rec.Session
	default:
		return nil, nil, errors.New("path 或 session_id 必须提供其一")
	}
	res := phase.Result{SessionID: sess.SessionID, Source: phase.DetectSource(sess), Groups: phase.GetPhaseGroups(sess)}
	return jsonResult(res)
}

func (s *Server) handleValidate(ctx context.Context, _ *mcp.CallToolRequest, in ValidateInput) (*mcp.CallToolResult, any, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, nil, err
	}
	out := ValidateOutput{Valid: true, Errors: []session.FieldError{}}
	sess, err := session.Validate(data)
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		out.Valid = false
		out.Errors = verr.Errors
	case err != nil:
		return nil, nil, err
	default:
		out.SessionID = sess.SessionID
	}
	return jsonResult(out)
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, any, error) {
	items, total, err := s.store.List(ctx, sessionstore.ListOptions{Query: in.Query})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(map[string]any{"sessions": items, "total": total})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
}
