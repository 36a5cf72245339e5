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
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"agent-studio/internal/runtime/phase"
	"agent-studio/internal/runtime/session"
)

// 树节点类型
const (
	NodeSession = "session"
	NodePhase   = "phase"
	NodeTool    = "tool"
)

// PhaseNode 阶段树节点：session → phase group → tool call
type PhaseNode struct {
	ID         string             `json:"id"`
	ParentID   *string            `json:"parent_id,omitempty"`
	Type       string             `json:"type"`
	Label      string             `json:"label"`
	PhaseType  session.PhaseType  `json:"phase_type,omitempty"`
	Color      string             `json:"color,omitempty"`
	ToolName   string             `json:"tool_name,omitempty"`
	Category   string             `json:"category,omitempty"`
	Status     string             `json:"status,omitempty"`
	StartedAt  string             `json:"started_at,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	HasErrors  bool               `json:"has_errors,omitempty"`
	StepIndex  int                `json:"step_index,omitempty"`
	Input      json.RawMessage    `json:"input,omitempty"`  // type=tool
	Output     json.RawMessage    `json:"output,omitempty"` // type=tool
	Confidence session.Confidence `json:"confidence,omitempty"`
	Children   []*PhaseNode       `json:"children,omitempty"`
}

// BuildPhaseTree 由分组结果构建阶段树；工具节点按调用顺序编号（从 1 开始）
func BuildPhaseTree(s *session.AgentSession, groups []phase.Group) *PhaseNode {
	root := &PhaseNode{
		ID:    s.SessionID,
		Type:  NodeSession,
		Label: s.TaskTitle,
	}
	if root.Label == "" {
		root.Label = s.SessionID
	}
	rootID := root.ID
	step := 0
	for _, g := range groups {
		gid := g.GroupID
		pn := &PhaseNode{
			ID:         gid,
			ParentID:   &rootID,
			Type:       NodePhase,
			Label:      g.Label,
			PhaseType:  g.PhaseType,
			Color:      phase.Color(g.PhaseType),
			DurationMs: g.DurationMs,
			HasErrors:  g.HasErrors,
			Confidence: g.Confidence,
		}
		for _, tc := range g.ToolCalls {
			step++
			tn := &PhaseNode{
				ID:         tc.CallID,
				ParentID:   &gid,
				Type:       NodeTool,
				Label:      tc.ToolName,
				ToolName:   tc.ToolName,
				Category:   string(tc.ToolCategory),
				Status:     string(tc.Output.Status),
				StartedAt:  tc.StartedAt,
				DurationMs: tc.DurationMs,
				HasErrors:  tc.Failed(),
				StepIndex:  step,
			}
			if b, err := json.Marshal(tc.Input); err == nil {
				tn.Input = b
			}
			if b, err := json.Marshal(tc.Output); err == nil {
				tn.Output = b
			}
			pn.Children = append(pn.Children, tn)
		}
		root.DurationMs += g.DurationMs
		root.HasErrors = root.HasErrors || g.HasErrors
		root.Children = append(root.Children, pn)
	}
	return root
}

// StepInfo 时间线中的一行（阶段或工具调用）
type StepInfo struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Label      string          `json:"label"`
	Depth      int             `json:"depth"`
	DurationMs int64           `json:"duration_ms"`
	HasErrors  bool            `json:"has_errors,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// FlattenSteps 深度优先展开为时间线，不含根节点
func FlattenSteps(root *PhaseNode) []StepInfo {
	out := make([]StepInfo, 0)
	if root == nil {
		return out
	}
	var walk func(n *PhaseNode, depth int)
	walk = func(n *PhaseNode, depth int) {
		if n.Type != NodeSession {
			label := n.Label
			switch n.Type {
			case NodePhase:
				label = "Phase " + n.Label
			case NodeTool:
				label = "Tool " + n.ToolName
			}
			out = append(out, StepInfo{
				ID:         n.ID,
				Type:       n.Type,
				Label:      label,
				Depth:      depth,
				DurationMs: n.DurationMs,
				HasErrors:  n.HasErrors,
				Input:      n.Input,
				Output:     n.Output,
			})
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, -1)
	return out
}

// PhaseTreeToHTML 将阶段树渲染为嵌套列表页面
func PhaseTreeToHTML(root *PhaseNode) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(root.Label))
	b.WriteString("</title><style>body{font-family:sans-serif}li{margin:2px 0}.err{color:#ef4444}code{color:#6b7280}</style></head><body><ul>")
	renderNodeHTML(&b, root)
	b.WriteString("</ul></body></html>")
	return b.String()
}

func renderNodeHTML(b *strings.Builder, n *PhaseNode) {
	label := html.EscapeString(n.Label)
	switch n.Type {
	case NodeSession:
		label = "Session " + label
	case NodePhase:
		label = fmt.Sprintf(`<span style="color:%s">%s</span> (%d tools, %s)`,
			html.EscapeString(n.Color), label, len(n.Children), session.FormatDuration(n.DurationMs))
	case NodeTool:
		label = fmt.Sprintf("#%d %s (%s)", n.StepIndex, label, session.FormatDuration(n.DurationMs))
	}
	class := ""
	if n.HasErrors {
		class = ` class="err"`
	}
	fmt.Fprintf(b, "<li%s><b>%s</b> <code>%s</code>", class, label, n.Type)
	if len(n.Children) > 0 {
		b.WriteString("<ul>")
		for _, c := range n.Children {
			renderNodeHTML(b, c)
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</li>")
}
