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

// Package phase 将三种历史格式的会话日志统一归并为阶段分组
//
// 优先级：v2 phases > v3 phase_annotations > 启发式自动分组。
// GetPhaseGroups、AutoGroup、ExtractContext 均为纯函数，无 I/O、无共享状态。
package phase

import "agent-studio/internal/runtime/session"

// Source 分组来源
type Source string

const (
	SourcePhases      Source = "phases"
	SourceAnnotations Source = "annotations"
	SourceAuto        Source = "auto"
)

// Group 统一的阶段分组结构
//
// ToolCalls 指向输入会话 ToolCalls 中的元素，不做拷贝。
type Group struct {
	GroupID   string            `json:"group_id"`
	PhaseType session.PhaseType `json:"phase_type"`
	Label     string            `json:"label"`

	ToolCount  int   `json:"tool_count"`
	DurationMs int64 `json:"duration_ms"`
	HasErrors  bool  `json:"has_errors"`

	ToolCalls   []*session.ToolCall        `json:"tool_calls"`
	Decisions   []session.Decision         `json:"decisions"`
	ContextUsed []session.ContextReference `json:"context_used"`
	Description string                     `json:"description,omitempty"`

	Source     Source             `json:"source"`
	Confidence session.Confidence `json:"confidence"`
}

// GetPhaseGroups 从会话生成阶段分组列表，结果非 nil
func GetPhaseGroups(s *session.AgentSession) []Group {
	if groups, ok := tryLegacy(s); ok {
		return groups
	}
	if groups, ok := tryAnnotations(s); ok {
		return groups
	}
	return AutoGroup(s.ToolCalls)
}

// DetectSource 返回 GetPhaseGroups 将采用的策略
func DetectSource(s *session.AgentSession) Source {
	switch {
	case len(s.Phases) > 0:
		return SourcePhases
	case len(s.PhaseAnnotations) > 0:
		return SourceAnnotations
	default:
		return SourceAuto
	}
}

// Flatten 按分组顺序拼接全部工具调用
func Flatten(groups []Group) []*session.ToolCall {
	n := 0
	for i := range groups {
		n += len(groups[i].ToolCalls)
	}
	out := make([]*session.ToolCall, 0, n)
	for i := range groups {
		out = append(out, groups[i].ToolCalls...)
	}
	return out
}

func totalDuration(calls []*session.ToolCall) int64 {
	var sum int64
	for _, tc := range calls {
		sum += tc.DurationMs
	}
	return sum
}

func anyFailed(calls []*session.ToolCall) bool {
	for _, tc := range calls {
		if tc.Failed() {
			return true
		}
	}
	return false
}

func orEmptyDecisions(d []session.Decision) []session.Decision {
	if d == nil {
		return []session.Decision{}
	}
	return d
}

func orEmptyContext(c []session.ContextReference) []session.ContextReference {
	if c == nil {
		return []session.ContextReference{}
	}
	return c
}
